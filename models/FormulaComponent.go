package models

import (
	"gorm.io/gorm"
)

type FormulaComponent struct {
	gorm.Model
	FormulaID uint    `gorm:"not null" json:"formula_id"` // Parent Formula
	ItemID    uint    `gorm:"not null" json:"item_id"`
	Ratio     float64 `gorm:"not null" json:"ratio"`
	// WeightGrams is the last weighed amount for this component, recorded
	// when the operator confirms a pour. Zero until first weighed.
	WeightGrams float64 `gorm:"not null;default:0" json:"weight_grams"`
	Position    int     `gorm:"not null;default:0" json:"position"`

	// Preloadable item details for projections and the calculator.
	Item *Item `gorm:"foreignKey:ItemID" json:"item,omitempty"`
}
