package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ratio conventions a formula can declare for its component ratios.
// RatioAuto keeps the legacy behavior: ratios summing below 10 are read
// as fractions of 1, anything else as percentages.
const (
	RatioAuto     = "auto"
	RatioPercent  = "percent"
	RatioFraction = "fraction"
)

type Formula struct {
	gorm.Model
	Description     string             `gorm:"not null" json:"description"`
	Code            string             `gorm:"uniqueIndex" json:"code"`
	Density         float64            `gorm:"not null;default:0" json:"density"`
	PricePerLiter   decimal.Decimal    `gorm:"type:numeric(14,4);not null;default:0" json:"price_per_liter"`
	RatioConvention string             `gorm:"type:varchar(16);not null;default:auto" json:"ratio_convention"`
	Notes           string             `gorm:"type:text" json:"notes"`
	Components      []FormulaComponent `gorm:"foreignKey:FormulaID" json:"components"`
}
