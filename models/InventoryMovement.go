package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Movement types recorded in the stock ledger.
const (
	MovementProduction = "production"
	MovementWeigh      = "weigh"
	MovementAdjust     = "adjust"
)

// InventoryMovement is one stock change for an item. Quantities are in the
// item's stock unit; WeightGrams keeps the weighed mass when the change came
// from a scale reading.
type InventoryMovement struct {
	gorm.Model
	MovementID     string  `gorm:"type:varchar(36);uniqueIndex;not null" json:"movement_id"`
	ItemID         uint    `gorm:"not null;index" json:"item_id"`
	MovementType   string  `gorm:"not null" json:"movement_type"`
	QuantityChange float64 `gorm:"not null" json:"quantity_change"`
	QuantityBefore float64 `gorm:"not null" json:"quantity_before"`
	QuantityAfter  float64 `gorm:"not null" json:"quantity_after"`
	WeightGrams    float64 `gorm:"not null;default:0" json:"weight_grams"`
	ReferenceType  string  `json:"reference_type"`
	ReferenceID    *uint   `json:"reference_id"`
	Notes          string  `json:"notes"`

	Item *Item `gorm:"foreignKey:ItemID" json:"item,omitempty"`
}

func (m *InventoryMovement) BeforeCreate(tx *gorm.DB) error {
	if m.MovementID == "" {
		m.MovementID = uuid.New().String()
	}
	return nil
}
