package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Production is one executed batch of a formula. Stock deductions made for
// the batch reference it through InventoryMovement.
type Production struct {
	gorm.Model
	BatchCode          string          `gorm:"type:varchar(36);uniqueIndex;not null" json:"batch_code"`
	FormulaID          uint            `gorm:"not null" json:"formula_id"`
	TargetVolumeML     float64         `gorm:"not null;default:0" json:"target_volume_ml"`
	TargetWeightG      float64         `gorm:"not null;default:0" json:"target_weight_g"`
	RemovedForTestingG float64         `gorm:"not null;default:0" json:"removed_for_testing_g"`
	TotalCost          decimal.Decimal `gorm:"type:numeric(14,4);not null;default:0" json:"total_cost"`
	CostPerLiter       decimal.Decimal `gorm:"type:numeric(14,4);not null;default:0" json:"cost_per_liter"`
	OperatorID         *uint           `json:"operator_id"`
	Notes              string          `gorm:"type:text" json:"notes"`

	Formula  *Formula  `gorm:"foreignKey:FormulaID" json:"formula,omitempty"`
	Operator *Employee `gorm:"foreignKey:OperatorID" json:"operator,omitempty"`
}

func (p *Production) BeforeCreate(tx *gorm.DB) error {
	if p.BatchCode == "" {
		p.BatchCode = uuid.New().String()
	}
	return nil
}
