package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Item struct {
	gorm.Model
	Name       string         `gorm:"not null" json:"name"`
	Code       string         `gorm:"uniqueIndex;not null" json:"code"`
	Brand      string         `json:"brand"`
	Line       string         `json:"line"`
	ColorHex   string         `gorm:"type:varchar(16)" json:"color_hex"`
	Quantity   float64        `gorm:"not null;default:0" json:"quantity"`
	StockUnit  string         `gorm:"not null;default:UN" json:"stock_unit"`
	Attributes datatypes.JSON `json:"attributes"`
	Notes      string         `gorm:"type:text" json:"notes"`
	Active     bool           `gorm:"not null;default:true" json:"active"`
	Measures   []Measure      `gorm:"foreignKey:ItemID" json:"measures"`
	Prices     []Price        `gorm:"foreignKey:ItemID" json:"prices"`
}

// Measure records how much of the item one stock unit holds, by weight or
// by volume. An item may carry both kinds.
type Measure struct {
	gorm.Model
	ItemID      uint    `gorm:"not null" json:"item_id"`
	MeasureType string  `gorm:"not null" json:"measure_type"`
	Unit        string  `gorm:"not null" json:"unit"`
	Value       float64 `gorm:"not null" json:"value"`
}

// Price is one purchase price per stock unit. The lowest Position is the
// price costing uses.
type Price struct {
	gorm.Model
	ItemID   uint            `gorm:"not null" json:"item_id"`
	Amount   decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"amount"`
	Currency string          `gorm:"type:varchar(8);not null;default:BRL" json:"currency"`
	Position int             `gorm:"not null;default:0" json:"position"`
}
