// Package formula computes production plans for paint formulas: per-component
// target weights from ratios, densities and volumes, stock sufficiency, cost
// totals, and the over-pour correction flow.
package formula

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("formula: not found")

// Loader fetches the aggregate the calculator works on. Storage adapters
// implement it; the calculator itself never touches a database.
type Loader interface {
	Formula(ctx context.Context, id uint) (Formula, error)
}

// Formula is the read model of a paint recipe.
type Formula struct {
	ID              uint
	Description     string
	Density         float64 // nominal g/ml, 0 when unknown
	PricePerLiter   decimal.Decimal
	RatioConvention string
	Components      []Component
}

// Component is one raw-material share within a formula.
type Component struct {
	ID          uint
	Ratio       float64
	WeightGrams float64
	Item        Item
}

// Item is the inventory read model a component points at.
type Item struct {
	ID        uint
	Name      string
	Code      string
	ColorHex  string
	Quantity  float64 // on hand, in stock units
	StockUnit string
	Measures  []Measure
	Prices    []decimal.Decimal // ordered, first is the costing price
}

// Measure is a typed per-stock-unit quantity declaration.
type Measure struct {
	Type  string // MeasureWeight or MeasureVolume
	Unit  string
	Value float64
}

// UnitPrice returns the first listed price, or zero when the item has none.
func (it Item) UnitPrice() decimal.Decimal {
	if len(it.Prices) == 0 {
		return decimal.Zero
	}
	return it.Prices[0]
}

// measure returns the normalized value of the first measure of the given
// type, in grams or milliliters.
func (it Item) measure(measureType string) (float64, bool) {
	for _, m := range it.Measures {
		if m.Type == measureType {
			return Normalize(m.Value, m.Unit), true
		}
	}
	return 0, false
}

// WeightPerUnitG reports how many grams one stock unit of the item weighs,
// or 0 when the item has no weight measure.
func (it Item) WeightPerUnitG() float64 {
	weight, ok := it.measure(MeasureWeight)
	if !ok {
		return 0
	}
	return weight
}
