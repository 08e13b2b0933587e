package formula

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Ratio conventions a formula can declare.
const (
	ConventionAuto     = "auto"
	ConventionPercent  = "percent"
	ConventionFraction = "fraction"
)

// Input gathers everything one plan derivation depends on. TargetWeightG
// wins over TargetVolumeML when both are set; otherwise the weight is
// derived from the volume through the formula's nominal density.
type Input struct {
	Formula            Formula
	TargetVolumeML     float64
	TargetWeightG      float64
	RemovedForTestingG float64
	Correction         *Correction
}

// ComponentPlan is the derived requirement for one component. Weights are
// grams, volumes milliliters.
type ComponentPlan struct {
	ComponentID      uint            `json:"component_id"`
	ItemID           uint            `json:"item_id"`
	ItemName         string          `json:"item_name"`
	ItemCode         string          `json:"item_code"`
	Ratio            float64         `json:"ratio"`
	ExpectedWeightG  float64         `json:"expected_weight_g"`
	WeightG          float64         `json:"weight_g"`
	VolumeML         float64         `json:"volume_ml"`
	Density          float64         `json:"density"`
	RequiredUnits    float64         `json:"required_units"`
	AvailableUnits   float64         `json:"available_units"`
	AvailableG       float64         `json:"available_g"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Cost             decimal.Decimal `json:"cost"`
	HasStock         bool            `json:"has_stock"`
	IsErrorComponent bool            `json:"is_error_component"`
	AlreadyAdded     bool            `json:"already_added"`
	AdditionalG      float64         `json:"additional_g"`
}

// Totals aggregates a plan.
type Totals struct {
	TargetWeightG float64         `json:"target_weight_g"`
	WeightG       float64         `json:"weight_g"`
	VolumeML      float64         `json:"volume_ml"`
	Cost          decimal.Decimal `json:"cost"`
	CostPerLiter  decimal.Decimal `json:"cost_per_liter"`
	AllInStock    bool            `json:"all_in_stock"`
	RatioSum      float64         `json:"ratio_sum"`
	RatioSumValid bool            `json:"ratio_sum_valid"`
}

// Plan is the full derivation for one formula and target.
type Plan struct {
	FormulaID        uint            `json:"formula_id"`
	Components       []ComponentPlan `json:"components"`
	Totals           Totals          `json:"totals"`
	CorrectionActive bool            `json:"correction_active"`
	ErrorRatio       float64         `json:"error_ratio"`
}

// Calculate derives the production plan. It is pure: same input, same plan,
// recomputed on every call.
func Calculate(in Input) Plan {
	nominal := nominalDensity(in.Formula)
	targetWeight := in.TargetWeightG
	if targetWeight <= 0 && in.TargetVolumeML > 0 {
		targetWeight = in.TargetVolumeML * nominal
	}
	targetWeight -= in.RemovedForTestingG

	plan := Plan{
		FormulaID:  in.Formula.ID,
		ErrorRatio: 1,
	}
	if in.Correction.Active() {
		plan.CorrectionActive = true
		plan.ErrorRatio = in.Correction.ErrorRatio()
	}

	if targetWeight <= 0 {
		plan.Totals = Totals{AllInStock: true}
		return plan
	}

	ratios, ratioSum := resolveRatios(in.Formula.Components, in.Formula.RatioConvention)

	totals := Totals{
		TargetWeightG: targetWeight,
		Cost:          decimal.Zero,
		AllInStock:    true,
		RatioSum:      ratioSum,
		RatioSumValid: math.Abs(ratioSum-100) <= 0.1,
	}

	components := make([]ComponentPlan, 0, len(in.Formula.Components))
	for idx, component := range in.Formula.Components {
		expected := targetWeight * ratios[idx] / 100
		weight := expected

		cp := ComponentPlan{
			ComponentID:     component.ID,
			ItemID:          component.Item.ID,
			ItemName:        component.Item.Name,
			ItemCode:        component.Item.Code,
			Ratio:           ratios[idx],
			ExpectedWeightG: expected,
		}

		if plan.CorrectionActive {
			weight = expected * plan.ErrorRatio
			if component.ID == in.Correction.ErrorComponentID {
				cp.IsErrorComponent = true
				if almostEqual(expected, in.Correction.ExpectedWeightG) {
					weight = in.Correction.ActualWeightG
				}
			} else if in.Correction.Added(component.ID) {
				cp.AlreadyAdded = true
				cp.AdditionalG = expected * (plan.ErrorRatio - 1)
			}
		}
		cp.WeightG = weight

		cp.Density = densityFor(component.Item, nominal)
		if cp.Density > 0 {
			cp.VolumeML = weight / cp.Density
		}

		cp.RequiredUnits, cp.AvailableG = stockRequirement(weight, component.Item)
		cp.AvailableUnits = component.Item.Quantity
		cp.HasStock = cp.RequiredUnits <= component.Item.Quantity ||
			almostEqual(cp.RequiredUnits, component.Item.Quantity)

		cp.UnitPrice = component.Item.UnitPrice()
		cp.Cost = cp.UnitPrice.Mul(decimal.NewFromFloat(cp.RequiredUnits))

		totals.WeightG += cp.WeightG
		totals.VolumeML += cp.VolumeML
		totals.Cost = totals.Cost.Add(cp.Cost)
		totals.AllInStock = totals.AllInStock && cp.HasStock

		components = append(components, cp)
	}

	totals.CostPerLiter = costPerLiter(totals.Cost, totals.VolumeML)

	plan.Components = components
	plan.Totals = totals
	return plan
}

// resolveRatios normalizes component ratios to percentages. Under the auto
// convention a positive sum below 10 is read as fractional storage and every
// ratio is scaled by 100; the explicit conventions bypass the heuristic.
func resolveRatios(components []Component, convention string) ([]float64, float64) {
	sum := 0.0
	for _, component := range components {
		sum += component.Ratio
	}

	factor := 1.0
	switch strings.ToLower(strings.TrimSpace(convention)) {
	case ConventionFraction:
		factor = 100
	case ConventionPercent:
		factor = 1
	default:
		if sum > 0 && sum < 10 {
			factor = 100
		}
	}

	ratios := make([]float64, len(components))
	for idx, component := range components {
		ratios[idx] = component.Ratio * factor
	}
	return ratios, sum * factor
}

// densityFor derives an item's density from its weight and volume measures,
// falling back to the formula's nominal density.
func densityFor(item Item, nominal float64) float64 {
	weightG, okWeight := item.measure(MeasureWeight)
	volumeML, okVolume := item.measure(MeasureVolume)
	if okWeight && okVolume && volumeML > 0 {
		return weightG / volumeML
	}
	return nominal
}

func nominalDensity(f Formula) float64 {
	if f.Density > 0 {
		return f.Density
	}
	return 1.0
}

// stockRequirement converts a required weight into the item's stock units
// and reports how many grams the item's on-hand quantity covers. Items
// counted in pieces use their per-unit weight measure; without one the
// quantity is assumed to already be gram-denominated.
func stockRequirement(weightG float64, item Item) (requiredUnits, availableG float64) {
	switch strings.ToLower(strings.TrimSpace(item.StockUnit)) {
	case "kg", "kilogram", "kilograms":
		return weightG / 1000, item.Quantity * 1000
	case "g", "gram", "grams":
		return weightG, item.Quantity
	}
	if perUnit := item.WeightPerUnitG(); perUnit > 0 {
		return weightG / perUnit, item.Quantity * perUnit
	}
	return weightG, item.Quantity
}

// StockUnits converts a weighed-out amount of grams into the item's stock
// units under the same policy production planning uses.
func StockUnits(weightG float64, item Item) float64 {
	units, _ := stockRequirement(weightG, item)
	return units
}

func costPerLiter(total decimal.Decimal, volumeML float64) decimal.Decimal {
	if volumeML <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromFloat(volumeML / 1000))
}

func almostEqual(a, b float64) bool {
	const epsilon = 1e-6
	return math.Abs(a-b) <= epsilon
}
