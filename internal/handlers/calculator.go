package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tintaria/internal/formula"
	applog "tintaria/internal/log"
	"tintaria/models"
)

type calculatorPlanRequest struct {
	FormulaID          uint    `json:"formula_id"`
	TargetVolumeML     float64 `json:"target_volume_ml"`
	TargetWeightG      float64 `json:"target_weight_g"`
	RemovedForTestingG float64 `json:"removed_for_testing_g"`
}

type correctionRequest struct {
	FormulaID          uint    `json:"formula_id"`
	Action             string  `json:"action"`
	ComponentID        uint    `json:"component_id"`
	ActualWeightG      float64 `json:"actual_weight_g"`
	AlreadyAdded       *bool   `json:"already_added"`
	TargetVolumeML     float64 `json:"target_volume_ml"`
	TargetWeightG      float64 `json:"target_weight_g"`
	RemovedForTestingG float64 `json:"removed_for_testing_g"`
}

// storeLoader reads calculator formulas out of the gorm store.
type storeLoader struct {
	db *gorm.DB
}

func (l storeLoader) Formula(ctx context.Context, id uint) (formula.Formula, error) {
	if l.db == nil {
		return formula.Formula{}, gorm.ErrInvalidDB
	}

	var record models.Formula
	err := l.db.WithContext(ctx).
		Preload("Components", func(db *gorm.DB) *gorm.DB { return db.Order("position asc, id asc") }).
		Preload("Components.Item").
		Preload("Components.Item.Measures").
		Preload("Components.Item.Prices", func(db *gorm.DB) *gorm.DB { return db.Order("position asc, id asc") }).
		First(&record, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return formula.Formula{}, formula.ErrNotFound
		}
		return formula.Formula{}, err
	}

	return calculatorFormula(record), nil
}

func calculatorFormula(record models.Formula) formula.Formula {
	result := formula.Formula{
		ID:              record.ID,
		Description:     record.Description,
		Density:         record.Density,
		PricePerLiter:   record.PricePerLiter,
		RatioConvention: record.RatioConvention,
		Components:      make([]formula.Component, 0, len(record.Components)),
	}

	for _, component := range record.Components {
		entry := formula.Component{
			ID:          component.ID,
			Ratio:       component.Ratio,
			WeightGrams: component.WeightGrams,
		}
		if component.Item != nil {
			entry.Item = calculatorItem(*component.Item)
		}
		result.Components = append(result.Components, entry)
	}

	return result
}

func calculatorItem(item models.Item) formula.Item {
	result := formula.Item{
		ID:        item.ID,
		Name:      item.Name,
		Code:      item.Code,
		ColorHex:  item.ColorHex,
		Quantity:  item.Quantity,
		StockUnit: item.StockUnit,
		Measures:  make([]formula.Measure, 0, len(item.Measures)),
		Prices:    make([]decimal.Decimal, 0, len(item.Prices)),
	}
	for _, measure := range item.Measures {
		result.Measures = append(result.Measures, formula.Measure{
			Type:  measure.MeasureType,
			Unit:  measure.Unit,
			Value: measure.Value,
		})
	}
	for _, price := range item.Prices {
		result.Prices = append(result.Prices, price.Amount)
	}
	return result
}

// CalculatorPlan derives the production plan for a formula and target batch.
func CalculatorPlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if database == nil {
		applog.Debug(r.Context(), "calculator request without database")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	ctx := r.Context()
	var payload calculatorPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid calculator payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if payload.FormulaID == 0 {
		writeJSONError(w, http.StatusBadRequest, "formula_id is required")
		return
	}

	loader := storeLoader{db: database}
	record, err := loader.Formula(ctx, payload.FormulaID)
	if err != nil {
		if errors.Is(err, formula.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load formula for calculator", "error", err, "formulaID", payload.FormulaID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load formula")
		return
	}

	if payload.TargetVolumeML < 0 {
		payload.TargetVolumeML = 0
	}
	if payload.TargetWeightG < 0 {
		payload.TargetWeightG = 0
	}
	if payload.RemovedForTestingG < 0 {
		payload.RemovedForTestingG = 0
	}
	if payload.TargetVolumeML == 0 && payload.TargetWeightG == 0 {
		payload.TargetVolumeML = sessionDefaultBatchVolume(r)
	}

	plan := formula.Calculate(formula.Input{
		Formula:            record,
		TargetVolumeML:     payload.TargetVolumeML,
		TargetWeightG:      payload.TargetWeightG,
		RemovedForTestingG: payload.RemovedForTestingG,
		Correction:         sessionCorrection(r, payload.FormulaID),
	})

	writeJSON(w, http.StatusOK, plan)
}

// CalculatorCorrection drives the over-pour correction flow. State lives in
// the visitor's session, keyed by formula.
func CalculatorCorrection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		updateCorrection(w, r)
	case http.MethodDelete:
		resetCorrection(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func updateCorrection(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "correction request without database")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	ctx := r.Context()
	var payload correctionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid correction payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if payload.FormulaID == 0 {
		writeJSONError(w, http.StatusBadRequest, "formula_id is required")
		return
	}

	loader := storeLoader{db: database}
	record, err := loader.Formula(ctx, payload.FormulaID)
	if err != nil {
		if errors.Is(err, formula.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load formula for correction", "error", err, "formulaID", payload.FormulaID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load formula")
		return
	}

	if payload.TargetVolumeML < 0 {
		payload.TargetVolumeML = 0
	}
	if payload.TargetWeightG < 0 {
		payload.TargetWeightG = 0
	}
	if payload.RemovedForTestingG < 0 {
		payload.RemovedForTestingG = 0
	}
	if payload.TargetVolumeML == 0 && payload.TargetWeightG == 0 {
		payload.TargetVolumeML = sessionDefaultBatchVolume(r)
	}

	corr := sessionCorrection(r, payload.FormulaID)

	switch strings.ToLower(strings.TrimSpace(payload.Action)) {
	case "enable":
		corr.Enable()
	case "confirm":
		if payload.ComponentID == 0 {
			writeJSONError(w, http.StatusBadRequest, "component_id is required")
			return
		}
		baseline := formula.Calculate(formula.Input{
			Formula:            record,
			TargetVolumeML:     payload.TargetVolumeML,
			TargetWeightG:      payload.TargetWeightG,
			RemovedForTestingG: payload.RemovedForTestingG,
		})
		expected := 0.0
		found := false
		componentIDs := make([]uint, 0, len(baseline.Components))
		for _, component := range baseline.Components {
			componentIDs = append(componentIDs, component.ComponentID)
			if component.ComponentID == payload.ComponentID {
				expected = component.ExpectedWeightG
				found = true
			}
		}
		if !found {
			writeJSONError(w, http.StatusBadRequest, "component does not belong to the formula")
			return
		}
		if err := corr.Confirm(payload.ComponentID, expected, payload.ActualWeightG, componentIDs); err != nil {
			applog.Debug(ctx, "correction confirm rejected", "error", err, "formulaID", payload.FormulaID)
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	case "mark":
		if payload.ComponentID == 0 {
			writeJSONError(w, http.StatusBadRequest, "component_id is required")
			return
		}
		added := true
		if payload.AlreadyAdded != nil {
			added = *payload.AlreadyAdded
		}
		if err := corr.SetAdded(payload.ComponentID, added); err != nil {
			applog.Debug(ctx, "correction mark rejected", "error", err, "formulaID", payload.FormulaID)
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	default:
		writeJSONError(w, http.StatusBadRequest, "action must be enable, confirm or mark")
		return
	}

	storeSessionCorrection(r, payload.FormulaID, corr)

	plan := formula.Calculate(formula.Input{
		Formula:            record,
		TargetVolumeML:     payload.TargetVolumeML,
		TargetWeightG:      payload.TargetWeightG,
		RemovedForTestingG: payload.RemovedForTestingG,
		Correction:         corr,
	})

	writeJSON(w, http.StatusOK, plan)
}

func resetCorrection(w http.ResponseWriter, r *http.Request) {
	formulaParam := strings.TrimSpace(r.URL.Query().Get("formula_id"))
	idValue, err := strconv.ParseUint(formulaParam, 10, 64)
	if err != nil || idValue == 0 {
		writeJSONError(w, http.StatusBadRequest, "formula_id is required")
		return
	}

	clearSessionCorrection(r, uint(idValue))
	w.WriteHeader(http.StatusNoContent)
}
