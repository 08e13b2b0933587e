package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tintaria/internal/formula"
	"tintaria/internal/listing"
	applog "tintaria/internal/log"
	"tintaria/internal/views/sheet"
	"tintaria/models"
)

type productionRequest struct {
	FormulaID          uint    `json:"formula_id"`
	TargetVolumeML     float64 `json:"target_volume_ml"`
	TargetWeightG      float64 `json:"target_weight_g"`
	RemovedForTestingG float64 `json:"removed_for_testing_g"`
	OperatorID         *uint   `json:"operator_id"`
	Notes              string  `json:"notes"`
}

type productionFormulaSummary struct {
	ID          uint   `json:"id"`
	Description string `json:"description"`
	Code        string `json:"code"`
}

type productionOperatorSummary struct {
	ID        uint   `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type productionResponse struct {
	ID                 uint                       `json:"id"`
	BatchCode          string                     `json:"batch_code"`
	FormulaID          uint                       `json:"formula_id"`
	TargetVolumeML     float64                    `json:"target_volume_ml"`
	TargetWeightG      float64                    `json:"target_weight_g"`
	RemovedForTestingG float64                    `json:"removed_for_testing_g"`
	TotalCost          decimal.Decimal            `json:"total_cost"`
	CostPerLiter       decimal.Decimal            `json:"cost_per_liter"`
	OperatorID         *uint                      `json:"operator_id,omitempty"`
	Notes              string                     `json:"notes,omitempty"`
	Formula            *productionFormulaSummary  `json:"formula,omitempty"`
	Operator           *productionOperatorSummary `json:"operator,omitempty"`
	CreatedAt          time.Time                  `json:"created_at"`
}

type productionListResponse struct {
	Items      []productionResponse `json:"items"`
	TotalCount int64                `json:"total_count"`
	Offset     int                  `json:"offset"`
	HasMore    bool                 `json:"has_more"`
}

type productionShortfall struct {
	ItemID         uint    `json:"item_id"`
	ItemName       string  `json:"item_name"`
	ItemCode       string  `json:"item_code"`
	RequiredUnits  float64 `json:"required_units"`
	AvailableUnits float64 `json:"available_units"`
}

// ProductionResource records executed batches and lists the production history.
func ProductionResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "production request without database")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/app/api/productions")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listProductions(w, r)
		case http.MethodPost:
			createProduction(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	idValue, err := strconv.ParseUint(path, 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid production identifier", "identifier", path, "error", err)
		http.NotFound(w, r)
		return
	}

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	showProduction(w, r, uint(idValue))
}

func listProductions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := listing.QueryFromRequest(r)

	source := listing.GormSource[models.Production]{
		DB:            database,
		SearchColumns: []string{"batch_code", "notes"},
		Order:         "created_at desc, id desc",
		Preloads:      []string{"Formula", "Operator"},
	}
	if formulaParam := strings.TrimSpace(r.URL.Query().Get("formula_id")); formulaParam != "" {
		if idValue, err := strconv.ParseUint(formulaParam, 10, 64); err == nil {
			source.Scope = func(db *gorm.DB) *gorm.DB {
				return db.Where("formula_id = ?", uint(idValue))
			}
		}
	}

	page, err := source.Fetch(ctx, query)
	if err != nil {
		applog.Error(ctx, "failed to list productions", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load productions")
		return
	}

	response := productionListResponse{
		Items:      make([]productionResponse, 0, len(page.Items)),
		TotalCount: page.TotalCount,
		Offset:     page.Offset,
		HasMore:    page.HasMore,
	}
	for _, production := range page.Items {
		response.Items = append(response.Items, projectProduction(production))
	}

	writeJSON(w, http.StatusOK, response)
}

func showProduction(w http.ResponseWriter, r *http.Request, productionID uint) {
	ctx := r.Context()
	var production models.Production
	if err := database.WithContext(ctx).
		Preload("Formula").
		Preload("Operator").
		First(&production, productionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load production", "error", err, "id", productionID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load production")
		return
	}

	writeJSON(w, http.StatusOK, projectProduction(production))
}

func createProduction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload productionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid production payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if payload.FormulaID == 0 {
		writeJSONError(w, http.StatusBadRequest, "formula_id is required")
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

	loader := storeLoader{db: database}
	record, err := loader.Formula(ctx, payload.FormulaID)
	if err != nil {
		if errors.Is(err, formula.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load formula for production", "error", err, "formulaID", payload.FormulaID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load formula")
		return
	}

	corr := sessionCorrection(r, payload.FormulaID)
	plan := formula.Calculate(formula.Input{
		Formula:            record,
		TargetVolumeML:     payload.TargetVolumeML,
		TargetWeightG:      payload.TargetWeightG,
		RemovedForTestingG: payload.RemovedForTestingG,
		Correction:         corr,
	})

	if plan.Totals.TargetWeightG <= 0 {
		writeJSONError(w, http.StatusBadRequest, "a positive target volume or weight is required")
		return
	}

	if !plan.Totals.AllInStock {
		shortfalls := make([]productionShortfall, 0)
		for _, component := range plan.Components {
			if component.HasStock {
				continue
			}
			shortfalls = append(shortfalls, productionShortfall{
				ItemID:         component.ItemID,
				ItemName:       component.ItemName,
				ItemCode:       component.ItemCode,
				RequiredUnits:  component.RequiredUnits,
				AvailableUnits: component.AvailableUnits,
			})
		}
		applog.Debug(ctx, "production rejected for insufficient stock", "formulaID", payload.FormulaID, "missing", len(shortfalls))
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "insufficient stock for one or more components",
			"missing": shortfalls,
		})
		return
	}

	production := models.Production{
		FormulaID:          payload.FormulaID,
		TargetVolumeML:     payload.TargetVolumeML,
		TargetWeightG:      payload.TargetWeightG,
		RemovedForTestingG: payload.RemovedForTestingG,
		TotalCost:          plan.Totals.Cost,
		CostPerLiter:       plan.Totals.CostPerLiter,
		OperatorID:         payload.OperatorID,
		Notes:              strings.TrimSpace(payload.Notes),
	}

	err = database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&production).Error; err != nil {
			return err
		}
		for _, component := range plan.Components {
			var item models.Item
			if err := tx.First(&item, component.ItemID).Error; err != nil {
				return err
			}
			after := item.Quantity - component.RequiredUnits
			movement := models.InventoryMovement{
				ItemID:         item.ID,
				MovementType:   models.MovementProduction,
				QuantityChange: -component.RequiredUnits,
				QuantityBefore: item.Quantity,
				QuantityAfter:  after,
				WeightGrams:    component.WeightG,
				ReferenceType:  "production",
				ReferenceID:    &production.ID,
			}
			if err := tx.Create(&movement).Error; err != nil {
				return err
			}
			if err := tx.Model(&item).Update("quantity", after).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		applog.Error(ctx, "failed to record production", "error", err, "formulaID", payload.FormulaID)
		writeJSONError(w, http.StatusInternalServerError, "unable to record production")
		return
	}

	clearSessionCorrection(r, payload.FormulaID)

	if err := database.WithContext(ctx).
		Preload("Formula").
		Preload("Operator").
		First(&production, production.ID).Error; err != nil {
		applog.Error(ctx, "failed to reload created production", "error", err, "id", production.ID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load production")
		return
	}

	writeJSON(w, http.StatusCreated, projectProduction(production))
}

// ProductionSheet renders the printable batch sheet for one production run.
func ProductionSheet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if database == nil {
		applog.Debug(r.Context(), "production sheet request without database")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/app/productions/")
	path = strings.TrimSuffix(path, "/sheet")
	path = strings.Trim(path, "/")
	idValue, err := strconv.ParseUint(path, 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid production sheet identifier", "identifier", path, "error", err)
		http.NotFound(w, r)
		return
	}

	ctx := r.Context()
	var production models.Production
	if err := database.WithContext(ctx).
		Preload("Formula").
		Preload("Operator").
		First(&production, uint(idValue)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load production for sheet", "error", err, "id", idValue)
		http.Error(w, "unable to load production", http.StatusInternalServerError)
		return
	}

	loader := storeLoader{db: database}
	record, err := loader.Formula(ctx, production.FormulaID)
	if err != nil {
		applog.Error(ctx, "failed to load formula for sheet", "error", err, "formulaID", production.FormulaID)
		http.Error(w, "unable to load formula", http.StatusInternalServerError)
		return
	}

	plan := formula.Calculate(formula.Input{
		Formula:            record,
		TargetVolumeML:     production.TargetVolumeML,
		TargetWeightG:      production.TargetWeightG,
		RemovedForTestingG: production.RemovedForTestingG,
	})

	data := sheet.BatchSheetData{
		BatchCode:          production.BatchCode,
		RunDate:            production.CreatedAt,
		TargetVolumeML:     production.TargetVolumeML,
		TargetWeightG:      plan.Totals.TargetWeightG,
		RemovedForTestingG: production.RemovedForTestingG,
		TotalWeightG:       plan.Totals.WeightG,
		TotalVolumeML:      plan.Totals.VolumeML,
		TotalCost:          production.TotalCost,
		CostPerLiter:       production.CostPerLiter,
		AllInStock:         plan.Totals.AllInStock,
		Palette:            sheet.Resolve(sessionSheetTheme(r)),
	}
	if production.Formula != nil {
		data.FormulaDescription = production.Formula.Description
		data.FormulaCode = production.Formula.Code
	}
	if production.Operator != nil {
		data.OperatorName = strings.TrimSpace(production.Operator.FirstName + " " + production.Operator.LastName)
	}

	rows := make([]sheet.BatchSheetRow, 0, len(plan.Components))
	for idx, component := range plan.Components {
		row := sheet.BatchSheetRow{
			Order:         idx + 1,
			ItemCode:      component.ItemCode,
			ItemName:      component.ItemName,
			Ratio:         component.Ratio,
			WeightG:       component.WeightG,
			RequiredUnits: component.RequiredUnits,
			Cost:          component.Cost,
			HasStock:      component.HasStock,
		}
		if idx < len(record.Components) {
			row.ColorHex = record.Components[idx].Item.ColorHex
			row.StockUnit = record.Components[idx].Item.StockUnit
		}
		rows = append(rows, row)
	}
	data.Rows = rows

	renderComponent(w, r, sheet.BatchSheet(data))
}

func projectProduction(production models.Production) productionResponse {
	response := productionResponse{
		ID:                 production.ID,
		BatchCode:          production.BatchCode,
		FormulaID:          production.FormulaID,
		TargetVolumeML:     production.TargetVolumeML,
		TargetWeightG:      production.TargetWeightG,
		RemovedForTestingG: production.RemovedForTestingG,
		TotalCost:          production.TotalCost,
		CostPerLiter:       production.CostPerLiter,
		OperatorID:         production.OperatorID,
		Notes:              production.Notes,
		CreatedAt:          production.CreatedAt,
	}

	if production.Formula != nil {
		response.Formula = &productionFormulaSummary{
			ID:          production.Formula.ID,
			Description: production.Formula.Description,
			Code:        production.Formula.Code,
		}
	}
	if production.Operator != nil {
		response.Operator = &productionOperatorSummary{
			ID:        production.Operator.ID,
			FirstName: production.Operator.FirstName,
			LastName:  production.Operator.LastName,
		}
	}

	return response
}
