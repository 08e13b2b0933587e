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

	"tintaria/internal/listing"
	applog "tintaria/internal/log"
	"tintaria/models"
)

type formulaRequest struct {
	Description     string          `json:"description"`
	Code            string          `json:"code"`
	Density         float64         `json:"density"`
	PricePerLiter   decimal.Decimal `json:"price_per_liter"`
	RatioConvention string          `json:"ratio_convention"`
	Notes           string          `json:"notes"`
}

type formulaResponse struct {
	ID              uint                       `json:"id"`
	Description     string                     `json:"description"`
	Code            string                     `json:"code"`
	Density         float64                    `json:"density"`
	PricePerLiter   decimal.Decimal            `json:"price_per_liter"`
	RatioConvention string                     `json:"ratio_convention"`
	Notes           string                     `json:"notes,omitempty"`
	RatioSum        float64                    `json:"ratio_sum"`
	Components      []formulaComponentResponse `json:"components"`
	CreatedAt       time.Time                  `json:"created_at"`
	UpdatedAt       time.Time                  `json:"updated_at"`
}

type formulaListResponse struct {
	Items      []formulaResponse `json:"items"`
	TotalCount int64             `json:"total_count"`
	Offset     int               `json:"offset"`
	HasMore    bool              `json:"has_more"`
}

// FormulaResource handles CRUD interactions for paint formulas.
func FormulaResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "formula request without database")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/app/api/formulas")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listFormulas(w, r)
		case http.MethodPost:
			createFormula(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	idValue, err := strconv.ParseUint(path, 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid formula identifier", "identifier", path, "error", err)
		http.NotFound(w, r)
		return
	}
	formulaID := uint(idValue)

	switch r.Method {
	case http.MethodGet:
		showFormula(w, r, formulaID)
	case http.MethodPut:
		updateFormula(w, r, formulaID)
	case http.MethodDelete:
		deleteFormula(w, r, formulaID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listFormulas(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := listing.QueryFromRequest(r)

	source := listing.GormSource[models.Formula]{
		DB:            database,
		SearchColumns: []string{"description", "code"},
		Order:         "description asc, id asc",
		Preloads:      []string{"Components", "Components.Item"},
	}

	page, err := source.Fetch(ctx, query)
	if err != nil {
		applog.Error(ctx, "failed to list formulas", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load formulas")
		return
	}

	response := formulaListResponse{
		Items:      make([]formulaResponse, 0, len(page.Items)),
		TotalCount: page.TotalCount,
		Offset:     page.Offset,
		HasMore:    page.HasMore,
	}
	for _, record := range page.Items {
		response.Items = append(response.Items, projectFormula(record))
	}

	writeJSON(w, http.StatusOK, response)
}

func showFormula(w http.ResponseWriter, r *http.Request, formulaID uint) {
	ctx := r.Context()
	var record models.Formula
	if err := database.WithContext(ctx).
		Preload("Components", func(db *gorm.DB) *gorm.DB { return db.Order("position asc, id asc") }).
		Preload("Components.Item").
		First(&record, formulaID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load formula", "error", err, "id", formulaID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load formula")
		return
	}

	writeJSON(w, http.StatusOK, projectFormula(record))
}

func createFormula(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload formulaRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid formula create payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := validateFormulaPayload(payload); err != nil {
		applog.Debug(ctx, "formula validation failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	record := models.Formula{
		Description:     strings.TrimSpace(payload.Description),
		Code:            strings.ToUpper(strings.TrimSpace(payload.Code)),
		Density:         payload.Density,
		PricePerLiter:   payload.PricePerLiter,
		RatioConvention: normalizedRatioConvention(payload.RatioConvention),
		Notes:           strings.TrimSpace(payload.Notes),
	}

	if err := database.WithContext(ctx).Create(&record).Error; err != nil {
		applog.Error(ctx, "failed to create formula", "error", err)
		writeJSONError(w, http.StatusBadRequest, "unable to create formula")
		return
	}

	writeJSON(w, http.StatusCreated, projectFormula(record))
}

func updateFormula(w http.ResponseWriter, r *http.Request, formulaID uint) {
	ctx := r.Context()
	var existing models.Formula
	if err := database.WithContext(ctx).First(&existing, formulaID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load formula for update", "error", err, "id", formulaID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load formula")
		return
	}

	var payload formulaRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid formula update payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := validateFormulaPayload(payload); err != nil {
		applog.Debug(ctx, "formula update validation failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	updates := map[string]any{
		"description":      strings.TrimSpace(payload.Description),
		"code":             strings.ToUpper(strings.TrimSpace(payload.Code)),
		"density":          payload.Density,
		"price_per_liter":  payload.PricePerLiter,
		"ratio_convention": normalizedRatioConvention(payload.RatioConvention),
		"notes":            strings.TrimSpace(payload.Notes),
	}

	if err := database.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		applog.Error(ctx, "failed to update formula", "error", err, "id", formulaID)
		writeJSONError(w, http.StatusBadRequest, "unable to update formula")
		return
	}

	if err := database.WithContext(ctx).
		Preload("Components", func(db *gorm.DB) *gorm.DB { return db.Order("position asc, id asc") }).
		Preload("Components.Item").
		First(&existing, formulaID).Error; err != nil {
		applog.Error(ctx, "failed to reload updated formula", "error", err, "id", formulaID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load formula")
		return
	}

	writeJSON(w, http.StatusOK, projectFormula(existing))
}

func deleteFormula(w http.ResponseWriter, r *http.Request, formulaID uint) {
	ctx := r.Context()

	var inUse int64
	if err := database.WithContext(ctx).
		Model(&models.Production{}).
		Where("formula_id = ?", formulaID).
		Count(&inUse).Error; err != nil {
		applog.Error(ctx, "failed to count formula references", "error", err, "id", formulaID)
		writeJSONError(w, http.StatusInternalServerError, "unable to delete formula")
		return
	}
	if inUse > 0 {
		writeJSONError(w, http.StatusConflict, "formula has production history and cannot be deleted")
		return
	}

	if err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("formula_id = ?", formulaID).Delete(&models.FormulaComponent{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Formula{}, formulaID).Error
	}); err != nil {
		applog.Error(ctx, "failed to delete formula", "error", err, "id", formulaID)
		writeJSONError(w, http.StatusInternalServerError, "unable to delete formula")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func projectFormula(record models.Formula) formulaResponse {
	response := formulaResponse{
		ID:              record.ID,
		Description:     record.Description,
		Code:            record.Code,
		Density:         record.Density,
		PricePerLiter:   record.PricePerLiter,
		RatioConvention: record.RatioConvention,
		Notes:           record.Notes,
		Components:      make([]formulaComponentResponse, 0, len(record.Components)),
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}

	for _, component := range record.Components {
		response.RatioSum += component.Ratio
		response.Components = append(response.Components, projectFormulaComponent(component))
	}

	return response
}

func validateFormulaPayload(payload formulaRequest) error {
	if strings.TrimSpace(payload.Description) == "" {
		return errors.New("description is required")
	}
	if strings.TrimSpace(payload.Code) == "" {
		return errors.New("code is required")
	}
	if payload.Density < 0 {
		return errors.New("density cannot be negative")
	}
	if payload.PricePerLiter.IsNegative() {
		return errors.New("price_per_liter cannot be negative")
	}
	switch normalizedRatioConvention(payload.RatioConvention) {
	case models.RatioAuto, models.RatioPercent, models.RatioFraction:
		return nil
	default:
		return errors.New("ratio_convention must be auto, percent or fraction")
	}
}

func normalizedRatioConvention(convention string) string {
	trimmed := strings.ToLower(strings.TrimSpace(convention))
	if trimmed == "" {
		return models.RatioAuto
	}
	return trimmed
}
