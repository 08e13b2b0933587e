package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	applog "tintaria/internal/log"
	"tintaria/models"
)

type formulaComponentRequest struct {
	FormulaID   uint    `json:"formula_id"`
	ItemID      uint    `json:"item_id"`
	Ratio       float64 `json:"ratio"`
	WeightGrams float64 `json:"weight_grams"`
	Position    int     `json:"position"`
}

type componentItemSummary struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	ColorHex string `json:"color_hex,omitempty"`
}

type formulaComponentResponse struct {
	ID          uint                  `json:"id"`
	FormulaID   uint                  `json:"formula_id"`
	ItemID      uint                  `json:"item_id"`
	Ratio       float64               `json:"ratio"`
	WeightGrams float64               `json:"weight_grams"`
	Position    int                   `json:"position"`
	Item        *componentItemSummary `json:"item,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// FormulaComponentResource handles CRUD interactions for formula component records.
func FormulaComponentResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "formula component request without database")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/app/api/formula-components")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listFormulaComponents(w, r)
		case http.MethodPost:
			createFormulaComponent(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	idValue, err := strconv.ParseUint(path, 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid formula component identifier", "identifier", path, "error", err)
		http.NotFound(w, r)
		return
	}
	componentID := uint(idValue)

	switch r.Method {
	case http.MethodGet:
		showFormulaComponent(w, r, componentID)
	case http.MethodPut:
		updateFormulaComponent(w, r, componentID)
	case http.MethodDelete:
		deleteFormulaComponent(w, r, componentID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listFormulaComponents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var results []models.FormulaComponent

	query := database.WithContext(ctx).
		Preload("Item").
		Order("formula_id asc, position asc, id asc")

	if formulaParam := strings.TrimSpace(r.URL.Query().Get("formula_id")); formulaParam != "" {
		if idValue, err := strconv.ParseUint(formulaParam, 10, 64); err == nil {
			query = query.Where("formula_id = ?", uint(idValue))
		}
	}

	if err := query.Find(&results).Error; err != nil {
		applog.Error(ctx, "failed to list formula components", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load formula components")
		return
	}

	responses := make([]formulaComponentResponse, 0, len(results))
	for _, component := range results {
		responses = append(responses, projectFormulaComponent(component))
	}

	writeJSON(w, http.StatusOK, responses)
}

func showFormulaComponent(w http.ResponseWriter, r *http.Request, componentID uint) {
	ctx := r.Context()
	var component models.FormulaComponent
	if err := database.WithContext(ctx).
		Preload("Item").
		First(&component, componentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load formula component", "error", err, "id", componentID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load formula component")
		return
	}

	writeJSON(w, http.StatusOK, projectFormulaComponent(component))
}

func createFormulaComponent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload formulaComponentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid formula component create payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := validateFormulaComponentPayload(payload); err != nil {
		applog.Debug(ctx, "formula component validation failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	component := models.FormulaComponent{
		FormulaID:   payload.FormulaID,
		ItemID:      payload.ItemID,
		Ratio:       payload.Ratio,
		WeightGrams: payload.WeightGrams,
		Position:    payload.Position,
	}

	if err := database.WithContext(ctx).Create(&component).Error; err != nil {
		applog.Error(ctx, "failed to create formula component", "error", err)
		writeJSONError(w, http.StatusBadRequest, "unable to create formula component")
		return
	}

	if err := database.WithContext(ctx).
		Preload("Item").
		First(&component, component.ID).Error; err != nil {
		applog.Error(ctx, "failed to reload created formula component", "error", err, "id", component.ID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load formula component")
		return
	}

	writeJSON(w, http.StatusCreated, projectFormulaComponent(component))
}

func updateFormulaComponent(w http.ResponseWriter, r *http.Request, componentID uint) {
	ctx := r.Context()
	var existing models.FormulaComponent
	if err := database.WithContext(ctx).First(&existing, componentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load formula component for update", "error", err, "id", componentID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load formula component")
		return
	}

	var payload formulaComponentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid formula component update payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := validateFormulaComponentPayload(payload); err != nil {
		applog.Debug(ctx, "formula component update validation failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	updates := map[string]any{
		"formula_id":   payload.FormulaID,
		"item_id":      payload.ItemID,
		"ratio":        payload.Ratio,
		"weight_grams": payload.WeightGrams,
		"position":     payload.Position,
	}

	if err := database.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		applog.Error(ctx, "failed to update formula component", "error", err, "id", componentID)
		writeJSONError(w, http.StatusBadRequest, "unable to update formula component")
		return
	}

	if err := database.WithContext(ctx).
		Preload("Item").
		First(&existing, componentID).Error; err != nil {
		applog.Error(ctx, "failed to reload updated formula component", "error", err, "id", componentID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load formula component")
		return
	}

	writeJSON(w, http.StatusOK, projectFormulaComponent(existing))
}

func deleteFormulaComponent(w http.ResponseWriter, r *http.Request, componentID uint) {
	ctx := r.Context()
	if err := database.WithContext(ctx).Delete(&models.FormulaComponent{}, componentID).Error; err != nil {
		applog.Error(ctx, "failed to delete formula component", "error", err, "id", componentID)
		writeJSONError(w, http.StatusInternalServerError, "unable to delete formula component")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func projectFormulaComponent(component models.FormulaComponent) formulaComponentResponse {
	response := formulaComponentResponse{
		ID:          component.ID,
		FormulaID:   component.FormulaID,
		ItemID:      component.ItemID,
		Ratio:       component.Ratio,
		WeightGrams: component.WeightGrams,
		Position:    component.Position,
		CreatedAt:   component.CreatedAt,
		UpdatedAt:   component.UpdatedAt,
	}

	if component.Item != nil {
		response.Item = &componentItemSummary{
			ID:       component.Item.ID,
			Name:     strings.TrimSpace(component.Item.Name),
			Code:     component.Item.Code,
			ColorHex: component.Item.ColorHex,
		}
	}

	return response
}

func validateFormulaComponentPayload(payload formulaComponentRequest) error {
	if payload.FormulaID == 0 {
		return errors.New("formula_id is required")
	}
	if payload.ItemID == 0 {
		return errors.New("item_id is required")
	}
	if payload.Ratio <= 0 {
		return errors.New("ratio must be greater than zero")
	}
	if payload.WeightGrams < 0 {
		return errors.New("weight_grams cannot be negative")
	}
	return nil
}
