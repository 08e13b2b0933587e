package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"tintaria/internal/formula"
	"tintaria/internal/listing"
	applog "tintaria/internal/log"
	"tintaria/models"
)

type inventoryMovementRequest struct {
	ItemID             uint    `json:"item_id"`
	MovementType       string  `json:"movement_type"`
	WeightGrams        float64 `json:"weight_grams"`
	QuantityChange     float64 `json:"quantity_change"`
	FormulaComponentID uint    `json:"formula_component_id"`
	Notes              string  `json:"notes"`
}

type inventoryItemSummary struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	StockUnit string `json:"stock_unit"`
}

type inventoryMovementResponse struct {
	ID             uint                  `json:"id"`
	MovementID     string                `json:"movement_id"`
	ItemID         uint                  `json:"item_id"`
	MovementType   string                `json:"movement_type"`
	QuantityChange float64               `json:"quantity_change"`
	QuantityBefore float64               `json:"quantity_before"`
	QuantityAfter  float64               `json:"quantity_after"`
	WeightGrams    float64               `json:"weight_grams"`
	ReferenceType  string                `json:"reference_type,omitempty"`
	ReferenceID    *uint                 `json:"reference_id,omitempty"`
	Notes          string                `json:"notes,omitempty"`
	Item           *inventoryItemSummary `json:"item,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

type inventoryListResponse struct {
	Items      []inventoryMovementResponse `json:"items"`
	TotalCount int64                       `json:"total_count"`
	Offset     int                         `json:"offset"`
	HasMore    bool                        `json:"has_more"`
}

// InventoryMovementResource serves the append-only stock ledger. Weigh
// movements convert the scale reading into stock units before deducting.
func InventoryMovementResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "inventory request without database")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/app/api/inventory-movements")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listInventoryMovements(w, r)
		case http.MethodPost:
			createInventoryMovement(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	idValue, err := strconv.ParseUint(path, 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid inventory movement identifier", "identifier", path, "error", err)
		http.NotFound(w, r)
		return
	}

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	showInventoryMovement(w, r, uint(idValue))
}

func listInventoryMovements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := listing.QueryFromRequest(r)

	source := listing.GormSource[models.InventoryMovement]{
		DB:            database,
		SearchColumns: []string{"movement_id", "reference_type", "notes"},
		Order:         "created_at desc, id desc",
		Preloads:      []string{"Item"},
	}

	itemParam := strings.TrimSpace(r.URL.Query().Get("item_id"))
	typeParam := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("movement_type")))
	if itemParam != "" || typeParam != "" {
		source.Scope = func(db *gorm.DB) *gorm.DB {
			if idValue, err := strconv.ParseUint(itemParam, 10, 64); err == nil && idValue > 0 {
				db = db.Where("item_id = ?", uint(idValue))
			}
			if typeParam != "" {
				db = db.Where("movement_type = ?", typeParam)
			}
			return db
		}
	}

	page, err := source.Fetch(ctx, query)
	if err != nil {
		applog.Error(ctx, "failed to list inventory movements", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load inventory movements")
		return
	}

	response := inventoryListResponse{
		Items:      make([]inventoryMovementResponse, 0, len(page.Items)),
		TotalCount: page.TotalCount,
		Offset:     page.Offset,
		HasMore:    page.HasMore,
	}
	for _, movement := range page.Items {
		response.Items = append(response.Items, projectInventoryMovement(movement))
	}

	writeJSON(w, http.StatusOK, response)
}

func showInventoryMovement(w http.ResponseWriter, r *http.Request, movementID uint) {
	ctx := r.Context()
	var movement models.InventoryMovement
	if err := database.WithContext(ctx).
		Preload("Item").
		First(&movement, movementID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load inventory movement", "error", err, "id", movementID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load inventory movement")
		return
	}

	writeJSON(w, http.StatusOK, projectInventoryMovement(movement))
}

func createInventoryMovement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload inventoryMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid inventory movement payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if payload.ItemID == 0 {
		writeJSONError(w, http.StatusBadRequest, "item_id is required")
		return
	}

	movementType := strings.ToLower(strings.TrimSpace(payload.MovementType))
	if movementType == "" {
		movementType = models.MovementWeigh
	}
	switch movementType {
	case models.MovementWeigh:
		if payload.WeightGrams <= 0 {
			writeJSONError(w, http.StatusBadRequest, "weight_grams must be greater than zero")
			return
		}
	case models.MovementAdjust:
		if payload.QuantityChange == 0 {
			writeJSONError(w, http.StatusBadRequest, "quantity_change is required")
			return
		}
	default:
		writeJSONError(w, http.StatusBadRequest, "movement_type must be weigh or adjust")
		return
	}

	var movement models.InventoryMovement
	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.Item
		if err := tx.Preload("Measures").First(&item, payload.ItemID).Error; err != nil {
			return err
		}

		change := payload.QuantityChange
		if movementType == models.MovementWeigh {
			change = -formula.StockUnits(payload.WeightGrams, calculatorItem(item))
		}

		after := item.Quantity + change
		movement = models.InventoryMovement{
			ItemID:         item.ID,
			MovementType:   movementType,
			QuantityChange: change,
			QuantityBefore: item.Quantity,
			QuantityAfter:  after,
			WeightGrams:    payload.WeightGrams,
			Notes:          strings.TrimSpace(payload.Notes),
		}
		if payload.FormulaComponentID > 0 {
			componentID := payload.FormulaComponentID
			movement.ReferenceType = "formula_component"
			movement.ReferenceID = &componentID
		}
		if err := tx.Create(&movement).Error; err != nil {
			return err
		}
		if err := tx.Model(&item).Update("quantity", after).Error; err != nil {
			return err
		}

		if payload.FormulaComponentID > 0 && movementType == models.MovementWeigh {
			if err := tx.Model(&models.FormulaComponent{}).
				Where("id = ?", payload.FormulaComponentID).
				Update("weight_grams", payload.WeightGrams).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to record inventory movement", "error", err, "itemID", payload.ItemID)
		writeJSONError(w, http.StatusInternalServerError, "unable to record inventory movement")
		return
	}

	if err := database.WithContext(ctx).
		Preload("Item").
		First(&movement, movement.ID).Error; err != nil {
		applog.Error(ctx, "failed to reload created inventory movement", "error", err, "id", movement.ID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load inventory movement")
		return
	}

	writeJSON(w, http.StatusCreated, projectInventoryMovement(movement))
}

func projectInventoryMovement(movement models.InventoryMovement) inventoryMovementResponse {
	response := inventoryMovementResponse{
		ID:             movement.ID,
		MovementID:     movement.MovementID,
		ItemID:         movement.ItemID,
		MovementType:   movement.MovementType,
		QuantityChange: movement.QuantityChange,
		QuantityBefore: movement.QuantityBefore,
		QuantityAfter:  movement.QuantityAfter,
		WeightGrams:    movement.WeightGrams,
		ReferenceType:  movement.ReferenceType,
		ReferenceID:    movement.ReferenceID,
		Notes:          movement.Notes,
		CreatedAt:      movement.CreatedAt,
	}

	if movement.Item != nil {
		response.Item = &inventoryItemSummary{
			ID:        movement.Item.ID,
			Name:      movement.Item.Name,
			Code:      movement.Item.Code,
			StockUnit: movement.Item.StockUnit,
		}
	}

	return response
}
