package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tintaria/internal/colorspace"
	"tintaria/internal/formula"
	"tintaria/internal/listing"
	applog "tintaria/internal/log"
	"tintaria/models"
)

type itemMeasurePayload struct {
	MeasureType string  `json:"measure_type"`
	Unit        string  `json:"unit"`
	Value       float64 `json:"value"`
}

type itemPricePayload struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Position int             `json:"position"`
}

type itemRequest struct {
	Name       string               `json:"name"`
	Code       string               `json:"code"`
	Brand      string               `json:"brand"`
	Line       string               `json:"line"`
	ColorHex   string               `json:"color_hex"`
	Quantity   float64              `json:"quantity"`
	StockUnit  string               `json:"stock_unit"`
	Attributes json.RawMessage      `json:"attributes"`
	Notes      string               `json:"notes"`
	Active     *bool                `json:"active"`
	Measures   []itemMeasurePayload `json:"measures"`
	Prices     []itemPricePayload   `json:"prices"`
}

type itemColor struct {
	L float64 `json:"l"`
	A float64 `json:"a"`
	B float64 `json:"b"`
}

type itemMeasureResponse struct {
	ID          uint    `json:"id"`
	MeasureType string  `json:"measure_type"`
	Unit        string  `json:"unit"`
	Value       float64 `json:"value"`
}

type itemPriceResponse struct {
	ID       uint            `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Position int             `json:"position"`
}

type itemResponse struct {
	ID         uint                  `json:"id"`
	Name       string                `json:"name"`
	Code       string                `json:"code"`
	Brand      string                `json:"brand,omitempty"`
	Line       string                `json:"line,omitempty"`
	ColorHex   string                `json:"color_hex,omitempty"`
	Color      *itemColor            `json:"color,omitempty"`
	DeltaE     *float64              `json:"delta_e,omitempty"`
	Quantity   float64               `json:"quantity"`
	StockUnit  string                `json:"stock_unit"`
	Attributes json.RawMessage       `json:"attributes,omitempty"`
	Notes      string                `json:"notes,omitempty"`
	Active     bool                  `json:"active"`
	Measures   []itemMeasureResponse `json:"measures"`
	Prices     []itemPriceResponse   `json:"prices"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

type itemListResponse struct {
	Items      []itemResponse `json:"items"`
	TotalCount int64          `json:"total_count"`
	Offset     int            `json:"offset"`
	HasMore    bool           `json:"has_more"`
}

// ItemResource handles CRUD interactions for catalog items.
func ItemResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "item request without database")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/app/api/items")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listItems(w, r)
		case http.MethodPost:
			createItem(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	idValue, err := strconv.ParseUint(path, 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid item identifier", "identifier", path, "error", err)
		http.NotFound(w, r)
		return
	}
	itemID := uint(idValue)

	switch r.Method {
	case http.MethodGet:
		showItem(w, r, itemID)
	case http.MethodPut:
		updateItem(w, r, itemID)
	case http.MethodDelete:
		deleteItem(w, r, itemID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := listing.QueryFromRequest(r)

	if target := strings.TrimSpace(r.URL.Query().Get("similar_to")); target != "" {
		listItemsByShade(w, r, query, target)
		return
	}

	source := listing.GormSource[models.Item]{
		DB:            database,
		SearchColumns: []string{"name", "code", "brand", "line"},
		Order:         "name asc, id asc",
		Preloads:      []string{"Measures", "Prices"},
	}
	if strings.TrimSpace(r.URL.Query().Get("active")) == "true" {
		source.Scope = func(db *gorm.DB) *gorm.DB {
			return db.Where("active = ?", true)
		}
	}

	page, err := source.Fetch(ctx, query)
	if err != nil {
		applog.Error(ctx, "failed to list items", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load items")
		return
	}

	response := itemListResponse{
		Items:      make([]itemResponse, 0, len(page.Items)),
		TotalCount: page.TotalCount,
		Offset:     page.Offset,
		HasMore:    page.HasMore,
	}
	for _, item := range page.Items {
		response.Items = append(response.Items, projectItem(item))
	}

	writeJSON(w, http.StatusOK, response)
}

// listItemsByShade ranks colored catalog items by CIE76 distance to the
// requested shade. It is its own search mode, so the q parameter is ignored.
// The catalog is small enough to rank in memory.
func listItemsByShade(w http.ResponseWriter, r *http.Request, query listing.Query, target string) {
	ctx := r.Context()

	targetRGB, err := colorspace.ParseHex(target)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "similar_to must be a hex color like #RRGGBB")
		return
	}
	want := targetRGB.Lab()

	scope := database.WithContext(ctx).
		Where("color_hex <> ''").
		Preload("Measures").
		Preload("Prices", func(db *gorm.DB) *gorm.DB { return db.Order("position asc, id asc") })
	if strings.TrimSpace(r.URL.Query().Get("active")) == "true" {
		scope = scope.Where("active = ?", true)
	}

	var candidates []models.Item
	if err := scope.Find(&candidates).Error; err != nil {
		applog.Error(ctx, "failed to load items for shade lookup", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load items")
		return
	}

	type match struct {
		item     models.Item
		distance float64
	}
	matches := make([]match, 0, len(candidates))
	for _, item := range candidates {
		rgb, err := colorspace.ParseHex(item.ColorHex)
		if err != nil {
			continue
		}
		matches = append(matches, match{item: item, distance: colorspace.DeltaE(want, rgb.Lab())})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].item.ID < matches[j].item.ID
	})

	start := min(query.Offset, len(matches))
	end := min(start+query.Limit, len(matches))

	response := itemListResponse{
		Items:      make([]itemResponse, 0, end-start),
		TotalCount: int64(len(matches)),
		Offset:     query.Offset,
		HasMore:    end < len(matches),
	}
	for _, ranked := range matches[start:end] {
		projected := projectItem(ranked.item)
		distance := ranked.distance
		projected.DeltaE = &distance
		response.Items = append(response.Items, projected)
	}

	writeJSON(w, http.StatusOK, response)
}

func showItem(w http.ResponseWriter, r *http.Request, itemID uint) {
	ctx := r.Context()
	var item models.Item
	if err := database.WithContext(ctx).
		Preload("Measures").
		Preload("Prices", func(db *gorm.DB) *gorm.DB { return db.Order("position asc, id asc") }).
		First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load item", "error", err, "id", itemID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load item")
		return
	}

	writeJSON(w, http.StatusOK, projectItem(item))
}

func createItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload itemRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid item create payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := validateItemPayload(payload); err != nil {
		applog.Debug(ctx, "item validation failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	item := models.Item{
		Name:      strings.TrimSpace(payload.Name),
		Code:      strings.ToUpper(strings.TrimSpace(payload.Code)),
		Brand:     strings.TrimSpace(payload.Brand),
		Line:      strings.TrimSpace(payload.Line),
		ColorHex:  strings.TrimSpace(payload.ColorHex),
		Quantity:  payload.Quantity,
		StockUnit: normalizedStockUnit(payload.StockUnit),
		Notes:     strings.TrimSpace(payload.Notes),
		Active:    true,
	}
	if payload.Active != nil {
		item.Active = *payload.Active
	}
	if len(payload.Attributes) > 0 {
		item.Attributes = datatypes.JSON(payload.Attributes)
	}
	for _, measure := range payload.Measures {
		item.Measures = append(item.Measures, models.Measure{
			MeasureType: measure.MeasureType,
			Unit:        strings.ToLower(strings.TrimSpace(measure.Unit)),
			Value:       measure.Value,
		})
	}
	for _, price := range payload.Prices {
		record := models.Price{
			Amount:   price.Amount,
			Currency: strings.ToUpper(strings.TrimSpace(price.Currency)),
			Position: price.Position,
		}
		if record.Currency == "" {
			record.Currency = "BRL"
		}
		item.Prices = append(item.Prices, record)
	}

	if err := database.WithContext(ctx).Create(&item).Error; err != nil {
		applog.Error(ctx, "failed to create item", "error", err)
		writeJSONError(w, http.StatusBadRequest, "unable to create item")
		return
	}

	if err := database.WithContext(ctx).
		Preload("Measures").
		Preload("Prices", func(db *gorm.DB) *gorm.DB { return db.Order("position asc, id asc") }).
		First(&item, item.ID).Error; err != nil {
		applog.Error(ctx, "failed to reload created item", "error", err, "id", item.ID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load item")
		return
	}

	writeJSON(w, http.StatusCreated, projectItem(item))
}

func updateItem(w http.ResponseWriter, r *http.Request, itemID uint) {
	ctx := r.Context()
	var existing models.Item
	if err := database.WithContext(ctx).First(&existing, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load item for update", "error", err, "id", itemID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load item")
		return
	}

	var payload itemRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid item update payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := validateItemPayload(payload); err != nil {
		applog.Debug(ctx, "item update validation failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	updates := map[string]any{
		"name":       strings.TrimSpace(payload.Name),
		"code":       strings.ToUpper(strings.TrimSpace(payload.Code)),
		"brand":      strings.TrimSpace(payload.Brand),
		"line":       strings.TrimSpace(payload.Line),
		"color_hex":  strings.TrimSpace(payload.ColorHex),
		"quantity":   payload.Quantity,
		"stock_unit": normalizedStockUnit(payload.StockUnit),
		"notes":      strings.TrimSpace(payload.Notes),
	}
	if payload.Active != nil {
		updates["active"] = *payload.Active
	}
	if len(payload.Attributes) > 0 {
		updates["attributes"] = datatypes.JSON(payload.Attributes)
	}

	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&existing).Updates(updates).Error; err != nil {
			return err
		}
		if payload.Measures != nil {
			if err := tx.Where("item_id = ?", itemID).Delete(&models.Measure{}).Error; err != nil {
				return err
			}
			for _, measure := range payload.Measures {
				record := models.Measure{
					ItemID:      itemID,
					MeasureType: measure.MeasureType,
					Unit:        strings.ToLower(strings.TrimSpace(measure.Unit)),
					Value:       measure.Value,
				}
				if err := tx.Create(&record).Error; err != nil {
					return err
				}
			}
		}
		if payload.Prices != nil {
			if err := tx.Where("item_id = ?", itemID).Delete(&models.Price{}).Error; err != nil {
				return err
			}
			for _, price := range payload.Prices {
				record := models.Price{
					ItemID:   itemID,
					Amount:   price.Amount,
					Currency: strings.ToUpper(strings.TrimSpace(price.Currency)),
					Position: price.Position,
				}
				if record.Currency == "" {
					record.Currency = "BRL"
				}
				if err := tx.Create(&record).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		applog.Error(ctx, "failed to update item", "error", err, "id", itemID)
		writeJSONError(w, http.StatusBadRequest, "unable to update item")
		return
	}

	if err := database.WithContext(ctx).
		Preload("Measures").
		Preload("Prices", func(db *gorm.DB) *gorm.DB { return db.Order("position asc, id asc") }).
		First(&existing, itemID).Error; err != nil {
		applog.Error(ctx, "failed to reload updated item", "error", err, "id", itemID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load item")
		return
	}

	writeJSON(w, http.StatusOK, projectItem(existing))
}

func deleteItem(w http.ResponseWriter, r *http.Request, itemID uint) {
	ctx := r.Context()

	var inUse int64
	if err := database.WithContext(ctx).
		Model(&models.FormulaComponent{}).
		Where("item_id = ?", itemID).
		Count(&inUse).Error; err != nil {
		applog.Error(ctx, "failed to count item references", "error", err, "id", itemID)
		writeJSONError(w, http.StatusInternalServerError, "unable to delete item")
		return
	}
	if inUse > 0 {
		writeJSONError(w, http.StatusConflict, "item is used by one or more formulas")
		return
	}

	if err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", itemID).Delete(&models.Measure{}).Error; err != nil {
			return err
		}
		if err := tx.Where("item_id = ?", itemID).Delete(&models.Price{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Item{}, itemID).Error
	}); err != nil {
		applog.Error(ctx, "failed to delete item", "error", err, "id", itemID)
		writeJSONError(w, http.StatusInternalServerError, "unable to delete item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func projectItem(item models.Item) itemResponse {
	response := itemResponse{
		ID:        item.ID,
		Name:      item.Name,
		Code:      item.Code,
		Brand:     item.Brand,
		Line:      item.Line,
		ColorHex:  item.ColorHex,
		Quantity:  item.Quantity,
		StockUnit: item.StockUnit,
		Notes:     item.Notes,
		Active:    item.Active,
		Measures:  make([]itemMeasureResponse, 0, len(item.Measures)),
		Prices:    make([]itemPriceResponse, 0, len(item.Prices)),
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}

	if len(item.Attributes) > 0 {
		response.Attributes = json.RawMessage(item.Attributes)
	}

	if hex := strings.TrimSpace(item.ColorHex); hex != "" {
		if rgb, err := colorspace.ParseHex(hex); err == nil {
			lab := rgb.Lab()
			response.Color = &itemColor{L: lab.L, A: lab.A, B: lab.B}
		}
	}

	for _, measure := range item.Measures {
		response.Measures = append(response.Measures, itemMeasureResponse{
			ID:          measure.ID,
			MeasureType: measure.MeasureType,
			Unit:        measure.Unit,
			Value:       measure.Value,
		})
	}
	for _, price := range item.Prices {
		response.Prices = append(response.Prices, itemPriceResponse{
			ID:       price.ID,
			Amount:   price.Amount,
			Currency: price.Currency,
			Position: price.Position,
		})
	}

	return response
}

func validateItemPayload(payload itemRequest) error {
	if strings.TrimSpace(payload.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(payload.Code) == "" {
		return errors.New("code is required")
	}
	if payload.Quantity < 0 {
		return errors.New("quantity cannot be negative")
	}
	if hex := strings.TrimSpace(payload.ColorHex); hex != "" {
		if _, err := colorspace.ParseHex(hex); err != nil {
			return errors.New("color_hex must be a hex color like #RRGGBB")
		}
	}
	for _, measure := range payload.Measures {
		switch measure.MeasureType {
		case formula.MeasureWeight, formula.MeasureVolume:
		default:
			return errors.New("measure_type must be weight or volume")
		}
		if measure.Value <= 0 {
			return errors.New("measure values must be greater than zero")
		}
	}
	for _, price := range payload.Prices {
		if price.Amount.IsNegative() {
			return errors.New("price amounts cannot be negative")
		}
	}
	return nil
}

func normalizedStockUnit(unit string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(unit))
	if trimmed == "" {
		return "UN"
	}
	return trimmed
}
