package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"tintaria/models"
)

func TestItemCreateAndShow(t *testing.T) {
	_, cleanup := withTestDatabase(t)
	t.Cleanup(cleanup)

	payload := map[string]any{
		"name":       "Titanium White Base",
		"code":       "twb-01",
		"brand":      "Coral",
		"color_hex":  "#f5f5f0",
		"quantity":   12.0,
		"stock_unit": "kg",
		"attributes": map[string]any{"finish": "matte"},
		"measures": []map[string]any{
			{"measure_type": "weight", "unit": "KG", "value": 18.0},
			{"measure_type": "volume", "unit": "L", "value": 15.0},
		},
		"prices": []map[string]any{
			{"amount": "249.90", "position": 0},
		},
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/app/api/items", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ItemResource(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var created itemResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}
	if created.Code != "TWB-01" {
		t.Fatalf("expected uppercased code, got %q", created.Code)
	}
	if created.StockUnit != "KG" {
		t.Fatalf("expected uppercased stock unit, got %q", created.StockUnit)
	}
	if !created.Active {
		t.Fatal("expected new item to default to active")
	}
	if len(created.Measures) != 2 {
		t.Fatalf("expected two measures, got %+v", created.Measures)
	}
	if created.Measures[0].Unit != "kg" && created.Measures[1].Unit != "kg" {
		t.Fatalf("expected lowercased measure units, got %+v", created.Measures)
	}
	if len(created.Prices) != 1 || created.Prices[0].Currency != "BRL" {
		t.Fatalf("expected one price with default currency, got %+v", created.Prices)
	}
	if created.Color == nil {
		t.Fatal("expected lab color decoration for color_hex")
	}
	if created.Color.L < 90 {
		t.Fatalf("expected near-white lightness, got %.2f", created.Color.L)
	}

	showReq := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/app/api/items/%d", created.ID), nil)
	showW := httptest.NewRecorder()
	ItemResource(showW, showReq)
	if showW.Code != http.StatusOK {
		t.Fatalf("expected status 200 for show, got %d", showW.Code)
	}

	missingReq := httptest.NewRequest(http.MethodGet, "/app/api/items/999999", nil)
	missingW := httptest.NewRecorder()
	ItemResource(missingW, missingReq)
	if missingW.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for missing item, got %d", missingW.Code)
	}
}

func TestItemListSearchAndActiveFilter(t *testing.T) {
	db, cleanup := withTestDatabase(t)
	t.Cleanup(cleanup)

	seed := []models.Item{
		{Name: "Marine Blue Tint", Code: "MBT-10", Active: true},
		{Name: "Sunset Orange Tint", Code: "SOT-11", Active: true},
		{Name: "Retired Green Tint", Code: "RGT-12", Active: false},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("failed to seed item: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/app/api/items?q=tint&active=true", nil)
	w := httptest.NewRecorder()
	ItemResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var response itemListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	if response.TotalCount != 2 || len(response.Items) != 2 {
		t.Fatalf("expected two active matches, got %+v", response)
	}
	for _, item := range response.Items {
		if !item.Active {
			t.Fatalf("expected only active items, got %+v", item)
		}
	}

	searchReq := httptest.NewRequest(http.MethodGet, "/app/api/items?q=sunset", nil)
	searchW := httptest.NewRecorder()
	ItemResource(searchW, searchReq)
	if err := json.Unmarshal(searchW.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode search response: %v", err)
	}
	if len(response.Items) != 1 || response.Items[0].Code != "SOT-11" {
		t.Fatalf("expected single sunset match, got %+v", response.Items)
	}
}

func TestItemListShadeLookup(t *testing.T) {
	db, cleanup := withTestDatabase(t)
	t.Cleanup(cleanup)

	seed := []models.Item{
		{Name: "Signal Red", Code: "SR-01", ColorHex: "#ff0000", Active: true},
		{Name: "Carmine", Code: "CA-02", ColorHex: "#d02020", Active: true},
		{Name: "Sky Blue", Code: "SB-03", ColorHex: "#2090d0", Active: true},
		{Name: "Unpigmented Base", Code: "UB-04", Active: true},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("failed to seed item: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/app/api/items?similar_to=ff0000", nil)
	w := httptest.NewRecorder()
	ItemResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response itemListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode shade response: %v", err)
	}
	if response.TotalCount != 3 {
		t.Fatalf("expected colorless items excluded from ranking, got total %d", response.TotalCount)
	}
	if len(response.Items) != 3 {
		t.Fatalf("expected three ranked items, got %d", len(response.Items))
	}
	wantOrder := []string{"SR-01", "CA-02", "SB-03"}
	for i, code := range wantOrder {
		if response.Items[i].Code != code {
			t.Fatalf("expected rank %d to be %s, got %+v", i, code, response.Items)
		}
	}
	if response.Items[0].DeltaE == nil || *response.Items[0].DeltaE != 0 {
		t.Fatalf("expected exact match distance 0, got %+v", response.Items[0].DeltaE)
	}
	if response.Items[1].DeltaE == nil || response.Items[2].DeltaE == nil {
		t.Fatal("expected every ranked item to carry a distance")
	}
	if *response.Items[1].DeltaE >= *response.Items[2].DeltaE {
		t.Fatalf("expected distances to ascend, got %.2f then %.2f",
			*response.Items[1].DeltaE, *response.Items[2].DeltaE)
	}

	pagedReq := httptest.NewRequest(http.MethodGet, "/app/api/items?similar_to=ff0000&limit=2", nil)
	pagedW := httptest.NewRecorder()
	ItemResource(pagedW, pagedReq)
	if err := json.Unmarshal(pagedW.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode paged shade response: %v", err)
	}
	if len(response.Items) != 2 || !response.HasMore {
		t.Fatalf("expected truncated page with more available, got %+v", response)
	}

	badReq := httptest.NewRequest(http.MethodGet, "/app/api/items?similar_to=reddish", nil)
	badW := httptest.NewRecorder()
	ItemResource(badW, badReq)
	if badW.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for bad shade, got %d", badW.Code)
	}
}

func TestItemUpdateReplacesNestedCollections(t *testing.T) {
	db, cleanup := withTestDatabase(t)
	t.Cleanup(cleanup)

	item := models.Item{
		Name:      "Gloss Varnish",
		Code:      "GV-01",
		StockUnit: "L",
		Active:    true,
		Measures:  []models.Measure{{MeasureType: "volume", Unit: "l", Value: 5}},
		Prices:    []models.Price{{Amount: mustDecimal(t, "80.00"), Currency: "BRL"}},
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("failed to seed item: %v", err)
	}

	payload := map[string]any{
		"name":       "Gloss Varnish",
		"code":       "GV-01",
		"stock_unit": "L",
		"measures": []map[string]any{
			{"measure_type": "volume", "unit": "ml", "value": 5000.0},
			{"measure_type": "weight", "unit": "kg", "value": 4.6},
		},
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/app/api/items/%d", item.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ItemResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var measureCount int64
	if err := db.Model(&models.Measure{}).Where("item_id = ?", item.ID).Count(&measureCount).Error; err != nil {
		t.Fatalf("failed to count measures: %v", err)
	}
	if measureCount != 2 {
		t.Fatalf("expected measures replaced with two rows, got %d", measureCount)
	}

	var priceCount int64
	if err := db.Model(&models.Price{}).Where("item_id = ?", item.ID).Count(&priceCount).Error; err != nil {
		t.Fatalf("failed to count prices: %v", err)
	}
	if priceCount != 1 {
		t.Fatalf("expected prices untouched when omitted, got %d", priceCount)
	}
}

func TestItemDeleteGuardedByFormulaUse(t *testing.T) {
	db, cleanup := withTestDatabase(t)
	t.Cleanup(cleanup)

	item := models.Item{Name: "Guarded Pigment", Code: "GP-01", Active: true}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("failed to seed item: %v", err)
	}
	formulaRecord := models.Formula{Description: "Uses Pigment", Code: "UP-01"}
	if err := db.Create(&formulaRecord).Error; err != nil {
		t.Fatalf("failed to seed formula: %v", err)
	}
	component := models.FormulaComponent{FormulaID: formulaRecord.ID, ItemID: item.ID, Ratio: 100}
	if err := db.Create(&component).Error; err != nil {
		t.Fatalf("failed to seed component: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/app/api/items/%d", item.ID), nil)
	w := httptest.NewRecorder()
	ItemResource(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409 while referenced, got %d", w.Code)
	}

	if err := db.Delete(&component).Error; err != nil {
		t.Fatalf("failed to remove component: %v", err)
	}
	w = httptest.NewRecorder()
	ItemResource(w, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/app/api/items/%d", item.ID), nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 after guard cleared, got %d", w.Code)
	}

	var count int64
	if err := db.Model(&models.Item{}).Where("id = ?", item.ID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count items: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected item removed from default queries, count=%d", count)
	}
}

func TestItemValidation(t *testing.T) {
	_, cleanup := withTestDatabase(t)
	t.Cleanup(cleanup)

	tests := []struct {
		name    string
		payload map[string]any
		want    string
	}{
		{
			name:    "missing name",
			payload: map[string]any{"code": "X-1"},
			want:    "name is required",
		},
		{
			name:    "missing code",
			payload: map[string]any{"name": "No Code"},
			want:    "code is required",
		},
		{
			name:    "negative quantity",
			payload: map[string]any{"name": "Neg", "code": "N-1", "quantity": -1.0},
			want:    "quantity cannot be negative",
		},
		{
			name:    "bad color",
			payload: map[string]any{"name": "Bad Color", "code": "BC-1", "color_hex": "blueish"},
			want:    "color_hex must be a hex color like #RRGGBB",
		},
		{
			name: "bad measure type",
			payload: map[string]any{
				"name": "Bad Measure", "code": "BM-1",
				"measures": []map[string]any{{"measure_type": "length", "unit": "cm", "value": 3.0}},
			},
			want: "measure_type must be weight or volume",
		},
		{
			name: "zero measure value",
			payload: map[string]any{
				"name": "Zero Measure", "code": "ZM-1",
				"measures": []map[string]any{{"measure_type": "weight", "unit": "kg", "value": 0.0}},
			},
			want: "measure values must be greater than zero",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.payload)
			req := httptest.NewRequest(http.MethodPost, "/app/api/items", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			ItemResource(w, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", w.Code)
			}
			var response map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if response["error"] != tt.want {
				t.Fatalf("expected error %q, got %q", tt.want, response["error"])
			}
		})
	}
}
