package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"tintaria/models"
)

func TestParseDatasheetLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   importedComponent
		wantOK bool
	}{
		{
			name:   "bare amount",
			line:   "Titanium Dioxide 12.5",
			want:   importedComponent{Name: "Titanium Dioxide", AmountG: 12.5},
			wantOK: true,
		},
		{
			name:   "decimal comma with trailing unit",
			line:   "White Base: 12,5 kg",
			want:   importedComponent{Name: "White Base", AmountG: 12500},
			wantOK: true,
		},
		{
			name:   "semicolon separated",
			line:   "Binder;0.25;kg",
			want:   importedComponent{Name: "Binder", AmountG: 250},
			wantOK: true,
		},
		{
			name:   "tab separated percent",
			line:   "Solvent\t40%",
			want:   importedComponent{Name: "Solvent", AmountG: 40},
			wantOK: true,
		},
		{
			name:   "attached unit",
			line:   "Pigment 12.5g",
			want:   importedComponent{Name: "Pigment", AmountG: 12.5},
			wantOK: true,
		},
		{
			name:   "milliliters normalize too",
			line:   "Water 200 ml",
			want:   importedComponent{Name: "Water", AmountG: 200},
			wantOK: true,
		},
		{name: "no amount", line: "just a heading", wantOK: false},
		{name: "unknown trailing unit", line: "Resin 12.5xyz", wantOK: false},
		{name: "zero amount", line: "Resin 0", wantOK: false},
		{name: "amount without name", line: "12.5", wantOK: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseDatasheetLine(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("parseDatasheetLine(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Name != tt.want.Name {
				t.Fatalf("expected name %q, got %q", tt.want.Name, got.Name)
			}
			if !almostEqualF(got.AmountG, tt.want.AmountG) {
				t.Fatalf("expected amount %f, got %f", tt.want.AmountG, got.AmountG)
			}
		})
	}
}

func TestParseDatasheetComponentsSkipsProse(t *testing.T) {
	text := "Coverage Topcoat Datasheet\n" +
		"Issued by the supplier lab\n" +
		"\n" +
		"White Base 800 g\n" +
		"Revision 2 see notes\n" +
		"Blue Tint 200 g\n"

	components, warnings := parseDatasheetComponents(text)
	if len(components) != 2 {
		t.Fatalf("expected two components, got %d: %+v", len(components), components)
	}
	if components[0].Name != "White Base" || components[1].Name != "Blue Tint" {
		t.Fatalf("unexpected component names: %+v", components)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "Revision 2 see notes") {
		t.Fatalf("expected one warning about the revision line, got %+v", warnings)
	}
}

func TestNormalizeComponentRatios(t *testing.T) {
	components := normalizeComponentRatios([]importedComponent{
		{Name: "Base", AmountG: 800},
		{Name: "Tint", AmountG: 195},
		{Name: "Additive", AmountG: 5},
	})

	want := []float64{80, 19.5, 0.5}
	for i, component := range components {
		if !almostEqualF(component.Ratio, want[i]) {
			t.Fatalf("component %d: expected ratio %f, got %f", i, want[i], component.Ratio)
		}
	}

	floored := normalizeComponentRatios([]importedComponent{
		{Name: "Bulk", AmountG: 1000000},
		{Name: "Trace", AmountG: 1},
	})
	if floored[1].Ratio != 0.001 {
		t.Fatalf("expected trace ratio floored to 0.001, got %f", floored[1].Ratio)
	}
}

func TestCodeFromName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "White Base", want: "WHITE-BASE"},
		{name: "mix 50/50", want: "MIX-50-50"},
		{name: "Tinta Azul 5% (lata)", want: "TINTA-AZUL-5"},
		{name: "Titanium Dioxide", want: "TITANIUM-DIO"},
		{name: "@#$%", want: "ITEM"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := codeFromName(tt.name); got != tt.want {
				t.Fatalf("codeFromName(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestToolsImportFormulaFromText(t *testing.T) {
	db, cleanup := withTestDatabase(t)
	t.Cleanup(cleanup)

	existing := models.Item{Name: "White Base", Code: "WB-01", StockUnit: "KG", Quantity: 10, Active: true}
	if err := db.Create(&existing).Error; err != nil {
		t.Fatalf("failed to seed item: %v", err)
	}

	form := url.Values{}
	form.Set("formula_name_hint", "Coverage Topcoat")
	form.Set("formula_text",
		"Coverage Topcoat Datasheet\n"+
			"White Base: 800 g\n"+
			"Titanium Dioxide 195 g\n"+
			"Dispersant DX 5 g\n")

	req := httptest.NewRequest(http.MethodPost, "/app/tools/import-formula", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	ToolsImportFormula(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var result importResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Formula.Code != "IMP-1" {
		t.Fatalf("expected code IMP-1, got %q", result.Formula.Code)
	}
	if result.Formula.Description != "Coverage Topcoat" {
		t.Fatalf("expected hinted description, got %q", result.Formula.Description)
	}
	if result.Formula.RatioConvention != models.RatioPercent {
		t.Fatalf("expected percent convention, got %q", result.Formula.RatioConvention)
	}
	if len(result.Formula.Components) != 3 {
		t.Fatalf("expected three components, got %d", len(result.Formula.Components))
	}

	wantRatios := []float64{80, 19.5, 0.5}
	for i, component := range result.Formula.Components {
		if component.Position != i {
			t.Fatalf("expected datasheet order preserved, got position %d at index %d", component.Position, i)
		}
		if !almostEqualF(component.Ratio, wantRatios[i]) {
			t.Fatalf("component %d: expected ratio %f, got %f", i, wantRatios[i], component.Ratio)
		}
	}

	if result.Formula.Components[0].ItemID != existing.ID {
		t.Fatalf("expected the known base matched to the catalog, got item %d", result.Formula.Components[0].ItemID)
	}
	if result.Formula.Components[1].Item == nil || result.Formula.Components[1].Item.Code != "TITANIUM-DIO" {
		t.Fatalf("expected derived code for the new pigment, got %+v", result.Formula.Components[1].Item)
	}

	if len(result.Warnings) != 2 {
		t.Fatalf("expected two creation warnings, got %+v", result.Warnings)
	}
	for _, warning := range result.Warnings {
		if !strings.Contains(warning, "Created catalog item") {
			t.Fatalf("unexpected warning: %q", warning)
		}
	}

	var itemCount int64
	db.Model(&models.Item{}).Count(&itemCount)
	if itemCount != 3 {
		t.Fatalf("expected two items created next to the existing one, got %d total", itemCount)
	}
}

func TestToolsImportFormulaFromUpload(t *testing.T) {
	db, cleanup := withTestDatabase(t)
	t.Cleanup(cleanup)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("formula_file", "datasheet.txt")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := io.WriteString(part, "Base Coat 900\nHardener 100\n"); err != nil {
		t.Fatalf("failed to write upload body: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/app/tools/import-formula", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	ToolsImportFormula(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var result importResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Formula.Description != "Imported Formula" {
		t.Fatalf("expected fallback description, got %q", result.Formula.Description)
	}
	if len(result.Formula.Components) != 2 {
		t.Fatalf("expected two components, got %d", len(result.Formula.Components))
	}
	if !almostEqualF(result.Formula.Components[0].Ratio, 90) || !almostEqualF(result.Formula.Components[1].Ratio, 10) {
		t.Fatalf("expected 90/10 split, got %+v", result.Formula.Components)
	}

	var formulaCount int64
	db.Model(&models.Formula{}).Count(&formulaCount)
	if formulaCount != 1 {
		t.Fatalf("expected one formula recorded, got %d", formulaCount)
	}
}

func TestToolsImportFormulaRejectsUnusableInput(t *testing.T) {
	_, cleanup := withTestDatabase(t)
	t.Cleanup(cleanup)

	empty := url.Values{}
	req := httptest.NewRequest(http.MethodPost, "/app/tools/import-formula", strings.NewReader(empty.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	ToolsImportFormula(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without input, got %d", w.Code)
	}

	prose := url.Values{}
	prose.Set("formula_text", "Shake well before use.\nApply two coats and let dry for 4 hours.\n")
	req = httptest.NewRequest(http.MethodPost, "/app/tools/import-formula", strings.NewReader(prose.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	ToolsImportFormula(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422 for prose-only text, got %d", w.Code)
	}
	var response map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["error"] != "no component lines could be read from the datasheet" {
		t.Fatalf("unexpected error message: %v", response["error"])
	}

	getReq := httptest.NewRequest(http.MethodGet, "/app/tools/import-formula", nil)
	getW := httptest.NewRecorder()
	ToolsImportFormula(getW, getReq)
	if getW.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405 for GET, got %d", getW.Code)
	}
}
