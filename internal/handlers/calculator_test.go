package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"gorm.io/gorm"

	"tintaria/internal/formula"
	"tintaria/models"
)

type batchFixture struct {
	formula models.Formula
	base    models.Item
	tint    models.Item
	binder  models.Item
	// components ordered by position: base, tint, binder
	components []models.FormulaComponent
}

// seedBatchFixture creates a formula whose plan numbers are easy to assert:
// 1000 ml at density 1.25 target 1250 g split 80/15/5 across three items with
// kilogram, gram and piece stock units.
func seedBatchFixture(t *testing.T, db *gorm.DB) batchFixture {
	t.Helper()

	fixture := batchFixture{
		base: models.Item{
			Name: "White Base", Code: "WB-01", ColorHex: "#f8f8f2",
			StockUnit: "KG", Quantity: 10, Active: true,
			Prices: []models.Price{{Amount: mustDecimal(t, "12.50"), Currency: "BRL"}},
		},
		tint: models.Item{
			Name: "Blue Tint", Code: "BT-02", ColorHex: "#1d4ed8",
			StockUnit: "G", Quantity: 2000, Active: true,
			Prices: []models.Price{{Amount: mustDecimal(t, "0.05"), Currency: "BRL"}},
		},
		binder: models.Item{
			Name: "Binder", Code: "BD-03",
			StockUnit: "UN", Quantity: 5, Active: true,
			Measures: []models.Measure{{MeasureType: "weight", Unit: "kg", Value: 1}},
			Prices:   []models.Price{{Amount: mustDecimal(t, "30.00"), Currency: "BRL"}},
		},
	}
	for _, item := range []*models.Item{&fixture.base, &fixture.tint, &fixture.binder} {
		if err := db.Create(item).Error; err != nil {
			t.Fatalf("failed to seed item: %v", err)
		}
	}

	fixture.formula = models.Formula{
		Description:     "Deep Ocean Blue",
		Code:            "DOB-500",
		Density:         1.25,
		RatioConvention: models.RatioPercent,
	}
	if err := db.Create(&fixture.formula).Error; err != nil {
		t.Fatalf("failed to seed formula: %v", err)
	}

	fixture.components = []models.FormulaComponent{
		{FormulaID: fixture.formula.ID, ItemID: fixture.base.ID, Ratio: 80, Position: 0},
		{FormulaID: fixture.formula.ID, ItemID: fixture.tint.ID, Ratio: 15, Position: 1},
		{FormulaID: fixture.formula.ID, ItemID: fixture.binder.ID, Ratio: 5, Position: 2},
	}
	for i := range fixture.components {
		if err := db.Create(&fixture.components[i]).Error; err != nil {
			t.Fatalf("failed to seed component: %v", err)
		}
	}

	return fixture
}

func postPlan(t *testing.T, req *http.Request) formula.Plan {
	t.Helper()
	w := httptest.NewRecorder()
	CalculatorPlan(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 for plan, got %d: %s", w.Code, w.Body.String())
	}
	var plan formula.Plan
	if err := json.Unmarshal(w.Body.Bytes(), &plan); err != nil {
		t.Fatalf("failed to decode plan: %v", err)
	}
	return plan
}

func planRequest(t *testing.T, payload any) *http.Request {
	t.Helper()
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/app/api/calculator/plan", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func correctionRequestFor(t *testing.T, payload any) *http.Request {
	t.Helper()
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/app/api/calculator/correction", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func almostEqualF(a, b float64) bool {
	return math.Abs(a-b) <= 1e-6
}

func TestCalculatorPlanDerivesWeightsAndCosts(t *testing.T) {
	db, cleanup := withTestDatabase(t)
	t.Cleanup(cleanup)
	fixture := seedBatchFixture(t, db)

	plan := postPlan(t, planRequest(t, map[string]any{
		"formula_id":       fixture.formula.ID,
		"target_volume_ml": 1000.0,
	}))

	if plan.FormulaID != fixture.formula.ID {
		t.Fatalf("expected plan for formula %d, got %d", fixture.formula.ID, plan.FormulaID)
	}
	if !almostEqualF(plan.Totals.TargetWeightG, 1250) {
		t.Fatalf("expected target weight 1250, got %f", plan.Totals.TargetWeightG)
	}
	if len(plan.Components) != 3 {
		t.Fatalf("expected three components, got %d", len(plan.Components))
	}

	wantWeights := []float64{1000, 187.5, 62.5}
	wantUnits := []float64{1, 187.5, 0.0625}
	for idx, component := range plan.Components {
		if !almostEqualF(component.WeightG, wantWeights[idx]) {
			t.Fatalf("component %d: expected weight %f, got %f", idx, wantWeights[idx], component.WeightG)
		}
		if !almostEqualF(component.RequiredUnits, wantUnits[idx]) {
			t.Fatalf("component %d: expected units %f, got %f", idx, wantUnits[idx], component.RequiredUnits)
		}
		if !component.HasStock {
			t.Fatalf("component %d: expected stock to suffice", idx)
		}
	}

	if !plan.Totals.Cost.Equal(mustDecimal(t, "23.75")) {
		t.Fatalf("expected total cost 23.75, got %s", plan.Totals.Cost)
	}
	if !plan.Totals.CostPerLiter.Equal(mustDecimal(t, "23.75")) {
		t.Fatalf("expected cost per liter 23.75, got %s", plan.Totals.CostPerLiter)
	}
	if !almostEqualF(plan.Totals.VolumeML, 1000) {
		t.Fatalf("expected total volume 1000, got %f", plan.Totals.VolumeML)
	}
	if !plan.Totals.AllInStock {
		t.Fatal("expected all components in stock")
	}
	if !plan.Totals.RatioSumValid || !almostEqualF(plan.Totals.RatioSum, 100) {
		t.Fatalf("expected valid ratio sum 100, got %f", plan.Totals.RatioSum)
	}
	if plan.CorrectionActive {
		t.Fatal("expected correction to be inactive by default")
	}
}

func TestCalculatorPlanFlagsShortStock(t *testing.T) {
	db, cleanup := withTestDatabase(t)
	t.Cleanup(cleanup)
	fixture := seedBatchFixture(t, db)

	if err := db.Model(&fixture.base).Update("quantity", 0.5).Error; err != nil {
		t.Fatalf("failed to shrink stock: %v", err)
	}

	plan := postPlan(t, planRequest(t, map[string]any{
		"formula_id":       fixture.formula.ID,
		"target_volume_ml": 1000.0,
	}))

	if plan.Totals.AllInStock {
		t.Fatal("expected stock shortage to clear the all-in-stock flag")
	}
	if plan.Components[0].HasStock {
		t.Fatalf("expected base component short, got %+v", plan.Components[0])
	}
	if !plan.Components[1].HasStock || !plan.Components[2].HasStock {
		t.Fatal("expected remaining components to stay in stock")
	}
}

func TestCalculatorPlanErrors(t *testing.T) {
	_, cleanup := withTestDatabase(t)
	t.Cleanup(cleanup)

	req := planRequest(t, map[string]any{"target_volume_ml": 500.0})
	w := httptest.NewRecorder()
	CalculatorPlan(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without formula_id, got %d", w.Code)
	}

	req = planRequest(t, map[string]any{"formula_id": 424242, "target_volume_ml": 500.0})
	w = httptest.NewRecorder()
	CalculatorPlan(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for unknown formula, got %d", w.Code)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/app/api/calculator/plan", nil)
	w = httptest.NewRecorder()
	CalculatorPlan(w, getReq)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405 for GET, got %d", w.Code)
	}
}

func TestCalculatorPlanUsesDefaultBatchVolume(t *testing.T) {
	db, cleanup := withTestDatabase(t)
	t.Cleanup(cleanup)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)
	fixture := seedBatchFixture(t, db)

	req := withSession(t, sm, planRequest(t, map[string]any{"formula_id": fixture.formula.ID}))
	sm.Put(req.Context(), sessionBatchVolumeKey, 500.0)

	plan := postPlan(t, req)
	if !almostEqualF(plan.Totals.TargetWeightG, 625) {
		t.Fatalf("expected session default volume to drive target weight 625, got %f", plan.Totals.TargetWeightG)
	}
}

func TestCalculatorCorrectionFlow(t *testing.T) {
	db, cleanup := withTestDatabase(t)
	t.Cleanup(cleanup)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)
	fixture := seedBatchFixture(t, db)

	sessionCtx := withSession(t, sm, httptest.NewRequest(http.MethodGet, "/", nil)).Context()

	target := map[string]any{
		"formula_id":       fixture.formula.ID,
		"target_volume_ml": 1000.0,
	}

	// Enabling alone must not touch the plan numbers.
	enableReq := correctionRequestFor(t, map[string]any{
		"formula_id": fixture.formula.ID, "action": "enable", "target_volume_ml": 1000.0,
	}).WithContext(sessionCtx)
	enableW := httptest.NewRecorder()
	CalculatorCorrection(enableW, enableReq)
	if enableW.Code != http.StatusOK {
		t.Fatalf("expected status 200 for enable, got %d: %s", enableW.Code, enableW.Body.String())
	}
	var enabled formula.Plan
	if err := json.Unmarshal(enableW.Body.Bytes(), &enabled); err != nil {
		t.Fatalf("failed to decode enable response: %v", err)
	}
	if enabled.CorrectionActive {
		t.Fatal("expected correction to stay inactive until confirmed")
	}

	// Confirm a 10% over-pour on the base component.
	confirmReq := correctionRequestFor(t, map[string]any{
		"formula_id":       fixture.formula.ID,
		"action":           "confirm",
		"component_id":     fixture.components[0].ID,
		"actual_weight_g":  1100.0,
		"target_volume_ml": 1000.0,
	}).WithContext(sessionCtx)
	confirmW := httptest.NewRecorder()
	CalculatorCorrection(confirmW, confirmReq)
	if confirmW.Code != http.StatusOK {
		t.Fatalf("expected status 200 for confirm, got %d: %s", confirmW.Code, confirmW.Body.String())
	}
	var corrected formula.Plan
	if err := json.Unmarshal(confirmW.Body.Bytes(), &corrected); err != nil {
		t.Fatalf("failed to decode confirm response: %v", err)
	}
	if !corrected.CorrectionActive {
		t.Fatal("expected correction to be active after confirm")
	}
	if !almostEqualF(corrected.ErrorRatio, 1.1) {
		t.Fatalf("expected error ratio 1.1, got %f", corrected.ErrorRatio)
	}
	if !corrected.Components[0].IsErrorComponent || !almostEqualF(corrected.Components[0].WeightG, 1100) {
		t.Fatalf("expected error component pinned to actual weight, got %+v", corrected.Components[0])
	}
	if !corrected.Components[1].AlreadyAdded {
		t.Fatalf("expected other components flagged already added, got %+v", corrected.Components[1])
	}
	if !almostEqualF(corrected.Components[1].WeightG, 206.25) {
		t.Fatalf("expected scaled tint weight 206.25, got %f", corrected.Components[1].WeightG)
	}
	if !almostEqualF(corrected.Components[1].AdditionalG, 18.75) {
		t.Fatalf("expected additional tint 18.75, got %f", corrected.Components[1].AdditionalG)
	}

	// The stored state must survive into plain plan requests on the session.
	plan := postPlan(t, planRequest(t, target).WithContext(sessionCtx))
	if !plan.CorrectionActive || !almostEqualF(plan.ErrorRatio, 1.1) {
		t.Fatalf("expected persisted correction in plan, got %+v", plan)
	}

	// Unmark the tint so it gets weighed fresh at the scaled amount.
	markReq := correctionRequestFor(t, map[string]any{
		"formula_id":       fixture.formula.ID,
		"action":           "mark",
		"component_id":     fixture.components[1].ID,
		"already_added":    false,
		"target_volume_ml": 1000.0,
	}).WithContext(sessionCtx)
	markW := httptest.NewRecorder()
	CalculatorCorrection(markW, markReq)
	if markW.Code != http.StatusOK {
		t.Fatalf("expected status 200 for mark, got %d: %s", markW.Code, markW.Body.String())
	}
	var marked formula.Plan
	if err := json.Unmarshal(markW.Body.Bytes(), &marked); err != nil {
		t.Fatalf("failed to decode mark response: %v", err)
	}
	if marked.Components[1].AlreadyAdded {
		t.Fatalf("expected tint unmarked, got %+v", marked.Components[1])
	}
	if !almostEqualF(marked.Components[1].AdditionalG, 0) {
		t.Fatalf("expected no additional grams once unmarked, got %f", marked.Components[1].AdditionalG)
	}

	// Reset drops the state entirely.
	resetReq := httptest.NewRequest(http.MethodDelete,
		fmt.Sprintf("/app/api/calculator/correction?formula_id=%d", fixture.formula.ID), nil).WithContext(sessionCtx)
	resetW := httptest.NewRecorder()
	CalculatorCorrection(resetW, resetReq)
	if resetW.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 for reset, got %d", resetW.Code)
	}

	plan = postPlan(t, planRequest(t, target).WithContext(sessionCtx))
	if plan.CorrectionActive {
		t.Fatal("expected correction cleared after reset")
	}
}

func TestCalculatorCorrectionRejections(t *testing.T) {
	db, cleanup := withTestDatabase(t)
	t.Cleanup(cleanup)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)
	fixture := seedBatchFixture(t, db)

	sessionCtx := withSession(t, sm, httptest.NewRequest(http.MethodGet, "/", nil)).Context()

	enableReq := correctionRequestFor(t, map[string]any{
		"formula_id": fixture.formula.ID, "action": "enable", "target_volume_ml": 1000.0,
	}).WithContext(sessionCtx)
	enableW := httptest.NewRecorder()
	CalculatorCorrection(enableW, enableReq)
	if enableW.Code != http.StatusOK {
		t.Fatalf("expected status 200 for enable, got %d", enableW.Code)
	}

	// Under-pours are not correctable; the state must stay untouched.
	underReq := correctionRequestFor(t, map[string]any{
		"formula_id":       fixture.formula.ID,
		"action":           "confirm",
		"component_id":     fixture.components[0].ID,
		"actual_weight_g":  900.0,
		"target_volume_ml": 1000.0,
	}).WithContext(sessionCtx)
	underW := httptest.NewRecorder()
	CalculatorCorrection(underW, underReq)
	if underW.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for under-pour, got %d", underW.Code)
	}

	foreignReq := correctionRequestFor(t, map[string]any{
		"formula_id":       fixture.formula.ID,
		"action":           "confirm",
		"component_id":     999999,
		"actual_weight_g":  1100.0,
		"target_volume_ml": 1000.0,
	}).WithContext(sessionCtx)
	foreignW := httptest.NewRecorder()
	CalculatorCorrection(foreignW, foreignReq)
	if foreignW.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for foreign component, got %d", foreignW.Code)
	}
	var response map[string]string
	if err := json.Unmarshal(foreignW.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if response["error"] != "component does not belong to the formula" {
		t.Fatalf("unexpected rejection message: %q", response["error"])
	}

	badActionReq := correctionRequestFor(t, map[string]any{
		"formula_id": fixture.formula.ID, "action": "undo",
	}).WithContext(sessionCtx)
	badActionW := httptest.NewRecorder()
	CalculatorCorrection(badActionW, badActionReq)
	if badActionW.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for unknown action, got %d", badActionW.Code)
	}
}
