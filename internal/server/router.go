package server

import (
	"context"
	"net/http"

	"tintaria/internal/handlers"
	applog "tintaria/internal/log"
)

func newRouter() http.Handler {
	mux := http.NewServeMux()
	applog.Debug(context.Background(), "registering http routes")
	mux.HandleFunc("/healthz", handlers.Health)
	applog.Debug(context.Background(), "route registered", "path", "/healthz")

	mux.HandleFunc("/app/api/items", handlers.ItemResource)
	mux.HandleFunc("/app/api/items/", handlers.ItemResource)
	applog.Debug(context.Background(), "route registered", "path", "/app/api/items")
	mux.HandleFunc("/app/api/employees", handlers.EmployeeResource)
	mux.HandleFunc("/app/api/employees/", handlers.EmployeeResource)
	applog.Debug(context.Background(), "route registered", "path", "/app/api/employees")
	mux.HandleFunc("/app/api/formulas", handlers.FormulaResource)
	mux.HandleFunc("/app/api/formulas/", handlers.FormulaResource)
	applog.Debug(context.Background(), "route registered", "path", "/app/api/formulas")
	mux.HandleFunc("/app/api/formula-components", handlers.FormulaComponentResource)
	mux.HandleFunc("/app/api/formula-components/", handlers.FormulaComponentResource)
	applog.Debug(context.Background(), "route registered", "path", "/app/api/formula-components")

	mux.HandleFunc("/app/api/calculator/plan", handlers.CalculatorPlan)
	mux.HandleFunc("/app/api/calculator/correction", handlers.CalculatorCorrection)
	applog.Debug(context.Background(), "route registered", "path", "/app/api/calculator")

	mux.HandleFunc("/app/api/productions", handlers.ProductionResource)
	mux.HandleFunc("/app/api/productions/", handlers.ProductionResource)
	applog.Debug(context.Background(), "route registered", "path", "/app/api/productions")
	mux.HandleFunc("/app/productions/", handlers.ProductionSheet)
	applog.Debug(context.Background(), "route registered", "path", "/app/productions/", "fragment", true)

	mux.HandleFunc("/app/api/inventory-movements", handlers.InventoryMovementResource)
	mux.HandleFunc("/app/api/inventory-movements/", handlers.InventoryMovementResource)
	applog.Debug(context.Background(), "route registered", "path", "/app/api/inventory-movements")

	mux.HandleFunc("/app/api/pickers/items", handlers.PickerItems)
	mux.HandleFunc("/app/api/pickers/employees", handlers.PickerEmployees)
	applog.Debug(context.Background(), "route registered", "path", "/app/api/pickers")

	mux.HandleFunc("/app/api/ui/focus", handlers.FocusState)
	applog.Debug(context.Background(), "route registered", "path", "/app/api/ui/focus")
	mux.HandleFunc("/app/preferences/update", handlers.UpdatePreferences)
	applog.Debug(context.Background(), "route registered", "path", "/app/preferences/update")
	mux.HandleFunc("/app/tools/import-formula", handlers.ToolsImportFormula)
	applog.Debug(context.Background(), "route registered", "path", "/app/tools/import-formula")
	return mux
}
