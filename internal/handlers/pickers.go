package handlers

import (
	"net/http"
	"strings"

	"gorm.io/gorm"

	"tintaria/internal/listing"
	applog "tintaria/internal/log"
	"tintaria/models"
)

type pickerOption struct {
	ID       uint   `json:"id"`
	Label    string `json:"label"`
	Code     string `json:"code,omitempty"`
	Detail   string `json:"detail,omitempty"`
	ColorHex string `json:"color_hex,omitempty"`
}

type pickerResponse struct {
	Options    []pickerOption `json:"options"`
	TotalCount int64          `json:"total_count"`
	Offset     int            `json:"offset"`
	HasMore    bool           `json:"has_more"`
	NextOffset int            `json:"next_offset"`
}

// PickerItems serves the paginated catalog feed behind item comboboxes.
func PickerItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if database == nil {
		applog.Debug(r.Context(), "item picker request without database")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	ctx := r.Context()
	query := listing.QueryFromRequest(r)

	source := listing.GormSource[models.Item]{
		DB:            database,
		SearchColumns: []string{"name", "code", "brand"},
		Order:         "name asc, id asc",
		Scope: func(db *gorm.DB) *gorm.DB {
			return db.Where("active = ?", true)
		},
	}

	page, err := source.Fetch(ctx, query)
	if err != nil {
		applog.Error(ctx, "failed to fetch item picker page", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load items")
		return
	}

	options := make([]pickerOption, 0, len(page.Items))
	for _, item := range page.Items {
		options = append(options, pickerOption{
			ID:       item.ID,
			Label:    item.Name,
			Code:     item.Code,
			Detail:   item.StockUnit,
			ColorHex: item.ColorHex,
		})
	}

	writeJSON(w, http.StatusOK, pickerResponse{
		Options:    options,
		TotalCount: page.TotalCount,
		Offset:     page.Offset,
		HasMore:    page.HasMore,
		NextOffset: page.NextOffset(),
	})
}

// PickerEmployees serves the paginated staff feed behind operator comboboxes.
func PickerEmployees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if database == nil {
		applog.Debug(r.Context(), "employee picker request without database")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	ctx := r.Context()
	query := listing.QueryFromRequest(r)

	source := listing.GormSource[models.Employee]{
		DB:            database,
		SearchColumns: []string{"first_name", "last_name", "email"},
		Order:         "last_name asc, first_name asc, id asc",
		Scope: func(db *gorm.DB) *gorm.DB {
			return db.Where("active = ?", true)
		},
	}

	page, err := source.Fetch(ctx, query)
	if err != nil {
		applog.Error(ctx, "failed to fetch employee picker page", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load employees")
		return
	}

	options := make([]pickerOption, 0, len(page.Items))
	for _, employee := range page.Items {
		options = append(options, pickerOption{
			ID:     employee.ID,
			Label:  strings.TrimSpace(employee.FirstName + " " + employee.LastName),
			Detail: employee.Role,
		})
	}

	writeJSON(w, http.StatusOK, pickerResponse{
		Options:    options,
		TotalCount: page.TotalCount,
		Offset:     page.Offset,
		HasMore:    page.HasMore,
		NextOffset: page.NextOffset(),
	})
}
