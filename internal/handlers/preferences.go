package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	applog "tintaria/internal/log"
	"tintaria/internal/views/sheet"
)

type themeOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type preferencesResponse struct {
	SheetTheme           string        `json:"sheet_theme"`
	SheetThemeOptions    []themeOption `json:"sheet_theme_options"`
	DefaultBatchVolumeML float64       `json:"default_batch_volume_ml"`
}

// themeOptions projects the sheet style catalogue for the settings form.
func themeOptions() []themeOption {
	catalogue := sheet.Options()
	options := make([]themeOption, 0, len(catalogue))
	for _, option := range catalogue {
		options = append(options, themeOption{Value: option.Value, Label: option.Label})
	}
	return options
}

// UpdatePreferences persists workspace preferences in the visitor's session.
func UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		applog.Debug(r.Context(), "preferences update with unsupported method", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		applog.Error(r.Context(), "failed to parse preferences form", "error", err)
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}

	if themeValue := strings.TrimSpace(r.FormValue("sheet_theme")); themeValue != "" {
		palette := sheet.Resolve(themeValue)
		if !strings.EqualFold(palette.Key, themeValue) {
			applog.Debug(r.Context(), "received invalid sheet theme selection", "value", themeValue)
			http.Error(w, "invalid theme selection", http.StatusBadRequest)
			return
		}
		applog.Debug(r.Context(), "updating sheet theme preference", "theme", palette.Key)
		setSessionSheetTheme(r, palette.Key)
	}

	if volumeValue := strings.TrimSpace(r.FormValue("default_batch_volume_ml")); volumeValue != "" {
		parsed, err := strconv.ParseFloat(volumeValue, 64)
		if err != nil || parsed < 0 {
			applog.Debug(r.Context(), "received invalid default batch volume", "value", volumeValue)
			http.Error(w, "invalid batch volume", http.StatusBadRequest)
			return
		}
		applog.Debug(r.Context(), "updating default batch volume preference", "volumeML", parsed)
		setSessionDefaultBatchVolume(r, parsed)
	}

	response := preferencesResponse{
		SheetTheme:           sessionSheetTheme(r),
		SheetThemeOptions:    themeOptions(),
		DefaultBatchVolumeML: sessionDefaultBatchVolume(r),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		applog.Error(r.Context(), "failed to encode preferences response", "error", err)
	}
}
