package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"tintaria/internal/formula"
	applog "tintaria/internal/log"
	"tintaria/internal/uistate"
	"tintaria/internal/views/sheet"
)

const (
	sessionSheetThemeKey  = "prefs:sheet_theme"
	sessionBatchVolumeKey = "prefs:default_batch_volume_ml"
	sessionFocusKey       = "ui:focus"
)

func correctionSessionKey(formulaID uint) string {
	return fmt.Sprintf("calculator:correction:%d", formulaID)
}

// sessionCorrection restores the correction state stored for the formula,
// returning an idle correction when the session has none.
func sessionCorrection(r *http.Request, formulaID uint) *formula.Correction {
	corr := formula.NewCorrection()
	if sessionManager == nil {
		return corr
	}
	raw := sessionManager.GetString(r.Context(), correctionSessionKey(formulaID))
	if raw == "" {
		return corr
	}
	if err := json.Unmarshal([]byte(raw), corr); err != nil {
		applog.Debug(r.Context(), "discarding unreadable correction state", "formulaID", formulaID, "error", err)
		return formula.NewCorrection()
	}
	return corr
}

func storeSessionCorrection(r *http.Request, formulaID uint, corr *formula.Correction) {
	if sessionManager == nil || corr == nil {
		return
	}
	raw, err := json.Marshal(corr)
	if err != nil {
		applog.Error(r.Context(), "failed to encode correction state", "formulaID", formulaID, "error", err)
		return
	}
	sessionManager.Put(r.Context(), correctionSessionKey(formulaID), string(raw))
}

func clearSessionCorrection(r *http.Request, formulaID uint) {
	if sessionManager == nil {
		return
	}
	sessionManager.Remove(r.Context(), correctionSessionKey(formulaID))
}

// sessionFocus restores the swipe-row focus tracker from the session.
func sessionFocus(r *http.Request) *uistate.Tracker {
	tracker := uistate.NewTracker()
	if sessionManager == nil {
		return tracker
	}
	raw := sessionManager.GetString(r.Context(), sessionFocusKey)
	if raw == "" {
		return tracker
	}
	var focus uistate.Focus
	if err := json.Unmarshal([]byte(raw), &focus); err != nil {
		applog.Debug(r.Context(), "discarding unreadable focus state", "error", err)
		return tracker
	}
	tracker.Restore(focus)
	return tracker
}

func storeSessionFocus(r *http.Request, tracker *uistate.Tracker) {
	if sessionManager == nil || tracker == nil {
		return
	}
	focus, ok := tracker.Current()
	if !ok {
		sessionManager.Remove(r.Context(), sessionFocusKey)
		return
	}
	raw, err := json.Marshal(focus)
	if err != nil {
		applog.Error(r.Context(), "failed to encode focus state", "error", err)
		return
	}
	sessionManager.Put(r.Context(), sessionFocusKey, string(raw))
}

func sessionSheetTheme(r *http.Request) string {
	if sessionManager == nil {
		return sheet.DefaultKey
	}
	value := strings.TrimSpace(sessionManager.GetString(r.Context(), sessionSheetThemeKey))
	if value == "" {
		return sheet.DefaultKey
	}
	return value
}

func setSessionSheetTheme(r *http.Request, key string) {
	if sessionManager == nil {
		return
	}
	sessionManager.Put(r.Context(), sessionSheetThemeKey, key)
}

func sessionDefaultBatchVolume(r *http.Request) float64 {
	if sessionManager == nil {
		return 0
	}
	return sessionManager.GetFloat(r.Context(), sessionBatchVolumeKey)
}

func setSessionDefaultBatchVolume(r *http.Request, volumeML float64) {
	if sessionManager == nil {
		return
	}
	sessionManager.Put(r.Context(), sessionBatchVolumeKey, volumeML)
}
