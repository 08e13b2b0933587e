package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	applog "tintaria/internal/log"
)

type focusRequest struct {
	List string `json:"list"`
	Row  uint   `json:"row"`
}

// FocusState tracks which swiped-open row currently owns the action focus.
// Opening a row closes whichever one was open before.
func FocusState(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		currentFocus(w, r)
	case http.MethodPost:
		openFocus(w, r)
	case http.MethodDelete:
		closeFocus(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func currentFocus(w http.ResponseWriter, r *http.Request) {
	tracker := sessionFocus(r)
	focus, ok := tracker.Current()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"focus": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"focus": focus})
}

func openFocus(w http.ResponseWriter, r *http.Request) {
	var payload focusRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(r.Context(), "invalid focus payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if strings.TrimSpace(payload.List) == "" || payload.Row == 0 {
		writeJSONError(w, http.StatusBadRequest, "list and row are required")
		return
	}

	tracker := sessionFocus(r)
	focus := tracker.Open(strings.TrimSpace(payload.List), payload.Row)
	storeSessionFocus(r, tracker)

	writeJSON(w, http.StatusOK, map[string]any{"focus": focus})
}

func closeFocus(w http.ResponseWriter, r *http.Request) {
	var payload focusRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		applog.Debug(r.Context(), "invalid focus close payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	tracker := sessionFocus(r)
	if strings.TrimSpace(payload.List) != "" && payload.Row > 0 {
		tracker.CloseIf(strings.TrimSpace(payload.List), payload.Row)
	} else {
		tracker.Close()
	}
	storeSessionFocus(r, tracker)

	w.WriteHeader(http.StatusNoContent)
}
