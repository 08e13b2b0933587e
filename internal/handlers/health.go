package handlers

import (
	"net/http"
	"time"

	"tintaria/internal/db"
	applog "tintaria/internal/log"
)

type healthResponse struct {
	Status   string    `json:"status"`
	Database string    `json:"database"`
	Time     time.Time `json:"time"`
}

// Health answers liveness probes. It always reports 200 so a degraded
// database shows up in the body instead of flapping the process.
func Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Time:   time.Now().UTC(),
	}

	switch {
	case database == nil:
		resp.Database = "unconfigured"
	case db.Ping(r.Context(), database) != nil:
		applog.Warn(r.Context(), "health probe could not reach the database")
		resp.Database = "error"
	default:
		resp.Database = "ok"
	}

	writeJSON(w, http.StatusOK, resp)
}
