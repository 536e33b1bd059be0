package db

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/bmvandoren/vol2bird/internal/httputil"
)

// AttachAdminRoutes mounts the archive debug pages on mux under /debug/:
// a live SQL console and JSON listings of runs and their layers.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+db.path, db.DB, &tailsql.DBOptions{
		Label: "Profile archive",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("runs", "Recent profile runs (JSON, ?limit=N)", http.HandlerFunc(db.handleRuns))
	debug.Handle("layers", "Layers of one run (JSON, ?run_id=...)", http.HandlerFunc(db.handleLayers))
	return nil
}

func (db *DB) handleRuns(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid limit %q", s)
			return
		}
		limit = n
	}
	runs, err := db.Runs(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "%v", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, runs)
}

func (db *DB) handleLayers(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "run_id is required")
		return
	}
	layers, err := db.Layers(r.Context(), runID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "%v", err)
		return
	}
	if len(layers) == 0 {
		httputil.WriteError(w, http.StatusNotFound, "run %s not found", runID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, layers)
}
