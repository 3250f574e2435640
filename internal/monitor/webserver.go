// Package monitor serves the latest wind profile over HTTP.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"tailscale.com/tsweb"

	"github.com/banshee-data/windprofile/internal/db"
	"github.com/banshee-data/windprofile/internal/httputil"
	"github.com/banshee-data/windprofile/internal/ingest"
	"github.com/banshee-data/windprofile/internal/regrid"
	"github.com/banshee-data/windprofile/internal/security"
	"github.com/banshee-data/windprofile/internal/timeutil"
	"github.com/banshee-data/windprofile/internal/units"
	"github.com/banshee-data/windprofile/internal/vad"
)

// Snapshot is one profile as published to the server.
type Snapshot struct {
	RunID     string         `json:"run_id,omitempty"`
	Source    string         `json:"source"`
	CreatedAt time.Time      `json:"created_at"`
	Rows      []vad.Row      `json:"rows"`
	Levels    []regrid.Level `json:"levels,omitempty"`
}

// WebServer handles the HTTP interface for browsing wind profiles.
type WebServer struct {
	address string
	units   string
	server  *http.Server
	db      *db.DB
	clock   timeutil.Clock

	mu     sync.RWMutex
	latest *Snapshot
}

// WebServerConfig contains configuration options for the web server
type WebServerConfig struct {
	Address string
	// Units is the default speed unit for charts and JSON.
	Units string
	// DB, when set, backs run lookups and the database debug tools.
	DB    *db.DB
	Clock timeutil.Clock
}

// NewWebServer creates a new web server with the provided configuration
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address: config.Address,
		units:   config.Units,
		db:      config.DB,
		clock:   config.Clock,
	}
	if !units.IsValid(ws.units) {
		ws.units = units.MPS
	}
	if ws.clock == nil {
		ws.clock = timeutil.RealClock{}
	}

	ws.server = &http.Server{
		Addr:              ws.address,
		Handler:           ws.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return ws
}

// Handler returns the server's routes.
func (ws *WebServer) Handler() http.Handler {
	return ws.server.Handler
}

// Publish makes s the profile served when no run is requested.
func (ws *WebServer) Publish(s Snapshot) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = ws.clock.Now().UTC()
	}
	ws.mu.Lock()
	ws.latest = &s
	ws.mu.Unlock()
}

var errNoProfile = errors.New("no profile available")

// snapshot resolves the profile for a request: the named run from the
// database, else the last published profile, else the newest stored run.
func (ws *WebServer) snapshot(runID string) (Snapshot, error) {
	if runID != "" {
		if ws.db == nil {
			return Snapshot{}, fmt.Errorf("%w: no database configured", db.ErrRunNotFound)
		}
		return ws.loadRun(runID)
	}

	ws.mu.RLock()
	latest := ws.latest
	ws.mu.RUnlock()
	if latest != nil {
		return *latest, nil
	}

	if ws.db != nil {
		run, err := ws.db.LatestRun()
		if err == nil {
			return ws.loadRun(run.RunID)
		}
		if !errors.Is(err, db.ErrRunNotFound) {
			return Snapshot{}, err
		}
	}
	return Snapshot{}, errNoProfile
}

func (ws *WebServer) loadRun(runID string) (Snapshot, error) {
	run, err := ws.db.GetRun(runID)
	if err != nil {
		return Snapshot{}, err
	}
	rows, err := ws.db.RunRows(runID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{RunID: run.RunID, Source: run.Source, CreatedAt: run.CreatedAt, Rows: rows}, nil
}

// requestUnits returns the units query parameter, or the server default.
func (ws *WebServer) requestUnits(r *http.Request) (string, error) {
	u := r.URL.Query().Get("units")
	if u == "" {
		return ws.units, nil
	}
	if !units.IsValid(u) {
		return "", fmt.Errorf("invalid units %q; must be one of: %s", u, units.GetValidUnitsString())
	}
	return u, nil
}

func writeSnapshotError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrRunNotFound), errors.Is(err, errNoProfile):
		httputil.WriteJSONError(w, http.StatusNotFound, err.Error())
	default:
		httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

// Start begins the HTTP server in a goroutine and handles graceful shutdown
func (ws *WebServer) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}

// setupRoutes configures the HTTP routes and handlers
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", ws.handleHealth)
	mux.HandleFunc("/profile", ws.handleProfileChart)
	mux.HandleFunc("/api/profile", ws.handleProfileJSON)
	mux.HandleFunc("/api/profile.csv", ws.handleProfileCSV)
	mux.HandleFunc("/api/runs", ws.handleRuns)
	mux.HandleFunc("/", ws.handleRoot)

	debug := tsweb.Debugger(mux)
	debug.Handle("profile", "Latest wind profile chart", http.HandlerFunc(ws.handleProfileChart))
	if ws.db != nil {
		ws.db.AttachDebugHandlers(debug)
	}
	return mux
}

func (ws *WebServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/profile", http.StatusFound)
}

// handleHealth handles the health check endpoint
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "vad", "timestamp": "%s"}`, ws.clock.Now().UTC().Format(time.RFC3339))
}

type profileResponse struct {
	Snapshot
	Units string `json:"units"`
}

// handleProfileJSON returns the profile rows as JSON.
// Query params:
//   - run_id (optional; defaults to the latest profile)
//   - units (optional; defaults to the server units)
func (ws *WebServer) handleProfileJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	unit, err := ws.requestUnits(r)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := ws.snapshot(r.URL.Query().Get("run_id"))
	if err != nil {
		writeSnapshotError(w, err)
		return
	}

	snap.Rows = convertRows(snap.Rows, unit)
	snap.Levels = convertLevels(snap.Levels, unit)
	httputil.WriteJSON(w, http.StatusOK, profileResponse{Snapshot: snap, Units: unit})
}

// handleProfileCSV downloads the ring rows in the CLI's CSV layout.
// Query params are the same as /api/profile.
func (ws *WebServer) handleProfileCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	unit, err := ws.requestUnits(r)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := ws.snapshot(r.URL.Query().Get("run_id"))
	if err != nil {
		writeSnapshotError(w, err)
		return
	}

	name := security.ExportFilename("profile", snap.Source, "csv")
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := ingest.WriteRows(w, snap.Rows, unit); err != nil {
		log.Printf("failed to write profile csv: %v", err)
	}
}

// handleRuns lists stored runs, newest first.
// Query params:
//   - limit (optional; default 50)
func (ws *WebServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	if ws.db == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}
	limit, err := httputil.QueryInt(r, "limit", 50, 1, 1000)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	runs, err := ws.db.Runs(limit)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	httputil.WriteJSON(w, http.StatusOK, runs)
}
