// Package controlplane exposes a minimal read-only HTTP surface for a
// long-running `run` invocation: GET /status reports per-source run
// progress, GET /metrics re-exposes the Prometheus registry. Re-homed
// from the teacher's cmd/server job-creation API, which this repo has no
// use for since sources come from config files, not a POST endpoint.
package controlplane

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/valpere/scrapping/internal/metrics"
	"github.com/valpere/scrapping/internal/pipeline"
)

// SourceStatus is one source's latest known run state, updated as the
// orchestrator progresses.
type SourceStatus struct {
	SourceID  string              `json:"source_id"`
	State     string              `json:"state"` // running | done | failed
	StartedAt time.Time           `json:"started_at,omitempty"`
	Report    *pipeline.RunReport `json:"report,omitempty"`
}

// StatusBoard is the in-memory state GET /status serves, updated by the
// run command as each source starts and finishes. It is the only mutable
// shared state in the control plane; every field access goes through its
// mutex, so concurrent sources updating their own status never race.
type StatusBoard struct {
	mu      sync.RWMutex
	RunID   string
	sources map[string]*SourceStatus
}

func NewStatusBoard(runID string) *StatusBoard {
	return &StatusBoard{RunID: runID, sources: make(map[string]*SourceStatus)}
}

func (b *StatusBoard) Start(sourceID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources[sourceID] = &SourceStatus{SourceID: sourceID, State: "running", StartedAt: time.Now()}
}

func (b *StatusBoard) Finish(sourceID string, report *pipeline.RunReport, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.sources[sourceID]
	if !ok {
		st = &SourceStatus{SourceID: sourceID}
		b.sources[sourceID] = st
	}
	st.Report = report
	if err != nil {
		st.State = "failed"
		return
	}
	st.State = "done"
}

func (b *StatusBoard) snapshot() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*SourceStatus, 0, len(b.sources))
	for _, st := range b.sources {
		out = append(out, st)
	}
	return map[string]interface{}{"run_id": b.RunID, "sources": out}
}

// Server is the read-only status/metrics HTTP server.
type Server struct {
	Board   *StatusBoard
	Metrics *metrics.Registry
	srv     *http.Server
}

// NewServer builds the router: GET /status, GET /health, and (when
// metricsReg is non-nil) GET /metrics.
func NewServer(addr string, board *StatusBoard, metricsReg *metrics.Registry) *Server {
	s := &Server{Board: board, Metrics: metricsReg}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	if metricsReg != nil {
		r.Handle("/metrics", metricsReg.Handler()).Methods(http.MethodGet)
	}

	s.srv = &http.Server{Addr: addr, Handler: r}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Board.snapshot())
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
