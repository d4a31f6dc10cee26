package engine

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/valpere/scrapping/internal/config"
	"github.com/valpere/scrapping/internal/obslog"
	"github.com/valpere/scrapping/internal/ratelimit"
)

func newTestHTTPEngine(t *testing.T, cfg config.EngineConfig) *HTTPEngine {
	t.Helper()
	rl := ratelimit.NewRegistry(ratelimit.Policy{})
	e, err := NewHTTPEngine(cfg, rl, obslog.New(io.Discard, obslog.WarnLevel))
	if err != nil {
		t.Fatalf("NewHTTPEngine: %v", err)
	}
	return e
}

func TestHTTPEngineGetPopulatesTraceOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	e := newTestHTTPEngine(t, config.EngineConfig{TimeoutS: 5})
	resp, err := e.Get(t.Context(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(resp.Trace) != 1 {
		t.Fatalf("expected 1 trace entry, got %d", len(resp.Trace))
	}
	if resp.Trace[0].Engine != "http" || resp.Trace[0].StatusCode != 200 {
		t.Errorf("unexpected trace entry: %+v", resp.Trace[0])
	}
}

func TestHTTPEngineGetReturnsPopulatedResponseOnFinalFailure(t *testing.T) {
	e := newTestHTTPEngine(t, config.EngineConfig{
		TimeoutS: 1, MaxRetries: 1, BackoffMode: "none",
	})

	// Nothing listens on this port, so every attempt is a connection error.
	resp, err := e.Get(t.Context(), "http://127.0.0.1:1")
	if err == nil {
		t.Fatal("expected an error from an unreachable host")
	}
	if resp == nil {
		t.Fatal("expected a non-nil FetchResponse even on final failure")
	}
	if resp.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", resp.StatusCode)
	}
	if len(resp.Trace) != 2 {
		t.Errorf("expected 2 trace entries (initial + 1 retry), got %d", len(resp.Trace))
	}
}
