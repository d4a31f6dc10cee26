package controlplane

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/valpere/scrapping/internal/metrics"
	"github.com/valpere/scrapping/internal/pipeline"
)

func setupTestServer(t *testing.T) (*httptest.Server, *StatusBoard) {
	t.Helper()
	board := NewStatusBoard("run_test")
	reg := metrics.New(metrics.Config{Namespace: "ctltest", Subsystem: "engine"})
	s := NewServer("", board, reg)
	return httptest.NewServer(s.srv.Handler), board
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestStatusEndpointReportsSourceProgress(t *testing.T) {
	server, board := setupTestServer(t)
	defer server.Close()

	board.Start("jobs_fixture")
	board.Finish("jobs_fixture", &pipeline.RunReport{SourceID: "jobs_fixture", ItemsPersisted: 3}, nil)

	resp, err := http.Get(server.URL + "/status")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["run_id"] != "run_test" {
		t.Errorf("run_id = %v, want run_test", body["run_id"])
	}
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestStatusBoardFinishMarksFailedOnError(t *testing.T) {
	board := NewStatusBoard("run_test")
	board.Start("jobs_fixture")
	board.Finish("jobs_fixture", nil, errTest{})

	snap := board.snapshot()
	sources := snap["sources"].([]*SourceStatus)
	if len(sources) != 1 || sources[0].State != "failed" {
		t.Fatalf("expected one failed source, got %+v", sources)
	}
}

type errTest struct{}

func (errTest) Error() string { return "boom" }
