package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/procurement-planner/internal/store"
	"github.com/iwvelando/procurement-planner/pkg/optimization"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// smallPayload loads the example configuration with a reduced solver
// workload so requests finish quickly.
func smallPayload(t *testing.T) map[string]interface{} {
	t.Helper()

	data, err := os.ReadFile(filepath.Join("..", "..", "config.yaml.example"))
	if err != nil {
		t.Fatalf("failed to read example config: %v", err)
	}

	var payload map[string]interface{}
	if err := yaml.Unmarshal(data, &payload); err != nil {
		t.Fatalf("failed to unmarshal yaml: %v", err)
	}

	solverSection, ok := payload["solver"].(map[string]interface{})
	if !ok {
		t.Fatal("expected solver section in example config")
	}
	solverSection["maxCandidates"] = 12
	solverSection["timeLimit"] = "5s"
	return payload
}

func smallConfigYAML(t *testing.T) string {
	t.Helper()
	data, err := yaml.Marshal(smallPayload(t))
	if err != nil {
		t.Fatalf("failed to marshal yaml: %v", err)
	}
	return string(data)
}

func TestHandlePlanSuccess(t *testing.T) {
	handler := NewHandler(zap.NewNop(), nil, "", nil)

	rr := performUpload(t, handler, smallConfigYAML(t), "config.yaml", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp planResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != "OPTIMAL" && resp.Status != "FEASIBLE" {
		t.Fatalf("expected a solution, got status %s: %s", resp.Status, resp.Message)
	}
	if resp.Summary.Considered != 12 {
		t.Fatalf("expected 12 considered candidates, got %d", resp.Summary.Considered)
	}
	if resp.Generation.Combinations == 0 {
		t.Fatal("expected generation statistics in response")
	}
	if !strings.HasPrefix(resp.CSV, "id,quantity,periods") {
		t.Fatalf("expected CSV data in response, got %q", resp.CSV)
	}
	if resp.CandidatesCSV != "" {
		t.Fatal("expected no candidates CSV unless requested")
	}
	if resp.Duration == "" {
		t.Fatal("expected duration in response")
	}
	if resp.Config == nil {
		t.Fatal("expected config data in response")
	}
	if resp.ConfigYAML == "" {
		t.Fatal("expected config YAML in response")
	}
}

func TestHandlePlanIncludeCandidates(t *testing.T) {
	handler := NewHandler(zap.NewNop(), nil, "", nil)

	rr := performUpload(t, handler, smallConfigYAML(t), "config.yaml", map[string]string{"includeCandidates": "true"})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp planResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.HasPrefix(resp.CandidatesCSV, "id,price,size") {
		t.Fatalf("expected candidates CSV in response, got %q", resp.CandidatesCSV)
	}
	rows := strings.Count(strings.TrimSpace(resp.CandidatesCSV), "\n")
	if rows != resp.Summary.Candidates {
		t.Fatalf("expected %d candidate rows, got %d", resp.Summary.Candidates, rows)
	}
}

func TestHandlePlanEditorSuccess(t *testing.T) {
	handler := NewHandler(zap.NewNop(), nil, "", nil)

	payload := map[string]interface{}{
		"config":  smallPayload(t),
		"options": map[string]interface{}{"includeCandidates": "1"},
	}
	rr := performEditorJSON(t, handler, payload, "/api/editor/plan")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp planResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status == "" {
		t.Fatal("expected status in response")
	}
	if resp.CandidatesCSV == "" {
		t.Fatal("expected candidates CSV when requested through options")
	}
	if resp.Config == nil {
		t.Fatal("expected config data in response")
	}
	if resp.ConfigYAML == "" {
		t.Fatal("expected config YAML in response")
	}
}

func TestHandlePlanClampsSolveTime(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSolveTime = 2 * time.Second
	handler := NewHandler(zap.NewNop(), cfg, "", nil)

	rr := performUpload(t, handler, smallConfigYAML(t), "config.yaml", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp planResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	found := false
	for _, w := range resp.Warnings {
		if strings.Contains(w, "exceeds the server limit; using 2s") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a time limit warning, got %v", resp.Warnings)
	}
}

func TestHandlePlanEditorInvalidOptions(t *testing.T) {
	handler := NewHandler(zap.NewNop(), nil, "", nil)

	tests := []struct {
		name     string
		payload  map[string]interface{}
		expected string
	}{
		{"Config not an object", map[string]interface{}{"config": "seed: 1"}, "invalid config payload"},
		{"Options not an object", map[string]interface{}{"config": map[string]interface{}{}, "options": []interface{}{}}, "invalid options payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := performEditorJSON(t, handler, tt.payload, "/api/editor/plan")
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rr.Code)
			}
			var resp map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if !strings.Contains(resp["error"], tt.expected) {
				t.Fatalf("expected %q in error, got %q", tt.expected, resp["error"])
			}
		})
	}
}

func TestHandleConfigExport(t *testing.T) {
	handler := NewHandler(zap.NewNop(), nil, "", nil)

	payload := map[string]interface{}{
		"solver": map[string]interface{}{
			"budget": 1000.0,
			"space":  5000.0,
		},
		"generation": map[string]interface{}{
			"priceRange": []interface{}{1.0, 100.0},
		},
		"output": map[string]interface{}{
			"format": "pretty",
		},
		"logging": map[string]interface{}{
			"level": "info",
		},
		"extra": "kept",
	}

	rr := performEditorJSON(t, handler, payload, "/api/editor/export")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	yamlStr := resp["configYaml"]
	if yamlStr == "" {
		t.Fatal("expected configYaml in response")
	}

	var orderedTop []string
	for _, line := range strings.Split(strings.TrimRight(yamlStr, "\n"), "\n") {
		if len(line) == 0 || strings.HasPrefix(line, " ") || strings.HasPrefix(line, "-") {
			continue
		}
		orderedTop = append(orderedTop, strings.SplitN(line, ":", 2)[0])
	}

	expected := []string{"logging", "output", "generation", "solver", "extra"}
	if strings.Join(orderedTop, ",") != strings.Join(expected, ",") {
		t.Fatalf("expected top-level order %v, got %v", expected, orderedTop)
	}
}

func TestHandleVersion(t *testing.T) {
	tests := []struct {
		name     string
		version  string
		expected string
	}{
		{"Explicit version", " v1.2.3 ", "v1.2.3"},
		{"Empty version", "", "dev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(nil, nil, tt.version, nil)
			req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rr.Code)
			}
			var resp map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp["version"] != tt.expected {
				t.Fatalf("expected version %q, got %q", tt.expected, resp["version"])
			}
		})
	}
}

func TestHandleRunsWithStore(t *testing.T) {
	runs, err := store.Open(zap.NewNop(), filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = runs.Close() })

	handler := NewHandler(zap.NewNop(), nil, "", runs)

	rr := performUpload(t, handler, smallConfigYAML(t), "config.yaml", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var planned planResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &planned); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if planned.Summary.RunID == "" {
		t.Fatal("expected a run id when a store is configured")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/runs?limit=5", nil)
	listRR := httptest.NewRecorder()
	handler.ServeHTTP(listRR, req)
	if listRR.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", listRR.Code, listRR.Body.String())
	}
	var listed []optimization.Summary
	if err := json.Unmarshal(listRR.Body.Bytes(), &listed); err != nil {
		t.Fatalf("failed to decode run list: %v", err)
	}
	if len(listed) != 1 || listed[0].RunID != planned.Summary.RunID {
		t.Fatalf("expected the stored run in the list, got %+v", listed)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/runs/"+planned.Summary.RunID, nil)
	getRR := httptest.NewRecorder()
	handler.ServeHTTP(getRR, req)
	if getRR.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", getRR.Code, getRR.Body.String())
	}
	var run struct {
		Summary optimization.Summary     `json:"summary"`
		Entries []map[string]interface{} `json:"productTotals"`
	}
	if err := json.Unmarshal(getRR.Body.Bytes(), &run); err != nil {
		t.Fatalf("failed to decode run: %v", err)
	}
	if len(run.Entries) != len(planned.Results.Entries) {
		t.Fatalf("expected %d stored entries, got %d", len(planned.Results.Entries), len(run.Entries))
	}

	stored, err := runs.GetRun(context.Background(), planned.Summary.RunID)
	if err != nil {
		t.Fatalf("expected run in store: %v", err)
	}
	if stored.Status != planned.Status {
		t.Fatalf("expected stored status %s, got %s", planned.Status, stored.Status)
	}
}

func TestHandleRunsErrors(t *testing.T) {
	runs, err := store.Open(zap.NewNop(), filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = runs.Close() })

	tests := []struct {
		name     string
		store    *store.Store
		method   string
		path     string
		expected int
	}{
		{"List without store", nil, http.MethodGet, "/api/runs", http.StatusNotFound},
		{"Get without store", nil, http.MethodGet, "/api/runs/abc", http.StatusNotFound},
		{"Unknown run", runs, http.MethodGet, "/api/runs/abc", http.StatusNotFound},
		{"Missing id", runs, http.MethodGet, "/api/runs/", http.StatusBadRequest},
		{"Bad limit", runs, http.MethodGet, "/api/runs?limit=x", http.StatusBadRequest},
		{"Wrong method", runs, http.MethodPost, "/api/runs", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(zap.NewNop(), nil, "", tt.store)
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.expected {
				t.Fatalf("expected status %d, got %d: %s", tt.expected, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestHandlePlanMethodNotAllowed(t *testing.T) {
	handler := NewHandler(zap.NewNop(), nil, "", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/plan", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
}

func TestHandlePlanUploadTooLarge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SetUploadSizeBytes(64)
	handler := NewHandler(zap.NewNop(), cfg, "", nil)

	rr := performUpload(t, handler, strings.Repeat("a", 128), "config.yaml", nil)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp["error"], "upload exceeds limit") {
		t.Fatalf("expected upload limit error message, got %q", resp["error"])
	}
}

func TestHandlePlanMissingFile(t *testing.T) {
	handler := NewHandler(zap.NewNop(), nil, "", nil)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/plan", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp["error"] != "missing configuration file" {
		t.Fatalf("expected missing file error, got %q", resp["error"])
	}
}

func TestHandlePlanInvalidYAML(t *testing.T) {
	handler := NewHandler(zap.NewNop(), nil, "", nil)

	rr := performUpload(t, handler, "solver: [", "config.yaml", nil)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp["error"], "error reading config data") {
		t.Fatalf("expected parse error message, got %q", resp["error"])
	}
}

func TestHandlePlanMissingKeys(t *testing.T) {
	handler := NewHandler(zap.NewNop(), nil, "", nil)

	rr := performUpload(t, handler, "seed: 1\n", "config.yaml", nil)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp["error"], "missing required keys") {
		t.Fatalf("expected missing keys error, got %q", resp["error"])
	}
}

func TestHandlePlanValidationFailure(t *testing.T) {
	handler := NewHandler(zap.NewNop(), nil, "", nil)

	payload := smallPayload(t)
	demand := payload["demand"].(map[string]interface{})
	demand["minDemand"] = 0.99
	configYAML, err := yaml.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal yaml: %v", err)
	}

	rr := performUpload(t, handler, string(configYAML), "config.yaml", nil)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp["error"], "demand.minDemand") {
		t.Fatalf("expected demand range error, got %q", resp["error"])
	}
}

func TestCoerceBool(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		expected bool
	}{
		{"Bool", true, true},
		{"String true", "true", true},
		{"String one", " 1 ", true},
		{"String garbage", "maybe", false},
		{"Empty string", "", false},
		{"Float", 1.0, true},
		{"Zero int", 0, false},
		{"JSON number", json.Number("2"), true},
		{"Nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := coerceBool(tt.value); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func performUpload(t *testing.T, handler http.Handler, content, filename string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form data: %v", err)
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("failed to write form field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/plan", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	return rr
}

func performEditorJSON(t *testing.T, handler http.Handler, payload map[string]interface{}, path string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	return rr
}
