package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/procurement-planner/internal/config"
	"github.com/iwvelando/procurement-planner/internal/pipeline"
	"github.com/iwvelando/procurement-planner/internal/results"
	"github.com/iwvelando/procurement-planner/internal/store"
	"github.com/iwvelando/procurement-planner/pkg/constants"
	"github.com/iwvelando/procurement-planner/pkg/optimization"
	"github.com/iwvelando/procurement-planner/pkg/output"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	maxSolveTime  time.Duration
	version       string
	runs          *store.Store
}

type planOptions struct {
	IncludeCandidates bool
}

// NewHandler constructs the HTTP handler that serves the planning API. A nil
// cfg uses DefaultConfig. runs may be nil, in which case plans are not
// persisted and the run history endpoints report 404.
func NewHandler(logger *zap.Logger, cfg *Config, version string, runs *store.Store) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	maxUploadSize := cfg.UploadSizeBytes()
	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:        logger,
		maxUploadSize: maxUploadSize,
		maxSolveTime:  cfg.MaxSolveTime,
		version:       trimmedVersion,
		runs:          runs,
	}

	mux := http.NewServeMux()

	// Plan API endpoint (file upload)
	mux.HandleFunc("/api/plan", h.handlePlan)

	// Plan API endpoint for editor-driven updates
	mux.HandleFunc("/api/editor/plan", h.handlePlanEditor)

	// Config serialization endpoint for editor downloads
	mux.HandleFunc("/api/editor/export", h.handleConfigExport)

	// Stored run history
	mux.HandleFunc("/api/runs", h.handleRuns)
	mux.HandleFunc("/api/runs/", h.handleRun)

	// Version endpoint for client metadata
	mux.HandleFunc("/api/version", h.handleVersion)

	return mux
}

type planResponse struct {
	Status        string                 `json:"status"`
	Objective     float64                `json:"objectiveValue"`
	Message       string                 `json:"message,omitempty"`
	Results       results.Results        `json:"results"`
	Summary       optimization.Summary   `json:"summary"`
	Generation    generationStats        `json:"generation"`
	CSV           string                 `json:"csv"`
	CandidatesCSV string                 `json:"candidatesCsv,omitempty"`
	Warnings      []string               `json:"warnings,omitempty"`
	Duration      string                 `json:"duration"`
	Config        map[string]interface{} `json:"config,omitempty"`
	ConfigYAML    string                 `json:"configYaml,omitempty"`
}

type generationStats struct {
	Combinations   int            `json:"combinations"`
	PriceBuckets   int            `json:"priceBuckets"`
	SizeBuckets    int            `json:"sizeBuckets"`
	TransitCounts  map[string]int `json:"transitCounts"`
	UnboundedStock int            `json:"unboundedStock"`
}

type runResponse struct {
	Summary optimization.Summary `json:"summary"`
	Entries []results.Entry      `json:"productTotals"`
}

func (h *handler) handlePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize))
			return
		}
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "missing configuration file")
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", "server.handlePlan"),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read configuration: %v", err))
		return
	}

	configBytes := buf.Bytes()
	configMap, err := decodeYAMLToMap(configBytes)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("error reading config data, %v", err))
		return
	}

	opts := planOptions{IncludeCandidates: coerceBool(r.FormValue("includeCandidates"))}
	h.runPlan(w, r, configBytes, configMap, start, "server.handlePlan", opts)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handlePlanEditor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode configuration: %v", err), "server.handlePlanEditor")
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	configPayload := payload
	if rawConfig, ok := payload["config"]; ok {
		cfgMap, ok := rawConfig.(map[string]interface{})
		if !ok {
			h.respondErrorWithOp(w, http.StatusBadRequest, "invalid config payload: expected object", "server.handlePlanEditor")
			return
		}
		configPayload = cfgMap
	}

	options := planOptions{}
	if rawOptions, ok := payload["options"]; ok {
		optsMap, ok := rawOptions.(map[string]interface{})
		if !ok {
			h.respondErrorWithOp(w, http.StatusBadRequest, "invalid options payload: expected object", "server.handlePlanEditor")
			return
		}
		if v, ok := optsMap["includeCandidates"]; ok {
			options.IncludeCandidates = coerceBool(v)
		}
	}

	configBytes, err := yaml.Marshal(configPayload)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), "server.handlePlanEditor")
		return
	}

	configMap, err := decodeYAMLToMap(configBytes)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse configuration: %v", err), "server.handlePlanEditor")
		return
	}

	h.runPlan(w, r, configBytes, configMap, start, "server.handlePlanEditor", options)
}

func (h *handler) handleConfigExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode configuration: %v", err), "server.handleConfigExport")
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	yamlBytes, err := marshalOrderedConfigYAML(payload)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), "server.handleConfigExport")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"configYaml": string(yamlBytes),
	})
}

// sectionOrder is the top-level key order of exported configurations; any
// other keys follow alphabetically.
var sectionOrder = []string{
	"seed", "logging", "output", "store", "generation", "demand", "markup",
	"transit", "logistics", "stock", "solver",
}

func marshalOrderedConfigYAML(payload map[string]interface{}) ([]byte, error) {
	items := make([]orderedItem, 0, len(payload))
	seen := make(map[string]struct{})

	for _, key := range sectionOrder {
		if value, ok := payload[key]; ok {
			items = append(items, orderedItem{key: key, value: value})
			seen[key] = struct{}{}
		}
	}

	remainingKeys := make([]string, 0, len(payload))
	for key := range payload {
		if _, already := seen[key]; already {
			continue
		}
		remainingKeys = append(remainingKeys, key)
	}
	sort.Strings(remainingKeys)
	for _, key := range remainingKeys {
		items = append(items, orderedItem{key: key, value: payload[key]})
	}

	ordered := orderedConfig{items: items}
	return yaml.Marshal(ordered)
}

type orderedConfig struct {
	items []orderedItem
}

type orderedItem struct {
	key   string
	value interface{}
}

func (o orderedConfig) MarshalYAML() (interface{}, error) {
	mapNode := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
	}

	for _, item := range o.items {
		keyNode := &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Value: item.key,
		}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(item.value); err != nil {
			return nil, err
		}
		mapNode.Content = append(mapNode.Content, keyNode, valueNode)
	}

	return mapNode, nil
}

func (h *handler) runPlan(w http.ResponseWriter, r *http.Request, configBytes []byte, configMap map[string]interface{}, start time.Time, op string, opts planOptions) {
	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(configBytes))
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	warnings := cfg.ValidateConfiguration()
	if h.maxSolveTime > 0 && cfg.Solver.TimeLimit > h.maxSolveTime {
		warnings = append(warnings, fmt.Sprintf("solver.timeLimit %s exceeds the server limit; using %s",
			cfg.Solver.TimeLimit, h.maxSolveTime))
		cfg.Solver.TimeLimit = h.maxSolveTime
	}

	runner, err := pipeline.NewRunner(h.logger, cfg)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to initialize planner: %v", err), op)
		return
	}
	runner.SetStore(h.runs)

	out, err := runner.Run(r.Context())
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to compute plan: %v", err), op)
		return
	}

	elapsed := time.Since(start)

	if configMap == nil {
		configMap = make(map[string]interface{})
	}

	transitCounts := make(map[string]int, len(out.Stats.TransitCounts))
	for mode, n := range out.Stats.TransitCounts {
		transitCounts[mode.String()] = n
	}

	response := planResponse{
		Status:    out.Results.Status.String(),
		Objective: out.Results.ObjectiveValue,
		Message:   out.Results.Message,
		Results:   out.Results,
		Summary:   out.Summary,
		Generation: generationStats{
			Combinations:   out.Stats.Combinations,
			PriceBuckets:   out.Stats.PriceBuckets.Total,
			SizeBuckets:    out.Stats.SizeBuckets.Total,
			TransitCounts:  transitCounts,
			UnboundedStock: out.Stats.UnboundedStock,
		},
		CSV:        output.CsvString(out.Results),
		Warnings:   warnings,
		Duration:   elapsed.String(),
		Config:     configMap,
		ConfigYAML: string(configBytes),
	}
	if opts.IncludeCandidates {
		var buf bytes.Buffer
		if err := output.WriteCandidatesCSV(&buf, out.Candidates); err != nil {
			h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to encode candidates: %v", err), op)
			return
		}
		response.CandidatesCSV = buf.String()
	}

	h.logger.Info("plan computed",
		zap.String("op", op),
		zap.String("status", response.Status),
		zap.Int("entries", len(out.Results.Entries)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if h.runs == nil {
		h.respondErrorWithOp(w, http.StatusNotFound, "run store is not configured", "server.handleRuns")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw), "server.handleRuns")
			return
		}
		limit = n
	}

	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), "server.handleRuns")
		return
	}
	if runs == nil {
		runs = []optimization.Summary{}
	}
	h.writeJSON(w, http.StatusOK, runs)
}

func (h *handler) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if h.runs == nil {
		h.respondErrorWithOp(w, http.StatusNotFound, "run store is not configured", "server.handleRun")
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/runs/"), "/")
	if id == "" {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing run id", "server.handleRun")
		return
	}

	summary, err := h.runs.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrRunNotFound) {
		h.respondErrorWithOp(w, http.StatusNotFound, err.Error(), "server.handleRun")
		return
	}
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), "server.handleRun")
		return
	}

	entries, err := h.runs.PlanEntries(r.Context(), id)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), "server.handleRun")
		return
	}
	h.writeJSON(w, http.StatusOK, runResponse{Summary: summary, Entries: entries})
}

func decodeYAMLToMap(data []byte) (map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return make(map[string]interface{}), nil
	}

	var result map[string]interface{}
	if err := yaml.Unmarshal(trimmed, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = make(map[string]interface{})
	}
	return result, nil
}

func (h *handler) respondError(w http.ResponseWriter, status int, msg string) {
	h.respondErrorWithOp(w, status, msg, "server.handlePlan")
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("plan request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func coerceBool(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false
		}
		if parsed, err := strconv.ParseBool(trimmed); err == nil {
			return parsed
		}
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case json.Number:
		if parsed, err := strconv.ParseFloat(v.String(), 64); err == nil {
			return parsed != 0
		}
	}
	return false
}
