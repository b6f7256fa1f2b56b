package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/copyleftdev/layoutevo/internal/config"
	apperrors "github.com/copyleftdev/layoutevo/internal/errors"
	"github.com/copyleftdev/layoutevo/internal/evaluation"
	"github.com/copyleftdev/layoutevo/internal/layout"
	"github.com/copyleftdev/layoutevo/internal/logging"
	"github.com/copyleftdev/layoutevo/internal/optimization"
	"github.com/copyleftdev/layoutevo/internal/optimization/annealing"
	"github.com/copyleftdev/layoutevo/internal/optimization/genetic"
)

// Logger defines the logging interface used by the server
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Server implements the HTTP and JSON-RPC API of the layout optimization
// service. It evaluates layouts synchronously and runs optimizations as
// background jobs.
type Server struct {
	cfg       *config.Config
	logger    Logger
	metrics   *Metrics
	layoutCfg config.LayoutConfig
	layouts   *layout.Generator
	evaluator evaluation.Evaluator

	optimizations   map[string]*OptimizationState
	optimizationsMu sync.RWMutex
	slots           chan struct{}
}

// NewServer creates a server over the loaded resources. Collectors are
// registered with reg; a nil reg disables registration.
func NewServer(cfg *config.Config, logger Logger, res *config.Resources, reg prometheus.Registerer) (*Server, error) {
	layouts, _, err := res.Layout.Build()
	if err != nil {
		return nil, err
	}
	model, err := res.Evaluator()
	if err != nil {
		return nil, fmt.Errorf("build evaluator: %w", err)
	}

	maxJobs := cfg.Optimization.MaxJobs
	if maxJobs < 1 {
		maxJobs = 1
	}
	return &Server{
		cfg:           cfg,
		logger:        logger,
		metrics:       NewMetrics(reg),
		layoutCfg:     res.Layout,
		layouts:       layouts,
		evaluator:     model,
		optimizations: make(map[string]*OptimizationState),
		slots:         make(chan struct{}, maxJobs),
	}, nil
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/evaluate", s.handleEvaluate)
		r.Post("/plot", s.handlePlot)
		r.Get("/keys", s.handleKeys)
		r.Post("/optimize", s.handleOptimize)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/optimization/{id}", s.handleCancel)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// LayoutRequest names a layout and optionally overrides the fixed characters.
// An empty layout selects the configured base layout.
type LayoutRequest struct {
	Layout          string `json:"layout,omitempty"`
	FixedCharacters string `json:"fixed_characters,omitempty"`
}

// EvaluationResponse is the full evaluation of one layout.
type EvaluationResponse struct {
	Layout    string                  `json:"layout"`
	Plot      string                  `json:"plot"`
	Printed   string                  `json:"printed"`
	TotalCost float64                 `json:"total_cost"`
	Metrics   []evaluation.MetricCost `json:"metrics"`
}

// OptimizeRequest starts an optimization job. Params holds the YAML
// parameter document of the chosen algorithm.
type OptimizeRequest struct {
	Algorithm       string `json:"algorithm"`
	Layout          string `json:"layout,omitempty"`
	FixedCharacters string `json:"fixed_characters,omitempty"`
	StartWithLayout *bool  `json:"start_with_layout,omitempty"`
	Params          string `json:"params,omitempty"`
}

func (s *Server) evaluate(req LayoutRequest) (*EvaluationResponse, error) {
	text := req.Layout
	if text == "" {
		text = s.layoutCfg.BaseLayout
	}
	l, err := s.layouts.Generate(text)
	if err != nil {
		return nil, optimization.WrapError(optimization.ErrParse, err, "invalid layout").WithComponent("server")
	}

	start := time.Now()
	res, err := s.evaluator.Evaluate(l)
	s.metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, optimization.WrapError(optimization.ErrEvaluation, err, "could not evaluate layout")
	}
	return evaluationResponse(l, res), nil
}

func evaluationResponse(l *layout.Layout, res *evaluation.Result) *EvaluationResponse {
	return &EvaluationResponse{
		Layout:    l.Text(),
		Plot:      l.Plot(),
		Printed:   res.String(),
		TotalCost: res.TotalCost(),
		Metrics:   res.Metrics,
	}
}

func (s *Server) plot(req LayoutRequest) (map[string]interface{}, error) {
	text := req.Layout
	if text == "" {
		text = s.layoutCfg.BaseLayout
	}
	l, err := s.layouts.Generate(text)
	if err != nil {
		return nil, optimization.WrapError(optimization.ErrParse, err, "invalid layout").WithComponent("server")
	}
	return map[string]interface{}{"layout": l.Text(), "plot": l.Plot()}, nil
}

func (s *Server) permutableKeys(req LayoutRequest) (map[string]interface{}, error) {
	_, gen, err := s.layoutCfg.WithBaseLayout(req.Layout, req.FixedCharacters).Build()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"layout":           gen.BaseLayout(),
		"permutable_keys":  gen.Slots(),
		"fixed_characters": gen.FixedCharacters(),
	}, nil
}

// startOptimization validates the request and launches the job in the background.
func (s *Server) startOptimization(req OptimizeRequest) (map[string]interface{}, error) {
	_, gen, err := s.layoutCfg.WithBaseLayout(req.Layout, req.FixedCharacters).Build()
	if err != nil {
		return nil, err
	}
	startWithLayout := s.cfg.Optimization.DefaultSeeded
	if req.StartWithLayout != nil {
		startWithLayout = *req.StartWithLayout
	}

	id := uuid.NewString()
	logger := s.logger.WithFields(map[string]interface{}{
		"optimization_id": id,
		"algorithm":       req.Algorithm,
	})
	ctx, cancel := context.WithCancel(context.Background())
	state := &OptimizationState{
		ID:          id,
		Algorithm:   req.Algorithm,
		Status:      StatusPending,
		StartTime:   time.Now(),
		LastUpdated: time.Now(),
		CancelFunc:  cancel,
	}

	var run func()
	switch req.Algorithm {
	case AlgorithmGenetic:
		params, err := genetic.ParseParameters([]byte(req.Params))
		if err != nil {
			cancel()
			return nil, err
		}
		opt, err := genetic.New(params, s.evaluator, gen, startWithLayout, genetic.WithLogger(logger))
		if err != nil {
			cancel()
			return nil, err
		}
		state.Budget = opt.Parameters().GenerationLimit
		run = func() { s.runGenetic(ctx, state, opt, logger) }
	case AlgorithmAnnealing:
		params, err := annealing.ParseParameters([]byte(req.Params))
		if err != nil {
			cancel()
			return nil, err
		}
		state.Budget = params.MaxIters
		run = func() { s.runAnnealing(ctx, state, params, gen, startWithLayout, logger) }
	default:
		cancel()
		return nil, optimization.NewErrorf(optimization.ErrConfig, "unknown algorithm %q", req.Algorithm).WithComponent("server")
	}

	s.optimizationsMu.Lock()
	s.optimizations[id] = state
	s.optimizationsMu.Unlock()

	s.metrics.JobsStarted.WithLabelValues(req.Algorithm).Inc()
	go run()

	return map[string]interface{}{
		"optimization_id": id,
		"status":          StatusPending,
	}, nil
}

func (s *Server) optimizationStatus(id string) (map[string]interface{}, error) {
	s.optimizationsMu.RLock()
	defer s.optimizationsMu.RUnlock()

	state, exists := s.optimizations[id]
	if !exists {
		return nil, fmt.Errorf("optimization %s: %w", id, apperrors.ErrNotFound)
	}

	response := map[string]interface{}{
		"optimization_id": state.ID,
		"algorithm":       state.Algorithm,
		"status":          state.Status,
		"progress":        state.Progress(),
		"iteration":       state.Iteration,
		"budget":          state.Budget,
		"improvements":    state.Improvements,
		"start_time":      state.StartTime.Format(time.RFC3339),
		"last_update":     state.LastUpdated.Format(time.RFC3339),
	}
	if state.EndTime != nil {
		response["end_time"] = state.EndTime.Format(time.RFC3339)
	}
	if state.Reason != "" {
		response["reason"] = state.Reason
	}
	if state.Error != "" {
		response["error"] = state.Error
	}
	if best := state.BestSolution; best != nil {
		bestResponse := map[string]interface{}{
			"layout":     best.Layout,
			"total_cost": best.Cost(),
			"metrics":    best.Result.Metrics,
		}
		if l, err := s.layouts.Generate(best.Layout); err == nil {
			bestResponse["plot"] = l.Plot()
			bestResponse["printed"] = best.Result.String()
		}
		response["best_solution"] = bestResponse
	}
	return response, nil
}

func (s *Server) cancelOptimization(id string) error {
	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	state, exists := s.optimizations[id]
	if !exists {
		return fmt.Errorf("optimization %s: %w", id, apperrors.ErrNotFound)
	}
	if state.terminal() {
		return optimization.NewErrorf(optimization.ErrAlreadyTerminated, "cannot cancel optimization with status: %s", state.Status).WithComponent("server")
	}

	if state.CancelFunc != nil {
		state.CancelFunc()
	}
	state.Status = StatusCancelled
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	s.logger.Info("Optimization cancelled", map[string]interface{}{
		"optimization_id": id,
	})
	return nil
}

// Close cancels all running optimizations.
func (s *Server) Close() error {
	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	for _, opt := range s.optimizations {
		if opt.CancelFunc != nil {
			opt.CancelFunc()
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return optimization.WrapError(optimization.ErrParse, err, "invalid request body").WithComponent("server")
	}
	return nil
}

// handleEvaluate handles POST /api/v1/evaluate
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req LayoutRequest
	if err := decodeBody(r, &req); err != nil {
		apperrors.WriteError(w, err)
		return
	}
	res, err := s.evaluate(req)
	if err != nil {
		apperrors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handlePlot handles POST /api/v1/plot
func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	var req LayoutRequest
	if err := decodeBody(r, &req); err != nil {
		apperrors.WriteError(w, err)
		return
	}
	res, err := s.plot(req)
	if err != nil {
		apperrors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleKeys handles GET /api/v1/keys?layout=...&fixed=...
func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := s.permutableKeys(LayoutRequest{Layout: q.Get("layout"), FixedCharacters: q.Get("fixed")})
	if err != nil {
		apperrors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleOptimize handles POST /api/v1/optimize
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := decodeBody(r, &req); err != nil {
		apperrors.WriteError(w, err)
		return
	}
	res, err := s.startOptimization(req)
	if err != nil {
		apperrors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

// handleStatus handles GET /api/v1/status/{id}
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	res, err := s.optimizationStatus(chi.URLParam(r, "id"))
	if err != nil {
		apperrors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleCancel handles DELETE /api/v1/optimization/{id}
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.cancelOptimization(chi.URLParam(r, "id")); err != nil {
		apperrors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "cancellation requested",
	})
}
