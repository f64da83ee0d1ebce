package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/multi-strategy-rag/internal/config"
	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
	"github.com/kirillkom/multi-strategy-rag/internal/core/ports"
	"github.com/kirillkom/multi-strategy-rag/internal/observability/metrics"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadBody = 32 << 20
	serviceName   = "api"
)

type Router struct {
	cfg       config.Config
	ingestUC  ports.SourceIngestor
	queryUC   ports.QueryService
	retriever ports.ChunkRetriever
	sources   ports.SourceReader
	routerUC  ports.QueryRouter
	metrics   *metrics.HTTPServerMetrics

	defaultStrategy domain.Strategy
}

type Option func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) Option {
	return func(rt *Router) {
		rt.metrics = m
	}
}

func NewRouter(
	cfg config.Config,
	ingestUC ports.SourceIngestor,
	queryUC ports.QueryService,
	retriever ports.ChunkRetriever,
	sources ports.SourceReader,
	routerUC ports.QueryRouter,
	opts ...Option,
) *Router {
	defaultStrategy, err := domain.ParseStrategy(cfg.RAGDefaultStrategy)
	if err != nil {
		defaultStrategy = domain.StrategyHyDE
	}
	rt := &Router{
		cfg:             cfg,
		ingestUC:        ingestUC,
		queryUC:         queryUC,
		retriever:       retriever,
		sources:         sources,
		routerUC:        routerUC,
		defaultStrategy: defaultStrategy,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.HandleFunc("/v1/strategies", rt.listStrategies)
	mux.HandleFunc("/v1/models", rt.listModels)
	mux.HandleFunc("/v1/retrieve", rt.retrieve)
	mux.HandleFunc("/v1/rag/query", rt.queryRAG)
	mux.HandleFunc("/v1/sources", rt.createSource)
	mux.HandleFunc("/v1/sources/", rt.getSourceByID)
	mux.HandleFunc("/v1/route", rt.route)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.onRateLimited)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) listStrategies(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"default":    rt.defaultStrategy,
		"strategies": domain.AllStrategies(),
	})
}

func (rt *Router) listModels(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	if rt.routerUC == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "query router is not configured"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": rt.routerUC.Models()})
}

type retrieveRequest struct {
	Strategy  string   `json:"strategy"`
	Query     string   `json:"query"`
	Phrasings []string `json:"phrasings"`
	Limit     int      `json:"limit"`
}

type retrieveResponse struct {
	Strategy domain.Strategy `json:"strategy"`
	Count    int             `json:"count"`
	Chunks   []domain.Chunk  `json:"chunks"`
}

func (rt *Router) retrieve(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req retrieveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	strategy, err := rt.parseStrategy(req.Strategy)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	start := time.Now()
	chunks, err := rt.retriever.Execute(r.Context(), strategy, req.Query, req.Phrasings)
	rt.recordRetrieval("retrieve", strategy, len(chunks), time.Since(start), err)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if req.Limit > 0 && len(chunks) > req.Limit {
		chunks = chunks[:req.Limit]
	}
	if chunks == nil {
		chunks = []domain.Chunk{}
	}
	writeJSON(w, http.StatusOK, retrieveResponse{Strategy: strategy, Count: len(chunks), Chunks: chunks})
}

func (rt *Router) queryRAG(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Question  string   `json:"question"`
		Strategy  string   `json:"strategy"`
		Phrasings []string `json:"phrasings"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}
	strategy, err := rt.parseStrategy(req.Strategy)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	start := time.Now()
	answer, err := rt.queryUC.Answer(r.Context(), req.Question, strategy, req.Phrasings)
	count := 0
	if answer != nil {
		count = len(answer.Sources)
	}
	rt.recordRetrieval("rag_query", strategy, count, time.Since(start), err)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) createSource(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		src *domain.Source
		err error
	)
	switch mediaType {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
		file, fileHeader, formErr := r.FormFile("file")
		if formErr != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
			return
		}
		defer file.Close()
		src, err = rt.ingestUC.Upload(r.Context(), fileHeader.Filename, file)
	case "application/json", "":
		var req struct {
			Location string `json:"location"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Location) == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "location is required"})
			return
		}
		src, err = rt.ingestUC.Enqueue(r.Context(), req.Location)
	default:
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": "expected application/json or multipart/form-data"})
		return
	}
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, src)
}

func (rt *Router) getSourceByID(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sources/"), "/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "source id is required"})
		return
	}

	src, err := rt.sources.GetByID(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, src)
}

func (rt *Router) route(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if rt.routerUC == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "query router is not configured"})
		return
	}
	var req struct {
		Query string `json:"query"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	decision := rt.routerUC.Route(r.Context(), req.Query)
	if rt.metrics != nil {
		rt.metrics.RecordRouteDecision(serviceName, decision.Method, decision.Model.Name)
	}
	writeJSON(w, http.StatusOK, decision)
}

func (rt *Router) parseStrategy(raw string) (domain.Strategy, error) {
	if strings.TrimSpace(raw) == "" {
		return rt.defaultStrategy, nil
	}
	return domain.ParseStrategy(raw)
}

func (rt *Router) recordRetrieval(endpoint string, strategy domain.Strategy, count int, duration time.Duration, err error) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordRetrieval(serviceName, endpoint, string(strategy), count, duration, err)
}

func (rt *Router) onRateLimited(r *http.Request) {
	if rt.metrics != nil {
		rt.metrics.RecordRateLimited(serviceName, r.URL.Path)
	}
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("http_handler_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	return false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return false
		}
		if errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "request body is required"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
