package presentation

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/Caia-Tech/ff6-dataset/internal/storage"
	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
)

const (
	defaultPairLimit = 50
	maxPairLimit     = 500
	topHeadings      = 30
)

// API serves the dataset files over HTTP
type API struct {
	renderer  *Renderer
	storage   Storage
	snapshots storage.SnapshotStore
	config    *APIConfig
}

// APIConfig configures the browse API
type APIConfig struct {
	BasePath   string `json:"base_path"`
	EnableCORS bool   `json:"enable_cors"`
}

// NewAPI creates a new browse API. snapshots may be nil.
func NewAPI(renderer *Renderer, store Storage, snapshots storage.SnapshotStore, config *APIConfig) *API {
	if config == nil {
		config = &APIConfig{
			EnableCORS: true,
		}
	}
	if renderer == nil {
		renderer = NewRenderer(nil)
	}

	return &API{
		renderer:  renderer,
		storage:   store,
		snapshots: snapshots,
		config:    config,
	}
}

// Handler returns the routed API with middleware applied
func (api *API) Handler() http.Handler {
	return api.addMiddleware(api.setupRoutes())
}

func (api *API) setupRoutes() *mux.Router {
	router := mux.NewRouter()
	base := router
	if api.config.BasePath != "" {
		base = router.PathPrefix(api.config.BasePath).Subrouter()
	}

	base.HandleFunc("/health", api.healthCheck).Methods("GET")
	base.HandleFunc("/pages", api.listPages).Methods("GET")
	base.HandleFunc("/pages/{title}", api.getPage).Methods("GET")
	base.HandleFunc("/pairs", api.listPairs).Methods("GET")
	base.HandleFunc("/statistics", api.getStatistics).Methods("GET")
	base.HandleFunc("/review", api.getReview).Methods("GET")
	base.HandleFunc("/snapshots", api.listSnapshots).Methods("GET")

	return router
}

func (api *API) addMiddleware(router http.Handler) http.Handler {
	if api.config.EnableCORS {
		router = api.corsMiddleware(router)
	}
	return api.loggingMiddleware(router)
}

func (api *API) listPages(w http.ResponseWriter, r *http.Request) {
	pages, err := api.storage.Pages()
	if err != nil {
		api.sendError(w, http.StatusInternalServerError, "Failed to load pages", err)
		return
	}

	resp := PageListResponse{
		Total: len(pages),
		Pages: make([]PageSummary, len(pages)),
	}
	for i := range pages {
		resp.Pages[i] = api.renderer.Summarize(&pages[i])
	}
	api.sendJSON(w, resp)
}

func (api *API) getPage(w http.ResponseWriter, r *http.Request) {
	title := mux.Vars(r)["title"]

	pages, err := api.storage.Pages()
	if err != nil {
		api.sendError(w, http.StatusInternalServerError, "Failed to load pages", err)
		return
	}

	page, ok := dataset.FindPage(pages, title)
	if !ok {
		api.sendError(w, http.StatusNotFound, "Page not found", fmt.Errorf("no page titled %q", title))
		return
	}

	format := OutputFormat(r.URL.Query().Get("format"))
	body, err := api.renderer.RenderPage(page, format)
	if err != nil {
		api.sendError(w, http.StatusBadRequest, "Invalid format", err)
		return
	}

	if format == "" {
		format = api.renderer.config.DefaultFormat
	}
	w.Header().Set("Content-Type", ContentType(format))
	w.Write(body)
}

func (api *API) listPairs(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	limit, _ := strconv.Atoi(params.Get("limit"))
	if limit <= 0 {
		limit = defaultPairLimit
	}
	limit = min(limit, maxPairLimit)

	offset, _ := strconv.Atoi(params.Get("offset"))
	offset = max(offset, 0)

	pairs, err := api.storage.Pairs()
	if err != nil {
		api.sendError(w, http.StatusInternalServerError, "Failed to load pairs", err)
		return
	}

	query := strings.TrimSpace(params.Get("q"))
	if query != "" {
		needle := strings.ToLower(query)
		filtered := make([]dataset.TrainingPair, 0)
		for _, p := range pairs {
			if strings.Contains(strings.ToLower(p.Instruction), needle) {
				filtered = append(filtered, p)
			}
		}
		pairs = filtered
	}

	resp := PairsResponse{
		Total:  len(pairs),
		Offset: offset,
		Limit:  limit,
		Query:  query,
		Pairs:  []dataset.TrainingPair{},
	}
	if offset < len(pairs) {
		resp.Pairs = pairs[offset:min(offset+limit, len(pairs))]
	}
	api.sendJSON(w, resp)
}

func (api *API) getStatistics(w http.ResponseWriter, r *http.Request) {
	pages, err := api.storage.Pages()
	if err != nil {
		api.sendError(w, http.StatusInternalServerError, "Failed to load pages", err)
		return
	}
	pairs, err := api.storage.Pairs()
	if err != nil {
		api.sendError(w, http.StatusInternalServerError, "Failed to load pairs", err)
		return
	}

	stats := dataset.ComputeStatistics(pages, topHeadings)
	stats.TotalPairs = len(pairs)

	api.sendJSON(w, StatisticsResponse{
		Statistics: stats,
		Timestamp:  time.Now(),
	})
}

func (api *API) getReview(w http.ResponseWriter, r *http.Request) {
	accepted, rejected, err := api.storage.Reviewed()
	if err != nil {
		api.sendError(w, http.StatusInternalServerError, "Failed to load review results", err)
		return
	}

	resp := ReviewResponse{
		Accepted: len(accepted),
		Rejected: len(rejected),
	}
	if judged := resp.Accepted + resp.Rejected; judged > 0 {
		rate := float64(resp.Accepted) / float64(judged) * 100
		resp.AcceptRate = &rate
	}
	for _, p := range rejected {
		if p.RejectReason == "" {
			continue
		}
		if resp.RejectionReasons == nil {
			resp.RejectionReasons = make(map[string]int)
		}
		resp.RejectionReasons[p.RejectReason]++
	}
	api.sendJSON(w, resp)
}

func (api *API) listSnapshots(w http.ResponseWriter, r *http.Request) {
	if api.snapshots == nil {
		api.sendError(w, http.StatusNotFound, "Snapshots are disabled", nil)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}

	history, err := api.snapshots.History(r.Context(), limit)
	if err != nil {
		api.sendError(w, http.StatusInternalServerError, "Failed to read snapshot history", err)
		return
	}
	api.sendJSON(w, SnapshotsResponse{Snapshots: history})
}

func (api *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	services := map[string]string{
		"storage": "operational",
	}
	if api.snapshots != nil {
		services["snapshots"] = "operational"
		if err := api.snapshots.Health(r.Context()); err != nil {
			services["snapshots"] = err.Error()
		}
	}

	api.sendJSON(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"services":  services,
	})
}

// Helper methods

func (api *API) sendJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (api *API) sendError(w http.ResponseWriter, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("message", message).Int("status", status).Msg("API error")
	}

	resp := ErrorResponse{
		Error:     message,
		Status:    status,
		Timestamp: time.Now(),
	}
	if err != nil {
		resp.Details = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// Middleware implementations

func (api *API) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (api *API) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode).
			Dur("duration", time.Since(start)).
			Msg("Browse API request")
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
