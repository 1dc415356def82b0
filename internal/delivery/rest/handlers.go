// Path: internal/delivery/rest/handlers.go
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"gate-scraper/internal/domain"
	"gate-scraper/internal/scraper"
	"gate-scraper/internal/service"
)

// dataService defines the interface required by the handlers from the core service.
// This keeps the delivery layer decoupled from the full service implementation.
type dataService interface {
	Scrape(ctx context.Context, q domain.Query) (*service.Result, error)
	Status(ctx context.Context) domain.Status
	StatusFor(ctx context.Context, q domain.Query) (domain.Status, error)
	ClearCache(ctx context.Context) error
}

type scrapeResponse struct {
	Success  bool          `json:"success"`
	Data     []domain.Item `json:"data"`
	Cached   bool          `json:"cached"`
	Count    int           `json:"count"`
	Message  string        `json:"message"`
	StoredAt time.Time     `json:"storedAt"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type statusResponse struct {
	APIStatus string `json:"apiStatus"`
	domain.Status
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Handlers holds dependencies for the API handlers.
type Handlers struct {
	service dataService
	log     zerolog.Logger
}

// NewHandlers creates a new handler struct.
func NewHandlers(s dataService, log zerolog.Logger) *Handlers {
	return &Handlers{service: s, log: log}
}

// RegisterRoutes registers all API routes on the given ServeMux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/scrape", h.Scrape)
	mux.HandleFunc("/api/status", h.Status)
	mux.HandleFunc("/api/clear-cache", h.ClearCache)
	mux.HandleFunc("/health", h.Health)
	// Catch-all, must stay last.
	mux.HandleFunc("/", h.NotFound)
}

// Scrape handles GET (query string) and POST (JSON body) scrape requests.
// Path: /api/scrape
func (h *Handlers) Scrape(w http.ResponseWriter, r *http.Request) {
	var (
		q   domain.Query
		err error
	)
	switch r.Method {
	case http.MethodGet:
		q, err = queryFromURL(r)
	case http.MethodPost:
		q, err = queryFromBody(r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Message: "Invalid request"})
		return
	}

	res, err := h.service.Scrape(r.Context(), q)
	if err != nil {
		status := statusForError(err)
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(err).Str("tag", q.Tag).Msg("Scrape request failed")
		}
		writeJSON(w, status, errorResponse{Error: err.Error(), Message: "Failed to scrape data"})
		return
	}

	resp := scrapeResponse{
		Success:  true,
		Data:     res.Items,
		Cached:   res.Cached,
		Count:    len(res.Items),
		StoredAt: res.StoredAt,
	}
	if res.Cached {
		resp.Message = "Data retrieved from cache"
	} else {
		resp.Message = fmt.Sprintf("Successfully scraped %d items", len(res.Items))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Status reports crawler and cache state. With a tags parameter the cache
// fields describe that query's entry.
// Path: /api/status
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	if r.URL.Query().Get("tags") == "" {
		writeJSON(w, http.StatusOK, statusResponse{APIStatus: "running", Status: h.service.Status(r.Context())})
		return
	}

	q, err := queryFromURL(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Message: "Invalid request"})
		return
	}
	st, err := h.service.StatusFor(r.Context(), q)
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error(), Message: "Invalid request"})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{APIStatus: "running", Status: st})
}

// ClearCache drops every cached result.
// Path: /api/clear-cache
func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if err := h.service.ClearCache(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Message: "Failed to clear cache"})
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Cache cleared successfully"})
}

// Health is a liveness probe.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// NotFound answers unknown paths with a JSON error.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{
		Error:   "Endpoint not found",
		Message: "The requested endpoint does not exist",
	})
}

func queryFromURL(r *http.Request) (domain.Query, error) {
	v := r.URL.Query()
	q := domain.Query{
		Tag:          v.Get("tags"),
		Keyword:      v.Get("keyword"),
		ForceRefresh: strings.EqualFold(v.Get("force_refresh"), "true"),
	}
	if raw := v.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("limit must be an integer, got %q", raw)
		}
		q.Limit = limit
	}
	return q, nil
}

func queryFromBody(r *http.Request) (domain.Query, error) {
	var q domain.Query
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(&q); err != nil && !errors.Is(err, io.EOF) {
		return q, fmt.Errorf("invalid JSON body: %w", err)
	}
	return q, nil
}

func statusForError(err error) int {
	var fe *scraper.FetchError
	switch {
	case errors.Is(err, service.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrCrawlTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, service.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.As(err, &fe):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
		Error:   "Method not allowed",
		Message: "Use " + strings.Join(allowed, " or "),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
