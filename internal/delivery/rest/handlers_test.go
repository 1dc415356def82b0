package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"gate-scraper/internal/domain"
	"gate-scraper/internal/scraper"
	"gate-scraper/internal/service"
)

type fakeService struct {
	lastQuery domain.Query
	result    *service.Result
	err       error
	status    domain.Status
	cleared   int
	clearErr  error
}

func (f *fakeService) Scrape(_ context.Context, q domain.Query) (*service.Result, error) {
	f.lastQuery = q
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeService) Status(context.Context) domain.Status { return f.status }

func (f *fakeService) StatusFor(_ context.Context, q domain.Query) (domain.Status, error) {
	f.lastQuery = q
	if strings.TrimSpace(q.Tag) == "" {
		return domain.Status{}, service.ErrInvalidQuery
	}
	return f.status, nil
}

func (f *fakeService) ClearCache(context.Context) error {
	f.cleared++
	return f.clearErr
}

func newTestServer(svc dataService) http.Handler {
	return NewServer("0", time.Minute, svc, zerolog.Nop()).Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return out
}

func sampleItems() []domain.Item {
	return []domain.Item{
		{Title: "Q1", Link: "https://gateoverflow.in/1/q1", Upvotes: 12, Views: 1500, User: "alice", PostedOn: "Jan 3"},
		{Title: "Q2", Link: "https://gateoverflow.in/2/q2", Upvotes: 0, Views: 7, User: "bob", PostedOn: domain.DateNotAvailable},
	}
}

func TestScrapeGET(t *testing.T) {
	svc := &fakeService{result: &service.Result{Items: sampleItems(), Cached: true}}
	rec := do(t, newTestServer(svc), http.MethodGet, "/api/scrape?tags=algorithms&keyword=graph&limit=3&force_refresh=TRUE", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	want := domain.Query{Tag: "algorithms", Keyword: "graph", Limit: 3, ForceRefresh: true}
	if svc.lastQuery != want {
		t.Errorf("query = %+v, want %+v", svc.lastQuery, want)
	}

	body := decode(t, rec)
	if body["success"] != true || body["cached"] != true {
		t.Errorf("envelope = %v", body)
	}
	if body["count"] != float64(2) {
		t.Errorf("count = %v, want 2", body["count"])
	}
	if body["message"] != "Data retrieved from cache" {
		t.Errorf("message = %v", body["message"])
	}
	data := body["data"].([]any)
	first := data[0].(map[string]any)
	if first["date"] != "Jan 3" || first["views"] != float64(1500) {
		t.Errorf("first item = %v", first)
	}
}

func TestScrapePOST(t *testing.T) {
	svc := &fakeService{result: &service.Result{Items: sampleItems()}}
	rec := do(t, newTestServer(svc), http.MethodPost, "/api/scrape",
		`{"tags":"os","keyword":"paging","limit":5,"force_refresh":true}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	want := domain.Query{Tag: "os", Keyword: "paging", Limit: 5, ForceRefresh: true}
	if svc.lastQuery != want {
		t.Errorf("query = %+v, want %+v", svc.lastQuery, want)
	}
	body := decode(t, rec)
	if body["cached"] != false {
		t.Errorf("cached = %v, want false", body["cached"])
	}
	if body["message"] != "Successfully scraped 2 items" {
		t.Errorf("message = %v", body["message"])
	}
}

func TestScrapeEmptyResultIsSuccess(t *testing.T) {
	svc := &fakeService{result: &service.Result{Items: []domain.Item{}}}
	rec := do(t, newTestServer(svc), http.MethodGet, "/api/scrape?tags=rare", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	if body["count"] != float64(0) {
		t.Errorf("count = %v", body["count"])
	}
	if data, ok := body["data"].([]any); !ok || len(data) != 0 {
		t.Errorf("data = %#v, want empty array", body["data"])
	}
}

func TestScrapeBadInput(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"non-numeric limit", http.MethodGet, "/api/scrape?tags=x&limit=ten", ""},
		{"malformed body", http.MethodPost, "/api/scrape", `{"tags":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			rec := do(t, newTestServer(svc), tt.method, tt.target, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if decode(t, rec)["success"] != false {
				t.Error("success should be false")
			}
		})
	}
}

func TestScrapeErrorMapping(t *testing.T) {
	fetchErr := &scraper.FetchError{URL: "https://gateoverflow.in/tag-search-page", StatusCode: 503}
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid query", fmt.Errorf("%w: tag is required", service.ErrInvalidQuery), http.StatusBadRequest},
		{"timeout", fmt.Errorf("%w after 2m0s", service.ErrCrawlTimeout), http.StatusGatewayTimeout},
		{"stopped", service.ErrStopped, http.StatusServiceUnavailable},
		{"upstream", fmt.Errorf("crawl failed: %w", fetchErr), http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestServer(&fakeService{err: tt.err}), http.MethodGet, "/api/scrape?tags=x", "")
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			body := decode(t, rec)
			if body["error"] != tt.err.Error() {
				t.Errorf("error = %v, want %q", body["error"], tt.err.Error())
			}
		})
	}
}

func TestStatus(t *testing.T) {
	updated := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := &fakeService{status: domain.Status{
		CrawlerAvailable: true,
		CacheExists:      true,
		CacheValid:       true,
		LastUpdated:      &updated,
		Entries:          3,
	}}
	h := newTestServer(svc)

	rec := do(t, h, http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	if body["apiStatus"] != "running" || body["cacheValid"] != true || body["crawlerAvailable"] != true {
		t.Errorf("body = %v", body)
	}

	rec = do(t, h, http.MethodGet, "/api/status?tags=algorithms&limit=4", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.lastQuery.Tag != "algorithms" || svc.lastQuery.Limit != 4 {
		t.Errorf("StatusFor query = %+v", svc.lastQuery)
	}

	rec = do(t, h, http.MethodGet, "/api/status?tags=%20", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank tag status = %d, want 400", rec.Code)
	}
}

func TestClearCache(t *testing.T) {
	svc := &fakeService{}
	h := newTestServer(svc)

	if rec := do(t, h, http.MethodGet, "/api/clear-cache", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}
	rec := do(t, h, http.MethodPost, "/api/clear-cache", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("POST status = %d", rec.Code)
	}
	if svc.cleared != 1 {
		t.Errorf("cleared = %d, want 1", svc.cleared)
	}

	svc.clearErr = errors.New("disk gone")
	if rec := do(t, h, http.MethodPost, "/api/clear-cache", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("failing clear status = %d, want 500", rec.Code)
	}
}

func TestHealthCORSAndNotFound(t *testing.T) {
	h := newTestServer(&fakeService{})

	rec := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || decode(t, rec)["status"] != "healthy" {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS origin = %q", got)
	}

	rec = do(t, h, http.MethodOptions, "/api/scrape", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", rec.Code)
	}

	rec = do(t, h, http.MethodDelete, "/api/scrape", "")
	if rec.Code != http.StatusMethodNotAllowed || rec.Header().Get("Allow") != "GET, POST" {
		t.Errorf("DELETE = %d allow=%q", rec.Code, rec.Header().Get("Allow"))
	}
}
