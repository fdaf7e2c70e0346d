package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docsense/docsense/internal/config"
	"github.com/docsense/docsense/internal/dal"
	"github.com/docsense/docsense/internal/service"
)

const testKey = "test-key"

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		APIKey:              testKey,
		BasePath:            dir,
		TopKeywords:         20,
		SimilarityThreshold: 0.4,
		MaxSentenceWords:    25,
		ReadabilityFloor:    30,
		MaxUploadBytes:      1 << 20,
		StatsWindow:         time.Hour,
	}
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	svc := service.New(dal.NewStore(dir, false), log, cfg)
	return NewServer(svc, log, cfg), dir
}

func doJSON(t *testing.T, srv *Server, method, path string, body any, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if auth {
		req.Header.Set("Authorization", "Bearer "+testKey)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/health", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/query", map[string]string{"path": "x", "query": "paragraphs"}, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestQueryEndpoint(t *testing.T) {
	srv, dir := newTestServer(t)
	if err := os.WriteFile(filepath.Join(dir, "doc.txt"), []byte("the cat sat\n\nand stayed\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/query", map[string]string{"path": "doc.txt", "query": "contains:cat"}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 {
		t.Errorf("expected 1 match, got %d", res.Total)
	}
}

func TestQueryErrorMapping(t *testing.T) {
	srv, dir := newTestServer(t)
	if err := os.WriteFile(filepath.Join(dir, "doc.txt"), []byte("text\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/query", map[string]string{"path": "doc.txt", "query": "regex:[bad"}, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid pattern should map to 400, got %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/query", map[string]string{"path": "absent.txt", "query": "paragraphs"}, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing file should map to 404, got %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/replace", map[string]string{"path": "doc.txt", "expression": "contains:text=more"}, true)
	if rec.Code != http.StatusConflict {
		t.Errorf("replace on read-only format should map to 409, got %d", rec.Code)
	}
}

func TestExtractEndpointCSV(t *testing.T) {
	srv, dir := newTestServer(t)
	if err := os.WriteFile(filepath.Join(dir, "doc.txt"), []byte("alpha beta gamma\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/extract?path=doc.txt&format=csv&sections=paragraphs", nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv, got %q", ct)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("type,position,content,style_summary")) {
		t.Errorf("missing CSV header: %s", rec.Body.String())
	}
}

func TestExtractEndpointCSVMissingFile(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/extract?path=absent.txt&format=csv", nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("error must be JSON, got %q", ct)
	}
}

func TestOpStatsEndpoint(t *testing.T) {
	srv, dir := newTestServer(t)
	if err := os.WriteFile(filepath.Join(dir, "doc.txt"), []byte("text\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	doJSON(t, srv, http.MethodPost, "/api/query", map[string]string{"path": "doc.txt", "query": "paragraphs"}, true)

	rec := doJSON(t, srv, http.MethodGet, "/api/stats/ops", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res struct {
		Ops map[string]json.RawMessage `json:"ops"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if _, ok := res.Ops["query"]; !ok {
		t.Errorf("expected query stats, got %s", rec.Body.String())
	}
}
