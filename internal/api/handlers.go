package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/docsense/docsense/internal/dal"
)

// handleUpload stores an uploaded document under the base directory.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !dal.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, "file too large", http.StatusRequestEntityTooLarge)
		return
	}

	dest := filepath.Join(s.cfg.BasePath, filename)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		jsonError(w, "failed to store file: "+err.Error(), http.StatusInternalServerError)
		return
	}

	st, err := s.svc.Stat(filename)
	if err != nil {
		jsonError(w, "stored but unreadable: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(st)
}

// handleExtract serves the extraction view as JSON or CSV.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		jsonError(w, "path query parameter is required", http.StatusBadRequest)
		return
	}
	topN := 0
	if v := r.URL.Query().Get("top_keywords"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, "top_keywords must be an integer", http.StatusBadRequest)
			return
		}
		topN = n
	}
	var sections []string
	if v := r.URL.Query().Get("sections"); v != "" {
		sections = strings.Split(v, ",")
	}

	info, err := s.svc.ExtractInfo(path, topN, sections)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		if err := info.WriteCSV(w); err != nil {
			s.log.Error("extract csv failed", "path", path, "error", err)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

type queryRequest struct {
	Path  string `json:"path"`
	Query string `json:"query"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Path == "" || req.Query == "" {
		jsonError(w, "path and query are required", http.StatusBadRequest)
		return
	}
	res, err := s.svc.Query(req.Path, req.Query)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

type replaceRequest struct {
	Path       string `json:"path"`
	Expression string `json:"expression"`
	OutputPath string `json:"output_path"`
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	var req replaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Path == "" || req.Expression == "" {
		jsonError(w, "path and expression are required", http.StatusBadRequest)
		return
	}
	res, err := s.svc.Replace(req.Path, req.Expression, req.OutputPath)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

type compareRequest struct {
	Paths []string `json:"paths"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Paths) < 2 {
		jsonError(w, "at least two paths are required", http.StatusBadRequest)
		return
	}
	rep, err := s.svc.Compare(req.Paths)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rep)
}

type assessRequest struct {
	Path             string  `json:"path"`
	MaxSentenceWords int     `json:"max_sentence_words"`
	ReadabilityFloor float64 `json:"readability_floor"`
}

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	var req assessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}
	rep, err := s.svc.Assess(req.Path, req.MaxSentenceWords, req.ReadabilityFloor)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rep)
}

func (s *Server) handleOpStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"window": s.cfg.StatsWindow.String(),
		"ops":    s.svc.Stats.Snapshot(),
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
