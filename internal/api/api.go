package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/inesp/standup-report/internal/llm"
	"github.com/inesp/standup-report/internal/models"
	"github.com/inesp/standup-report/internal/report"
	"github.com/inesp/standup-report/internal/store"
)

// ReportBuilder builds a report for the last hours.
type ReportBuilder interface {
	Build(ctx context.Context, hours int) (*report.Report, error)
}

// Server provides the REST API handlers.
type Server struct {
	store        store.Store
	reports      ReportBuilder
	llm          *llm.Client
	latest       *report.Latest
	defaultHours int
}

// NewServer creates a new API server.
// The reports builder may be nil when the sources are not configured, and
// llmClient may be nil if no API key is configured.
func NewServer(s store.Store, reports ReportBuilder, llmClient *llm.Client, defaultHours int) *Server {
	if defaultHours <= 0 {
		defaultHours = 24
	}
	return &Server{
		store:        s,
		reports:      reports,
		llm:          llmClient,
		defaultHours: defaultHours,
	}
}

// WithLatest serves reports prebuilt on a schedule at /api/v1/report/latest.
func (s *Server) WithLatest(l *report.Latest) *Server {
	s.latest = l
	return s
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/report", s.getReport)
	mux.HandleFunc("GET /api/v1/report/latest", s.getLatestReport)

	mux.HandleFunc("GET /api/v1/ignored", s.listIgnored)
	mux.HandleFunc("GET /api/v1/items/{action}/{type}/{id...}", s.itemAction)
	mux.HandleFunc("POST /api/v1/items/{action}/{type}/{id...}", s.itemAction)

	mux.HandleFunc("GET /api/v1/notes", s.listNotes)
	mux.HandleFunc("DELETE /api/v1/notes", s.deleteAllNotes)
	mux.HandleFunc("POST /api/v1/notes/{type}/{category}/{id...}", s.setNote)

	mux.HandleFunc("GET /api/v1/health", s.health)
	mux.HandleFunc("POST /api/v1/db/recreate", s.recreateDB)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- Report ---

type reportResponse struct {
	*report.Report
	Summary *llm.Summary `json:"summary,omitempty"`
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		writeError(w, http.StatusServiceUnavailable, "report sources are not configured; run `standup check`")
		return
	}

	hours := s.defaultHours
	if raw := r.URL.Query().Get("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "hours must be a positive integer")
			return
		}
		hours = n
	}

	rep, err := s.reports.Build(r.Context(), hours)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := reportResponse{Report: rep}
	if r.URL.Query().Get("summarize") == "true" {
		if s.llm == nil {
			writeError(w, http.StatusServiceUnavailable, "LLM not configured (set anthropic.api_key)")
			return
		}
		summary, err := s.llm.SummarizeReport(r.Context(), rep)
		if err != nil {
			slog.Warn("report summary failed", "build_id", rep.BuildID, "error", err)
		} else {
			resp.Summary = summary
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type latestResponse struct {
	*report.Report
	BuiltAt   time.Time `json:"built_at"`
	LastError string    `json:"last_error,omitempty"`
}

func (s *Server) getLatestReport(w http.ResponseWriter, r *http.Request) {
	if s.latest == nil {
		writeError(w, http.StatusNotFound, "report schedule is not configured (set report.schedule)")
		return
	}

	rep, builtAt, err := s.latest.Get()
	if rep == nil {
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "last scheduled build failed: "+err.Error())
			return
		}
		writeError(w, http.StatusNotFound, "no report built yet")
		return
	}

	resp := latestResponse{Report: rep, BuiltAt: builtAt}
	if err != nil {
		resp.LastError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Ignore-list ---

func (s *Server) listIgnored(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListIgnoredItems(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []models.IgnoredItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) itemAction(w http.ResponseWriter, r *http.Request) {
	action := r.PathValue("action")
	id := r.PathValue("id")

	itemType, ok := models.ParseItemType(r.PathValue("type"))
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid item type %q (use pr, issue or meeting)", r.PathValue("type")))
		return
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, "item id is required")
		return
	}

	switch action {
	case "ignore":
		title := strings.TrimSpace(r.URL.Query().Get("title"))
		if title == "" {
			writeError(w, http.StatusBadRequest, "title query parameter is required")
			return
		}
		if err := s.store.AddIgnoredItem(r.Context(), models.IgnoredItem{Type: itemType, ID: id, Title: title}); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	case "unignore":
		if err := s.store.RemoveIgnoredItem(r.Context(), models.ItemKey{Type: itemType, ID: id}); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid action %q (use ignore or unignore)", action))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "action": action, "type": string(itemType), "id": id})
}

// --- Notes ---

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.store.ListNotes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if notes == nil {
		notes = []models.Note{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) setNote(w http.ResponseWriter, r *http.Request) {
	itemType, ok := models.ParseItemType(r.PathValue("type"))
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid item type %q (use pr, issue or meeting)", r.PathValue("type")))
		return
	}
	category, ok := models.ParseNoteCategory(r.PathValue("category"))
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid category %q (use done or next)", r.PathValue("category")))
		return
	}
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "item id is required")
		return
	}

	var body struct {
		Note *string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Note == nil {
		writeError(w, http.StatusBadRequest, "request body must be JSON with a \"note\" field")
		return
	}

	note := models.Note{Type: itemType, ID: id, Category: category, Text: *body.Note}
	if err := s.store.SetNote(r.Context(), note); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "note": strings.TrimSpace(*body.Note)})
}

func (s *Server) deleteAllNotes(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.DeleteAllNotes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// --- Database ---

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	h := s.store.Health(r.Context())
	status := http.StatusOK
	if h.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h)
}

func (s *Server) recreateDB(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Recreate(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.store.Health(r.Context()))
}
