package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/tripwise/planner/internal/store"
	"github.com/tripwise/planner/internal/tripplan"
)

// PlanRunner produces a report for a request. It never fails; the result
// records whether the fallback had to be served.
type PlanRunner interface {
	Plan(ctx context.Context, req tripplan.PlanRequest) tripplan.PlanResult
}

type PlanStore interface {
	Save(ctx context.Context, p *store.Plan) error
	Get(ctx context.Context, id string) (*store.Plan, error)
	GetByShareToken(ctx context.Context, token string) (*store.Plan, error)
	List(ctx context.Context, limit int) ([]store.Plan, error)
	Share(ctx context.Context, id string) (string, error)
}

type PDFRenderer interface {
	Render(ctx context.Context, markdown, title string) ([]byte, error)
}

type Server struct {
	planner PlanRunner
	store   PlanStore
	pdf     PDFRenderer
}

// NewServer wires the plan routes. The PDF renderer may be nil when no
// Chromium is available; the pdf route then answers 503.
func NewServer(planner PlanRunner, st PlanStore, renderer PDFRenderer) http.Handler {
	s := &Server{planner: planner, store: st, pdf: renderer}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/plans", s.handlePlans)
	mux.HandleFunc("/v1/plans/", s.handlePlanByID)
	mux.HandleFunc("/v1/shared/", s.handleShared)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, 404, "not_found", "plan not found")
	case errors.Is(err, store.ErrCorruptReport):
		log.Printf("httpapi corrupt_report err=%q", err.Error())
		writeError(w, 500, "corrupt_report", "stored report failed validation")
	default:
		log.Printf("httpapi store_error err=%q", err.Error())
		writeError(w, 500, "internal", "storage failure")
	}
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte("{}"), nil
	}
	blob, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		blob = []byte("{}")
	}
	return blob, nil
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func parseInt(value string, def int) int {
	if strings.TrimSpace(value) == "" {
		return def
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return v
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createPlan(w, r)
	case http.MethodGet:
		s.listPlans(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
	blob, err := readBody(r)
	if err != nil {
		writeError(w, 400, "validation", "invalid body: "+err.Error())
		return
	}
	var req struct {
		Locale      tripplan.Locale      `json:"locale"`
		Preferences tripplan.Preferences `json:"preferences"`
	}
	if err := json.Unmarshal(blob, &req); err != nil {
		writeError(w, 400, "validation", "invalid json: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Preferences.Destination) == "" {
		writeError(w, 400, "validation", "preferences.destination is required")
		return
	}

	result := s.planner.Plan(r.Context(), tripplan.PlanRequest{
		Locale:      req.Locale,
		Preferences: req.Preferences,
	})

	plan := &store.Plan{
		Locale:       tripplan.NormalizeLocale(req.Locale),
		Preferences:  req.Preferences,
		Report:       result.Report,
		FromFallback: result.FromFallback,
		Reason:       result.Reason,
		Model:        result.Model,
	}
	if err := s.store.Save(r.Context(), plan); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 201, map[string]any{"ok": true, "plan": plan})
}

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.store.List(r.Context(), parseInt(r.URL.Query().Get("limit"), 50))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if plans == nil {
		plans = []store.Plan{}
	}
	writeJSON(w, 200, map[string]any{"plans": plans})
}

func (s *Server) handlePlanByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/plans/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch action {
	case "":
		if !methodOnly(w, r, http.MethodGet) {
			return
		}
		s.getPlan(w, r, id)
	case "pdf":
		if !methodOnly(w, r, http.MethodGet) {
			return
		}
		s.getPlanPDF(w, r, id)
	case "share":
		if !methodOnly(w, r, http.MethodPost) {
			return
		}
		s.sharePlan(w, r, id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request, id string) {
	plan, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "plan": plan})
}

func (s *Server) getPlanPDF(w http.ResponseWriter, r *http.Request, id string) {
	if s.pdf == nil {
		writeError(w, 503, "unavailable", "pdf rendering is not configured")
		return
	}
	plan, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	blob, err := s.pdf.Render(r.Context(), tripplan.BuildMarkdown(plan.Report), plan.Report.Title)
	if err != nil {
		log.Printf("httpapi pdf_render_failed plan=%s err=%q", id, err.Error())
		writeError(w, 500, "internal", "pdf rendering failed")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".pdf"))
	w.WriteHeader(200)
	_, _ = w.Write(blob)
}

func (s *Server) sharePlan(w http.ResponseWriter, r *http.Request, id string) {
	token, err := s.store.Share(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "share_token": token})
}

func (s *Server) handleShared(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	token := strings.TrimPrefix(r.URL.Path, "/v1/shared/")
	if token == "" || strings.Contains(token, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	plan, err := s.store.GetByShareToken(r.Context(), token)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	// Shared view hides inputs; the report itself is the shared artifact.
	writeJSON(w, 200, map[string]any{
		"ok":            true,
		"report":        plan.Report,
		"locale":        plan.Locale,
		"from_fallback": plan.FromFallback,
		"created_at":    plan.CreatedAt,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
}
