// Package httpapi serves the read-only diagnostics API: health, metrics,
// pipeline status and lead inspection.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/leadforge/leadforge/internal/domain"
	"github.com/leadforge/leadforge/internal/metrics"
	"github.com/leadforge/leadforge/internal/usecase/health"
	"github.com/leadforge/leadforge/internal/version"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Error response codes.
const (
	codeBadRequest       = "bad_request"
	codeUnauthorized     = "unauthorized"
	codeValidationFailed = "validation_failed"
	codeLeadNotFound     = "lead_not_found"
	codeInternalError    = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Server holds the read APIs over the pipeline's state.
type Server struct {
	leads      LeadReader
	classifier ClassifierState
	limiters   []LimiterState
	health     HealthChecker
	logger     *zap.Logger
}

// NewServer creates the diagnostics API server.
func NewServer(
	leads LeadReader,
	classifier ClassifierState,
	limiters []LimiterState,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	return &Server{
		leads:      leads,
		classifier: classifier,
		limiters:   limiters,
		health:     health,
		logger:     logger,
	}
}

// Router assembles the chi router with the full middleware stack. An empty
// apiKeys slice disables authentication.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/leads", s.handleListLeads)
		r.Get("/leads/{id}", s.handleGetLead)
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != health.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// handleMetrics handles GET /metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type statusResponse struct {
	Version    string                `json:"version"`
	Leads      labeledCounts         `json:"leads"`
	Classifier classifierStatus      `json:"classifier"`
	Limits     map[string]laneStatus `json:"limits"`
}

type labeledCounts struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Labeled  int `json:"labeled"`
}

type classifierStatus struct {
	Trained      bool `json:"trained"`
	NeedsRetrain bool `json:"needs_retrain"`
}

type laneStatus struct {
	DailyLimit      int  `json:"daily_limit"`
	DailyRemaining  int  `json:"daily_remaining"`
	WeeklyLimit     int  `json:"weekly_limit"`
	WeeklyRemaining int  `json:"weekly_remaining"`
	Exhausted       bool `json:"exhausted"`
}

// handleStatus handles GET /api/v1/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := s.leads.CountLabeled(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := statusResponse{
		Version: version.Version,
		Leads: labeledCounts{
			Positive: counts.Positive,
			Negative: counts.Negative,
			Labeled:  counts.Total,
		},
		Classifier: classifierStatus{
			Trained:      s.classifier.Trained(),
			NeedsRetrain: s.classifier.NeedsRetrain(counts.Total),
		},
		Limits: make(map[string]laneStatus, len(s.limiters)),
	}

	for _, lim := range s.limiters {
		daily, weekly := lim.Remaining()
		resp.Limits[lim.Lane()] = laneStatus{
			DailyLimit:      lim.DailyLimit(),
			DailyRemaining:  daily,
			WeeklyLimit:     lim.WeeklyLimit(),
			WeeklyRemaining: weekly,
			Exhausted:       lim.Exhausted(),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type leadItem struct {
	ID               string    `json:"id"`
	PublicIdentifier string    `json:"public_identifier,omitempty"`
	Company          string    `json:"company,omitempty"`
	Status           string    `json:"status"`
	IsSeed           bool      `json:"is_seed,omitempty"`
	Label            *int      `json:"label,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// leadDetail carries the audit fields the list view omits.
type leadDetail struct {
	leadItem
	Text        string     `json:"text,omitempty"`
	Embedded    bool       `json:"embedded"`
	LabelReason string     `json:"label_reason,omitempty"`
	LabeledAt   *time.Time `json:"labeled_at,omitempty"`
}

type leadListResponse struct {
	Items      []leadItem `json:"items"`
	HasMore    bool       `json:"has_more"`
	NextCursor *string    `json:"next_cursor,omitempty"`
}

// handleListLeads handles GET /api/v1/leads.
func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultPageSize
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxPageSize {
			writeError(w, http.StatusBadRequest, codeValidationFailed,
				fmt.Sprintf("limit must be between 1 and %d", maxPageSize))
			return
		}
		limit = parsed
	}

	cursor := q.Get("cursor")
	offset := 0
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "invalid cursor")
			return
		}
		offset = parsed
	}

	rawStatus := q.Get("status")
	if rawStatus == "" {
		leads, next, err := s.leads.List(r.Context(), cursor, limit)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, leadPage(leads, next))
		return
	}

	status := domain.LeadStatus(rawStatus)
	if !domain.ValidStatus(status) {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "unknown status "+strconv.Quote(rawStatus))
		return
	}

	leads, err := s.leads.ByStatus(r.Context(), status)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	page, next := paginateLeads(leads, offset, limit)
	writeJSON(w, http.StatusOK, leadPage(page, next))
}

// handleGetLead handles GET /api/v1/leads/{id}.
func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	lead, err := s.leads.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, leadToDetail(&lead))
}

// paginateLeads slices a full result set by numeric-offset cursor.
func paginateLeads(items []domain.Lead, offset, limit int) ([]domain.Lead, string) {
	if offset >= len(items) {
		return nil, ""
	}
	end := offset + limit
	if end < len(items) {
		return items[offset:end], strconv.Itoa(end)
	}
	return items[offset:], ""
}

func leadPage(leads []domain.Lead, nextCursor string) leadListResponse {
	items := make([]leadItem, len(leads))
	for i := range leads {
		items[i] = leadToItem(&leads[i])
	}
	resp := leadListResponse{Items: items, HasMore: nextCursor != ""}
	if nextCursor != "" {
		resp.NextCursor = &nextCursor
	}
	return resp
}

func leadToItem(l *domain.Lead) leadItem {
	item := leadItem{
		ID:               l.ID,
		PublicIdentifier: l.PublicIdentifier,
		Company:          l.Company,
		Status:           string(l.Status),
		IsSeed:           l.IsSeed,
		CreatedAt:        l.CreatedAt,
	}
	if l.Label != nil {
		v := int(*l.Label)
		item.Label = &v
	}
	return item
}

func leadToDetail(l *domain.Lead) leadDetail {
	return leadDetail{
		leadItem:    leadToItem(l),
		Text:        l.Text,
		Embedded:    l.Embedded(),
		LabelReason: l.LabelReason,
		LabeledAt:   l.LabeledAt,
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrLeadNotFound) {
		writeError(w, http.StatusNotFound, codeLeadNotFound, domain.ErrLeadNotFound.Error())
		return
	}
	s.logger.Error("Internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}
