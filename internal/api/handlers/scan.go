package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"mobiguard/internal/config"
	"mobiguard/internal/domain/models"
	"mobiguard/internal/domain/services"
	"mobiguard/internal/infrastructure/database/repository"
	"mobiguard/internal/providers"
	"mobiguard/pkg/logger"
)

// ScanHandler handles batch scanning and device score endpoints
type ScanHandler struct {
	config     *config.Config
	scanner    *services.BatchScanner
	aggregator *services.SecurityScoreAggregator
	providers  []providers.Provider
	limiter    *providers.RateLimiter
	history    *repository.ScanHistoryRepository
	logger     *logger.Logger
}

// NewScanHandler creates a new ScanHandler
func NewScanHandler(
	cfg *config.Config,
	scanner *services.BatchScanner,
	aggregator *services.SecurityScoreAggregator,
	provs []providers.Provider,
	limiter *providers.RateLimiter,
	history *repository.ScanHistoryRepository,
	log *logger.Logger,
) *ScanHandler {
	return &ScanHandler{
		config:     cfg,
		scanner:    scanner,
		aggregator: aggregator,
		providers:  provs,
		limiter:    limiter,
		history:    history,
		logger:     log.WithComponent("scan-handler"),
	}
}

// ScanSubjectRequest is one entry in a batch scan request
type ScanSubjectRequest struct {
	Kind        string   `json:"kind"`
	Identifier  string   `json:"identifier"`
	Permissions []string `json:"permissions,omitempty"`
}

// ScanBatchRequest represents a batch scan request
type ScanBatchRequest struct {
	Subjects []ScanSubjectRequest `json:"subjects"`
}

// parseSubjects validates and normalizes the request entries. The whole
// request is rejected on the first invalid subject so clients never receive
// a partially evaluated batch they did not ask for.
func (h *ScanHandler) parseSubjects(reqs []ScanSubjectRequest) ([]models.Subject, error) {
	subjects := make([]models.Subject, 0, len(reqs))
	for i, sr := range reqs {
		subject, err := models.NewSubject(models.SubjectKind(sr.Kind), sr.Identifier)
		if err != nil {
			return nil, fmt.Errorf("subject %d: %w", i, err)
		}
		subject.Permissions = sr.Permissions
		subjects = append(subjects, subject)
	}
	return subjects, nil
}

// ScanBatch handles POST /api/v1/scan/batch
func (h *ScanHandler) ScanBatch(w http.ResponseWriter, r *http.Request) {
	var req ScanBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Subjects) == 0 {
		respondError(w, http.StatusBadRequest, "no subjects provided")
		return
	}
	if max := h.config.Scan.MaxBatchSize; len(req.Subjects) > max {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("maximum %d subjects per request", max))
		return
	}

	subjects, err := h.parseSubjects(req.Subjects)
	if err != nil {
		if errors.Is(err, models.ErrInvalidSubject) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to parse subjects")
		return
	}

	result := h.scanner.Scan(r.Context(), subjects)

	if h.history != nil && !result.Cancelled {
		if err := h.history.SaveBatch(r.Context(), result); err != nil {
			h.logger.Warn().Err(err).Msg("failed to persist scan batch")
		}
	}

	respondJSON(w, http.StatusOK, result)
}

// DeviceScoreRequest represents a device score request: the set of installed
// apps to evaluate
type DeviceScoreRequest struct {
	Apps []ScanSubjectRequest `json:"apps"`
}

// DeviceScoreResponse pairs the aggregated score with the per-app verdicts
// it was derived from
type DeviceScoreResponse struct {
	Score    models.DeviceSecurityScore `json:"score"`
	Verdicts []models.RiskVerdict       `json:"verdicts"`
}

// DeviceScore handles POST /api/v1/scan/device-score
func (h *ScanHandler) DeviceScore(w http.ResponseWriter, r *http.Request) {
	var req DeviceScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Apps) == 0 {
		respondError(w, http.StatusBadRequest, "no apps provided")
		return
	}
	if max := h.config.Scan.MaxBatchSize; len(req.Apps) > max {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("maximum %d apps per request", max))
		return
	}

	subjects := make([]models.Subject, 0, len(req.Apps))
	for i, app := range req.Apps {
		subject, err := models.NewAppSubject(app.Identifier, app.Permissions)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("app %d: %s", i, err.Error()))
			return
		}
		subjects = append(subjects, subject)
	}

	result := h.scanner.Scan(r.Context(), subjects)
	score := h.aggregator.Aggregate(result.Verdicts)

	respondJSON(w, http.StatusOK, DeviceScoreResponse{
		Score:    score,
		Verdicts: result.Verdicts,
	})
}

// History handles GET /api/v1/scan/history
func (h *ScanHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, "scan history is not configured")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	batches, err := h.history.RecentBatches(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load scan history")
		respondError(w, http.StatusInternalServerError, "failed to load scan history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(batches),
		"batches": batches,
	})
}

// ProviderStatus describes one configured provider
type ProviderStatus struct {
	Slug           string   `json:"slug"`
	Name           string   `json:"name"`
	Enabled        bool     `json:"enabled"`
	Kinds          []string `json:"kinds"`
	QuotaRemaining int      `json:"quota_remaining"` // -1 means unlimited
}

// ListProviders handles GET /api/v1/providers
func (h *ScanHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	statuses := make([]ProviderStatus, 0, len(h.providers))
	for _, p := range h.providers {
		kinds := make([]string, 0, 4)
		for _, k := range []models.SubjectKind{models.SubjectKindApp, models.SubjectKindURL, models.SubjectKindIP, models.SubjectKindPhone} {
			if p.Supports(k) {
				kinds = append(kinds, string(k))
			}
		}
		statuses = append(statuses, ProviderStatus{
			Slug:           p.Slug(),
			Name:           p.Name(),
			Enabled:        p.IsEnabled(),
			Kinds:          kinds,
			QuotaRemaining: h.limiter.Remaining(p.Slug()),
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":     len(statuses),
		"providers": statuses,
	})
}
