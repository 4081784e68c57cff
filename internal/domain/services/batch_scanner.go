package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mobiguard/internal/domain/models"
	"mobiguard/internal/providers"
	"mobiguard/pkg/logger"
)

// BatchScanner orchestrates scanning a collection of subjects. Subjects are
// processed sequentially in input order, and provider calls within one
// subject are sequential too, because external rate limits are global
// resources shared across the process. A provider failure degrades one
// subject's verdict; it never aborts the batch.
type BatchScanner struct {
	providers  []providers.Provider
	cache      VerdictCache
	heuristics *HeuristicScorer
	fusion     *EvidenceFusion
	logger     *logger.Logger
}

// NewBatchScanner creates a new BatchScanner
func NewBatchScanner(provs []providers.Provider, cache VerdictCache, heuristics *HeuristicScorer, fusion *EvidenceFusion, log *logger.Logger) *BatchScanner {
	return &BatchScanner{
		providers:  provs,
		cache:      cache,
		heuristics: heuristics,
		fusion:     fusion,
		logger:     log.WithComponent("batch-scanner"),
	}
}

// Scan evaluates every subject and returns the batch summary. Cancellation
// is checked between subjects: a cancelled batch keeps the verdicts already
// scored and stops before starting the next subject, so no half-formed
// subject result is ever returned.
func (s *BatchScanner) Scan(ctx context.Context, subjects []models.Subject) models.ScanBatchResult {
	result := models.ScanBatchResult{
		ID:        uuid.New(),
		Total:     len(subjects),
		Verdicts:  make([]models.RiskVerdict, 0, len(subjects)),
		StartedAt: time.Now().UTC(),
	}

	for _, subject := range subjects {
		select {
		case <-ctx.Done():
			result.Cancelled = true
		default:
		}
		if result.Cancelled {
			break
		}

		verdict, errCount := s.scanSubject(ctx, subject)
		result.Verdicts = append(result.Verdicts, verdict)
		result.Errors += errCount

		switch verdict.Level {
		case models.RiskLevelMalicious:
			result.Malicious++
		case models.RiskLevelSuspicious:
			result.Suspicious++
		default:
			result.Clean++
		}
	}

	result.CompletedAt = time.Now().UTC()

	s.logger.Info().
		Str("batch_id", result.ID.String()).
		Int("total", result.Total).
		Int("malicious", result.Malicious).
		Int("suspicious", result.Suspicious).
		Int("clean", result.Clean).
		Int("errors", result.Errors).
		Bool("cancelled", result.Cancelled).
		Dur("duration", result.CompletedAt.Sub(result.StartedAt)).
		Msg("batch scan completed")

	return result
}

// scanSubject runs one subject through cache, providers and heuristics,
// then fuses the evidence. Returns the verdict and how many provider calls
// failed.
func (s *BatchScanner) scanSubject(ctx context.Context, subject models.Subject) (models.RiskVerdict, int) {
	var sources []models.ProviderVerdict
	errCount := 0

	for _, p := range s.providers {
		if !p.IsEnabled() || !p.Supports(subject.Kind) {
			continue
		}

		if cached, ok := s.cache.Get(ctx, p.Slug(), subject.Identifier); ok {
			sources = append(sources, cached)
			continue
		}

		verdict := p.Check(ctx, subject)
		sources = append(sources, verdict)

		if verdict.Failed() {
			errCount++
			continue
		}
		s.cache.Put(ctx, p.Slug(), subject.Identifier, verdict, p.CacheTTL())
	}

	finding := s.heuristicFor(subject, sources)
	return s.fusion.Fuse(subject, sources, finding), errCount
}

// heuristicFor selects the local heuristic matching the subject kind. Phone
// heuristics consume the line facts surfaced by the validation provider
// when available; with no provider data they still run on empty facts.
func (s *BatchScanner) heuristicFor(subject models.Subject, sources []models.ProviderVerdict) models.HeuristicFinding {
	switch subject.Kind {
	case models.SubjectKindApp:
		return s.heuristics.ScoreApp(subject.Permissions)
	case models.SubjectKindPhone:
		var lineType, carrier string
		for _, v := range sources {
			if v.Failed() {
				continue
			}
			if v.LineType != "" || v.Carrier != "" {
				lineType = v.LineType
				carrier = v.Carrier
				break
			}
		}
		return s.heuristics.ScorePhone(lineType, carrier)
	default:
		return s.heuristics.NeutralFinding()
	}
}
