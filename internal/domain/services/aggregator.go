package services

import (
	"fmt"
	"time"

	"mobiguard/internal/domain/models"
	"mobiguard/pkg/logger"
)

// Per-verdict deductions from the device score
const (
	deductionMalicious  = 20
	deductionSuspicious = 10
)

// SecurityScoreAggregator reduces a set of risk verdicts for one device
// into a single 0-100 security score with prioritized recommendations
type SecurityScoreAggregator struct {
	logger *logger.Logger
}

// NewSecurityScoreAggregator creates a new SecurityScoreAggregator
func NewSecurityScoreAggregator(log *logger.Logger) *SecurityScoreAggregator {
	return &SecurityScoreAggregator{
		logger: log.WithComponent("score-aggregator"),
	}
}

// Aggregate computes the device security score. The recommendation strings
// are generated from fixed conditions and must stay byte-stable; downstream
// clients match on them.
func (a *SecurityScoreAggregator) Aggregate(verdicts []models.RiskVerdict) models.DeviceSecurityScore {
	score := models.DeviceSecurityScore{
		Recommendations: make([]string, 0),
	}

	for _, v := range verdicts {
		switch v.Level {
		case models.RiskLevelMalicious:
			score.ThreatCount++
		case models.RiskLevelSuspicious:
			score.SuspiciousCount++
		default:
			score.CleanCount++
		}
		if v.ScannedAt.After(score.LastScan) {
			score.LastScan = v.ScannedAt
		}
	}

	if score.LastScan.IsZero() {
		score.LastScan = time.Now().UTC()
	}

	value := 100 - deductionMalicious*score.ThreatCount - deductionSuspicious*score.SuspiciousCount
	if value < 0 {
		value = 0
	}
	score.Score = value

	if score.ThreatCount > 0 {
		score.Recommendations = append(score.Recommendations, fmt.Sprintf("Remove %d malicious app(s)", score.ThreatCount))
	}
	if score.SuspiciousCount > 0 {
		score.Recommendations = append(score.Recommendations, fmt.Sprintf("Review %d suspicious app(s)", score.SuspiciousCount))
	}
	if score.Score < 70 {
		score.Recommendations = append(score.Recommendations, "Run full device scan immediately")
	}
	if score.Score < 60 {
		score.Recommendations = append(score.Recommendations,
			"Consider factory reset",
			"Enable real-time protection",
		)
	}

	a.logger.Debug().
		Int("score", score.Score).
		Int("threats", score.ThreatCount).
		Int("suspicious", score.SuspiciousCount).
		Msg("device score aggregated")

	return score
}
