package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"mobiguard/internal/domain/models"
	"mobiguard/pkg/logger"
)

// Per-provider score penalties by reported level. Provider verdicts are
// stronger evidence than local inference, so a malicious provider report
// always dominates heuristic scores.
const (
	penaltyMalicious  = 40
	penaltySuspicious = 15
)

// Phone spam requires a risk score of at least this much; 2-3 is surfaced
// as an advisory only and never auto-flags
const (
	phoneSpamMin       = 4
	phoneMediumRiskMin = 2
)

// EvidenceFusion combines provider verdicts and heuristic findings into one
// deterministic RiskVerdict
type EvidenceFusion struct {
	logger *logger.Logger
}

// NewEvidenceFusion creates a new EvidenceFusion
func NewEvidenceFusion(log *logger.Logger) *EvidenceFusion {
	return &EvidenceFusion{
		logger: log.WithComponent("fusion"),
	}
}

// Fuse merges zero or more provider verdicts and the heuristic finding into
// a RiskVerdict. A subject with zero usable sources still receives a valid
// clean default; absence of evidence is not evidence of risk.
func (f *EvidenceFusion) Fuse(subject models.Subject, verdicts []models.ProviderVerdict, heuristic models.HeuristicFinding) models.RiskVerdict {
	threats := newOrderedSet()
	recommendations := newOrderedSet()

	anyMalicious := false
	anySuspicious := false
	providerPenalty := 0

	for _, v := range verdicts {
		if v.Failed() {
			recommendations.add(fmt.Sprintf("unable to verify via %s", v.Provider))
			continue
		}

		for _, t := range v.Threats {
			threats.add(t)
		}
		for _, r := range v.Recommendations {
			recommendations.add(r)
		}

		switch v.Level {
		case models.RiskLevelMalicious:
			anyMalicious = true
			providerPenalty += penaltyMalicious
		case models.RiskLevelSuspicious:
			anySuspicious = true
			providerPenalty += penaltySuspicious
		}
	}

	for _, t := range heuristic.Threats {
		threats.add(t)
	}
	for _, r := range heuristic.Recommendations {
		recommendations.add(r)
	}

	if providerPenalty > 100 {
		providerPenalty = 100
	}

	// Worst of the two heuristic dimensions drives the level rules
	heuristicMin := heuristic.PrivacyScore
	if heuristic.SecurityScore < heuristicMin {
		heuristicMin = heuristic.SecurityScore
	}

	var level models.RiskLevel
	switch {
	case anyMalicious || heuristicMin < 50:
		level = models.RiskLevelMalicious
	case anySuspicious || (heuristicMin >= 50 && heuristicMin <= 70) || threats.len() > 1:
		level = models.RiskLevelSuspicious
	default:
		level = models.RiskLevelClean
	}

	privacyPenalty := 100 - heuristic.PrivacyScore
	securityPenalty := 100 - heuristic.SecurityScore
	phonePenalty := heuristic.PhoneRiskScore * 10
	if phonePenalty > 100 {
		phonePenalty = 100
	}

	score := 100 - maxInt(privacyPenalty, securityPenalty, providerPenalty, phonePenalty)
	if score < 0 {
		score = 0
	}

	verdict := models.RiskVerdict{
		ID:              uuid.New(),
		Subject:         subject,
		Level:           level,
		Score:           score,
		Threats:         threats.values(),
		Recommendations: recommendations.values(),
		Sources:         verdicts,
		ScannedAt:       time.Now().UTC(),
	}

	if subject.Kind == models.SubjectKindPhone {
		verdict.PhoneRiskScore = heuristic.PhoneRiskScore
		verdict.IsSpam = heuristic.PhoneRiskScore >= phoneSpamMin
		switch {
		case heuristic.PhoneRiskScore >= phoneSpamMin:
			verdict.PhoneRiskLevel = "high"
		case heuristic.PhoneRiskScore >= phoneMediumRiskMin:
			verdict.PhoneRiskLevel = "medium"
		default:
			verdict.PhoneRiskLevel = "low"
		}
	}

	f.logger.Debug().
		Str("subject", subject.Identifier).
		Str("level", string(level)).
		Int("score", score).
		Int("sources", len(verdicts)).
		Msg("evidence fused")

	return verdict
}

// orderedSet deduplicates strings while preserving first-seen order
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{
		seen:  make(map[string]struct{}),
		items: make([]string, 0),
	}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *orderedSet) len() int {
	return len(s.items)
}

func (s *orderedSet) values() []string {
	return s.items
}

func maxInt(values ...int) int {
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}
