package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobiguard/internal/domain/models"
	"mobiguard/pkg/logger"
)

func newFusion() *EvidenceFusion {
	return NewEvidenceFusion(logger.NewDefault())
}

func neutral() models.HeuristicFinding {
	return models.HeuristicFinding{PrivacyScore: 100, SecurityScore: 100}
}

func urlSubject(t *testing.T) models.Subject {
	t.Helper()
	subject, err := models.NewSubject(models.SubjectKindURL, "https://example.com")
	require.NoError(t, err)
	return subject
}

func TestFuseZeroSourcesIsCleanDefault(t *testing.T) {
	verdict := newFusion().Fuse(urlSubject(t), nil, neutral())

	assert.Equal(t, models.RiskLevelClean, verdict.Level)
	assert.Equal(t, 100, verdict.Score)
	assert.Empty(t, verdict.Threats)
	assert.Empty(t, verdict.Recommendations)
	assert.False(t, verdict.ScannedAt.IsZero())
}

func TestFuseMaliciousProviderDominates(t *testing.T) {
	sources := []models.ProviderVerdict{{
		Provider: "reputation",
		Level:    models.RiskLevelMalicious,
		Threats:  []string{"8/70 engines detected threats"},
		Source:   models.VerdictSourceLive,
	}}

	verdict := newFusion().Fuse(urlSubject(t), sources, neutral())

	assert.Equal(t, models.RiskLevelMalicious, verdict.Level)
	assert.Equal(t, 60, verdict.Score) // 100 - 40 penalty
	assert.Contains(t, verdict.Threats, "8/70 engines detected threats")
}

func TestFuseSuspiciousHeuristicRange(t *testing.T) {
	tests := []struct {
		name      string
		privacy   int
		security  int
		wantLevel models.RiskLevel
	}{
		{"min below 50 is malicious", 45, 100, models.RiskLevelMalicious},
		{"min exactly 50 is suspicious", 50, 100, models.RiskLevelSuspicious},
		{"min exactly 70 is suspicious", 100, 70, models.RiskLevelSuspicious},
		{"min 71 is clean", 71, 100, models.RiskLevelClean},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finding := models.HeuristicFinding{PrivacyScore: tt.privacy, SecurityScore: tt.security}
			verdict := newFusion().Fuse(urlSubject(t), nil, finding)
			assert.Equal(t, tt.wantLevel, verdict.Level)
		})
	}
}

func TestFuseMultipleThreatsEscalateToSuspicious(t *testing.T) {
	finding := models.HeuristicFinding{
		PrivacyScore:  90,
		SecurityScore: 95,
		Threats:       []string{"Can access the camera", "Runs at device startup"},
	}

	verdict := newFusion().Fuse(urlSubject(t), nil, finding)
	assert.Equal(t, models.RiskLevelSuspicious, verdict.Level)
}

func TestFuseDeduplicatesThreats(t *testing.T) {
	sources := []models.ProviderVerdict{
		{Provider: "a", Level: models.RiskLevelSuspicious, Threats: []string{"shared threat"}},
		{Provider: "b", Level: models.RiskLevelSuspicious, Threats: []string{"shared threat"}},
	}

	verdict := newFusion().Fuse(urlSubject(t), sources, neutral())
	assert.Equal(t, []string{"shared threat"}, verdict.Threats)
}

func TestFuseFailedProviderDegradesGracefully(t *testing.T) {
	sources := []models.ProviderVerdict{{
		Provider: "reputation",
		Error:    models.ErrorKindNetworkTimeout,
	}}

	verdict := newFusion().Fuse(urlSubject(t), sources, neutral())

	// Failure contributes no threats or penalty, only an advisory
	assert.Equal(t, models.RiskLevelClean, verdict.Level)
	assert.Equal(t, 100, verdict.Score)
	assert.Contains(t, verdict.Recommendations, "unable to verify via reputation")
}

func TestFuseProviderPenaltyCapped(t *testing.T) {
	sources := []models.ProviderVerdict{
		{Provider: "a", Level: models.RiskLevelMalicious},
		{Provider: "b", Level: models.RiskLevelMalicious},
		{Provider: "c", Level: models.RiskLevelMalicious},
	}

	verdict := newFusion().Fuse(urlSubject(t), sources, neutral())
	assert.Equal(t, 0, verdict.Score)
}

func TestFuseScoreIsWorstPenalty(t *testing.T) {
	// Privacy penalty 35 beats the suspicious provider penalty 15
	finding := models.HeuristicFinding{PrivacyScore: 65, SecurityScore: 100}
	sources := []models.ProviderVerdict{{Provider: "a", Level: models.RiskLevelSuspicious}}

	verdict := newFusion().Fuse(urlSubject(t), sources, finding)
	assert.Equal(t, 65, verdict.Score)
}

func TestFusePhoneSpamThreshold(t *testing.T) {
	subject, err := models.NewSubject(models.SubjectKindPhone, "+15551234567")
	require.NoError(t, err)

	tests := []struct {
		name      string
		risk      int
		wantSpam  bool
		wantLevel string
	}{
		{"zero risk", 0, false, "low"},
		{"advisory risk never flags", 3, false, "medium"},
		{"threshold risk flags spam", 4, true, "high"},
		{"above threshold", 5, true, "high"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finding := models.HeuristicFinding{PrivacyScore: 100, SecurityScore: 100, PhoneRiskScore: tt.risk}
			verdict := newFusion().Fuse(subject, nil, finding)
			assert.Equal(t, tt.wantSpam, verdict.IsSpam)
			assert.Equal(t, tt.wantLevel, verdict.PhoneRiskLevel)
			assert.Equal(t, 100-tt.risk*10, verdict.Score)
		})
	}
}

func TestFusePhoneFieldsOnlyForPhones(t *testing.T) {
	finding := models.HeuristicFinding{PrivacyScore: 100, SecurityScore: 100, PhoneRiskScore: 4}
	verdict := newFusion().Fuse(urlSubject(t), nil, finding)

	assert.False(t, verdict.IsSpam)
	assert.Empty(t, verdict.PhoneRiskLevel)
	assert.Zero(t, verdict.PhoneRiskScore)
}
