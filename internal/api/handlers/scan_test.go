package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobiguard/internal/config"
	"mobiguard/internal/domain/models"
	"mobiguard/internal/domain/services"
	"mobiguard/internal/providers"
	"mobiguard/pkg/logger"
)

// testHandlers builds handlers with local heuristics only: no providers, no
// Redis, no database
func testHandlers() *Handlers {
	log := logger.NewDefault()
	cfg := &config.Config{}
	cfg.Scan.MaxBatchSize = 100

	scanner := services.NewBatchScanner(
		nil,
		services.NewMemoryVerdictCache(),
		services.NewHeuristicScorer(log),
		services.NewEvidenceFusion(log),
		log,
	)

	return NewHandlers(Dependencies{
		Config:     cfg,
		Scanner:    scanner,
		Aggregator: services.NewSecurityScoreAggregator(log),
		Limiter:    providers.NewRateLimiter(log),
		Logger:     log,
	})
}

func TestScanBatchRejectsBadInput(t *testing.T) {
	h := testHandlers()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"empty subjects", `{"subjects":[]}`},
		{"invalid ip subject", `{"subjects":[{"kind":"ip","identifier":"not-an-ip"}]}`},
		{"unknown kind", `{"subjects":[{"kind":"email","identifier":"a@b.com"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/scan/batch", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Scan.ScanBatch(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestScanBatchRejectsOversizedBatch(t *testing.T) {
	h := testHandlers()

	subjects := make([]ScanSubjectRequest, 101)
	for i := range subjects {
		subjects[i] = ScanSubjectRequest{Kind: "ip", Identifier: "203.0.113.7"}
	}
	body, err := json.Marshal(ScanBatchRequest{Subjects: subjects})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/v1/scan/batch", strings.NewReader(string(body)))
	rec := httptest.NewRecorder()
	h.Scan.ScanBatch(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "maximum 100 subjects")
}

func TestScanBatchReturnsVerdictPerSubject(t *testing.T) {
	h := testHandlers()

	body := `{"subjects":[
		{"kind":"app","identifier":"com.clean.app"},
		{"kind":"app","identifier":"com.spy.app","permissions":["READ_SMS","RECORD_AUDIO","INSTALL_PACKAGES"]},
		{"kind":"ip","identifier":"203.0.113.7"}
	]}`

	req := httptest.NewRequest("POST", "/api/v1/scan/batch", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Scan.ScanBatch(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result models.ScanBatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))

	assert.Equal(t, 3, result.Total)
	require.Len(t, result.Verdicts, 3)
	assert.Equal(t, models.RiskLevelClean, result.Verdicts[0].Level)
	assert.Equal(t, models.RiskLevelSuspicious, result.Verdicts[1].Level)
	assert.Equal(t, 65, result.Verdicts[1].Score)
}

func TestDeviceScore(t *testing.T) {
	h := testHandlers()

	body := `{"apps":[
		{"identifier":"com.clean.app"},
		{"identifier":"com.spy.app","permissions":["READ_SMS","RECORD_AUDIO","INSTALL_PACKAGES"]}
	]}`

	req := httptest.NewRequest("POST", "/api/v1/scan/device-score", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Scan.DeviceScore(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp DeviceScoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// One suspicious app: 100 - 10
	assert.Equal(t, 90, resp.Score.Score)
	assert.Equal(t, 1, resp.Score.SuspiciousCount)
	assert.Contains(t, resp.Score.Recommendations, "Review 1 suspicious app(s)")
	assert.Len(t, resp.Verdicts, 2)
}

func TestDeviceScoreRejectsEmpty(t *testing.T) {
	h := testHandlers()

	req := httptest.NewRequest("POST", "/api/v1/scan/device-score", strings.NewReader(`{"apps":[]}`))
	rec := httptest.NewRecorder()
	h.Scan.DeviceScore(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckPhone(t *testing.T) {
	h := testHandlers()

	req := httptest.NewRequest("POST", "/api/v1/phone/check", strings.NewReader(`{"number":"+1 (555) 123-4567"}`))
	rec := httptest.NewRecorder()
	h.Phone.CheckPhone(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var verdict models.RiskVerdict
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verdict))

	assert.Equal(t, "+15551234567", verdict.Subject.Identifier)
	// No provider data: unknown line type is an advisory, never spam
	assert.Equal(t, 1, verdict.PhoneRiskScore)
	assert.False(t, verdict.IsSpam)
	assert.Equal(t, "low", verdict.PhoneRiskLevel)
}

func TestCheckPhoneRejectsInvalidNumber(t *testing.T) {
	h := testHandlers()

	req := httptest.NewRequest("POST", "/api/v1/phone/check", strings.NewReader(`{"number":"12"}`))
	rec := httptest.NewRecorder()
	h.Phone.CheckPhone(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryUnavailableWithoutDatabase(t *testing.T) {
	h := testHandlers()

	req := httptest.NewRequest("GET", "/api/v1/scan/history", nil)
	rec := httptest.NewRecorder()
	h.Scan.History(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	h := testHandlers()

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	h.Health.Check(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestReadyWithoutDatabase(t *testing.T) {
	h := testHandlers()

	req := httptest.NewRequest("GET", "/ready", nil)
	rec := httptest.NewRecorder()
	h.Health.Ready(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not configured", resp.Checks["postgres"])
}
