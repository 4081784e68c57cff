package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobiguard/internal/config"
	"mobiguard/internal/domain/models"
	"mobiguard/pkg/logger"
)

func testProviderConfig(baseURL string) config.ProviderConfig {
	return config.ProviderConfig{
		Enabled: true,
		APIKey:  "test-key",
		BaseURL: baseURL,
		Timeout: 2 * time.Second,
	}
}

func mustSubject(t *testing.T, kind models.SubjectKind, identifier string) models.Subject {
	t.Helper()
	subject, err := models.NewSubject(kind, identifier)
	require.NoError(t, err)
	return subject
}

func TestReputationCheckClean(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/url/report", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		w.Write([]byte(`{"response_code":1,"positives":0,"total":70}`))
	}))
	defer srv.Close()

	p := NewReputationProvider(testProviderConfig(srv.URL), NewRateLimiter(logger.NewDefault()), logger.NewDefault())
	verdict := p.Check(context.Background(), mustSubject(t, models.SubjectKindURL, "https://example.com"))

	require.False(t, verdict.Failed())
	assert.Equal(t, models.RiskLevelClean, verdict.Level)
	assert.Empty(t, verdict.Threats)
	assert.Equal(t, models.VerdictSourceLive, verdict.Source)
	require.NotNil(t, verdict.Detections)
	assert.Equal(t, 0, verdict.Detections.Positives)
	assert.Equal(t, 70, verdict.Detections.Total)
}

func TestReputationCheckMalicious(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response_code":1,"positives":8,"total":70}`))
	}))
	defer srv.Close()

	p := NewReputationProvider(testProviderConfig(srv.URL), NewRateLimiter(logger.NewDefault()), logger.NewDefault())
	verdict := p.Check(context.Background(), mustSubject(t, models.SubjectKindURL, "https://evil.example.com"))

	assert.Equal(t, models.RiskLevelMalicious, verdict.Level)
	assert.Contains(t, verdict.Threats, "8/70 engines detected threats")
	assert.Contains(t, verdict.Recommendations, "Do not open this resource")
}

func TestReputationCheckSuspicious(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response_code":1,"positives":3,"total":70}`))
	}))
	defer srv.Close()

	p := NewReputationProvider(testProviderConfig(srv.URL), NewRateLimiter(logger.NewDefault()), logger.NewDefault())
	verdict := p.Check(context.Background(), mustSubject(t, models.SubjectKindURL, "https://sketchy.example.com"))

	assert.Equal(t, models.RiskLevelSuspicious, verdict.Level)
	assert.Contains(t, verdict.Threats, "3/70 engines flagged this resource")
	assert.Contains(t, verdict.Recommendations, "Proceed with caution")
}

func TestReputationAppUsesFileEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/file/report", r.URL.Path)
		w.Write([]byte(`{"response_code":1,"positives":0,"total":70}`))
	}))
	defer srv.Close()

	p := NewReputationProvider(testProviderConfig(srv.URL), NewRateLimiter(logger.NewDefault()), logger.NewDefault())
	verdict := p.Check(context.Background(), mustSubject(t, models.SubjectKindApp, "com.example.app"))

	assert.False(t, verdict.Failed())
}

func TestReputationHTTPErrorIsTranslated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewReputationProvider(testProviderConfig(srv.URL), NewRateLimiter(logger.NewDefault()), logger.NewDefault())
	verdict := p.Check(context.Background(), mustSubject(t, models.SubjectKindURL, "https://example.com"))

	require.True(t, verdict.Failed())
	assert.Equal(t, models.ErrorKindProviderHTTPError, verdict.Error)
	assert.Equal(t, models.RiskLevel(""), verdict.Level)
}

func TestReputationMalformedResponseIsTranslated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	p := NewReputationProvider(testProviderConfig(srv.URL), NewRateLimiter(logger.NewDefault()), logger.NewDefault())
	verdict := p.Check(context.Background(), mustSubject(t, models.SubjectKindURL, "https://example.com"))

	require.True(t, verdict.Failed())
	assert.Equal(t, models.ErrorKindMalformedResponse, verdict.Error)
}

func TestReputationQuotaExceededIsTranslated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response_code":1,"positives":0,"total":70}`))
	}))
	defer srv.Close()

	cfg := testProviderConfig(srv.URL)
	cfg.DailyQuota = 1
	p := NewReputationProvider(cfg, NewRateLimiter(logger.NewDefault()), logger.NewDefault())

	subject := mustSubject(t, models.SubjectKindURL, "https://example.com")
	first := p.Check(context.Background(), subject)
	require.False(t, first.Failed())

	second := p.Check(context.Background(), subject)
	require.True(t, second.Failed())
	assert.Equal(t, models.ErrorKindQuotaExceeded, second.Error)
}

func TestAbuseCheckHighConfidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/check", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Key"))
		assert.Equal(t, "203.0.113.7", r.URL.Query().Get("ipAddress"))
		w.Write([]byte(`{"data":{"ipAddress":"203.0.113.7","abuseConfidenceScore":95,"totalReports":120,"isp":"Evil Hosting"}}`))
	}))
	defer srv.Close()

	p := NewAbuseProvider(testProviderConfig(srv.URL), NewRateLimiter(logger.NewDefault()), logger.NewDefault())
	verdict := p.Check(context.Background(), mustSubject(t, models.SubjectKindIP, "203.0.113.7"))

	require.False(t, verdict.Failed())
	assert.Equal(t, models.RiskLevelMalicious, verdict.Level)
	assert.Contains(t, verdict.Threats, "High abuse confidence (95/100, 120 reports)")
	assert.Contains(t, verdict.Recommendations, "Block traffic to this IP")
	require.NotNil(t, verdict.AbuseScore)
	assert.Equal(t, 95, *verdict.AbuseScore)
	assert.Equal(t, "Evil Hosting", verdict.ISP)
}

func TestAbuseCheckThresholds(t *testing.T) {
	tests := []struct {
		name  string
		score int
		level models.RiskLevel
	}{
		{"low is clean", 10, models.RiskLevelClean},
		{"boundary 24 is clean", 24, models.RiskLevelClean},
		{"boundary 25 is suspicious", 25, models.RiskLevelSuspicious},
		{"boundary 75 is suspicious", 75, models.RiskLevelSuspicious},
		{"boundary 76 is malicious", 76, models.RiskLevelMalicious},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"data":{"abuseConfidenceScore":` + strconv.Itoa(tt.score) + `,"totalReports":5}}`))
			}))
			defer srv.Close()

			p := NewAbuseProvider(testProviderConfig(srv.URL), NewRateLimiter(logger.NewDefault()), logger.NewDefault())
			verdict := p.Check(context.Background(), mustSubject(t, models.SubjectKindIP, "198.51.100.1"))
			assert.Equal(t, tt.level, verdict.Level)
		})
	}
}

func TestPhoneValidationSurfacesLineFacts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/validate", r.URL.Path)
		// The leading + must be stripped for this API
		assert.Equal(t, "15551234567", r.URL.Query().Get("number"))
		w.Write([]byte(`{"valid":true,"line_type":"VoIP","carrier":"Virtual Mobile Ltd","country_code":"US"}`))
	}))
	defer srv.Close()

	p := NewPhoneValidationProvider(testProviderConfig(srv.URL), NewRateLimiter(logger.NewDefault()), logger.NewDefault())
	verdict := p.Check(context.Background(), mustSubject(t, models.SubjectKindPhone, "+1 555 123 4567"))

	require.False(t, verdict.Failed())
	assert.Equal(t, "voip", verdict.LineType)
	assert.Equal(t, "Virtual Mobile Ltd", verdict.Carrier)
	require.NotNil(t, verdict.Valid)
	assert.True(t, *verdict.Valid)
	// The validation provider never classifies spam itself
	assert.Empty(t, verdict.Threats)
}

func TestPhoneValidationInvalidNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"valid":false}`))
	}))
	defer srv.Close()

	p := NewPhoneValidationProvider(testProviderConfig(srv.URL), NewRateLimiter(logger.NewDefault()), logger.NewDefault())
	verdict := p.Check(context.Background(), mustSubject(t, models.SubjectKindPhone, "+15551234567"))

	require.False(t, verdict.Failed())
	assert.Contains(t, verdict.Threats, "Number failed carrier validation")
}

func TestProviderSupports(t *testing.T) {
	rl := NewRateLimiter(logger.NewDefault())
	log := logger.NewDefault()

	rep := NewReputationProvider(testProviderConfig("http://unused"), rl, log)
	assert.True(t, rep.Supports(models.SubjectKindURL))
	assert.True(t, rep.Supports(models.SubjectKindApp))
	assert.False(t, rep.Supports(models.SubjectKindPhone))

	abuse := NewAbuseProvider(testProviderConfig("http://unused"), rl, log)
	assert.True(t, abuse.Supports(models.SubjectKindIP))
	assert.False(t, abuse.Supports(models.SubjectKindURL))

	phone := NewPhoneValidationProvider(testProviderConfig("http://unused"), rl, log)
	assert.True(t, phone.Supports(models.SubjectKindPhone))
	assert.False(t, phone.Supports(models.SubjectKindIP))
}
