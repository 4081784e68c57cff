package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"mobiguard/internal/config"
	"mobiguard/internal/domain/models"
	"mobiguard/pkg/logger"
)

const reputationSlug = "reputation"

// Detection thresholds for the three-tier classification. These are policy
// constants: 0 positives is clean, 1-5 is suspicious, more than 5 is
// malicious.
const (
	reputationSuspiciousMin = 1
	reputationMaliciousMin  = 6
)

// ReputationProvider checks file hashes and URLs against an engine-based
// scanning service and translates the detection ratio into a classification
type ReputationProvider struct {
	*BaseProvider
	client  *http.Client
	limiter *RateLimiter
	logger  *logger.Logger
}

// NewReputationProvider creates a new file/URL reputation provider
func NewReputationProvider(cfg config.ProviderConfig, limiter *RateLimiter, log *logger.Logger) *ReputationProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	limiter.SetLimit(reputationSlug, Limit{
		MinInterval: cfg.MinInterval,
		DailyQuota:  cfg.DailyQuota,
	})

	return &ReputationProvider{
		BaseProvider: NewBaseProvider(
			reputationSlug,
			"File/URL Reputation",
			cfg,
			models.SubjectKindURL,
			models.SubjectKindApp,
		),
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		logger:  log.WithProvider(reputationSlug),
	}
}

// reputationResponse represents the scan report API response
type reputationResponse struct {
	ResponseCode int    `json:"response_code"`
	Positives    int    `json:"positives"`
	Total        int    `json:"total"`
	ScanDate     string `json:"scan_date"`
}

// Check looks up the detection ratio for a URL or app subject
func (p *ReputationProvider) Check(ctx context.Context, subject models.Subject) models.ProviderVerdict {
	if err := p.limiter.Acquire(ctx, p.Slug()); err != nil {
		return p.errVerdict(subject, translateErr(err))
	}

	endpoint := fmt.Sprintf("%s/url/report", p.Config().BaseURL)
	if subject.Kind == models.SubjectKindApp {
		endpoint = fmt.Sprintf("%s/file/report", p.Config().BaseURL)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return p.errVerdict(subject, models.ErrorKindProviderHTTPError)
	}

	q := url.Values{}
	q.Set("apikey", p.Config().APIKey)
	q.Set("resource", subject.Identifier)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn().Err(err).Str("subject", subject.Identifier).Msg("reputation request failed")
		return p.errVerdict(subject, translateErr(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Warn().Int("status", resp.StatusCode).Str("subject", subject.Identifier).Msg("reputation returned non-OK status")
		return p.errVerdict(subject, models.ErrorKindProviderHTTPError)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return p.errVerdict(subject, translateErr(err))
	}

	var report reputationResponse
	if err := json.Unmarshal(body, &report); err != nil {
		return p.errVerdict(subject, models.ErrorKindMalformedResponse)
	}

	verdict := models.ProviderVerdict{
		Provider:  p.Slug(),
		SubjectID: subject.Identifier,
		Detections: &models.DetectionRatio{
			Positives: report.Positives,
			Total:     report.Total,
		},
		Source:    models.VerdictSourceLive,
		FetchedAt: time.Now().UTC(),
	}

	switch {
	case report.Positives >= reputationMaliciousMin:
		verdict.Level = models.RiskLevelMalicious
		verdict.Threats = []string{fmt.Sprintf("%d/%d engines detected threats", report.Positives, report.Total)}
		verdict.Recommendations = []string{"Do not open this resource"}
	case report.Positives >= reputationSuspiciousMin:
		verdict.Level = models.RiskLevelSuspicious
		verdict.Threats = []string{fmt.Sprintf("%d/%d engines flagged this resource", report.Positives, report.Total)}
		verdict.Recommendations = []string{"Proceed with caution"}
	default:
		verdict.Level = models.RiskLevelClean
	}

	p.logger.Debug().
		Str("subject", subject.Identifier).
		Int("positives", report.Positives).
		Int("total", report.Total).
		Str("level", string(verdict.Level)).
		Msg("reputation check completed")

	return verdict
}
