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

const abuseSlug = "abuse"

// Abuse confidence thresholds: below 25 is low, 25-75 is medium, above 75
// is high
const (
	abuseMediumMin = 25
	abuseHighMin   = 76
)

// AbuseProvider checks IP addresses against an abuse-reporting database and
// classifies the 0-100 abuse confidence score
type AbuseProvider struct {
	*BaseProvider
	client  *http.Client
	limiter *RateLimiter
	logger  *logger.Logger
}

// NewAbuseProvider creates a new IP abuse reputation provider
func NewAbuseProvider(cfg config.ProviderConfig, limiter *RateLimiter, log *logger.Logger) *AbuseProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	limiter.SetLimit(abuseSlug, Limit{
		MinInterval: cfg.MinInterval,
		DailyQuota:  cfg.DailyQuota,
	})

	return &AbuseProvider{
		BaseProvider: NewBaseProvider(
			abuseSlug,
			"IP Abuse Reputation",
			cfg,
			models.SubjectKindIP,
		),
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		logger:  log.WithProvider(abuseSlug),
	}
}

// abuseResponse represents the check endpoint response
type abuseResponse struct {
	Data struct {
		IPAddress            string `json:"ipAddress"`
		AbuseConfidenceScore int    `json:"abuseConfidenceScore"`
		TotalReports         int    `json:"totalReports"`
		CountryCode          string `json:"countryCode"`
		ISP                  string `json:"isp"`
		IsWhitelisted        bool   `json:"isWhitelisted"`
	} `json:"data"`
}

// Check looks up the abuse confidence score for an IP subject
func (p *AbuseProvider) Check(ctx context.Context, subject models.Subject) models.ProviderVerdict {
	if err := p.limiter.Acquire(ctx, p.Slug()); err != nil {
		return p.errVerdict(subject, translateErr(err))
	}

	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/check", p.Config().BaseURL), nil)
	if err != nil {
		return p.errVerdict(subject, models.ErrorKindProviderHTTPError)
	}

	req.Header.Set("Key", p.Config().APIKey)
	req.Header.Set("Accept", "application/json")

	q := url.Values{}
	q.Set("ipAddress", subject.Identifier)
	q.Set("maxAgeInDays", "90")
	q.Set("verbose", "")
	req.URL.RawQuery = q.Encode()

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn().Err(err).Str("ip", subject.Identifier).Msg("abuse check request failed")
		return p.errVerdict(subject, translateErr(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Warn().Int("status", resp.StatusCode).Str("ip", subject.Identifier).Msg("abuse check returned non-OK status")
		return p.errVerdict(subject, models.ErrorKindProviderHTTPError)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return p.errVerdict(subject, translateErr(err))
	}

	var report abuseResponse
	if err := json.Unmarshal(body, &report); err != nil {
		return p.errVerdict(subject, models.ErrorKindMalformedResponse)
	}

	score := report.Data.AbuseConfidenceScore
	verdict := models.ProviderVerdict{
		Provider:    p.Slug(),
		SubjectID:   subject.Identifier,
		AbuseScore:  &score,
		ReportCount: report.Data.TotalReports,
		ISP:         report.Data.ISP,
		CountryCode: report.Data.CountryCode,
		Source:      models.VerdictSourceLive,
		FetchedAt:   time.Now().UTC(),
	}

	switch {
	case score >= abuseHighMin:
		verdict.Level = models.RiskLevelMalicious
		verdict.Threats = []string{fmt.Sprintf("High abuse confidence (%d/100, %d reports)", score, report.Data.TotalReports)}
		verdict.Recommendations = []string{"Block traffic to this IP"}
	case score >= abuseMediumMin:
		verdict.Level = models.RiskLevelSuspicious
		verdict.Threats = []string{fmt.Sprintf("Moderate abuse confidence (%d/100)", score)}
		verdict.Recommendations = []string{"Review traffic to this IP"}
	default:
		verdict.Level = models.RiskLevelClean
	}

	p.logger.Debug().
		Str("ip", subject.Identifier).
		Int("abuse_score", score).
		Int("reports", report.Data.TotalReports).
		Str("level", string(verdict.Level)).
		Msg("abuse check completed")

	return verdict
}
