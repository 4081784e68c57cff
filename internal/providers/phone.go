package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mobiguard/internal/config"
	"mobiguard/internal/domain/models"
	"mobiguard/pkg/logger"
)

const phoneValidationSlug = "phone-validation"

// PhoneValidationProvider validates phone numbers and surfaces line type,
// carrier and country. It never decides spam status itself; that
// classification is the job of evidence fusion over the local heuristics.
type PhoneValidationProvider struct {
	*BaseProvider
	client  *http.Client
	limiter *RateLimiter
	logger  *logger.Logger
}

// NewPhoneValidationProvider creates a new phone validation provider
func NewPhoneValidationProvider(cfg config.ProviderConfig, limiter *RateLimiter, log *logger.Logger) *PhoneValidationProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	limiter.SetLimit(phoneValidationSlug, Limit{
		MinInterval: cfg.MinInterval,
		DailyQuota:  cfg.DailyQuota,
	})

	return &PhoneValidationProvider{
		BaseProvider: NewBaseProvider(
			phoneValidationSlug,
			"Phone Validation",
			cfg,
			models.SubjectKindPhone,
		),
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		logger:  log.WithProvider(phoneValidationSlug),
	}
}

// phoneValidationResponse represents the validate endpoint response
type phoneValidationResponse struct {
	Valid       bool   `json:"valid"`
	LineType    string `json:"line_type"`
	Carrier     string `json:"carrier"`
	CountryName string `json:"country_name"`
	CountryCode string `json:"country_code"`
}

// Check validates a phone subject and surfaces carrier facts
func (p *PhoneValidationProvider) Check(ctx context.Context, subject models.Subject) models.ProviderVerdict {
	if err := p.limiter.Acquire(ctx, p.Slug()); err != nil {
		return p.errVerdict(subject, translateErr(err))
	}

	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/validate", p.Config().BaseURL), nil)
	if err != nil {
		return p.errVerdict(subject, models.ErrorKindProviderHTTPError)
	}

	// The validation API takes the number without the leading +
	q := url.Values{}
	q.Set("access_key", p.Config().APIKey)
	q.Set("number", strings.TrimPrefix(subject.Identifier, "+"))
	q.Set("format", "1")
	req.URL.RawQuery = q.Encode()

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn().Err(err).Str("number", subject.Identifier).Msg("phone validation request failed")
		return p.errVerdict(subject, translateErr(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Warn().Int("status", resp.StatusCode).Str("number", subject.Identifier).Msg("phone validation returned non-OK status")
		return p.errVerdict(subject, models.ErrorKindProviderHTTPError)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return p.errVerdict(subject, translateErr(err))
	}

	var report phoneValidationResponse
	if err := json.Unmarshal(body, &report); err != nil {
		return p.errVerdict(subject, models.ErrorKindMalformedResponse)
	}

	valid := report.Valid
	verdict := models.ProviderVerdict{
		Provider:    p.Slug(),
		SubjectID:   subject.Identifier,
		Valid:       &valid,
		LineType:    strings.ToLower(report.LineType),
		Carrier:     report.Carrier,
		CountryCode: report.CountryCode,
		Source:      models.VerdictSourceLive,
		FetchedAt:   time.Now().UTC(),
	}

	if !valid {
		verdict.Threats = []string{"Number failed carrier validation"}
	}

	p.logger.Debug().
		Str("number", subject.Identifier).
		Bool("valid", valid).
		Str("line_type", verdict.LineType).
		Str("carrier", verdict.Carrier).
		Msg("phone validation completed")

	return verdict
}
