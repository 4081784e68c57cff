package providers

import (
	"context"
	"errors"
	"net"
	"time"

	"mobiguard/internal/config"
	"mobiguard/internal/domain/models"
)

// Provider normalizes one external reputation API into the common
// ProviderVerdict shape. Check never returns an error: every expected
// failure mode is translated into ProviderVerdict.Error so that batch
// scanning and evidence fusion can treat "no data" uniformly.
type Provider interface {
	// Slug returns the unique identifier for this provider
	Slug() string

	// Name returns the human-readable name of this provider
	Name() string

	// Supports reports whether this provider can evaluate the given kind
	Supports(kind models.SubjectKind) bool

	// Check evaluates a subject against the external API
	Check(ctx context.Context, subject models.Subject) models.ProviderVerdict

	// CacheTTL returns how long verdicts from this provider may be cached
	CacheTTL() time.Duration

	// IsEnabled returns whether this provider is enabled
	IsEnabled() bool
}

// BaseProvider provides common functionality for provider adapters
type BaseProvider struct {
	slug   string
	name   string
	kinds  []models.SubjectKind
	config config.ProviderConfig
}

// NewBaseProvider creates a new base provider
func NewBaseProvider(slug, name string, cfg config.ProviderConfig, kinds ...models.SubjectKind) *BaseProvider {
	return &BaseProvider{
		slug:   slug,
		name:   name,
		kinds:  kinds,
		config: cfg,
	}
}

// Slug returns the unique identifier for this provider
func (p *BaseProvider) Slug() string {
	return p.slug
}

// Name returns the human-readable name of this provider
func (p *BaseProvider) Name() string {
	return p.name
}

// Supports reports whether this provider can evaluate the given kind
func (p *BaseProvider) Supports(kind models.SubjectKind) bool {
	for _, k := range p.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// CacheTTL returns how long verdicts from this provider may be cached
func (p *BaseProvider) CacheTTL() time.Duration {
	if p.config.CacheTTL > 0 {
		return p.config.CacheTTL
	}
	return time.Hour
}

// IsEnabled returns whether this provider is enabled
func (p *BaseProvider) IsEnabled() bool {
	return p.config.Enabled
}

// Config returns the provider configuration
func (p *BaseProvider) Config() config.ProviderConfig {
	return p.config
}

// errVerdict builds a verdict carrying only the failure tag, with all data
// fields empty
func (p *BaseProvider) errVerdict(subject models.Subject, kind models.ErrorKind) models.ProviderVerdict {
	return models.ProviderVerdict{
		Provider:  p.slug,
		SubjectID: subject.Identifier,
		Source:    models.VerdictSourceLive,
		FetchedAt: time.Now().UTC(),
		Error:     kind,
	}
}

// translateErr maps transport errors onto the error taxonomy
func translateErr(err error) models.ErrorKind {
	var netErr net.Error
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		return models.ErrorKindQuotaExceeded
	case errors.Is(err, context.DeadlineExceeded):
		return models.ErrorKindNetworkTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return models.ErrorKindNetworkTimeout
	default:
		return models.ErrorKindProviderHTTPError
	}
}
