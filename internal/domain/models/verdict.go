package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidSubject marks input that no provider can meaningfully evaluate
var ErrInvalidSubject = errors.New("invalid subject")

// RiskLevel is the three-tier classification of a subject
type RiskLevel string

const (
	RiskLevelClean      RiskLevel = "clean"
	RiskLevelSuspicious RiskLevel = "suspicious"
	RiskLevelMalicious  RiskLevel = "malicious"
)

// ErrorKind tags an expected provider failure mode. Adapters translate every
// failure into one of these instead of returning an error, so callers can
// treat "no data" uniformly.
type ErrorKind string

const (
	ErrorKindNone              ErrorKind = ""
	ErrorKindNetworkTimeout    ErrorKind = "network_timeout"
	ErrorKindProviderHTTPError ErrorKind = "provider_http_error"
	ErrorKindMalformedResponse ErrorKind = "malformed_response"
	ErrorKindQuotaExceeded     ErrorKind = "quota_exceeded"
	ErrorKindInvalidSubject    ErrorKind = "invalid_subject"
)

// VerdictSource distinguishes verified provider data from locally inferred
// data, so callers never mistake a heuristic fallback for ground truth
type VerdictSource string

const (
	VerdictSourceLive      VerdictSource = "live"
	VerdictSourceHeuristic VerdictSource = "heuristic"
)

// DetectionRatio is an engine detection count from a file/URL reputation scan
type DetectionRatio struct {
	Positives int `json:"positives"`
	Total     int `json:"total"`
}

// ProviderVerdict is the normalized result of one provider's evaluation of
// one subject. A failed call carries only Provider, SubjectID, FetchedAt and
// Error.
type ProviderVerdict struct {
	Provider  string    `json:"provider"`
	SubjectID string    `json:"subject_id"`
	Level     RiskLevel `json:"level,omitempty"`

	// File/URL reputation
	Detections *DetectionRatio `json:"detections,omitempty"`

	// IP abuse reputation
	AbuseScore  *int   `json:"abuse_score,omitempty"`
	ReportCount int    `json:"report_count,omitempty"`
	ISP         string `json:"isp,omitempty"`

	// Phone validation
	Valid       *bool  `json:"valid,omitempty"`
	LineType    string `json:"line_type,omitempty"`
	Carrier     string `json:"carrier,omitempty"`
	CountryCode string `json:"country_code,omitempty"`

	Threats         []string      `json:"threats,omitempty"`
	Recommendations []string      `json:"recommendations,omitempty"`
	Source          VerdictSource `json:"source"`
	FetchedAt       time.Time     `json:"fetched_at"`
	Error           ErrorKind     `json:"error,omitempty"`
}

// Failed reports whether the provider call produced no usable data
func (v ProviderVerdict) Failed() bool {
	return v.Error != ErrorKindNone
}

// HeuristicFinding is the output of local, offline risk assessment. Derived
// purely from static input; deterministic given the same input.
type HeuristicFinding struct {
	Threats         []string `json:"threats,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	PrivacyScore    int      `json:"privacy_score"`
	SecurityScore   int      `json:"security_score"`
	PhoneRiskScore  int      `json:"phone_risk_score,omitempty"`
}

// RiskVerdict is the fused risk assessment for one subject. Created once per
// scan invocation and never mutated; a re-scan produces a new verdict.
type RiskVerdict struct {
	ID              uuid.UUID         `json:"id"`
	Subject         Subject           `json:"subject"`
	Level           RiskLevel         `json:"level"`
	Score           int               `json:"score"` // 0-100, higher is safer
	Threats         []string          `json:"threats"`
	Recommendations []string          `json:"recommendations"`
	Sources         []ProviderVerdict `json:"sources"`

	// Phone-specific classification. Spam determination requires a phone
	// risk score of at least 4; medium risk (2-3) is advisory only and
	// never auto-flags, to avoid false-positive call blocking.
	IsSpam         bool   `json:"is_spam,omitempty"`
	PhoneRiskScore int    `json:"phone_risk_score,omitempty"`
	PhoneRiskLevel string `json:"phone_risk_level,omitempty"` // low, medium, high

	ScannedAt time.Time `json:"scanned_at"`
}

// ScanBatchResult summarizes a batch scan. Built incrementally and finalized
// when all subjects are processed or the batch is cancelled.
type ScanBatchResult struct {
	ID          uuid.UUID     `json:"id"`
	Total       int           `json:"total"`
	Malicious   int           `json:"malicious"`
	Suspicious  int           `json:"suspicious"`
	Clean       int           `json:"clean"`
	Errors      int           `json:"errors"`
	Verdicts    []RiskVerdict `json:"verdicts"`
	Cancelled   bool          `json:"cancelled,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
}

// DeviceSecurityScore is a pure reduction of a batch of verdicts into one
// 0-100 device score with prioritized recommendations
type DeviceSecurityScore struct {
	Score           int       `json:"score"`
	ThreatCount     int       `json:"threat_count"`
	SuspiciousCount int       `json:"suspicious_count"`
	CleanCount      int       `json:"clean_count"`
	Recommendations []string  `json:"recommendations"`
	LastScan        time.Time `json:"last_scan"`
}
