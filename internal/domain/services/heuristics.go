package services

import (
	"strings"

	"mobiguard/internal/domain/models"
	"mobiguard/pkg/logger"
)

// permissionPenalty maps one Android permission to its privacy/security
// deductions and the human-readable threat string
type permissionPenalty struct {
	Privacy  int
	Security int
	Threat   string
}

// permissionRiskTable is the canonical permission scoring table. The same
// table is used for every request regardless of origin; there is no
// country-based adjustment.
var permissionRiskTable = map[string]permissionPenalty{
	"READ_SMS":                   {Privacy: 20, Threat: "Can read your SMS messages"},
	"READ_CONTACTS":              {Privacy: 15, Threat: "Can read your contacts"},
	"ACCESS_FINE_LOCATION":       {Privacy: 15, Threat: "Can track your precise location"},
	"RECORD_AUDIO":               {Privacy: 15, Threat: "Can record audio"},
	"READ_CALL_LOG":              {Privacy: 15, Threat: "Can read your call history"},
	"CAMERA":                     {Privacy: 10, Threat: "Can access the camera"},
	"INSTALL_PACKAGES":           {Security: 20, Threat: "Can install other apps"},
	"BIND_ACCESSIBILITY_SERVICE": {Security: 20, Threat: "Can monitor screen content"},
	"SYSTEM_ALERT_WINDOW":        {Security: 15, Threat: "Can draw over other apps"},
	"RECEIVE_BOOT_COMPLETED":     {Security: 5, Threat: "Runs at device startup"},
}

// Carrier name fragments that indicate a disposable or virtual number
var suspiciousCarrierMarkers = []string{"voip", "virtual", "prepaid"}

// HeuristicScorer performs local, offline risk assessment from static facts.
// It does no I/O and has no time dependency, so it is always available as
// the fallback of last resort when providers are unreachable.
type HeuristicScorer struct {
	logger *logger.Logger
}

// NewHeuristicScorer creates a new HeuristicScorer
func NewHeuristicScorer(log *logger.Logger) *HeuristicScorer {
	return &HeuristicScorer{
		logger: log.WithComponent("heuristics"),
	}
}

// ScoreApp scores an app from its requested permissions. Both scores start
// at 100; each permission in the risk table subtracts its penalty and
// appends its threat string. Scores are clamped to [0,100].
func (s *HeuristicScorer) ScoreApp(permissions []string) models.HeuristicFinding {
	finding := models.HeuristicFinding{
		PrivacyScore:  100,
		SecurityScore: 100,
	}

	for _, perm := range permissions {
		penalty, ok := permissionRiskTable[normalizePermission(perm)]
		if !ok {
			continue
		}
		finding.PrivacyScore -= penalty.Privacy
		finding.SecurityScore -= penalty.Security
		finding.Threats = append(finding.Threats, penalty.Threat)
	}

	finding.PrivacyScore = clampScore(finding.PrivacyScore)
	finding.SecurityScore = clampScore(finding.SecurityScore)

	if len(finding.Threats) > 0 {
		finding.Recommendations = append(finding.Recommendations, "Review this app's permissions")
	}

	return finding
}

// ScorePhone scores a phone number from its line type and carrier name.
// Risk points: voip line type +2, suspicious carrier name +2, any other
// line type outside mobile/landline +1. Spam determination happens at
// fusion time and requires a risk score of at least 4.
func (s *HeuristicScorer) ScorePhone(lineType, carrier string) models.HeuristicFinding {
	finding := models.HeuristicFinding{
		PrivacyScore:  100,
		SecurityScore: 100,
	}

	lineType = strings.ToLower(strings.TrimSpace(lineType))

	if lineType == "voip" {
		finding.PhoneRiskScore += 2
		finding.Threats = append(finding.Threats, "VoIP number")
	} else if lineType != "mobile" && lineType != "landline" {
		finding.PhoneRiskScore++
		finding.Threats = append(finding.Threats, "Unknown line type")
	}

	carrierLower := strings.ToLower(carrier)
	for _, marker := range suspiciousCarrierMarkers {
		if strings.Contains(carrierLower, marker) {
			finding.PhoneRiskScore += 2
			finding.Threats = append(finding.Threats, "Suspicious carrier")
			break
		}
	}

	switch {
	case finding.PhoneRiskScore >= 4:
		finding.Recommendations = append(finding.Recommendations, "Block and report this number")
	case finding.PhoneRiskScore >= 2:
		finding.Recommendations = append(finding.Recommendations, "Treat calls from this number with caution")
	}

	return finding
}

// NeutralFinding returns the no-evidence baseline used for subject kinds
// that have no local heuristics
func (s *HeuristicScorer) NeutralFinding() models.HeuristicFinding {
	return models.HeuristicFinding{
		PrivacyScore:  100,
		SecurityScore: 100,
	}
}

// normalizePermission accepts both bare and fully qualified Android
// permission names
func normalizePermission(perm string) string {
	perm = strings.TrimSpace(perm)
	if idx := strings.LastIndex(perm, "."); idx >= 0 {
		perm = perm[idx+1:]
	}
	return strings.ToUpper(perm)
}

// clampScore clamps a score to [0,100]
func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
