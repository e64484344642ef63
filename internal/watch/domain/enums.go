package domain

import "strings"

// IntentFraming classifies an item's stance toward the subject.
type IntentFraming string

const (
	IntentThreat      IntentFraming = "THREAT"
	IntentDefense     IntentFraming = "DEFENSE"
	IntentOpportunity IntentFraming = "OPPORTUNITY"
	IntentNeutral     IntentFraming = "NEUTRAL"
	IntentNoise       IntentFraming = "NOISE"
)

// NormalizeIntent coerces an arbitrary service string to the closed enum.
// Out-of-enum values become NEUTRAL rather than failing the record: a
// parseable but off-policy response should still yield a conservative row.
func NormalizeIntent(s string) IntentFraming {
	switch IntentFraming(strings.ToUpper(strings.TrimSpace(s))) {
	case IntentThreat:
		return IntentThreat
	case IntentDefense:
		return IntentDefense
	case IntentOpportunity:
		return IntentOpportunity
	case IntentNoise:
		return IntentNoise
	case IntentNeutral:
		return IntentNeutral
	default:
		return IntentNeutral
	}
}

// Urgency is the qualitative response urgency of a decided item.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// NormalizeUrgency coerces an arbitrary service string to the closed enum,
// defaulting low.
func NormalizeUrgency(s string) Urgency {
	switch Urgency(strings.ToLower(strings.TrimSpace(s))) {
	case UrgencyMedium:
		return UrgencyMedium
	case UrgencyHigh:
		return UrgencyHigh
	default:
		return UrgencyLow
	}
}

// RiskLevel is the qualitative reputational risk of an assessed item.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// NormalizeRisk coerces an arbitrary service string to the closed enum,
// defaulting low.
func NormalizeRisk(s string) RiskLevel {
	switch RiskLevel(strings.ToLower(strings.TrimSpace(s))) {
	case RiskMedium:
		return RiskMedium
	case RiskHigh:
		return RiskHigh
	default:
		return RiskLow
	}
}

// Narrative categories the Orient stage may assign.
const (
	CategorySupplyChain         = "supply_chain"
	CategoryCulturalControversy = "cultural_controversy"
	CategoryFinancial           = "financial"
	CategoryFakeNews            = "fake_news"
	CategoryOther               = "other"
)

// NormalizeCategory coerces an arbitrary service string to the closed
// category set, defaulting other.
func NormalizeCategory(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case CategorySupplyChain:
		return CategorySupplyChain
	case CategoryCulturalControversy:
		return CategoryCulturalControversy
	case CategoryFinancial:
		return CategoryFinancial
	case CategoryFakeNews:
		return CategoryFakeNews
	default:
		return CategoryOther
	}
}

// Escalation role tags.
const (
	RolePR       = "PR"
	RoleLegal    = "Legal"
	RoleSecurity = "Security"
	RoleExec     = "Exec"
	RoleSocial   = "Social"
)

var knownRoles = map[string]string{
	"pr":       RolePR,
	"legal":    RoleLegal,
	"security": RoleSecurity,
	"exec":     RoleExec,
	"social":   RoleSocial,
}

// NormalizeRoles coerces a free-form role list to the known tags, dropping
// unknown entries and duplicates.
func NormalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	seen := map[string]bool{}
	for _, r := range roles {
		tag, ok := knownRoles[strings.ToLower(strings.TrimSpace(r))]
		if !ok || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// ClampSeverity bounds severity to [0,100].
func ClampSeverity(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}

// ClampConfidence bounds confidence to [0,1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
