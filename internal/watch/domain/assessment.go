package domain

import "strings"

// VerificationStepCount is the fixed number of verification steps an
// assessment carries.
const VerificationStepCount = 3

// RiskAssessment is the Orient stage's structured result for one item.
type RiskAssessment struct {
	ClaimSummary      string    `json:"claim_summary"`
	NarrativeCategory string    `json:"narrative_category"`
	ReputationalRisk  RiskLevel `json:"reputational_risk"`
	Severity          int       `json:"severity"`
	Confidence        float64   `json:"confidence"`
	VerificationSteps []string  `json:"verification_steps"`
}

// Normalize coerces every field to its allowed set: enums to their closed
// values, numerics to their ranges, verification steps to exactly three
// entries. A violating field gets a safe default; the record is never
// rejected for schema drift.
func (a *RiskAssessment) Normalize() {
	a.ClaimSummary = strings.TrimSpace(a.ClaimSummary)
	a.NarrativeCategory = NormalizeCategory(a.NarrativeCategory)
	a.ReputationalRisk = NormalizeRisk(string(a.ReputationalRisk))
	a.Severity = ClampSeverity(float64(a.Severity))
	a.Confidence = ClampConfidence(a.Confidence)

	steps := make([]string, 0, VerificationStepCount)
	for _, s := range a.VerificationSteps {
		if s = strings.TrimSpace(s); s != "" {
			steps = append(steps, s)
		}
		if len(steps) == VerificationStepCount {
			break
		}
	}
	for len(steps) < VerificationStepCount {
		steps = append(steps, "Verify against the primary source.")
	}
	a.VerificationSteps = steps
}

// Decision is the Decide stage's structured result for one oriented item.
type Decision struct {
	IntentFraming     IntentFraming `json:"intent_framing"`
	Urgency           Urgency       `json:"urgency"`
	EscalationTeam    []string      `json:"escalation_team"`
	RecommendedAction string        `json:"recommended_action"`
	Rationale         string        `json:"rationale"`
	NoRegretMove      string        `json:"no_regret_move"`
}

// Normalize coerces the decision to policy:
//   - intent_framing outside the 5-value enum becomes NEUTRAL
//   - urgency outside low/medium/high becomes low
//   - escalation_team is reduced to known role tags
//   - NEUTRAL and NOISE items must carry an empty escalation set
//   - DEFENSE caps urgency at medium (enforcement already happened; the
//     subject is not the accused party)
func (d *Decision) Normalize() {
	d.IntentFraming = NormalizeIntent(string(d.IntentFraming))
	d.Urgency = NormalizeUrgency(string(d.Urgency))
	d.EscalationTeam = NormalizeRoles(d.EscalationTeam)
	d.RecommendedAction = strings.TrimSpace(d.RecommendedAction)
	d.Rationale = strings.TrimSpace(d.Rationale)
	d.NoRegretMove = strings.TrimSpace(d.NoRegretMove)

	switch d.IntentFraming {
	case IntentNeutral, IntentNoise:
		d.EscalationTeam = []string{}
	case IntentDefense:
		if d.Urgency == UrgencyHigh {
			d.Urgency = UrgencyMedium
		}
	}
}

// NoiseDecision is the fixed record written when the local relevance guard
// short-circuits a Decide dispatch: the subject's name never appears in the
// item, so no service call is spent on it.
func NoiseDecision(subject string) Decision {
	return Decision{
		IntentFraming:     IntentNoise,
		Urgency:           UrgencyLow,
		EscalationTeam:    []string{},
		RecommendedAction: "Ignore; deprioritize in monitoring.",
		Rationale:         "Item does not mention " + subject + " in its title, snippet, or URL; classified as noise without analysis.",
		NoRegretMove:      "Keep the item logged for trend context.",
	}
}
