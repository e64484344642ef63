package domain

import "strings"

// HoldingStatementNotNeeded is the fixed sentinel the external holding
// statement must carry when no THREAT items exist in the window.
const HoldingStatementNotNeeded = "not needed"

// ActDocument is the synthesized action package: one ranked 4-hour plan plus
// its supporting context, produced by a single Act synthesis call.
type ActDocument struct {
	Timeline           map[string]string  `json:"ooda_timeline"`
	ExecutiveSummary   []string           `json:"executive_summary"`
	SituationOverview  SituationOverview  `json:"situation_overview"`
	DecisionIntel      DecisionIntel      `json:"decision_intelligence"`
	ActionPlan         []PlannedAction    `json:"action_plan_next_4_hours"`
	Comms              CommsPackage       `json:"comms_package"`
	Monitoring         MonitoringTriggers `json:"monitoring_and_triggers"`
	RisksAndLiability  RiskCaveats        `json:"risks_and_liability"`
}

// SituationOverview summarizes the current narrative landscape.
type SituationOverview struct {
	TopThemes        []string `json:"top_themes"`
	OverallRiskLevel string   `json:"overall_risk_level"`
	WhatChanged      string   `json:"what_changed"`
	WhyNow           string   `json:"why_now"`
}

// DecisionIntel echoes the computed distributions back into the package.
type DecisionIntel struct {
	IntentDistribution   map[string]int `json:"intent_distribution"`
	UrgencyDistribution  map[string]int `json:"urgency_distribution"`
	CategoryDistribution map[string]int `json:"category_distribution"`
	RiskDistribution     map[string]int `json:"reputational_risk_distribution"`
	TopItemsBySeverity   []TopItem      `json:"top_items_by_severity"`
}

// TopItem is a compact reference to a high-severity source item.
type TopItem struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Severity      int    `json:"severity"`
	IntentFraming string `json:"intent_framing"`
	Urgency       string `json:"urgency"`
}

// PlannedAction is one entry of the ranked 4-hour action plan. Every action
// cites a concrete source item title or is marked cross-cutting.
type PlannedAction struct {
	Priority        int      `json:"priority"`
	ItemTitle       string   `json:"item_title"`
	IntentFraming   string   `json:"intent_framing"`
	Urgency         string   `json:"urgency"`
	Objective       string   `json:"objective"`
	OwnerTeam       []string `json:"owner_team"`
	FirstSteps      []string `json:"first_3_steps"`
	SuccessCriteria []string `json:"success_criteria"`
	Notes           string   `json:"notes"`
}

// CrossCutting marks an action not tied to a single source item.
const CrossCutting = "cross-cutting"

// CommsPackage holds the drafted communications.
type CommsPackage struct {
	InternalMessageDraft         string `json:"internal_message_draft"`
	ExternalHoldingStatement     string `json:"external_holding_statement"`
	OptionalReinforcementMessage string `json:"optional_reinforcement_message"`
}

// MonitoringTriggers describes what to watch and when to (de)escalate.
type MonitoringTriggers struct {
	WhatToWatch          []string `json:"what_to_watch"`
	UpdateFrequency      string   `json:"update_frequency"`
	EscalationTriggers   []string `json:"escalation_triggers"`
	DeEscalationTriggers []string `json:"de_escalation_triggers"`
}

// RiskCaveats records the package's own failure modes.
type RiskCaveats struct {
	HighestRiskIfFollowedBlindly string   `json:"highest_risk_if_followed_blindly"`
	HumanJudgmentOverrides       []string `json:"human_judgment_overrides"`
}

// EnsureDefaults fills every missing top-level structure with an empty one.
// A synthesis response with absent keys still produces a persistable run.
func (d *ActDocument) EnsureDefaults() {
	if d.Timeline == nil {
		d.Timeline = map[string]string{}
	}
	if d.ExecutiveSummary == nil {
		d.ExecutiveSummary = []string{}
	}
	if d.SituationOverview.TopThemes == nil {
		d.SituationOverview.TopThemes = []string{}
	}
	if d.DecisionIntel.IntentDistribution == nil {
		d.DecisionIntel.IntentDistribution = map[string]int{}
	}
	if d.DecisionIntel.UrgencyDistribution == nil {
		d.DecisionIntel.UrgencyDistribution = map[string]int{}
	}
	if d.DecisionIntel.CategoryDistribution == nil {
		d.DecisionIntel.CategoryDistribution = map[string]int{}
	}
	if d.DecisionIntel.RiskDistribution == nil {
		d.DecisionIntel.RiskDistribution = map[string]int{}
	}
	if d.DecisionIntel.TopItemsBySeverity == nil {
		d.DecisionIntel.TopItemsBySeverity = []TopItem{}
	}
	if d.ActionPlan == nil {
		d.ActionPlan = []PlannedAction{}
	}
	if d.Monitoring.WhatToWatch == nil {
		d.Monitoring.WhatToWatch = []string{}
	}
	if d.Monitoring.EscalationTriggers == nil {
		d.Monitoring.EscalationTriggers = []string{}
	}
	if d.Monitoring.DeEscalationTriggers == nil {
		d.Monitoring.DeEscalationTriggers = []string{}
	}
	if d.RisksAndLiability.HumanJudgmentOverrides == nil {
		d.RisksAndLiability.HumanJudgmentOverrides = []string{}
	}
	for i := range d.ActionPlan {
		a := &d.ActionPlan[i]
		if a.OwnerTeam == nil {
			a.OwnerTeam = []string{}
		}
		if a.FirstSteps == nil {
			a.FirstSteps = []string{}
		}
		if a.SuccessCriteria == nil {
			a.SuccessCriteria = []string{}
		}
		if strings.TrimSpace(a.ItemTitle) == "" {
			a.ItemTitle = CrossCutting
		}
	}
}

// ApplyGating enforces the overreaction guards after synthesis, regardless of
// what the service produced. With zero THREAT items in the window the
// external holding statement is forced to the sentinel and legal roles are
// stripped from the plan.
func (d *ActDocument) ApplyGating(threatCount int) {
	if threatCount > 0 {
		return
	}
	d.Comms.ExternalHoldingStatement = HoldingStatementNotNeeded
	for i := range d.ActionPlan {
		owners := d.ActionPlan[i].OwnerTeam
		kept := owners[:0]
		for _, o := range owners {
			if !strings.EqualFold(strings.TrimSpace(o), RoleLegal) {
				kept = append(kept, o)
			}
		}
		d.ActionPlan[i].OwnerTeam = kept
	}
}
