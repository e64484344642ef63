package act

import (
	"testing"

	"repwatch_backend/internal/watch/domain"
)

func decided(title string, severity int, intent domain.IntentFraming, urgency domain.Urgency) domain.DecidedItem {
	return domain.DecidedItem{
		Title: title,
		URL:   "https://example.com/" + title,
		Assessment: domain.RiskAssessment{
			Severity:          severity,
			NarrativeCategory: "other",
			ReputationalRisk:  domain.RiskLow,
		},
		Decision: domain.Decision{IntentFraming: intent, Urgency: urgency},
	}
}

func TestIsPriority(t *testing.T) {
	cases := []struct {
		name string
		item domain.DecidedItem
		want bool
	}{
		{"threat high", decided("a", 30, domain.IntentThreat, domain.UrgencyHigh), true},
		{"threat medium", decided("b", 30, domain.IntentThreat, domain.UrgencyMedium), true},
		{"threat low", decided("c", 30, domain.IntentThreat, domain.UrgencyLow), false},
		{"severe neutral", decided("d", 60, domain.IntentNeutral, domain.UrgencyLow), true},
		{"below floor", decided("e", 59, domain.IntentNeutral, domain.UrgencyLow), false},
		{"severe defense", decided("f", 80, domain.IntentDefense, domain.UrgencyMedium), true},
	}
	for _, tc := range cases {
		if got := IsPriority(tc.item); got != tc.want {
			t.Errorf("%s: IsPriority = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestComputeStats(t *testing.T) {
	items := []domain.DecidedItem{
		decided("worst", 90, domain.IntentThreat, domain.UrgencyHigh),
		decided("mid", 50, domain.IntentDefense, domain.UrgencyMedium),
		decided("calm", 10, domain.IntentNeutral, domain.UrgencyLow),
	}
	items[0].Assessment.NarrativeCategory = "financial"
	items[0].Assessment.ReputationalRisk = domain.RiskHigh
	items[1].Assessment.NarrativeCategory = "financial"
	items[1].Assessment.ReputationalRisk = domain.RiskMedium
	st := ComputeStats(items)

	if st.Total != 3 {
		t.Errorf("total = %d, want 3", st.Total)
	}
	if st.ThreatCount != 1 {
		t.Errorf("threats = %d, want 1", st.ThreatCount)
	}
	if st.PriorityCount != 2 {
		t.Errorf("priority = %d, want 2", st.PriorityCount)
	}
	if st.SeverityMin != 10 || st.SeverityMax != 90 {
		t.Errorf("severity range = [%d,%d], want [10,90]", st.SeverityMin, st.SeverityMax)
	}
	if st.SeverityMean != 50 {
		t.Errorf("severity mean = %v, want 50", st.SeverityMean)
	}
	if st.IntentCounts["THREAT"] != 1 || st.IntentCounts["NEUTRAL"] != 1 {
		t.Errorf("intent counts = %v", st.IntentCounts)
	}
	if st.UrgencyCounts["high"] != 1 || st.UrgencyCounts["low"] != 1 {
		t.Errorf("urgency counts = %v", st.UrgencyCounts)
	}
	if st.CategoryCounts["financial"] != 2 || st.CategoryCounts["other"] != 1 {
		t.Errorf("category counts = %v", st.CategoryCounts)
	}
	if st.RiskCounts["high"] != 1 || st.RiskCounts["medium"] != 1 || st.RiskCounts["low"] != 1 {
		t.Errorf("risk counts = %v", st.RiskCounts)
	}
	if len(st.TopBySeverity) != 3 || st.TopBySeverity[0].Title != "worst" {
		t.Errorf("top by severity = %+v", st.TopBySeverity)
	}
}

func TestComputeStatsCapsTopList(t *testing.T) {
	var items []domain.DecidedItem
	for i := 0; i < 9; i++ {
		items = append(items, decided("t", i*10, domain.IntentNeutral, domain.UrgencyLow))
	}
	st := ComputeStats(items)
	if len(st.TopBySeverity) != topItemCount {
		t.Errorf("top list = %d entries, want %d", len(st.TopBySeverity), topItemCount)
	}
	if st.TopBySeverity[0].Severity != 80 {
		t.Errorf("top severity = %d, want 80", st.TopBySeverity[0].Severity)
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	st := ComputeStats(nil)
	if st.Total != 0 || st.SeverityMean != 0 {
		t.Errorf("empty stats = %+v", st)
	}
	if st.IntentCounts == nil || st.CategoryCounts == nil || st.RiskCounts == nil || st.TopBySeverity == nil {
		t.Error("empty stats carry nil maps")
	}
}
