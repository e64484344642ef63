package act

import (
	"sort"

	"repwatch_backend/internal/watch/domain"
)

// severityPriorityFloor is the severity at which an item is priority
// regardless of framing.
const severityPriorityFloor = 60

// topItemCount caps the top-severity list fed into the package.
const topItemCount = 5

// Stats are the locally computed aggregates over the decided window. They
// are authoritative: the synthesis call receives them as input and its
// output never overrides them.
type Stats struct {
	Total          int
	ThreatCount    int
	PriorityCount  int
	IntentCounts   map[string]int
	UrgencyCounts  map[string]int
	CategoryCounts map[string]int
	RiskCounts     map[string]int
	SeverityMin    int
	SeverityMax    int
	SeverityMean   float64
	TopBySeverity  []domain.TopItem
}

// IsPriority reports whether one decided item demands attention in the next
// window: a THREAT at medium or high urgency, or anything at severity 60+.
func IsPriority(it domain.DecidedItem) bool {
	if it.Assessment.Severity >= severityPriorityFloor {
		return true
	}
	return it.Decision.IntentFraming == domain.IntentThreat &&
		(it.Decision.Urgency == domain.UrgencyMedium || it.Decision.Urgency == domain.UrgencyHigh)
}

// ComputeStats aggregates the decided window.
func ComputeStats(items []domain.DecidedItem) Stats {
	st := Stats{
		Total:          len(items),
		IntentCounts:   map[string]int{},
		UrgencyCounts:  map[string]int{},
		CategoryCounts: map[string]int{},
		RiskCounts:     map[string]int{},
		TopBySeverity:  []domain.TopItem{},
	}
	if len(items) == 0 {
		return st
	}

	st.SeverityMin = items[0].Assessment.Severity
	sum := 0
	for _, it := range items {
		st.IntentCounts[string(it.Decision.IntentFraming)]++
		st.UrgencyCounts[string(it.Decision.Urgency)]++
		st.CategoryCounts[it.Assessment.NarrativeCategory]++
		st.RiskCounts[string(it.Assessment.ReputationalRisk)]++
		sev := it.Assessment.Severity
		sum += sev
		if sev < st.SeverityMin {
			st.SeverityMin = sev
		}
		if sev > st.SeverityMax {
			st.SeverityMax = sev
		}
		if it.Decision.IntentFraming == domain.IntentThreat {
			st.ThreatCount++
		}
		if IsPriority(it) {
			st.PriorityCount++
		}
	}
	st.SeverityMean = float64(sum) / float64(len(items))

	ranked := make([]domain.DecidedItem, len(items))
	copy(ranked, items)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Assessment.Severity > ranked[j].Assessment.Severity
	})
	for _, it := range ranked[:min(topItemCount, len(ranked))] {
		st.TopBySeverity = append(st.TopBySeverity, domain.TopItem{
			Title:         it.Title,
			URL:           it.URL,
			Severity:      it.Assessment.Severity,
			IntentFraming: string(it.Decision.IntentFraming),
			Urgency:       string(it.Decision.Urgency),
		})
	}
	return st
}
