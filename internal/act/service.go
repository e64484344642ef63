// Package act synthesizes the decided window into one ranked action package.
// The statistics are computed locally and are authoritative; the synthesis
// call writes the plan and prose around them, and the overreaction guards run
// after it regardless of what it returned.
package act

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"repwatch_backend/internal/events"
	"repwatch_backend/internal/watch/domain"
	"repwatch_backend/platform/apperr"
	"repwatch_backend/platform/config"
	"repwatch_backend/platform/logger"
	"repwatch_backend/platform/textgen"
)

// Store is the slice of the repository the Act stage needs.
type Store interface {
	ListDecidedWindow(ctx context.Context, subject string, since time.Time, limit int) ([]domain.DecidedItem, error)
	InsertActRun(ctx context.Context, run domain.ActRun) error
}

// sampleItem is the per-item view sent to the synthesis call.
type sampleItem struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Snippet       string   `json:"snippet"`
	PublishedAt   string   `json:"published_at"`
	ClaimSummary  string   `json:"claim_summary"`
	Category      string   `json:"narrative_category"`
	Severity      int      `json:"severity"`
	IntentFraming string   `json:"intent_framing"`
	Urgency       string   `json:"urgency"`
	Recommended   string   `json:"recommended_action"`
	Escalation    []string `json:"escalation_team"`
}

type synthesisInput struct {
	Subject string          `json:"subject"`
	Window  string          `json:"window"`
	Stats   statsInput      `json:"stats"`
	Items   []sampleItem    `json:"items"`
	Sampled bool            `json:"items_are_a_sample"`
}

type statsInput struct {
	Total                int              `json:"total_items"`
	ThreatCount          int              `json:"threat_count"`
	PriorityCount        int              `json:"priority_count"`
	IntentDistribution   map[string]int   `json:"intent_distribution"`
	UrgencyDistribution  map[string]int   `json:"urgency_distribution"`
	CategoryDistribution map[string]int   `json:"category_distribution"`
	RiskDistribution     map[string]int   `json:"reputational_risk_distribution"`
	SeverityMin          int              `json:"severity_min"`
	SeverityMax          int              `json:"severity_max"`
	SeverityMean         float64          `json:"severity_mean"`
	TopBySeverity        []domain.TopItem `json:"top_items_by_severity"`
}

// Service runs the Act stage.
type Service struct {
	store   Store
	gen     textgen.Generator
	bus     events.Bus
	profile *config.Profile
	subject string
	log     *logger.Logger
	now     func() time.Time
}

func NewService(store Store, gen textgen.Generator, bus events.Bus, profile *config.Profile, subject string, log *logger.Logger) *Service {
	return &Service{
		store:   store,
		gen:     gen,
		bus:     bus,
		profile: profile,
		subject: subject,
		log:     log.WithStage("act"),
		now:     time.Now,
	}
}

// Run synthesizes one action package over the decided recency window and
// appends it to the run log. An empty window is not an error: it produces no
// run and returns KindNotFound so callers can report it.
func (s *Service) Run(ctx context.Context) (domain.ActRun, error) {
	since := s.profile.RecencyWindow(s.now())
	items, err := s.store.ListDecidedWindow(ctx, s.subject, since, s.profile.Act.ItemLimit)
	if err != nil {
		return domain.ActRun{}, err
	}
	if len(items) == 0 {
		return domain.ActRun{}, apperr.New(apperr.KindNotFound, "no decided items in window")
	}

	if err := s.gen.SmokeTest(ctx); err != nil {
		if apperr.IsFatalServiceErr(err) {
			return domain.ActRun{}, err
		}
		s.log.Warn("smoke_check_failed", "error", err.Error())
	}

	stats := ComputeStats(items)
	doc, err := s.synthesize(ctx, items, stats)
	if err != nil {
		return domain.ActRun{}, err
	}

	run := domain.ActRun{
		ID:        uuid.NewString(),
		Subject:   s.subject,
		Package:   doc,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.InsertActRun(ctx, run); err != nil {
		return domain.ActRun{}, err
	}

	s.bus.Publish(ctx, events.ActPackageReady{
		BaseEvent: events.NewBaseEvent(),
		Subject:   s.subject,
		ActRunID:  run.ID,
	})
	s.log.StageSummary("act", 1, 0, 0)
	return run, nil
}

// synthesize makes the single synthesis call and normalizes its output: the
// computed statistics replace whatever the service echoed, missing keys get
// empty structures, and the gating guards run last.
func (s *Service) synthesize(ctx context.Context, items []domain.DecidedItem, stats Stats) (domain.ActDocument, error) {
	sample := items
	sampled := false
	if limit := s.profile.Act.SampleCap; len(sample) > limit {
		sample = sample[:limit]
		sampled = true
	}

	input := synthesisInput{
		Subject: s.subject,
		Window:  fmt.Sprintf("last %d days", s.profile.Act.WindowDays),
		Sampled: sampled,
		Stats: statsInput{
			Total:                stats.Total,
			ThreatCount:          stats.ThreatCount,
			PriorityCount:        stats.PriorityCount,
			IntentDistribution:   stats.IntentCounts,
			UrgencyDistribution:  stats.UrgencyCounts,
			CategoryDistribution: stats.CategoryCounts,
			RiskDistribution:     stats.RiskCounts,
			SeverityMin:          stats.SeverityMin,
			SeverityMax:          stats.SeverityMax,
			SeverityMean:         stats.SeverityMean,
			TopBySeverity:        stats.TopBySeverity,
		},
	}
	for _, it := range sample {
		input.Items = append(input.Items, sampleItem{
			Title:         it.Title,
			URL:           it.URL,
			Snippet:       it.Snippet,
			PublishedAt:   it.PublishedAt.UTC().Format(time.RFC3339),
			ClaimSummary:  it.Assessment.ClaimSummary,
			Category:      it.Assessment.NarrativeCategory,
			Severity:      it.Assessment.Severity,
			IntentFraming: string(it.Decision.IntentFraming),
			Urgency:       string(it.Decision.Urgency),
			Recommended:   it.Decision.RecommendedAction,
			Escalation:    it.Decision.EscalationTeam,
		})
	}

	raw, err := s.gen.Generate(ctx, textgen.Request{
		Instructions: instructions,
		Input:        input,
		Timeout:      textgen.SynthesisTimeout,
	})
	if err != nil {
		return domain.ActDocument{}, err
	}

	var doc domain.ActDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.ActDocument{}, apperr.Wrap(apperr.KindServiceCall, "decode action package", err)
	}
	doc.EnsureDefaults()
	doc.DecisionIntel = domain.DecisionIntel{
		IntentDistribution:   stats.IntentCounts,
		UrgencyDistribution:  stats.UrgencyCounts,
		CategoryDistribution: stats.CategoryCounts,
		RiskDistribution:     stats.RiskCounts,
		TopItemsBySeverity:   stats.TopBySeverity,
	}

	for i := range doc.ActionPlan {
		doc.ActionPlan[i].IntentFraming = string(domain.NormalizeIntent(doc.ActionPlan[i].IntentFraming))
		doc.ActionPlan[i].Urgency = string(domain.NormalizeUrgency(doc.ActionPlan[i].Urgency))
		doc.ActionPlan[i].OwnerTeam = domain.NormalizeRoles(doc.ActionPlan[i].OwnerTeam)
	}
	doc.ApplyGating(stats.ThreatCount)
	return doc, nil
}
