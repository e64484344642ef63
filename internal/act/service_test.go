package act

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"repwatch_backend/internal/events"
	"repwatch_backend/internal/watch/domain"
	"repwatch_backend/platform/apperr"
	"repwatch_backend/platform/config"
	"repwatch_backend/platform/logger"
	"repwatch_backend/platform/textgen"
)

type memStore struct {
	mu    sync.Mutex
	items []domain.DecidedItem
	runs  []domain.ActRun
}

func (m *memStore) ListDecidedWindow(ctx context.Context, subject string, since time.Time, limit int) ([]domain.DecidedItem, error) {
	if len(m.items) > limit {
		return m.items[:limit], nil
	}
	return m.items, nil
}

func (m *memStore) InsertActRun(ctx context.Context, run domain.ActRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

type docGenerator struct {
	doc      domain.ActDocument
	captured synthesisInput
}

func (g *docGenerator) SmokeTest(ctx context.Context) error { return nil }

func (g *docGenerator) Generate(ctx context.Context, req textgen.Request) (json.RawMessage, error) {
	if in, ok := req.Input.(synthesisInput); ok {
		g.captured = in
	}
	return json.Marshal(g.doc)
}

func testProfile() *config.Profile {
	p := &config.Profile{}
	p.Act.WindowDays = 7
	p.Act.ItemLimit = 50
	p.Act.SampleCap = 2
	return p
}

func decidedWith(intent domain.IntentFraming, urgency domain.Urgency, severity int) domain.DecidedItem {
	return domain.DecidedItem{
		Title:      "item",
		Assessment: domain.RiskAssessment{Severity: severity},
		Decision:   domain.Decision{IntentFraming: intent, Urgency: urgency},
	}
}

func newTestService(store *memStore, gen textgen.Generator) *Service {
	log := logger.New("development")
	return NewService(store, gen, events.NewInMemoryBus(log), testProfile(), "Acme", log)
}

func TestRunEmptyWindow(t *testing.T) {
	svc := newTestService(&memStore{}, &docGenerator{})
	_, err := svc.Run(context.Background())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want KindNotFound", err)
	}
}

func TestRunPersistsPackage(t *testing.T) {
	store := &memStore{items: []domain.DecidedItem{
		decidedWith(domain.IntentThreat, domain.UrgencyHigh, 80),
	}}
	gen := &docGenerator{doc: domain.ActDocument{
		ExecutiveSummary: []string{"one line"},
		Comms:            domain.CommsPackage{ExternalHoldingStatement: "We are monitoring."},
	}}
	svc := newTestService(store, gen)

	run, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(store.runs) != 1 {
		t.Fatalf("runs stored = %d, want 1", len(store.runs))
	}
	if run.Subject != "Acme" {
		t.Errorf("subject = %q", run.Subject)
	}
	// threats present: holding statement survives
	if run.Package.Comms.ExternalHoldingStatement != "We are monitoring." {
		t.Errorf("holding statement = %q", run.Package.Comms.ExternalHoldingStatement)
	}
}

func TestRunGatesWithoutThreats(t *testing.T) {
	store := &memStore{items: []domain.DecidedItem{
		decidedWith(domain.IntentNeutral, domain.UrgencyLow, 20),
	}}
	gen := &docGenerator{doc: domain.ActDocument{
		Comms: domain.CommsPackage{ExternalHoldingStatement: "Statement anyway."},
		ActionPlan: []domain.PlannedAction{
			{Priority: 1, ItemTitle: "item", OwnerTeam: []string{"PR", "Legal"}},
		},
	}}
	svc := newTestService(store, gen)

	run, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := run.Package.Comms.ExternalHoldingStatement; got != domain.HoldingStatementNotNeeded {
		t.Errorf("holding statement = %q, want %q", got, domain.HoldingStatementNotNeeded)
	}
	for _, o := range run.Package.ActionPlan[0].OwnerTeam {
		if o == domain.RoleLegal {
			t.Error("legal owner survived a threat-free window")
		}
	}
}

func TestRunStatsAreAuthoritative(t *testing.T) {
	threat := decidedWith(domain.IntentThreat, domain.UrgencyHigh, 90)
	threat.Assessment.NarrativeCategory = "financial"
	threat.Assessment.ReputationalRisk = domain.RiskHigh
	calm := decidedWith(domain.IntentNeutral, domain.UrgencyLow, 10)
	calm.Assessment.NarrativeCategory = "other"
	calm.Assessment.ReputationalRisk = domain.RiskLow

	store := &memStore{items: []domain.DecidedItem{threat, calm}}
	gen := &docGenerator{doc: domain.ActDocument{
		DecisionIntel: domain.DecisionIntel{
			IntentDistribution: map[string]int{"THREAT": 99},
			RiskDistribution:   map[string]int{"high": 99},
		},
	}}
	svc := newTestService(store, gen)

	run, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	dist := run.Package.DecisionIntel.IntentDistribution
	if dist["THREAT"] != 1 {
		t.Errorf("threat count = %d, want computed value 1", dist["THREAT"])
	}
	if got := run.Package.DecisionIntel.CategoryDistribution; got["financial"] != 1 || got["other"] != 1 {
		t.Errorf("category distribution = %v", got)
	}
	if got := run.Package.DecisionIntel.RiskDistribution; got["high"] != 1 || got["low"] != 1 {
		t.Errorf("risk distribution = %v, want computed values", got)
	}
	if got := gen.captured.Stats.CategoryDistribution; got["financial"] != 1 {
		t.Errorf("synthesis input category distribution = %v", got)
	}
	if got := gen.captured.Stats.RiskDistribution; got["high"] != 1 || got["low"] != 1 {
		t.Errorf("synthesis input risk distribution = %v", got)
	}
}

func TestRunSamplesLargeWindows(t *testing.T) {
	store := &memStore{items: []domain.DecidedItem{
		decidedWith(domain.IntentThreat, domain.UrgencyHigh, 90),
		decidedWith(domain.IntentNeutral, domain.UrgencyLow, 50),
		decidedWith(domain.IntentNeutral, domain.UrgencyLow, 10),
	}}
	gen := &docGenerator{doc: domain.ActDocument{}}
	svc := newTestService(store, gen)

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(gen.captured.Items) != 2 {
		t.Errorf("sampled items = %d, want sample cap 2", len(gen.captured.Items))
	}
	if !gen.captured.Sampled {
		t.Error("sample flag not set")
	}
	if gen.captured.Stats.Total != 3 {
		t.Errorf("stats total = %d, want full window 3", gen.captured.Stats.Total)
	}
}

func TestRunNormalizesPlanEnums(t *testing.T) {
	store := &memStore{items: []domain.DecidedItem{
		decidedWith(domain.IntentThreat, domain.UrgencyHigh, 80),
	}}
	gen := &docGenerator{doc: domain.ActDocument{
		ActionPlan: []domain.PlannedAction{
			{Priority: 1, IntentFraming: "hostile", Urgency: "NOW", OwnerTeam: []string{"pr", "marketing"}},
		},
	}}
	svc := newTestService(store, gen)

	run, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	a := run.Package.ActionPlan[0]
	if a.IntentFraming != string(domain.IntentNeutral) {
		t.Errorf("framing = %q, want NEUTRAL fallback", a.IntentFraming)
	}
	if a.Urgency != string(domain.UrgencyLow) {
		t.Errorf("urgency = %q, want low fallback", a.Urgency)
	}
	if len(a.OwnerTeam) != 1 || a.OwnerTeam[0] != domain.RolePR {
		t.Errorf("owners = %v, want [PR]", a.OwnerTeam)
	}
}
