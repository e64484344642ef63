package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"repwatch_backend/internal/act"
	"repwatch_backend/internal/decide"
	"repwatch_backend/internal/events"
	"repwatch_backend/internal/observe"
	"repwatch_backend/internal/orient"
	"repwatch_backend/internal/watch/domain"
	"repwatch_backend/internal/watch/repository"
	"repwatch_backend/platform/config"
	"repwatch_backend/platform/db"
	"repwatch_backend/platform/logger"
	"repwatch_backend/platform/textgen"
)

type fakeSource struct {
	name  string
	items []observe.Candidate
}

func (f *fakeSource) Name() string { return f.name }
func (f *fakeSource) Fetch(ctx context.Context, subject string) ([]observe.Candidate, error) {
	return f.items, nil
}

// scriptedGenerator answers all three stages by inspecting the input shape.
type scriptedGenerator struct {
	mu    sync.Mutex
	calls int
}

func (g *scriptedGenerator) SmokeTest(ctx context.Context) error { return nil }

func (g *scriptedGenerator) Generate(ctx context.Context, req textgen.Request) (json.RawMessage, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	data, err := json.Marshal(req.Input)
	if err != nil {
		return nil, err
	}
	var input map[string]any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, err
	}

	if _, ok := input["stats"]; ok {
		return g.actResponse(), nil
	}
	if items, ok := input["items"].([]any); ok {
		return g.orientResponse(items)
	}
	if title, ok := input["title"].(string); ok {
		return g.decideResponse(title), nil
	}
	return nil, errors.New("unrecognized input shape")
}

func (g *scriptedGenerator) orientResponse(items []any) (json.RawMessage, error) {
	var b strings.Builder
	b.WriteString(`{"assessments":[`)
	for i, raw := range items {
		item := raw.(map[string]any)
		title, _ := item["title"].(string)
		severity := 20
		if strings.Contains(title, "counterfeit") {
			severity = 75
		}
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"item_id":%q,"claim_summary":"claim","narrative_category":"supply_chain","reputational_risk":"medium","severity":%d,"confidence":"0.9","verification_steps":["a","b","c"]}`,
			item["item_id"], severity)
	}
	b.WriteString(`]}`)
	return json.RawMessage(b.String()), nil
}

func (g *scriptedGenerator) decideResponse(title string) json.RawMessage {
	switch {
	case strings.Contains(title, "counterfeit"):
		return json.RawMessage(`{"intent_framing":"THREAT","urgency":"high","escalation_team":["PR","Legal"],"recommended_action":"Escalate.","rationale":"Counterfeits harm the brand.","no_regret_move":"Document evidence."}`)
	case strings.Contains(title, "wins lawsuit"):
		return json.RawMessage(`{"intent_framing":"DEFENSE","urgency":"high","escalation_team":["Legal"],"recommended_action":"Amplify the win.","rationale":"Enforcement succeeded.","no_regret_move":"Brief the team."}`)
	default:
		return json.RawMessage(`{"intent_framing":"NEUTRAL","urgency":"low","escalation_team":[],"recommended_action":"Monitor.","rationale":"No pull.","no_regret_move":"Log it."}`)
	}
}

func (g *scriptedGenerator) actResponse() json.RawMessage {
	return json.RawMessage(`{
		"executive_summary": ["Counterfeit coverage is the main threat."],
		"situation_overview": {"top_themes": ["counterfeits"], "overall_risk_level": "medium", "what_changed": "New reports.", "why_now": "Volume spike."},
		"action_plan_next_4_hours": [
			{"priority": 1, "item_title": "Acme counterfeit ring busted", "intent_framing": "THREAT", "urgency": "high", "objective": "Contain.", "owner_team": ["PR", "Legal"], "first_3_steps": ["a", "b", "c"], "success_criteria": ["done"], "notes": ""}
		],
		"comms_package": {"internal_message_draft": "Internal.", "external_holding_statement": "We are investigating.", "optional_reinforcement_message": ""},
		"monitoring_and_triggers": {"what_to_watch": ["volume"], "update_frequency": "hourly", "escalation_triggers": ["spread"], "de_escalation_triggers": ["quiet"]},
		"risks_and_liability": {"highest_risk_if_followed_blindly": "Overreaction.", "human_judgment_overrides": ["verify first"]}
	}`)
}

func e2eProfile() *config.Profile {
	p := &config.Profile{}
	p.Observe.Keywords = []string{"counterfeit", "lawsuit", "flagship"}
	p.Observe.DaysBack = 10
	p.Orient.BatchSize = 5
	p.Orient.Workers = 2
	p.Decide.BatchLimit = 30
	p.Decide.Workers = 4
	p.Act.WindowDays = 7
	p.Act.ItemLimit = 50
	p.Act.SampleCap = 12
	return p
}

func e2eCandidates(now time.Time) []observe.Candidate {
	mk := func(id, title, snippet string) observe.Candidate {
		return observe.Candidate{
			Source:     "feed",
			ExternalID: id,
			Title:      title,
			URL:        "https://example.com/" + id,
			Snippet:    snippet,
			Published:  now.Add(-time.Hour),
		}
	}
	return []observe.Candidate{
		mk("1", "Acme counterfeit ring busted", "coverage of Acme"),
		mk("2", "Acme wins lawsuit against copycats", "coverage of Acme"),
		mk("3", "Acme opens flagship store", "coverage of Acme"),
		mk("4", "Weather improves nationwide", "no relation to the subject"),
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	ctx := context.Background()
	log := logger.New("development")

	database, err := db.OpenSQLiteAt(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.Migrate(ctx, database); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := repository.New(database)
	profile := e2eProfile()
	gen := &scriptedGenerator{}
	bus := events.NewInMemoryBus(log)
	now := time.Now()

	src := &fakeSource{name: "feed", items: e2eCandidates(now)}
	observeSvc := observe.NewService(repo, []observe.Source{src}, profile, "Acme", log)
	orientSvc := orient.NewService(repo, gen, profile, "Acme", log)
	decideSvc := decide.NewService(repo, gen, profile, "Acme", log)
	actSvc := act.NewService(repo, gen, bus, profile, "Acme", log)

	var stageMu sync.Mutex
	stages := map[string]events.StageCompleted{}
	bus.Subscribe(events.StageCompleted{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if sc, ok := e.(events.StageCompleted); ok {
			stageMu.Lock()
			stages[sc.Stage] = sc
			stageMu.Unlock()
		}
		return nil
	}))

	p := NewPipeline(observeSvc, orientSvc, decideSvc, actSvc, bus, "Acme", log)
	if err := p.Run(ctx); err != nil {
		t.Fatalf("pipeline run: %v", err)
	}
	bus.Wait()

	// The weather item is filtered attrition, not a failure.
	stageMu.Lock()
	obsEvent := stages["observe"]
	oriEvent := stages["orient"]
	stageMu.Unlock()
	if obsEvent.Failed != 0 {
		t.Errorf("observe failed = %d, want 0 for filtered candidates", obsEvent.Failed)
	}
	if obsEvent.Processed != 3 || obsEvent.Skipped != 1 {
		t.Errorf("observe event = processed %d skipped %d, want 3 and 1", obsEvent.Processed, obsEvent.Skipped)
	}
	if oriEvent.Eligible != 3 {
		t.Errorf("orient eligible = %d, want 3", oriEvent.Eligible)
	}

	// Only the three Acme items survive the relevance filter.
	decided, err := repo.ListDecidedWindow(ctx, "Acme", now.Add(-24*time.Hour), 50)
	if err != nil {
		t.Fatalf("list decided: %v", err)
	}
	if len(decided) != 3 {
		t.Fatalf("decided = %d, want 3", len(decided))
	}

	byTitle := map[string]domain.DecidedItem{}
	for _, it := range decided {
		byTitle[it.Title] = it
	}

	threat := byTitle["Acme counterfeit ring busted"]
	if threat.Decision.IntentFraming != domain.IntentThreat || threat.Decision.Urgency != domain.UrgencyHigh {
		t.Errorf("threat item decision = %+v", threat.Decision)
	}
	if threat.Assessment.Severity != 75 {
		t.Errorf("threat severity = %d, want 75", threat.Assessment.Severity)
	}

	// DEFENSE urgency is capped at medium regardless of the service output.
	defense := byTitle["Acme wins lawsuit against copycats"]
	if defense.Decision.IntentFraming != domain.IntentDefense {
		t.Errorf("defense framing = %q", defense.Decision.IntentFraming)
	}
	if defense.Decision.Urgency != domain.UrgencyMedium {
		t.Errorf("defense urgency = %q, want medium cap", defense.Decision.Urgency)
	}

	run, err := repo.LatestActRun(ctx, "Acme")
	if err != nil {
		t.Fatalf("latest act run: %v", err)
	}
	// A THREAT is present: the holding statement survives gating.
	if run.Package.Comms.ExternalHoldingStatement != "We are investigating." {
		t.Errorf("holding statement = %q", run.Package.Comms.ExternalHoldingStatement)
	}
	if run.Package.DecisionIntel.IntentDistribution["THREAT"] != 1 {
		t.Errorf("intent distribution = %v", run.Package.DecisionIntel.IntentDistribution)
	}
	if run.Package.DecisionIntel.CategoryDistribution["supply_chain"] != 3 {
		t.Errorf("category distribution = %v", run.Package.DecisionIntel.CategoryDistribution)
	}
	if run.Package.DecisionIntel.RiskDistribution["medium"] != 3 {
		t.Errorf("risk distribution = %v", run.Package.DecisionIntel.RiskDistribution)
	}

	// Re-running with the same feed content is a short cycle.
	if err := p.Run(ctx); err != ErrNoNewItems {
		t.Fatalf("second run err = %v, want ErrNoNewItems", err)
	}
}
