// Package decide turns risk assessments into response decisions. Items that
// never mention the subject are classified as noise locally, without spending
// a service call.
package decide

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"repwatch_backend/internal/pipeline"
	"repwatch_backend/internal/watch/domain"
	"repwatch_backend/platform/apperr"
	"repwatch_backend/platform/config"
	"repwatch_backend/platform/logger"
	"repwatch_backend/platform/textgen"
)

// Store is the slice of the repository the Decide stage needs.
type Store interface {
	ListUndecided(ctx context.Context, subject string, since time.Time, limit int) ([]domain.OrientedItem, error)
	IsDecided(ctx context.Context, orientID string) (bool, error)
	InsertDecideRecord(ctx context.Context, rec domain.DecideRecord) (bool, error)
}

type wireDecision struct {
	IntentFraming     string   `json:"intent_framing"`
	Urgency           string   `json:"urgency"`
	EscalationTeam    []string `json:"escalation_team"`
	RecommendedAction string   `json:"recommended_action"`
	Rationale         string   `json:"rationale"`
	NoRegretMove      string   `json:"no_regret_move"`
}

type itemInput struct {
	Subject    string                `json:"subject"`
	Title      string                `json:"title"`
	URL        string                `json:"url"`
	Snippet    string                `json:"snippet"`
	Assessment domain.RiskAssessment `json:"assessment"`
}

// Service runs the Decide stage.
type Service struct {
	store   Store
	gen     textgen.Generator
	profile *config.Profile
	subject string
	log     *logger.Logger
	now     func() time.Time
}

func NewService(store Store, gen textgen.Generator, profile *config.Profile, subject string, log *logger.Logger) *Service {
	return &Service{
		store:   store,
		gen:     gen,
		profile: profile,
		subject: subject,
		log:     log,
		now:     time.Now,
	}
}

// Run decides every undecided oriented item inside the recency window, most
// severe first, up to the configured batch limit.
func (s *Service) Run(ctx context.Context) (pipeline.Summary, error) {
	stage := &pipeline.Stage[domain.OrientedItem, domain.Decision]{
		Name:    "decide",
		Workers: s.profile.Decide.Workers,
		Log:     s.log,
		Smoke:   s.gen.SmokeTest,
		Select: func(ctx context.Context) ([]domain.OrientedItem, error) {
			since := s.profile.RecencyWindow(s.now())
			return s.store.ListUndecided(ctx, s.subject, since, s.profile.Decide.BatchLimit)
		},
		Dispatch: s.decide,
		Write: func(ctx context.Context, it domain.OrientedItem, d domain.Decision) (bool, error) {
			return s.store.InsertDecideRecord(ctx, domain.DecideRecord{
				ID:        uuid.NewString(),
				RawItemID: it.RawItemID,
				OrientID:  it.OrientID,
				Subject:   s.subject,
				Decision:  d,
				CreatedAt: s.now().UTC(),
			})
		},
		Title: func(it domain.OrientedItem) string { return it.Title },
	}
	return stage.Run(ctx)
}

// decide produces the decision for one item. The relevance guard runs first:
// an item whose title, snippet, and URL never mention the subject gets the
// fixed noise record without a service call. A concurrent run may have
// decided the item already; that is detected here and again on write.
func (s *Service) decide(ctx context.Context, it domain.OrientedItem) (domain.Decision, error) {
	done, err := s.store.IsDecided(ctx, it.OrientID)
	if err != nil {
		return domain.Decision{}, err
	}
	if done {
		return domain.NoiseDecision(s.subject), nil
	}

	if !s.mentionsSubject(it) {
		return domain.NoiseDecision(s.subject), nil
	}

	raw, err := s.gen.Generate(ctx, textgen.Request{
		Instructions: instructions,
		Input: itemInput{
			Subject:    s.subject,
			Title:      it.Title,
			URL:        it.URL,
			Snippet:    it.Snippet,
			Assessment: it.Assessment,
		},
		Timeout: textgen.DefaultTimeout,
	})
	if err != nil {
		return domain.Decision{}, err
	}

	var wd wireDecision
	if err := json.Unmarshal(raw, &wd); err != nil {
		return domain.Decision{}, apperr.Wrap(apperr.KindServiceCall, "decode decision response", err)
	}

	d := domain.Decision{
		IntentFraming:     domain.IntentFraming(wd.IntentFraming),
		Urgency:           domain.Urgency(wd.Urgency),
		EscalationTeam:    wd.EscalationTeam,
		RecommendedAction: wd.RecommendedAction,
		Rationale:         wd.Rationale,
		NoRegretMove:      wd.NoRegretMove,
	}
	d.Normalize()
	return d, nil
}

func (s *Service) mentionsSubject(it domain.OrientedItem) bool {
	needle := strings.ToLower(s.subject)
	hay := strings.ToLower(it.Title + " " + it.Snippet + " " + it.URL)
	return strings.Contains(hay, needle)
}
