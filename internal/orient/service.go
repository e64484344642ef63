// Package orient classifies stored items that have no risk assessment yet.
// Syndicated copies of the same story are grouped by normalized title and
// assessed once; the assessment is written for every copy in the group.
package orient

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
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

// Store is the slice of the repository the Orient stage needs.
type Store interface {
	ListUnoriented(ctx context.Context, subject string) ([]domain.RawItem, error)
	InsertOrientRecord(ctx context.Context, rec domain.OrientRecord) (bool, error)
}

// titleGroup is one story: a representative item plus its syndicated copies.
type titleGroup struct {
	rep     domain.RawItem
	members []domain.RawItem
}

type orientBatch []titleGroup

// wire types for the batched request and response. Severity and confidence
// arrive as FlexNumber because the service sometimes quotes numerics.
type wireItem struct {
	ItemID  string `json:"item_id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

type wireRequest struct {
	Subject string     `json:"subject"`
	Items   []wireItem `json:"items"`
}

type wireAssessment struct {
	ItemID            string            `json:"item_id"`
	ClaimSummary      string            `json:"claim_summary"`
	NarrativeCategory string            `json:"narrative_category"`
	ReputationalRisk  string            `json:"reputational_risk"`
	Severity          domain.FlexNumber `json:"severity"`
	Confidence        domain.FlexNumber `json:"confidence"`
	VerificationSteps []string          `json:"verification_steps"`
}

type wireResponse struct {
	Assessments []wireAssessment `json:"assessments"`
}

// Service runs the Orient stage.
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

// Run assesses every unoriented item for the subject. Batches that fail are
// dropped for this run and reselected next time. The returned summary counts
// items, not batches.
func (s *Service) Run(ctx context.Context) (pipeline.Summary, error) {
	var items pipeline.Summary

	stage := &pipeline.Stage[orientBatch, map[string]domain.RiskAssessment]{
		Name:    "orient",
		Workers: s.profile.Orient.Workers,
		Log:     s.log,
		Smoke:   s.gen.SmokeTest,
		Select: func(ctx context.Context) ([]orientBatch, error) {
			batches, err := s.selectBatches(ctx)
			if err != nil {
				return nil, err
			}
			for _, b := range batches {
				for _, g := range b {
					items.Eligible += len(g.members)
				}
			}
			return batches, nil
		},
		Dispatch: func(ctx context.Context, b orientBatch) (map[string]domain.RiskAssessment, error) {
			return s.assess(ctx, b)
		},
		Write: func(ctx context.Context, b orientBatch, assessed map[string]domain.RiskAssessment) (bool, error) {
			return s.writeBatch(ctx, b, assessed, &items)
		},
		Title: func(b orientBatch) string {
			return fmt.Sprintf("batch of %d", len(b))
		},
	}

	if _, err := stage.Run(ctx); err != nil {
		return items, err
	}
	return items, nil
}

func (s *Service) selectBatches(ctx context.Context) ([]orientBatch, error) {
	unoriented, err := s.store.ListUnoriented(ctx, s.subject)
	if err != nil {
		return nil, err
	}
	groups := groupByTitle(unoriented)

	size := s.profile.Orient.BatchSize
	var batches []orientBatch
	for start := 0; start < len(groups); start += size {
		end := min(start+size, len(groups))
		batches = append(batches, orientBatch(groups[start:end]))
	}
	return batches, nil
}

// assess sends one batch and re-associates the echoed item_ids. Assessments
// for unknown ids are discarded; items without an assessment stay unoriented.
func (s *Service) assess(ctx context.Context, b orientBatch) (map[string]domain.RiskAssessment, error) {
	req := wireRequest{Subject: s.subject}
	for _, g := range b {
		req.Items = append(req.Items, wireItem{
			ItemID:  g.rep.ID,
			Title:   g.rep.Title,
			Snippet: g.rep.Snippet,
		})
	}

	raw, err := s.gen.Generate(ctx, textgen.Request{
		Instructions: instructions,
		Input:        req,
		Timeout:      textgen.DefaultTimeout,
	})
	if err != nil {
		return nil, err
	}

	var resp wireResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apperr.Wrap(apperr.KindServiceCall, "decode assessment response", err)
	}

	known := make(map[string]bool, len(b))
	for _, g := range b {
		known[g.rep.ID] = true
	}

	assessed := make(map[string]domain.RiskAssessment, len(resp.Assessments))
	for _, wa := range resp.Assessments {
		if !known[wa.ItemID] {
			s.log.Warn("unknown_item_id_discarded", "item_id", wa.ItemID)
			continue
		}
		a := domain.RiskAssessment{
			ClaimSummary:      wa.ClaimSummary,
			NarrativeCategory: wa.NarrativeCategory,
			ReputationalRisk:  domain.RiskLevel(wa.ReputationalRisk),
			Severity:          int(wa.Severity.Float64()),
			Confidence:        wa.Confidence.Float64(),
			VerificationSteps: wa.VerificationSteps,
		}
		a.Normalize()
		assessed[wa.ItemID] = a
	}
	return assessed, nil
}

// writeBatch persists the assessment of each group for every member item.
// Returns true when at least one new record was written.
func (s *Service) writeBatch(ctx context.Context, b orientBatch, assessed map[string]domain.RiskAssessment, items *pipeline.Summary) (bool, error) {
	anyWritten := false
	for _, g := range b {
		a, ok := assessed[g.rep.ID]
		if !ok {
			items.Failed += len(g.members)
			s.log.RecordDropped("orient", g.rep.Title, apperr.New(apperr.KindServiceCall, "no assessment returned"))
			continue
		}
		for _, member := range g.members {
			written, err := s.store.InsertOrientRecord(ctx, domain.OrientRecord{
				ID:         uuid.NewString(),
				RawItemID:  member.ID,
				Subject:    s.subject,
				Assessment: a,
				CreatedAt:  s.now().UTC(),
			})
			if err != nil {
				items.Failed++
				s.log.RecordDropped("orient", member.Title, err)
				continue
			}
			if !written {
				items.Skipped++
				continue
			}
			items.Processed++
			anyWritten = true
		}
	}
	return anyWritten, nil
}

var outletSuffix = regexp.MustCompile(`\s+[-|–]\s+[^-|–]+$`)

// normalizeTitle lowers the title and strips a trailing outlet suffix
// ("Story headline - Some Outlet") so syndicated copies collate.
func normalizeTitle(title string) string {
	t := strings.ToLower(strings.Join(strings.Fields(title), " "))
	return strings.TrimSpace(outletSuffix.ReplaceAllString(t, ""))
}

// groupByTitle collates items whose normalized titles match. The first item
// of each group (newest, given selection order) represents it.
func groupByTitle(items []domain.RawItem) []titleGroup {
	index := make(map[string]int)
	var groups []titleGroup
	for _, it := range items {
		key := normalizeTitle(it.Title)
		if i, ok := index[key]; ok {
			groups[i].members = append(groups[i].members, it)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, titleGroup{rep: it, members: []domain.RawItem{it}})
	}
	return groups
}
