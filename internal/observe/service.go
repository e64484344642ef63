package observe

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"repwatch_backend/internal/watch/domain"
	"repwatch_backend/platform/config"
	"repwatch_backend/platform/logger"
)

const fetchWorkers = 10

// ItemStore is the slice of the repository the ingest needs.
type ItemStore interface {
	HasRawItem(ctx context.Context, source, sourceItemID string) (bool, error)
	InsertRawItemIfAbsent(ctx context.Context, it domain.RawItem) (bool, error)
}

// Summary is the outcome of one ingest run.
type Summary struct {
	Fetched   int
	Relevant  int
	New       int
	Duplicate int
}

// Service runs the Observe stage: fetch, filter, store once.
type Service struct {
	store   ItemStore
	sources []Source
	profile *config.Profile
	subject string
	log     *logger.Logger
	now     func() time.Time
}

func NewService(store ItemStore, sources []Source, profile *config.Profile, subject string, log *logger.Logger) *Service {
	return &Service{
		store:   store,
		sources: sources,
		profile: profile,
		subject: subject,
		log:     log.WithStage("observe"),
		now:     time.Now,
	}
}

// Run fetches all sources concurrently, keeps the relevant and recent
// candidates, and stores each at most once. Re-running never duplicates and
// Summary.New counts only rows actually written.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	candidates := s.fetchAll(ctx)

	var sum Summary
	sum.Fetched = len(candidates)
	cutoff := s.profile.ObserveCutoff(s.now())
	seen := make(map[string]bool)

	for _, c := range candidates {
		item, ok := s.filter(c, cutoff)
		if !ok {
			continue
		}
		sum.Relevant++

		key := item.Source + "\x00" + item.SourceItemID
		if seen[key] {
			sum.Duplicate++
			continue
		}
		seen[key] = true

		exists, err := s.store.HasRawItem(ctx, item.Source, item.SourceItemID)
		if err != nil {
			return sum, err
		}
		if exists {
			sum.Duplicate++
			continue
		}

		written, err := s.store.InsertRawItemIfAbsent(ctx, item)
		if err != nil {
			return sum, err
		}
		if !written {
			sum.Duplicate++
			continue
		}
		sum.New++
		s.log.RecordProgress("observe", item.Title, "source", item.Source)
	}

	s.log.StageSummary("observe", sum.New, sum.Duplicate, sum.Fetched-sum.Relevant)
	return sum, nil
}

// fetchAll pulls every source concurrently. A failing source is logged and
// skipped; it never sinks the run.
func (s *Service) fetchAll(ctx context.Context) []Candidate {
	results := make([][]Candidate, len(s.sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchWorkers)
	for i, src := range s.sources {
		g.Go(func() error {
			items, err := src.Fetch(gctx, s.subject)
			if err != nil {
				s.log.SourceSkipped(src.Name(), err)
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var all []Candidate
	for _, batch := range results {
		all = append(all, batch...)
	}
	return all
}

// filter applies the relevance and recency rules and shapes the candidate
// into a storable item. Candidates without a stable identifier or a
// publication time are dropped.
func (s *Service) filter(c Candidate, cutoff time.Time) (domain.RawItem, bool) {
	title := normalizeSpace(c.Title)
	snip := normalizeSpace(c.Snippet)

	if strings.TrimSpace(c.ExternalID) == "" {
		return domain.RawItem{}, false
	}
	if c.Published.IsZero() || c.Published.Before(cutoff) {
		return domain.RawItem{}, false
	}
	if !s.relevant(title, snip) {
		return domain.RawItem{}, false
	}

	return domain.RawItem{
		ID:           uuid.NewString(),
		Source:       c.Source,
		SourceItemID: c.ExternalID,
		Subject:      s.subject,
		Title:        title,
		URL:          c.URL,
		Snippet:      snip,
		Metadata:     c.Metadata,
		PublishedAt:  c.Published.UTC(),
		ObservedAt:   s.now().UTC(),
	}, true
}

// relevant requires the subject to appear in the title or snippet, plus at
// least one profile keyword when keywords are configured. Case-insensitive.
// An item that never mentions the subject is dropped no matter what else it
// matches.
func (s *Service) relevant(title, snippet string) bool {
	haystack := strings.ToLower(title + " " + snippet)
	if !strings.Contains(haystack, strings.ToLower(s.subject)) {
		return false
	}
	configured := false
	for _, kw := range s.profile.Observe.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		configured = true
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return !configured
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
