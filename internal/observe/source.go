// Package observe ingests news-like items about the monitored subject from
// configured sources, filters them for relevance and recency, and stores the
// survivors exactly once.
package observe

import (
	"context"
	"time"
)

// Candidate is one item as a source emitted it, before filtering.
type Candidate struct {
	Source     string
	ExternalID string
	Title      string
	URL        string
	Snippet    string
	Published  time.Time
	Metadata   map[string]any
}

// Source produces candidates for a subject. A source that fails is skipped
// for the run; the others still contribute.
type Source interface {
	Name() string
	Fetch(ctx context.Context, subject string) ([]Candidate, error)
}
