// Package domain holds the core types of the monitoring pipeline: ingested
// items, per-stage classification records, and the aggregated action package.
// Rows are immutable once written; corrections are new rows, never edits.
package domain

import "time"

// RawItem is one ingested news-like item about the monitored subject.
// (source, source_item_id) is unique: re-ingesting the same external item is
// a no-op.
type RawItem struct {
	ID           string
	Source       string
	SourceItemID string
	Subject      string
	Title        string
	URL          string
	Snippet      string
	Metadata     map[string]any
	PublishedAt  time.Time
	ObservedAt   time.Time
}

// OrientRecord is the risk assessment produced for one raw item. At most one
// exists per raw item, enforced by a uniqueness constraint on raw_item_id.
type OrientRecord struct {
	ID         string
	RawItemID  string
	Subject    string
	Assessment RiskAssessment
	CreatedAt  time.Time
}

// DecideRecord is the intent/framing decision produced for one oriented
// item. At most one exists per orient record, enforced by a uniqueness
// constraint on orient_id.
type DecideRecord struct {
	ID        string
	RawItemID string
	OrientID  string
	Subject   string
	Decision  Decision
	CreatedAt time.Time
}

// ActRun is one invocation of the Act stage: an append-only log where the
// latest row is current.
type ActRun struct {
	ID        string
	Subject   string
	Package   ActDocument
	CreatedAt time.Time
}

// OrientedItem is the Decide stage's selection view: an orient record joined
// with its raw item.
type OrientedItem struct {
	OrientID    string
	RawItemID   string
	Title       string
	URL         string
	Snippet     string
	PublishedAt time.Time
	OrientedAt  time.Time
	Assessment  RiskAssessment
}

// DecidedItem is the Act stage's selection view: a decide record joined with
// its orient record and raw item.
type DecidedItem struct {
	DecideID    string
	OrientID    string
	RawItemID   string
	Source      string
	Title       string
	URL         string
	Snippet     string
	PublishedAt time.Time
	ObservedAt  time.Time
	OrientedAt  time.Time
	DecidedAt   time.Time
	Assessment  RiskAssessment
	Decision    Decision
}
