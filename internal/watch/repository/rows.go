package repository

import (
	"encoding/json"
	"time"

	"repwatch_backend/internal/watch/domain"
	"repwatch_backend/platform/apperr"
)

// Timestamps are stored as RFC3339 UTC text so both engines compare and sort
// them identically.
const timeLayout = time.RFC3339

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

type rawItemRow struct {
	ID           string `db:"id"`
	Source       string `db:"source"`
	SourceItemID string `db:"source_item_id"`
	Subject      string `db:"subject"`
	Title        string `db:"title"`
	URL          string `db:"url"`
	Snippet      string `db:"snippet"`
	Metadata     string `db:"metadata"`
	PublishedAt  string `db:"published_at"`
	ObservedAt   string `db:"observed_at"`
}

func rawItemToRow(it domain.RawItem) (rawItemRow, error) {
	meta := it.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return rawItemRow{}, apperr.Wrap(apperr.KindInternal, "marshal item metadata", err)
	}
	return rawItemRow{
		ID:           it.ID,
		Source:       it.Source,
		SourceItemID: it.SourceItemID,
		Subject:      it.Subject,
		Title:        it.Title,
		URL:          it.URL,
		Snippet:      it.Snippet,
		Metadata:     string(raw),
		PublishedAt:  encodeTime(it.PublishedAt),
		ObservedAt:   encodeTime(it.ObservedAt),
	}, nil
}

func (r rawItemRow) toDomain() domain.RawItem {
	meta := map[string]any{}
	_ = json.Unmarshal([]byte(r.Metadata), &meta)
	return domain.RawItem{
		ID:           r.ID,
		Source:       r.Source,
		SourceItemID: r.SourceItemID,
		Subject:      r.Subject,
		Title:        r.Title,
		URL:          r.URL,
		Snippet:      r.Snippet,
		Metadata:     meta,
		PublishedAt:  decodeTime(r.PublishedAt),
		ObservedAt:   decodeTime(r.ObservedAt),
	}
}

type orientRow struct {
	ID                string  `db:"id"`
	RawItemID         string  `db:"raw_item_id"`
	Subject           string  `db:"subject"`
	Payload           string  `db:"payload"`
	NarrativeCategory string  `db:"narrative_category"`
	ReputationalRisk  string  `db:"reputational_risk"`
	Severity          int     `db:"severity"`
	Confidence        float64 `db:"confidence"`
	CreatedAt         string  `db:"created_at"`
}

func orientToRow(rec domain.OrientRecord) (orientRow, error) {
	payload, err := json.Marshal(rec.Assessment)
	if err != nil {
		return orientRow{}, apperr.Wrap(apperr.KindInternal, "marshal assessment", err)
	}
	return orientRow{
		ID:                rec.ID,
		RawItemID:         rec.RawItemID,
		Subject:           rec.Subject,
		Payload:           string(payload),
		NarrativeCategory: rec.Assessment.NarrativeCategory,
		ReputationalRisk:  string(rec.Assessment.ReputationalRisk),
		Severity:          rec.Assessment.Severity,
		Confidence:        rec.Assessment.Confidence,
		CreatedAt:         encodeTime(rec.CreatedAt),
	}, nil
}

func (r orientRow) toDomain() domain.OrientRecord {
	var a domain.RiskAssessment
	_ = json.Unmarshal([]byte(r.Payload), &a)
	a.Normalize()
	return domain.OrientRecord{
		ID:         r.ID,
		RawItemID:  r.RawItemID,
		Subject:    r.Subject,
		Assessment: a,
		CreatedAt:  decodeTime(r.CreatedAt),
	}
}

type decideRow struct {
	ID            string `db:"id"`
	RawItemID     string `db:"raw_item_id"`
	OrientID      string `db:"orient_id"`
	Subject       string `db:"subject"`
	Payload       string `db:"payload"`
	IntentFraming string `db:"intent_framing"`
	Urgency       string `db:"urgency"`
	CreatedAt     string `db:"created_at"`
}

func decideToRow(rec domain.DecideRecord) (decideRow, error) {
	payload, err := json.Marshal(rec.Decision)
	if err != nil {
		return decideRow{}, apperr.Wrap(apperr.KindInternal, "marshal decision", err)
	}
	return decideRow{
		ID:            rec.ID,
		RawItemID:     rec.RawItemID,
		OrientID:      rec.OrientID,
		Subject:       rec.Subject,
		Payload:       string(payload),
		IntentFraming: string(rec.Decision.IntentFraming),
		Urgency:       string(rec.Decision.Urgency),
		CreatedAt:     encodeTime(rec.CreatedAt),
	}, nil
}

func (r decideRow) toDomain() domain.DecideRecord {
	var d domain.Decision
	_ = json.Unmarshal([]byte(r.Payload), &d)
	d.Normalize()
	return domain.DecideRecord{
		ID:        r.ID,
		RawItemID: r.RawItemID,
		OrientID:  r.OrientID,
		Subject:   r.Subject,
		Decision:  d,
		CreatedAt: decodeTime(r.CreatedAt),
	}
}

type actRunRow struct {
	ID        string `db:"id"`
	Subject   string `db:"subject"`
	Payload   string `db:"payload"`
	CreatedAt string `db:"created_at"`
}

func actRunToRow(run domain.ActRun) (actRunRow, error) {
	payload, err := json.Marshal(run.Package)
	if err != nil {
		return actRunRow{}, apperr.Wrap(apperr.KindInternal, "marshal action package", err)
	}
	return actRunRow{
		ID:        run.ID,
		Subject:   run.Subject,
		Payload:   string(payload),
		CreatedAt: encodeTime(run.CreatedAt),
	}, nil
}

func (r actRunRow) toDomain() domain.ActRun {
	var pkg domain.ActDocument
	_ = json.Unmarshal([]byte(r.Payload), &pkg)
	pkg.EnsureDefaults()
	return domain.ActRun{
		ID:        r.ID,
		Subject:   r.Subject,
		Package:   pkg,
		CreatedAt: decodeTime(r.CreatedAt),
	}
}

type orientedItemRow struct {
	OrientID    string `db:"orient_id"`
	RawItemID   string `db:"raw_item_id"`
	Title       string `db:"title"`
	URL         string `db:"url"`
	Snippet     string `db:"snippet"`
	PublishedAt string `db:"published_at"`
	OrientedAt  string `db:"oriented_at"`
	Payload     string `db:"payload"`
}

func (r orientedItemRow) toDomain() domain.OrientedItem {
	var a domain.RiskAssessment
	_ = json.Unmarshal([]byte(r.Payload), &a)
	a.Normalize()
	return domain.OrientedItem{
		OrientID:    r.OrientID,
		RawItemID:   r.RawItemID,
		Title:       r.Title,
		URL:         r.URL,
		Snippet:     r.Snippet,
		PublishedAt: decodeTime(r.PublishedAt),
		OrientedAt:  decodeTime(r.OrientedAt),
		Assessment:  a,
	}
}

type decidedItemRow struct {
	DecideID      string `db:"decide_id"`
	OrientID      string `db:"orient_id"`
	RawItemID     string `db:"raw_item_id"`
	Source        string `db:"source"`
	Title         string `db:"title"`
	URL           string `db:"url"`
	Snippet       string `db:"snippet"`
	PublishedAt   string `db:"published_at"`
	ObservedAt    string `db:"observed_at"`
	OrientedAt    string `db:"oriented_at"`
	DecidedAt     string `db:"decided_at"`
	OrientPayload string `db:"orient_payload"`
	DecidePayload string `db:"decide_payload"`
}

func (r decidedItemRow) toDomain() domain.DecidedItem {
	var a domain.RiskAssessment
	_ = json.Unmarshal([]byte(r.OrientPayload), &a)
	a.Normalize()
	var d domain.Decision
	_ = json.Unmarshal([]byte(r.DecidePayload), &d)
	d.Normalize()
	return domain.DecidedItem{
		DecideID:    r.DecideID,
		OrientID:    r.OrientID,
		RawItemID:   r.RawItemID,
		Source:      r.Source,
		Title:       r.Title,
		URL:         r.URL,
		Snippet:     r.Snippet,
		PublishedAt: decodeTime(r.PublishedAt),
		ObservedAt:  decodeTime(r.ObservedAt),
		OrientedAt:  decodeTime(r.OrientedAt),
		DecidedAt:   decodeTime(r.DecidedAt),
		Assessment:  a,
		Decision:    d,
	}
}
