// Package repository persists pipeline rows behind a dual-engine store.
// Queries are written with `?` placeholders and rebound per engine; inserts
// rely on ON CONFLICT DO NOTHING so concurrent stage runs never double-write.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"repwatch_backend/internal/watch/domain"
	"repwatch_backend/platform/apperr"
	"repwatch_backend/platform/db"
)

type Repository struct {
	db *db.DB
}

func New(database *db.DB) *Repository {
	return &Repository{db: database}
}

// InsertRawItemIfAbsent writes the item unless (source, source_item_id)
// already exists. Returns true when a new row was written.
func (r *Repository) InsertRawItemIfAbsent(ctx context.Context, it domain.RawItem) (bool, error) {
	row, err := rawItemToRow(it)
	if err != nil {
		return false, err
	}
	q := r.db.Rebind(`
		INSERT INTO raw_items (id, source, source_item_id, subject, title, url, snippet, metadata, published_at, observed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source, source_item_id) DO NOTHING`)
	res, err := r.db.ExecContext(ctx, q,
		row.ID, row.Source, row.SourceItemID, row.Subject, row.Title,
		row.URL, row.Snippet, row.Metadata, row.PublishedAt, row.ObservedAt)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "insert raw item", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "insert raw item", err)
	}
	return n > 0, nil
}

// HasRawItem reports whether an item with this external identity is already
// stored, regardless of subject.
func (r *Repository) HasRawItem(ctx context.Context, source, sourceItemID string) (bool, error) {
	var one int
	q := r.db.Rebind(`SELECT 1 FROM raw_items WHERE source = ? AND source_item_id = ?`)
	err := r.db.GetContext(ctx, &one, q, source, sourceItemID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "check raw item", err)
	}
	return true, nil
}

// ListUnoriented returns raw items for the subject that have no orient
// record yet, newest published first.
func (r *Repository) ListUnoriented(ctx context.Context, subject string) ([]domain.RawItem, error) {
	var rows []rawItemRow
	q := r.db.Rebind(`
		SELECT ri.id, ri.source, ri.source_item_id, ri.subject, ri.title, ri.url,
		       ri.snippet, ri.metadata, ri.published_at, ri.observed_at
		FROM raw_items ri
		LEFT JOIN orient_records orr ON orr.raw_item_id = ri.id
		WHERE ri.subject = ? AND orr.id IS NULL
		ORDER BY ri.published_at DESC`)
	if err := r.db.SelectContext(ctx, &rows, q, subject); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list unoriented items", err)
	}
	items := make([]domain.RawItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toDomain())
	}
	return items, nil
}

// InsertOrientRecord writes the assessment unless the raw item already has
// one. Returns true when the row was written; false means another run
// claimed the item first.
func (r *Repository) InsertOrientRecord(ctx context.Context, rec domain.OrientRecord) (bool, error) {
	row, err := orientToRow(rec)
	if err != nil {
		return false, err
	}
	q := r.db.Rebind(`
		INSERT INTO orient_records (id, raw_item_id, subject, payload, narrative_category, reputational_risk, severity, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (raw_item_id) DO NOTHING`)
	res, err := r.db.ExecContext(ctx, q,
		row.ID, row.RawItemID, row.Subject, row.Payload, row.NarrativeCategory,
		row.ReputationalRisk, row.Severity, row.Confidence, row.CreatedAt)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "insert orient record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "insert orient record", err)
	}
	return n > 0, nil
}

// ListUndecided returns oriented items for the subject inside the recency
// window that have no decide record yet, most severe first, capped at limit.
func (r *Repository) ListUndecided(ctx context.Context, subject string, since time.Time, limit int) ([]domain.OrientedItem, error) {
	var rows []orientedItemRow
	q := r.db.Rebind(`
		SELECT orr.id AS orient_id, ri.id AS raw_item_id, ri.title, ri.url, ri.snippet,
		       ri.published_at, orr.created_at AS oriented_at, orr.payload
		FROM orient_records orr
		JOIN raw_items ri ON ri.id = orr.raw_item_id
		WHERE orr.subject = ?
		  AND ri.published_at >= ?
		  AND NOT EXISTS (SELECT 1 FROM decide_records dr WHERE dr.orient_id = orr.id)
		ORDER BY orr.severity DESC, ri.published_at DESC
		LIMIT ?`)
	if err := r.db.SelectContext(ctx, &rows, q, subject, encodeTime(since), limit); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list undecided items", err)
	}
	items := make([]domain.OrientedItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toDomain())
	}
	return items, nil
}

// IsDecided reports whether the orient record already has a decision.
func (r *Repository) IsDecided(ctx context.Context, orientID string) (bool, error) {
	var one int
	q := r.db.Rebind(`SELECT 1 FROM decide_records WHERE orient_id = ?`)
	err := r.db.GetContext(ctx, &one, q, orientID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "check decide record", err)
	}
	return true, nil
}

// InsertDecideRecord writes the decision unless the orient record already
// has one. Returns true when the row was written.
func (r *Repository) InsertDecideRecord(ctx context.Context, rec domain.DecideRecord) (bool, error) {
	row, err := decideToRow(rec)
	if err != nil {
		return false, err
	}
	q := r.db.Rebind(`
		INSERT INTO decide_records (id, raw_item_id, orient_id, subject, payload, intent_framing, urgency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (orient_id) DO NOTHING`)
	res, err := r.db.ExecContext(ctx, q,
		row.ID, row.RawItemID, row.OrientID, row.Subject, row.Payload,
		row.IntentFraming, row.Urgency, row.CreatedAt)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "insert decide record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "insert decide record", err)
	}
	return n > 0, nil
}

// ListDecidedWindow returns fully decided items for the subject inside the
// recency window, most severe first.
func (r *Repository) ListDecidedWindow(ctx context.Context, subject string, since time.Time, limit int) ([]domain.DecidedItem, error) {
	var rows []decidedItemRow
	q := r.db.Rebind(`
		SELECT dr.id AS decide_id, orr.id AS orient_id, ri.id AS raw_item_id,
		       ri.source, ri.title, ri.url, ri.snippet, ri.published_at, ri.observed_at,
		       orr.created_at AS oriented_at, dr.created_at AS decided_at,
		       orr.payload AS orient_payload, dr.payload AS decide_payload
		FROM decide_records dr
		JOIN orient_records orr ON orr.id = dr.orient_id
		JOIN raw_items ri ON ri.id = dr.raw_item_id
		WHERE dr.subject = ? AND ri.published_at >= ?
		ORDER BY orr.severity DESC, ri.published_at DESC
		LIMIT ?`)
	if err := r.db.SelectContext(ctx, &rows, q, subject, encodeTime(since), limit); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list decided items", err)
	}
	items := make([]domain.DecidedItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toDomain())
	}
	return items, nil
}

// InsertActRun appends one act run.
func (r *Repository) InsertActRun(ctx context.Context, run domain.ActRun) error {
	row, err := actRunToRow(run)
	if err != nil {
		return err
	}
	q := r.db.Rebind(`INSERT INTO act_runs (id, subject, payload, created_at) VALUES (?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, q, row.ID, row.Subject, row.Payload, row.CreatedAt); err != nil {
		return apperr.Wrap(apperr.KindInternal, "insert act run", err)
	}
	return nil
}

// LatestActRun returns the most recent act run for the subject.
func (r *Repository) LatestActRun(ctx context.Context, subject string) (domain.ActRun, error) {
	var row actRunRow
	q := r.db.Rebind(`
		SELECT id, subject, payload, created_at
		FROM act_runs
		WHERE subject = ?
		ORDER BY created_at DESC
		LIMIT 1`)
	err := r.db.GetContext(ctx, &row, q, subject)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ActRun{}, apperr.New(apperr.KindNotFound, "no act run recorded")
	}
	if err != nil {
		return domain.ActRun{}, apperr.Wrap(apperr.KindInternal, "load act run", err)
	}
	return row.toDomain(), nil
}

// ListRawSince returns raw items for the subject observed at or after the
// cutoff, newest published first. Used by the report writers.
func (r *Repository) ListRawSince(ctx context.Context, subject string, since time.Time) ([]domain.RawItem, error) {
	var rows []rawItemRow
	q := r.db.Rebind(`
		SELECT id, source, source_item_id, subject, title, url, snippet, metadata, published_at, observed_at
		FROM raw_items
		WHERE subject = ? AND observed_at >= ?
		ORDER BY published_at DESC`)
	if err := r.db.SelectContext(ctx, &rows, q, subject, encodeTime(since)); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list raw items", err)
	}
	items := make([]domain.RawItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toDomain())
	}
	return items, nil
}

// ListOrientWindow returns orient records for the subject created at or
// after the cutoff, most severe first.
func (r *Repository) ListOrientWindow(ctx context.Context, subject string, since time.Time) ([]domain.OrientRecord, error) {
	var rows []orientRow
	q := r.db.Rebind(`
		SELECT id, raw_item_id, subject, payload, narrative_category, reputational_risk, severity, confidence, created_at
		FROM orient_records
		WHERE subject = ? AND created_at >= ?
		ORDER BY severity DESC, created_at DESC`)
	if err := r.db.SelectContext(ctx, &rows, q, subject, encodeTime(since)); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list orient records", err)
	}
	recs := make([]domain.OrientRecord, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.toDomain())
	}
	return recs, nil
}
