package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"repwatch_backend/internal/watch/domain"
	"repwatch_backend/platform/apperr"
	"repwatch_backend/platform/db"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()

	database, err := db.OpenSQLiteAt(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := db.Migrate(ctx, database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(database)
}

func rawItem(source, externalID, title string, published time.Time) domain.RawItem {
	return domain.RawItem{
		ID:           uuid.NewString(),
		Source:       source,
		SourceItemID: externalID,
		Subject:      "Acme",
		Title:        title,
		URL:          "https://example.com/" + externalID,
		PublishedAt:  published,
		ObservedAt:   time.Now(),
	}
}

func assessment(severity int) domain.RiskAssessment {
	a := domain.RiskAssessment{
		ClaimSummary:      "claim",
		NarrativeCategory: "financial",
		ReputationalRisk:  domain.RiskMedium,
		Severity:          severity,
		Confidence:        0.8,
		VerificationSteps: []string{"a", "b", "c"},
	}
	return a
}

func TestInsertRawItemIfAbsent(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	now := time.Now()

	first := rawItem("feed", "ext-1", "Acme story", now)
	written, err := repo.InsertRawItemIfAbsent(ctx, first)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !written {
		t.Fatal("first insert reported not written")
	}

	dup := rawItem("feed", "ext-1", "Acme story again", now)
	written, err = repo.InsertRawItemIfAbsent(ctx, dup)
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if written {
		t.Error("duplicate external identity was written")
	}

	has, err := repo.HasRawItem(ctx, "feed", "ext-1")
	if err != nil {
		t.Fatalf("has: %v", err)
	}
	if !has {
		t.Error("HasRawItem = false for stored item")
	}
	has, err = repo.HasRawItem(ctx, "feed", "ext-2")
	if err != nil {
		t.Fatalf("has: %v", err)
	}
	if has {
		t.Error("HasRawItem = true for unknown item")
	}
}

func TestListUnoriented(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	now := time.Now()

	older := rawItem("feed", "a", "older", now.Add(-2*time.Hour))
	newer := rawItem("feed", "b", "newer", now.Add(-time.Hour))
	for _, it := range []domain.RawItem{older, newer} {
		if _, err := repo.InsertRawItemIfAbsent(ctx, it); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	items, err := repo.ListUnoriented(ctx, "Acme")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("unoriented = %d, want 2", len(items))
	}
	if items[0].Title != "newer" {
		t.Errorf("order: first = %q, want newest", items[0].Title)
	}

	ok, err := repo.InsertOrientRecord(ctx, domain.OrientRecord{
		ID:         uuid.NewString(),
		RawItemID:  newer.ID,
		Subject:    "Acme",
		Assessment: assessment(40),
		CreatedAt:  now,
	})
	if err != nil || !ok {
		t.Fatalf("orient insert: ok=%v err=%v", ok, err)
	}

	items, err = repo.ListUnoriented(ctx, "Acme")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].ID != older.ID {
		t.Errorf("oriented item still selected: %+v", items)
	}
}

func TestInsertOrientRecordClaims(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	now := time.Now()

	it := rawItem("feed", "a", "story", now)
	if _, err := repo.InsertRawItemIfAbsent(ctx, it); err != nil {
		t.Fatalf("insert: %v", err)
	}

	rec := domain.OrientRecord{
		ID:         uuid.NewString(),
		RawItemID:  it.ID,
		Subject:    "Acme",
		Assessment: assessment(70),
		CreatedAt:  now,
	}
	ok, err := repo.InsertOrientRecord(ctx, rec)
	if err != nil || !ok {
		t.Fatalf("first orient insert: ok=%v err=%v", ok, err)
	}

	second := rec
	second.ID = uuid.NewString()
	ok, err = repo.InsertOrientRecord(ctx, second)
	if err != nil {
		t.Fatalf("second orient insert: %v", err)
	}
	if ok {
		t.Error("second assessment for the same item was written")
	}
}

func seedDecidedItem(t *testing.T, repo *Repository, externalID string, severity int, published time.Time, decide bool) (rawID, orientID string) {
	t.Helper()
	ctx := context.Background()

	it := rawItem("feed", externalID, "story "+externalID, published)
	if _, err := repo.InsertRawItemIfAbsent(ctx, it); err != nil {
		t.Fatalf("insert raw: %v", err)
	}
	rec := domain.OrientRecord{
		ID:         uuid.NewString(),
		RawItemID:  it.ID,
		Subject:    "Acme",
		Assessment: assessment(severity),
		CreatedAt:  time.Now(),
	}
	if _, err := repo.InsertOrientRecord(ctx, rec); err != nil {
		t.Fatalf("insert orient: %v", err)
	}
	if decide {
		dec := domain.DecideRecord{
			ID:        uuid.NewString(),
			RawItemID: it.ID,
			OrientID:  rec.ID,
			Subject:   "Acme",
			Decision:  domain.Decision{IntentFraming: domain.IntentThreat, Urgency: domain.UrgencyHigh},
			CreatedAt: time.Now(),
		}
		if _, err := repo.InsertDecideRecord(ctx, dec); err != nil {
			t.Fatalf("insert decide: %v", err)
		}
	}
	return it.ID, rec.ID
}

func TestListUndecided(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	now := time.Now()

	seedDecidedItem(t, repo, "low", 20, now.Add(-time.Hour), false)
	seedDecidedItem(t, repo, "high", 90, now.Add(-2*time.Hour), false)
	seedDecidedItem(t, repo, "done", 50, now.Add(-time.Hour), true)
	seedDecidedItem(t, repo, "stale", 99, now.Add(-30*24*time.Hour), false)

	items, err := repo.ListUndecided(ctx, "Acme", now.Add(-7*24*time.Hour), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("undecided = %d, want 2 (decided and stale excluded)", len(items))
	}
	if items[0].Assessment.Severity != 90 {
		t.Errorf("order: first severity = %d, want 90", items[0].Assessment.Severity)
	}

	limited, err := repo.ListUndecided(ctx, "Acme", now.Add(-7*24*time.Hour), 1)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit ignored: %d items", len(limited))
	}
}

func TestInsertDecideRecordClaims(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	now := time.Now()

	rawID, orientID := seedDecidedItem(t, repo, "a", 50, now, false)

	decided, err := repo.IsDecided(ctx, orientID)
	if err != nil {
		t.Fatalf("isDecided: %v", err)
	}
	if decided {
		t.Fatal("item decided before any decision")
	}

	rec := domain.DecideRecord{
		ID:        uuid.NewString(),
		RawItemID: rawID,
		OrientID:  orientID,
		Subject:   "Acme",
		Decision:  domain.Decision{IntentFraming: domain.IntentNeutral, Urgency: domain.UrgencyLow},
		CreatedAt: now,
	}
	ok, err := repo.InsertDecideRecord(ctx, rec)
	if err != nil || !ok {
		t.Fatalf("first decide insert: ok=%v err=%v", ok, err)
	}

	second := rec
	second.ID = uuid.NewString()
	ok, err = repo.InsertDecideRecord(ctx, second)
	if err != nil {
		t.Fatalf("second decide insert: %v", err)
	}
	if ok {
		t.Error("second decision for the same orient record was written")
	}

	decided, err = repo.IsDecided(ctx, orientID)
	if err != nil {
		t.Fatalf("isDecided: %v", err)
	}
	if !decided {
		t.Error("IsDecided = false after decision")
	}
}

func TestListDecidedWindow(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	now := time.Now()

	seedDecidedItem(t, repo, "a", 80, now.Add(-time.Hour), true)
	seedDecidedItem(t, repo, "b", 40, now.Add(-2*time.Hour), true)
	seedDecidedItem(t, repo, "undec", 99, now.Add(-time.Hour), false)

	items, err := repo.ListDecidedWindow(ctx, "Acme", now.Add(-7*24*time.Hour), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("decided = %d, want 2", len(items))
	}
	if items[0].Assessment.Severity != 80 {
		t.Errorf("order: first severity = %d, want 80", items[0].Assessment.Severity)
	}
	if items[0].Decision.IntentFraming != domain.IntentThreat {
		t.Errorf("decision payload lost: %+v", items[0].Decision)
	}
}

func TestActRunLog(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	if _, err := repo.LatestActRun(ctx, "Acme"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("empty log err = %v, want KindNotFound", err)
	}

	first := domain.ActRun{
		ID:        uuid.NewString(),
		Subject:   "Acme",
		Package:   domain.ActDocument{ExecutiveSummary: []string{"first"}},
		CreatedAt: time.Now().Add(-time.Hour),
	}
	second := domain.ActRun{
		ID:        uuid.NewString(),
		Subject:   "Acme",
		Package:   domain.ActDocument{ExecutiveSummary: []string{"second"}},
		CreatedAt: time.Now(),
	}
	if err := repo.InsertActRun(ctx, first); err != nil {
		t.Fatalf("insert first: %v", err)
	}
	if err := repo.InsertActRun(ctx, second); err != nil {
		t.Fatalf("insert second: %v", err)
	}

	latest, err := repo.LatestActRun(ctx, "Acme")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(latest.Package.ExecutiveSummary) != 1 || latest.Package.ExecutiveSummary[0] != "second" {
		t.Errorf("latest = %+v, want the newer run", latest.Package.ExecutiveSummary)
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	published := time.Date(2026, 8, 12, 9, 30, 0, 0, time.UTC)
	it := rawItem("feed", "a", "story", published)
	if _, err := repo.InsertRawItemIfAbsent(ctx, it); err != nil {
		t.Fatalf("insert: %v", err)
	}

	items, err := repo.ListUnoriented(ctx, "Acme")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !items[0].PublishedAt.Equal(published) {
		t.Errorf("published round trip = %v, want %v", items[0].PublishedAt, published)
	}
}
