// Package reports writes the artifacts of a pipeline run into a
// timestamped run directory: per-stage JSON and CSV extracts, the action
// package, a Markdown brief, and a spreadsheet for hand-off.
package reports

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"repwatch_backend/internal/watch/domain"
	"repwatch_backend/platform/apperr"
	"repwatch_backend/platform/config"
	"repwatch_backend/platform/logger"
)

// Store is the slice of the repository the report writers need.
type Store interface {
	ListRawSince(ctx context.Context, subject string, since time.Time) ([]domain.RawItem, error)
	ListOrientWindow(ctx context.Context, subject string, since time.Time) ([]domain.OrientRecord, error)
	ListDecidedWindow(ctx context.Context, subject string, since time.Time, limit int) ([]domain.DecidedItem, error)
}

// Service writes run artifacts.
type Service struct {
	store   Store
	profile *config.Profile
	subject string
	outDir  string
	log     *logger.Logger
	now     func() time.Time
}

func NewService(store Store, profile *config.Profile, subject string, cfg config.ReportConfig, log *logger.Logger) *Service {
	return &Service{
		store:   store,
		profile: profile,
		subject: subject,
		outDir:  cfg.GetOutputDir(),
		log:     log,
		now:     time.Now,
	}
}

// Write materializes all artifacts for one act run and returns the run
// directory path.
func (s *Service) Write(ctx context.Context, run domain.ActRun) (string, error) {
	dir, err := s.runDir(run)
	if err != nil {
		return "", err
	}

	since := s.profile.RecencyWindow(s.now())
	raw, err := s.store.ListRawSince(ctx, s.subject, since)
	if err != nil {
		return "", err
	}
	oriented, err := s.store.ListOrientWindow(ctx, s.subject, since)
	if err != nil {
		return "", err
	}
	decided, err := s.store.ListDecidedWindow(ctx, s.subject, since, s.profile.Act.ItemLimit)
	if err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(dir, "observe_items.json"), raw); err != nil {
		return "", err
	}
	if err := s.writeItemsCSV(filepath.Join(dir, "observe_items.csv"), raw); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, "orient_records.json"), oriented); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, "decided_items.json"), decided); err != nil {
		return "", err
	}
	if err := s.writeDecidedCSV(filepath.Join(dir, "decided_items.csv"), decided); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, "action_package.json"), run.Package); err != nil {
		return "", err
	}
	if err := s.writeBrief(filepath.Join(dir, "brief.md"), run, decided); err != nil {
		return "", err
	}
	if err := s.writeWorkbook(filepath.Join(dir, "summary.xlsx"), raw, oriented, decided); err != nil {
		return "", err
	}

	s.log.Info("run_artifacts_written", "dir", dir, "items", len(raw), "decided", len(decided))
	return dir, nil
}

func (s *Service) runDir(run domain.ActRun) (string, error) {
	stamp := run.CreatedAt.UTC().Format("20060102T150405Z")
	short := run.ID
	if len(short) > 8 {
		short = short[:8]
	}
	dir := filepath.Join(s.outDir, stamp+"_"+short)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "create run directory", err)
	}
	return dir, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "encode report "+filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperr.Wrap(apperr.KindInternal, "write report "+filepath.Base(path), err)
	}
	return nil
}

func (s *Service) writeItemsCSV(path string, items []domain.RawItem) error {
	f, err := os.Create(path)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "create report "+filepath.Base(path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"source", "title", "url", "published_at", "observed_at"}); err != nil {
		return apperr.Wrap(apperr.KindInternal, "write report header", err)
	}
	for _, it := range items {
		row := []string{
			it.Source,
			it.Title,
			it.URL,
			it.PublishedAt.UTC().Format(time.RFC3339),
			it.ObservedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return apperr.Wrap(apperr.KindInternal, "write report row", err)
		}
	}
	w.Flush()
	return w.Error()
}

func (s *Service) writeDecidedCSV(path string, items []domain.DecidedItem) error {
	f, err := os.Create(path)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "create report "+filepath.Base(path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"title", "url", "published_at", "narrative_category", "reputational_risk",
		"severity", "confidence", "intent_framing", "urgency", "escalation_team",
		"recommended_action",
	}
	if err := w.Write(header); err != nil {
		return apperr.Wrap(apperr.KindInternal, "write report header", err)
	}
	for _, it := range items {
		row := []string{
			it.Title,
			it.URL,
			it.PublishedAt.UTC().Format(time.RFC3339),
			it.Assessment.NarrativeCategory,
			string(it.Assessment.ReputationalRisk),
			strconv.Itoa(it.Assessment.Severity),
			strconv.FormatFloat(it.Assessment.Confidence, 'f', 2, 64),
			string(it.Decision.IntentFraming),
			string(it.Decision.Urgency),
			strings.Join(it.Decision.EscalationTeam, ";"),
			it.Decision.RecommendedAction,
		}
		if err := w.Write(row); err != nil {
			return apperr.Wrap(apperr.KindInternal, "write report row", err)
		}
	}
	w.Flush()
	return w.Error()
}

func (s *Service) writeBrief(path string, run domain.ActRun, decided []domain.DecidedItem) error {
	var b strings.Builder
	pkg := run.Package

	fmt.Fprintf(&b, "# Monitoring brief: %s\n\n", s.subject)
	fmt.Fprintf(&b, "Generated %s over %d decided items.\n\n",
		run.CreatedAt.UTC().Format(time.RFC3339), len(decided))

	b.WriteString("## Executive summary\n\n")
	for _, line := range pkg.ExecutiveSummary {
		fmt.Fprintf(&b, "- %s\n", line)
	}

	b.WriteString("\n## Situation\n\n")
	fmt.Fprintf(&b, "Overall risk: **%s**\n\n", pkg.SituationOverview.OverallRiskLevel)
	fmt.Fprintf(&b, "%s\n\n%s\n", pkg.SituationOverview.WhatChanged, pkg.SituationOverview.WhyNow)

	b.WriteString("\n## Decision intelligence\n\n")
	writeDistribution(&b, "Intent", pkg.DecisionIntel.IntentDistribution)
	writeDistribution(&b, "Urgency", pkg.DecisionIntel.UrgencyDistribution)
	writeDistribution(&b, "Category", pkg.DecisionIntel.CategoryDistribution)
	writeDistribution(&b, "Reputational risk", pkg.DecisionIntel.RiskDistribution)

	if len(pkg.DecisionIntel.TopItemsBySeverity) > 0 {
		b.WriteString("\n## Top items by severity\n\n")
		b.WriteString("| Severity | Framing | Urgency | Title |\n|---|---|---|---|\n")
		for _, it := range pkg.DecisionIntel.TopItemsBySeverity {
			fmt.Fprintf(&b, "| %d | %s | %s | [%s](%s) |\n",
				it.Severity, it.IntentFraming, it.Urgency, it.Title, it.URL)
		}
	}

	b.WriteString("\n## Action plan (next 4 hours)\n\n")
	for _, a := range pkg.ActionPlan {
		fmt.Fprintf(&b, "### %d. %s\n\n", a.Priority, a.Objective)
		fmt.Fprintf(&b, "Item: %s | Framing: %s | Urgency: %s | Owners: %s\n\n",
			a.ItemTitle, a.IntentFraming, a.Urgency, strings.Join(a.OwnerTeam, ", "))
		for _, step := range a.FirstSteps {
			fmt.Fprintf(&b, "1. %s\n", step)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Communications\n\n")
	fmt.Fprintf(&b, "**Internal:** %s\n\n", pkg.Comms.InternalMessageDraft)
	fmt.Fprintf(&b, "**Holding statement:** %s\n\n", pkg.Comms.ExternalHoldingStatement)
	if pkg.Comms.OptionalReinforcementMessage != "" {
		fmt.Fprintf(&b, "**Reinforcement:** %s\n\n", pkg.Comms.OptionalReinforcementMessage)
	}

	b.WriteString("## Monitoring\n\n")
	for _, w := range pkg.Monitoring.WhatToWatch {
		fmt.Fprintf(&b, "- %s\n", w)
	}
	fmt.Fprintf(&b, "\nUpdate frequency: %s\n", pkg.Monitoring.UpdateFrequency)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return apperr.Wrap(apperr.KindInternal, "write brief", err)
	}
	return nil
}

// writeDistribution renders one count map as a stable "name: a=1, b=2" line.
func writeDistribution(b *strings.Builder, name string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	fmt.Fprintf(b, "- %s: %s\n", name, strings.Join(parts, ", "))
}
