package reports

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"repwatch_backend/internal/watch/domain"
	"repwatch_backend/platform/apperr"
)

const (
	sheetItems     = "Items"
	sheetOriented  = "Assessments"
	sheetDecisions = "Decisions"
)

// writeWorkbook renders the three stage extracts into one spreadsheet with a
// bold header row, sized columns, and clickable item links.
func (s *Service) writeWorkbook(path string, raw []domain.RawItem, oriented []domain.OrientRecord, decided []domain.DecidedItem) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "create workbook style", err)
	}

	f.SetSheetName("Sheet1", sheetItems)
	if _, err := f.NewSheet(sheetOriented); err != nil {
		return apperr.Wrap(apperr.KindInternal, "create workbook sheet", err)
	}
	if _, err := f.NewSheet(sheetDecisions); err != nil {
		return apperr.Wrap(apperr.KindInternal, "create workbook sheet", err)
	}

	if err := s.fillItems(f, headerStyle, raw); err != nil {
		return err
	}
	if err := s.fillAssessments(f, headerStyle, oriented); err != nil {
		return err
	}
	if err := s.fillDecisions(f, headerStyle, decided); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return apperr.Wrap(apperr.KindInternal, "write workbook", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, style int, cols []string) error {
	for i, name := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "address workbook cell", err)
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return apperr.Wrap(apperr.KindInternal, "write workbook header", err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(cols), 1)
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return apperr.Wrap(apperr.KindInternal, "style workbook header", err)
	}
	return nil
}

func (s *Service) fillItems(f *excelize.File, style int, items []domain.RawItem) error {
	if err := writeHeader(f, sheetItems, style, []string{"Source", "Title", "Link", "Published", "Observed"}); err != nil {
		return err
	}
	for i, it := range items {
		row := i + 2
		f.SetCellValue(sheetItems, cell(1, row), it.Source)
		f.SetCellValue(sheetItems, cell(2, row), it.Title)
		f.SetCellValue(sheetItems, cell(3, row), it.URL)
		if it.URL != "" {
			f.SetCellHyperLink(sheetItems, cell(3, row), it.URL, "External")
		}
		f.SetCellValue(sheetItems, cell(4, row), it.PublishedAt.UTC().Format(time.RFC3339))
		f.SetCellValue(sheetItems, cell(5, row), it.ObservedAt.UTC().Format(time.RFC3339))
	}
	f.SetColWidth(sheetItems, "A", "A", 18)
	f.SetColWidth(sheetItems, "B", "C", 60)
	f.SetColWidth(sheetItems, "D", "E", 22)
	return nil
}

func (s *Service) fillAssessments(f *excelize.File, style int, recs []domain.OrientRecord) error {
	cols := []string{"Claim", "Category", "Risk", "Severity", "Confidence", "Verification steps"}
	if err := writeHeader(f, sheetOriented, style, cols); err != nil {
		return err
	}
	for i, rec := range recs {
		row := i + 2
		a := rec.Assessment
		f.SetCellValue(sheetOriented, cell(1, row), a.ClaimSummary)
		f.SetCellValue(sheetOriented, cell(2, row), a.NarrativeCategory)
		f.SetCellValue(sheetOriented, cell(3, row), string(a.ReputationalRisk))
		f.SetCellValue(sheetOriented, cell(4, row), a.Severity)
		f.SetCellValue(sheetOriented, cell(5, row), a.Confidence)
		f.SetCellValue(sheetOriented, cell(6, row), strings.Join(a.VerificationSteps, " | "))
	}
	f.SetColWidth(sheetOriented, "A", "A", 70)
	f.SetColWidth(sheetOriented, "B", "E", 14)
	f.SetColWidth(sheetOriented, "F", "F", 80)
	return nil
}

func (s *Service) fillDecisions(f *excelize.File, style int, items []domain.DecidedItem) error {
	cols := []string{"Title", "Link", "Framing", "Urgency", "Severity", "Teams", "Recommended action", "No-regret move"}
	if err := writeHeader(f, sheetDecisions, style, cols); err != nil {
		return err
	}
	for i, it := range items {
		row := i + 2
		f.SetCellValue(sheetDecisions, cell(1, row), it.Title)
		f.SetCellValue(sheetDecisions, cell(2, row), it.URL)
		if it.URL != "" {
			f.SetCellHyperLink(sheetDecisions, cell(2, row), it.URL, "External")
		}
		f.SetCellValue(sheetDecisions, cell(3, row), string(it.Decision.IntentFraming))
		f.SetCellValue(sheetDecisions, cell(4, row), string(it.Decision.Urgency))
		f.SetCellValue(sheetDecisions, cell(5, row), it.Assessment.Severity)
		f.SetCellValue(sheetDecisions, cell(6, row), strings.Join(it.Decision.EscalationTeam, ", "))
		f.SetCellValue(sheetDecisions, cell(7, row), it.Decision.RecommendedAction)
		f.SetCellValue(sheetDecisions, cell(8, row), it.Decision.NoRegretMove)
	}
	f.SetColWidth(sheetDecisions, "A", "B", 55)
	f.SetColWidth(sheetDecisions, "C", "F", 14)
	f.SetColWidth(sheetDecisions, "G", "H", 60)
	return nil
}

func cell(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Sprintf("A%d", row)
	}
	return name
}
