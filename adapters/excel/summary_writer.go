package excel

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"pdlens/domain/importance"
	"pdlens/domain/report"
	"pdlens/internal"
	"pdlens/internal/errors"

	"github.com/xuri/excelize/v2"
)

// SummaryFileName is the workbook written next to the markdown report.
const SummaryFileName = "feature_importance_summary.xlsx"

// Sheet names of the summary workbook.
const (
	SummarySheet    = "Summary"
	CategoriesSheet = "Categories"
)

var (
	summaryHeaders  = []string{"method", "rank", "feature_index", "feature_name", "importance_score", "feature_type"}
	categoryHeaders = []string{"feature_type", "count", "mean_importance", "std_importance"}
)

// SummaryWriter exports the long-form summary table and the category
// statistics as a two-sheet workbook.
type SummaryWriter struct {
	dir    string
	logger *internal.Logger
}

// NewSummaryWriter writes workbooks into dir.
func NewSummaryWriter(dir string, logger *internal.Logger) *SummaryWriter {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &SummaryWriter{dir: dir, logger: logger.WithComponent("excel")}
}

// ExportSummary writes the workbook atomically and returns its path.
func (w *SummaryWriter) ExportSummary(ctx context.Context, summary *importance.Summary, doc *report.Document) (string, error) {
	if summary == nil {
		return "", errors.InvalidInput("summary is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(DefaultSheet, SummarySheet); err != nil {
		return "", errors.IOError(SummaryFileName, err)
	}
	if err := writeSheet(f, SummarySheet, summaryHeaders, summaryRows(summary)); err != nil {
		return "", errors.IOError(SummaryFileName, err)
	}

	var categories []report.CategoryStat
	if doc != nil {
		categories = doc.Categories
	}
	if _, err := f.NewSheet(CategoriesSheet); err != nil {
		return "", errors.IOError(SummaryFileName, err)
	}
	if err := writeSheet(f, CategoriesSheet, categoryHeaders, categoryRows(categories)); err != nil {
		return "", errors.IOError(SummaryFileName, err)
	}

	path := filepath.Join(w.dir, SummaryFileName)
	if err := saveAtomic(f, path); err != nil {
		return "", errors.IOError(path, err)
	}
	w.logger.Info("summary workbook saved: %s (%d rows)", path, len(summary.Rows))
	return path, nil
}

func summaryRows(s *importance.Summary) [][]interface{} {
	rows := make([][]interface{}, 0, len(s.Rows))
	for _, r := range s.Rows {
		rows = append(rows, []interface{}{r.Method, r.Rank, r.FeatureIndex, r.FeatureName, cellNumber(r.Score), string(r.Category)})
	}
	return rows
}

func categoryRows(stats []report.CategoryStat) [][]interface{} {
	rows := make([][]interface{}, 0, len(stats))
	for _, c := range stats {
		rows = append(rows, []interface{}{string(c.Category), c.Count, cellNumber(c.Mean), cellNumber(c.Std)})
	}
	return rows
}

// cellNumber keeps infinite F-statistics readable; the xlsx number format
// has no representation for them.
func cellNumber(v float64) interface{} {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return ""
	}
	return v
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", r+2, err)
		}
	}
	return nil
}

func saveAtomic(f *excelize.File, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".summary-*.xlsx")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
