package ports

import (
	"context"

	"pdlens/domain/importance"
	"pdlens/domain/report"
)

// ReportWriter renders the markdown narrative of a run.
type ReportWriter interface {
	WriteReport(ctx context.Context, doc *report.Document) (string, error)
}

// PlotRenderer renders the static comparison plots of a run and returns the
// written file paths.
type PlotRenderer interface {
	RenderPlots(ctx context.Context, summary *importance.Summary, doc *report.Document) ([]string, error)
}

// SummaryExporter writes the summary table to a tabular file.
type SummaryExporter interface {
	ExportSummary(ctx context.Context, summary *importance.Summary, doc *report.Document) (string, error)
}
