// Package markdown renders the narrative feature importance report.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"text/template"

	"pdlens/domain/report"
	"pdlens/internal"
	"pdlens/internal/errors"
)

// FileName is the report written into the output directory.
const FileName = "parkinson_feature_importance_report.md"

var tpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"add": func(a, b int) int {
		return a + b
	},
	"score": formatScore,
}).Parse(reportTemplate))

// Writer is a ports.ReportWriter producing markdown files.
type Writer struct {
	dir    string
	logger *internal.Logger
}

// NewWriter writes reports into dir.
func NewWriter(dir string, logger *internal.Logger) *Writer {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Writer{dir: dir, logger: logger.WithComponent("markdown")}
}

// Render executes the report template into w.
func Render(w io.Writer, doc *report.Document) error {
	if doc == nil {
		return errors.InvalidInput("report document is required")
	}
	return tpl.Execute(w, doc)
}

// WriteReport renders the document and replaces the report file atomically.
func (w *Writer) WriteReport(ctx context.Context, doc *report.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := Render(&buf, doc); err != nil {
		return "", err
	}

	path := filepath.Join(w.dir, FileName)
	if err := writeAtomic(path, buf.Bytes()); err != nil {
		return "", errors.IOError(path, err)
	}
	w.logger.Debug("wrote %d bytes to %s", buf.Len(), path)
	return path, nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func formatScore(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsNaN(v):
		return "nan"
	}
	return fmt.Sprintf("%.4f", v)
}
