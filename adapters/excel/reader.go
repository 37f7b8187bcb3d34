package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pdlens/domain/core"
	"pdlens/domain/dataset"
	"pdlens/internal"
	"pdlens/internal/errors"

	"github.com/xuri/excelize/v2"
)

// DefaultLabelColumn is the header of the class column when none is configured.
const DefaultLabelColumn = "label"

// DefaultSheet is read from workbooks when no sheet is configured.
const DefaultSheet = "Sheet1"

// DataReader loads a labelled feature matrix from an Excel or CSV file.
type DataReader struct {
	filePath    string
	fileType    string // "xlsx" or "csv"
	sheet       string
	labelColumn string
	logger      *internal.Logger
}

// ReaderOption configures a DataReader.
type ReaderOption func(*DataReader)

// WithSheet selects the workbook sheet to read.
func WithSheet(sheet string) ReaderOption {
	return func(r *DataReader) {
		if sheet != "" {
			r.sheet = sheet
		}
	}
}

// WithLabelColumn names the header holding class labels.
func WithLabelColumn(name string) ReaderOption {
	return func(r *DataReader) {
		if name != "" {
			r.labelColumn = name
		}
	}
}

// WithReaderLogger replaces the default logger.
func WithReaderLogger(l *internal.Logger) ReaderOption {
	return func(r *DataReader) { r.logger = l }
}

// NewDataReader creates a reader that handles both Excel and CSV files.
func NewDataReader(filePath string, opts ...ReaderOption) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	r := &DataReader{
		filePath:    filePath,
		fileType:    fileType,
		sheet:       DefaultSheet,
		labelColumn: DefaultLabelColumn,
		logger:      internal.DefaultLogger,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("excel")
	return r
}

// ReadDataset reads the file into a dataset. Every column other than the
// label column is a numeric feature and its header becomes the feature name.
func (r *DataReader) ReadDataset(ctx context.Context) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.logger.Debug("reading %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.IOError(r.filePath, fmt.Errorf("%s file not found", strings.ToUpper(r.fileType)))
	}

	var (
		rows [][]string
		err  error
	)
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	default:
		rows, err = r.readExcelRows()
	}
	if err != nil {
		return nil, errors.IOError(r.filePath, err)
	}
	return r.processRows(rows)
}

func (r *DataReader) readExcelRows() ([][]string, error) {
	start := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(r.sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.sheet, err)
	}
	r.logger.Debug("%s read in %.2fms (%d rows)", r.sheet, float64(time.Since(start).Nanoseconds())/1e6, len(rows))
	return rows, nil
}

func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	start := time.Now()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	r.logger.Debug("CSV file read in %.2fms (%d rows)", float64(time.Since(start).Nanoseconds())/1e6, len(rows))
	return rows, nil
}

// processRows converts raw string rows into a dataset.
func (r *DataReader) processRows(rows [][]string) (*dataset.Dataset, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: file must have a header row and at least one data row", core.ErrInsufficientData)
	}

	headers := make([]string, len(rows[0]))
	labelIdx := -1
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
		if headers[i] == r.labelColumn {
			labelIdx = i
		}
	}
	if labelIdx < 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("label column %q not found", r.labelColumn))
	}

	names := make([]string, 0, len(headers)-1)
	for i, h := range headers {
		if i != labelIdx {
			names = append(names, h)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no feature columns", core.ErrInsufficientData)
	}

	matrix := make([][]float64, 0, len(rows)-1)
	rawLabels := make([]string, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlank(row) {
			continue
		}
		values := make([]float64, 0, len(names))
		for j, h := range headers {
			cell := ""
			if j < len(row) {
				cell = strings.TrimSpace(row[j])
			}
			if j == labelIdx {
				rawLabels = append(rawLabels, cell)
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, errors.InvalidInput(fmt.Sprintf("row %d column %q: %q is not numeric", i+1, h, cell))
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.InvalidInput(fmt.Sprintf("row %d column %q: %q is not a finite number", i+1, h, cell))
			}
			values = append(values, v)
		}
		matrix = append(matrix, values)
	}

	labels, classes, err := dataset.EncodeLabels(rawLabels)
	if err != nil {
		return nil, err
	}
	ds, err := dataset.FromRows(matrix, labels)
	if err != nil {
		return nil, err
	}
	ds.FeatureNames = names
	ds.ClassNames = classes

	r.logger.Info("%s file processed (%d features, %d samples, classes %s/%s)",
		strings.ToUpper(r.fileType), len(names), len(matrix), classes[0], classes[1])
	return ds, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
