package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"pdlens/domain/dataset"
	"pdlens/internal/errors"

	"github.com/xuri/excelize/v2"
)

// WriteDataset writes ds as a header row plus one row per subject, the
// label column last, to a .csv or .xlsx file chosen by extension.
func WriteDataset(path string, ds *dataset.Dataset, labelColumn string) error {
	if ds == nil {
		return errors.InvalidInput("dataset is required")
	}
	if labelColumn == "" {
		labelColumn = DefaultLabelColumn
	}
	headers := make([]string, 0, ds.Columns()+1)
	for j := 0; j < ds.Columns(); j++ {
		headers = append(headers, ds.FeatureName(j))
	}
	headers = append(headers, labelColumn)

	var err error
	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		err = writeDatasetCSV(path, headers, ds)
	} else {
		err = writeDatasetXLSX(path, headers, ds)
	}
	if err != nil {
		return errors.IOError(path, err)
	}
	return nil
}

func classLabel(ds *dataset.Dataset, y float64) string {
	name := ds.ClassNames[int(y)]
	if name == "" {
		return strconv.Itoa(int(y))
	}
	return name
}

func writeDatasetCSV(path string, headers []string, ds *dataset.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		return err
	}
	record := make([]string, len(headers))
	for i := 0; i < ds.Rows(); i++ {
		for j, v := range ds.X.RawRowView(i) {
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		record[len(record)-1] = classLabel(ds, ds.Labels[i])
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func writeDatasetXLSX(path string, headers []string, ds *dataset.Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(DefaultSheet, cell, h); err != nil {
			return err
		}
	}
	for i := 0; i < ds.Rows(); i++ {
		row := make([]interface{}, 0, len(headers))
		for _, v := range ds.X.RawRowView(i) {
			row = append(row, v)
		}
		row = append(row, classLabel(ds, ds.Labels[i]))
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(DefaultSheet, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	return f.SaveAs(path)
}
