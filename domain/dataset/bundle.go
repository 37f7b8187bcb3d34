// Package dataset defines the feature matrix and binary labels an
// interpretation run operates on.
package dataset

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"pdlens/domain/core"

	"gonum.org/v1/gonum/mat"
)

// Dataset is the canonical input of every importance method: rows are
// subjects, columns are features, labels are 0 (control) or 1 (patient).
type Dataset struct {
	X      *mat.Dense
	Labels []float64

	// FeatureNames is optional; when set it must align 1:1 with X's columns.
	FeatureNames []string
	// ROILabels is the optional atlas labelling used to synthesise names.
	ROILabels []string
	// ClassNames maps label 0 and 1 back to the source values.
	ClassNames [2]string
}

// New validates shapes and returns a dataset over a copy-free view of x.
func New(x *mat.Dense, labels []float64) (*Dataset, error) {
	if x == nil {
		return nil, fmt.Errorf("%w: nil feature matrix", core.ErrInsufficientData)
	}
	rows, cols := x.Dims()
	if rows != len(labels) {
		return nil, fmt.Errorf("%w: %d rows but %d labels", core.ErrInsufficientData, rows, len(labels))
	}
	if cols == 0 {
		return nil, fmt.Errorf("%w: no feature columns", core.ErrInsufficientData)
	}
	if err := CheckBinary(labels); err != nil {
		return nil, err
	}
	if err := CheckFinite(x); err != nil {
		return nil, err
	}
	return &Dataset{X: x, Labels: labels, ClassNames: [2]string{"0", "1"}}, nil
}

// CheckFinite rejects matrices holding NaN or ±Inf, reporting the first
// offending cell.
func CheckFinite(x mat.Matrix) error {
	rows, cols := x.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := x.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: row %d column %d is %v", core.ErrNonFinite, i, j, v)
			}
		}
	}
	return nil
}

// FromRows builds a dataset from row-major data.
func FromRows(rows [][]float64, labels []float64) (*Dataset, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty matrix", core.ErrInsufficientData)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(r), cols)
		}
		data = append(data, r...)
	}
	return New(mat.NewDense(len(rows), cols, data), labels)
}

// Rows returns the sample count.
func (d *Dataset) Rows() int {
	r, _ := d.X.Dims()
	return r
}

// Columns returns the feature count.
func (d *Dataset) Columns() int {
	_, c := d.X.Dims()
	return c
}

// Column copies one feature column.
func (d *Dataset) Column(j int) []float64 {
	return mat.Col(nil, j, d.X)
}

// Subset returns the dataset restricted to the given row indices.
func (d *Dataset) Subset(idx []int) *Dataset {
	cols := d.Columns()
	x := mat.NewDense(len(idx), cols, nil)
	labels := make([]float64, len(idx))
	for i, r := range idx {
		x.SetRow(i, d.X.RawRowView(r))
		labels[i] = d.Labels[r]
	}
	return &Dataset{
		X:            x,
		Labels:       labels,
		FeatureNames: d.FeatureNames,
		ROILabels:    d.ROILabels,
		ClassNames:   d.ClassNames,
	}
}

// FeatureName resolves a column name, falling back to Feature_<idx>.
func (d *Dataset) FeatureName(j int) string {
	if j >= 0 && j < len(d.FeatureNames) {
		return d.FeatureNames[j]
	}
	return fmt.Sprintf("Feature_%d", j)
}

// ClassCounts returns how many rows carry label 0 and 1.
func (d *Dataset) ClassCounts() [2]int {
	var c [2]int
	for _, y := range d.Labels {
		c[int(y)]++
	}
	return c
}

// CheckBinary verifies labels are 0/1 and both classes are present.
func CheckBinary(labels []float64) error {
	var seen [2]bool
	for i, y := range labels {
		switch y {
		case 0:
			seen[0] = true
		case 1:
			seen[1] = true
		default:
			return fmt.Errorf("%w: label %v at row %d", core.ErrInvalidLabels, y, i)
		}
	}
	if !seen[0] || !seen[1] {
		return fmt.Errorf("%w: only one class present", core.ErrInvalidLabels)
	}
	return nil
}

// EncodeLabels maps two distinct raw label values to 0/1. Numeric "0"/"1"
// keep their meaning; otherwise values are sorted and the first becomes 0.
func EncodeLabels(raw []string) ([]float64, [2]string, error) {
	distinct := make(map[string]bool)
	for _, v := range raw {
		distinct[v] = true
	}
	if len(distinct) != 2 {
		return nil, [2]string{}, fmt.Errorf("%w: found %d distinct values", core.ErrInvalidLabels, len(distinct))
	}

	values := make([]string, 0, 2)
	for v := range distinct {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		fi, errI := strconv.ParseFloat(values[i], 64)
		fj, errJ := strconv.ParseFloat(values[j], 64)
		if errI == nil && errJ == nil {
			return fi < fj
		}
		return values[i] < values[j]
	})

	classes := [2]string{values[0], values[1]}
	out := make([]float64, len(raw))
	for i, v := range raw {
		if v == classes[1] {
			out[i] = 1
		}
	}
	return out, classes, nil
}
