// Package feature describes the fixed fMRI feature extraction layout: per-ROI
// activity statistics, pairwise functional connectivity and per-ROI band power.
package feature

import (
	"fmt"
	"strings"

	"pdlens/domain/core"
)

// Band is a frequency band of the per-ROI power features.
type Band string

const (
	BandLow  Band = "low_freq"
	BandMid  Band = "mid_freq"
	BandHigh Band = "high_freq"
)

// Bands lists the frequency bands in extraction order.
var Bands = []Band{BandLow, BandMid, BandHigh}

// Statistic is a per-ROI activity summary.
type Statistic string

const (
	StatMean     Statistic = "mean_activity"
	StatStd      Statistic = "std_activity"
	StatVariance Statistic = "var_activity"
)

// Statistics lists the per-ROI statistics in extraction order.
var Statistics = []Statistic{StatMean, StatStd, StatVariance}

// ConnectivityPrefix starts every functional connectivity feature name.
const ConnectivityPrefix = "FC_"

// Pair is one unordered ROI pair of the connectivity upper triangle, I < J.
type Pair struct {
	I, J int
}

// MaxROIs bounds the ROI count. The name count grows quadratically, so
// 1000 ROIs already yield 505500 features.
const MaxROIs = 1000

// Layout is the ROI configuration a feature matrix was extracted with.
type Layout struct {
	labels []string
}

// NewLayout builds a layout for nROIs regions. Labels are optional; when fewer
// labels than ROIs are supplied the remainder fall back to ROI_%03d.
func NewLayout(nROIs int, roiLabels []string) (Layout, error) {
	if nROIs <= 0 {
		return Layout{}, core.NewROICountError(fmt.Sprintf("need at least one ROI, got %d", nROIs))
	}
	if nROIs > MaxROIs {
		return Layout{}, core.NewROICountError(fmt.Sprintf("%d ROIs exceeds the limit of %d", nROIs, MaxROIs))
	}
	if len(roiLabels) > nROIs {
		return Layout{}, core.NewROICountError(fmt.Sprintf("%d labels supplied for %d ROIs", len(roiLabels), nROIs))
	}

	labels := make([]string, nROIs)
	seen := make(map[string]int, nROIs)
	for i := 0; i < nROIs; i++ {
		label := DefaultROILabel(i)
		if i < len(roiLabels) {
			label = strings.TrimSpace(roiLabels[i])
			if label == "" {
				return Layout{}, fmt.Errorf("ROI label %d is empty", i)
			}
		}
		if prev, dup := seen[label]; dup {
			return Layout{}, fmt.Errorf("ROI label %q used for ROI %d and %d", label, prev, i)
		}
		seen[label] = i
		labels[i] = label
	}
	return Layout{labels: labels}, nil
}

// DefaultROILabel is the label used when no atlas label is available.
func DefaultROILabel(idx int) string {
	return fmt.Sprintf("ROI_%03d", idx)
}

// ROICount returns the number of regions.
func (l Layout) ROICount() int {
	return len(l.labels)
}

// Labels returns a copy of the ROI labels.
func (l Layout) Labels() []string {
	out := make([]string, len(l.labels))
	copy(out, l.labels)
	return out
}

// Count returns the number of features the layout produces.
func (l Layout) Count() int {
	return CountForROIs(len(l.labels))
}

// CountForROIs is 3n statistics + n(n-1)/2 connectivity pairs + 3n band powers.
func CountForROIs(n int) int {
	if n <= 0 {
		return 0
	}
	return len(Statistics)*n + n*(n-1)/2 + len(Bands)*n
}

// Pairs returns the connectivity pairs in row-major upper-triangle order.
func (l Layout) Pairs() []Pair {
	n := len(l.labels)
	pairs := make([]Pair, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, Pair{I: i, J: j})
		}
	}
	return pairs
}

// Names generates the ordered feature names.
func (l Layout) Names() []string {
	names := make([]string, 0, l.Count())

	for _, roi := range l.labels {
		for _, stat := range Statistics {
			names = append(names, roi+"_"+string(stat))
		}
	}

	for _, p := range l.Pairs() {
		names = append(names, ConnectivityName(l.labels[p.I], l.labels[p.J]))
	}

	for _, roi := range l.labels {
		for _, band := range Bands {
			names = append(names, roi+"_"+string(band)+"_power")
		}
	}

	return names
}

// ConnectivityName formats the connectivity feature between two ROIs.
func ConnectivityName(a, b string) string {
	return ConnectivityPrefix + a + "_" + b
}

// Validate checks the layout against the column count of a feature matrix.
func (l Layout) Validate(columns int) error {
	if l.Count() != columns {
		return core.NewDimensionError(l.Count(), columns)
	}
	return nil
}

// ParseConnectivity splits an FC_ feature name back into its two ROI labels.
// Labels may themselves contain underscores, so the split is resolved against
// the layout's known labels.
func (l Layout) ParseConnectivity(name string) (string, string, bool) {
	if !strings.HasPrefix(name, ConnectivityPrefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(name, ConnectivityPrefix)
	for _, a := range l.labels {
		if !strings.HasPrefix(rest, a+"_") {
			continue
		}
		b := strings.TrimPrefix(rest, a+"_")
		for _, known := range l.labels {
			if known == b {
				return a, b, true
			}
		}
	}
	return "", "", false
}

// ROIOf returns the ROI label a per-ROI feature belongs to. Connectivity
// features return false.
func (l Layout) ROIOf(name string) (string, bool) {
	if strings.HasPrefix(name, ConnectivityPrefix) {
		return "", false
	}
	best := ""
	for _, roi := range l.labels {
		if strings.HasPrefix(name, roi+"_") && len(roi) > len(best) {
			best = roi
		}
	}
	return best, best != ""
}

// LabelsFromNames recovers the ROI labels from a full set of canonical
// feature names, as found in file headers. It reports false unless the
// recovered layout reproduces names exactly.
func LabelsFromNames(names []string, nROIs int) ([]string, bool) {
	if nROIs <= 0 || len(names) != CountForROIs(nROIs) {
		return nil, false
	}
	labels := make([]string, nROIs)
	for i := range labels {
		first := names[i*len(Statistics)]
		suffix := "_" + string(Statistics[0])
		if !strings.HasSuffix(first, suffix) {
			return nil, false
		}
		labels[i] = strings.TrimSuffix(first, suffix)
	}
	layout, err := NewLayout(nROIs, labels)
	if err != nil {
		return nil, false
	}
	for i, name := range layout.Names() {
		if names[i] != name {
			return nil, false
		}
	}
	return labels, true
}
