package testkit

import (
	"fmt"
	"math/rand"

	"pdlens/domain/dataset"
	"pdlens/domain/feature"

	"gonum.org/v1/gonum/mat"
)

// CohortGeneratorConfig configures the synthetic fMRI cohort generator
type CohortGeneratorConfig struct {
	Subjects     int      `json:"subjects"`
	ROILabels    []string `json:"roi_labels"`
	PatientShare float64  `json:"patient_share"`
	// AffectedROIs name regions whose activity and coupling differ in
	// patients.
	AffectedROIs []string `json:"affected_rois"`
	Effect       float64  `json:"effect"`
	Seed         int64    `json:"seed"`
}

// DefaultCohortConfig returns a small cohort with motor-circuit effects
func DefaultCohortConfig() CohortGeneratorConfig {
	return CohortGeneratorConfig{
		Subjects:     60,
		ROILabels:    []string{"Putamen_L", "Caudate_R", "Precentral_motor", "Frontal_Sup", "Occipital_Mid", "Temporal_Inf"},
		PatientShare: 0.5,
		AffectedROIs: []string{"Putamen_L", "Precentral_motor"},
		Effect:       1.5,
		Seed:         42,
	}
}

// CohortGenerator generates subject-by-feature matrices laid out the way
// the fMRI extraction pipeline emits them.
type CohortGenerator struct {
	config CohortGeneratorConfig
	layout feature.Layout
	rng    *rand.Rand
}

// NewCohortGenerator creates a new cohort generator
func NewCohortGenerator(config CohortGeneratorConfig) (*CohortGenerator, error) {
	layout, err := feature.NewLayout(len(config.ROILabels), config.ROILabels)
	if err != nil {
		return nil, err
	}
	if config.Subjects < 4 {
		return nil, fmt.Errorf("cohort needs at least 4 subjects, got %d", config.Subjects)
	}
	if config.PatientShare <= 0 || config.PatientShare >= 1 {
		config.PatientShare = 0.5
	}
	return &CohortGenerator{
		config: config,
		layout: layout,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}, nil
}

// Layout returns the feature layout of generated cohorts.
func (g *CohortGenerator) Layout() feature.Layout {
	return g.layout
}

// Generate produces a labelled dataset with named columns.
func (g *CohortGenerator) Generate() (*dataset.Dataset, error) {
	n := g.config.Subjects
	names := g.layout.Names()
	share := g.config.PatientShare

	affected := make(map[string]bool, len(g.config.AffectedROIs))
	for _, r := range g.config.AffectedROIs {
		affected[r] = true
	}

	x := mat.NewDense(n, len(names), nil)
	labels := make([]float64, n)
	for i := 0; i < n; i++ {
		// interleave classes so every prefix of rows is roughly balanced
		patient := int(float64(i+1)*share) > int(float64(i)*share)
		if patient {
			labels[i] = 1
		}
		g.subjectRow(x.RawRowView(i), names, patient, affected)
	}

	ds, err := dataset.New(x, labels)
	if err != nil {
		return nil, err
	}
	ds.FeatureNames = names
	ds.ROILabels = g.layout.Labels()
	ds.ClassNames = [2]string{"control", "parkinson"}
	return ds, nil
}

func (g *CohortGenerator) subjectRow(row []float64, names []string, patient bool, affected map[string]bool) {
	for j, name := range names {
		v := g.rng.NormFloat64()
		if patient {
			if a, b, ok := g.layout.ParseConnectivity(name); ok {
				if affected[a] && affected[b] {
					v -= g.config.Effect
				}
			} else if roi, ok := g.layout.ROIOf(name); ok && affected[roi] {
				v += g.config.Effect
			}
		}
		row[j] = v
	}
}
