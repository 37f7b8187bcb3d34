// Package run describes one interpretation session and its reproducibility
// parameters.
package run

import (
	"fmt"
	"time"

	"pdlens/domain/core"
	"pdlens/domain/importance"
)

// Parameters are the knobs that make a run reproducible.
type Parameters struct {
	ROICount           int     `json:"roi_count" db:"roi_count"`
	TopK               int     `json:"top_k" db:"top_k"`
	SelectK            int     `json:"select_k" db:"select_k"`
	Seed               int64   `json:"seed" db:"seed"`
	PermutationRepeats int     `json:"permutation_repeats" db:"permutation_repeats"`
	Trees              int     `json:"trees" db:"trees"`
	MaxDepth           int     `json:"max_depth" db:"max_depth"`
	MIBins             int     `json:"mi_bins" db:"mi_bins"`
	TestFraction       float64 `json:"test_fraction" db:"test_fraction"`
}

// Fingerprint hashes the parameters together with the summary fingerprint.
func (p Parameters) Fingerprint(summary core.Hash) core.Hash {
	data := fmt.Sprintf("rois:%d|top_k:%d|select_k:%d|seed:%d|repeats:%d|trees:%d|depth:%d|bins:%d|test:%.4f|summary:%s",
		p.ROICount, p.TopK, p.SelectK, p.Seed, p.PermutationRepeats, p.Trees, p.MaxDepth, p.MIBins, p.TestFraction, summary)
	return core.NewHash([]byte(data))
}

// Record is a persisted interpretation run.
type Record struct {
	ID          core.RunID          `json:"id" db:"id"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	Samples     int                 `json:"samples" db:"samples"`
	Features    int                 `json:"features" db:"features"`
	BestModel   string              `json:"best_model" db:"best_model"`
	BestScore   float64             `json:"best_score" db:"best_score"`
	Params      Parameters          `json:"parameters"`
	Fingerprint core.Hash           `json:"fingerprint" db:"fingerprint"`
	Summary     *importance.Summary `json:"summary"`
}
