// Package report holds the derived, presentation-ready views of a summary
// table: per-feature and per-category aggregates plus Parkinson's-specific
// groupings.
package report

import (
	"time"

	"pdlens/domain/core"
	"pdlens/domain/interpret"
)

// FeatureAggregate is one feature averaged across every method it ranked in.
type FeatureAggregate struct {
	Name           string             `json:"feature_name"`
	MeanScore      float64            `json:"mean_importance"`
	MeanRank       float64            `json:"mean_rank"`
	Methods        int                `json:"methods"`
	Category       interpret.Category `json:"feature_type"`
	Interpretation string             `json:"biological_relevance"`
}

// CategoryStat summarises the scores of one category. Std is the sample
// standard deviation and is zero for single-row categories.
type CategoryStat struct {
	Category interpret.Category `json:"feature_type"`
	Count    int                `json:"count"`
	Mean     float64            `json:"mean_importance"`
	Std      float64            `json:"std_importance"`
}

// ROIContribution is the mean score of the per-ROI features of one region.
type ROIContribution struct {
	ROI       string  `json:"roi"`
	MeanScore float64 `json:"mean_importance"`
	Features  int     `json:"features"`
}

// Connection is a ranked functional connectivity feature.
type Connection struct {
	Name   string  `json:"feature_name"`
	From   string  `json:"from"`
	To     string  `json:"to"`
	Score  float64 `json:"importance_score"`
	Method string  `json:"method"`
}

// BandSummary aggregates frequency features of one band.
type BandSummary struct {
	Band      string  `json:"band"`
	Count     int     `json:"count"`
	MeanScore float64 `json:"mean_importance"`
}

// RegionHit is a summary row whose name matched a region keyword group.
type RegionHit struct {
	Name   string  `json:"feature_name"`
	Score  float64 `json:"importance_score"`
	Method string  `json:"method"`
}

// CombinedEntry is one feature of the weighted cross-method ranking.
type CombinedEntry struct {
	Rank           int                `json:"rank"`
	Index          int                `json:"feature_index"`
	Name           string             `json:"feature_name"`
	Category       interpret.Category `json:"feature_type"`
	Combined       float64            `json:"combined_score"`
	FScore         float64            `json:"f_score"`
	Coefficient    float64            `json:"coefficient"`
	Permutation    float64            `json:"perm_importance"`
	Interpretation string             `json:"biological_significance"`
}

// ParkinsonAnalysis groups summary rows by disease-relevant systems.
type ParkinsonAnalysis struct {
	MotorFeatures        []RegionHit   `json:"motor_features"`
	CognitiveFeatures    []RegionHit   `json:"cognitive_features"`
	ConnectivityFeatures []Connection  `json:"connectivity_features"`
	FrequencyBands       []BandSummary `json:"frequency_bands"`
}

// Document is everything the markdown, plot and workbook writers need.
type Document struct {
	RunID        core.RunID         `json:"run_id"`
	GeneratedAt  time.Time          `json:"generated_at"`
	BestModel    string             `json:"best_model"`
	BestScore    float64            `json:"best_score"`
	Samples      int                `json:"samples"`
	Features     int                `json:"features"`
	TopFeatures  []FeatureAggregate `json:"top_features"`
	Categories   []CategoryStat     `json:"categories"`
	TopROIs      []ROIContribution  `json:"top_rois"`
	Connections  []Connection       `json:"top_connections"`
	Parkinson    ParkinsonAnalysis  `json:"parkinson"`
	Combined     []CombinedEntry    `json:"combined,omitempty"`
	ScatterPairs []ScatterPoint     `json:"-"`
}

// ScatterPoint pairs the F-statistic and permutation score of one feature.
type ScatterPoint struct {
	Name        string
	Category    interpret.Category
	FScore      float64
	Permutation float64
}
