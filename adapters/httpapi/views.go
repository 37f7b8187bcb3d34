package httpapi

import (
	"math"
	"time"

	"pdlens/app"
	"pdlens/domain/importance"
	"pdlens/domain/report"
	"pdlens/domain/run"
)

// JSON has no infinity; a perfectly separating feature has F = +Inf, so
// non-finite scores are clamped before encoding.
func finite(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}
	return v
}

func finiteRows(rows []importance.Row) []importance.Row {
	out := make([]importance.Row, len(rows))
	for i, r := range rows {
		r.Score = finite(r.Score)
		out[i] = r
	}
	return out
}

func finiteDocument(doc *report.Document) *report.Document {
	if doc == nil {
		return nil
	}
	d := *doc
	d.BestScore = finite(d.BestScore)

	d.TopFeatures = make([]report.FeatureAggregate, len(doc.TopFeatures))
	for i, f := range doc.TopFeatures {
		f.MeanScore = finite(f.MeanScore)
		d.TopFeatures[i] = f
	}
	d.Categories = make([]report.CategoryStat, len(doc.Categories))
	for i, c := range doc.Categories {
		c.Mean, c.Std = finite(c.Mean), finite(c.Std)
		d.Categories[i] = c
	}
	d.TopROIs = make([]report.ROIContribution, len(doc.TopROIs))
	for i, r := range doc.TopROIs {
		r.MeanScore = finite(r.MeanScore)
		d.TopROIs[i] = r
	}
	d.Connections = finiteConnections(doc.Connections)
	d.Combined = make([]report.CombinedEntry, len(doc.Combined))
	for i, e := range doc.Combined {
		e.Combined, e.FScore = finite(e.Combined), finite(e.FScore)
		e.Coefficient, e.Permutation = finite(e.Coefficient), finite(e.Permutation)
		d.Combined[i] = e
	}

	p := doc.Parkinson
	d.Parkinson = report.ParkinsonAnalysis{
		MotorFeatures:        finiteHits(p.MotorFeatures),
		CognitiveFeatures:    finiteHits(p.CognitiveFeatures),
		ConnectivityFeatures: finiteConnections(p.ConnectivityFeatures),
		FrequencyBands:       make([]report.BandSummary, len(p.FrequencyBands)),
	}
	for i, b := range p.FrequencyBands {
		b.MeanScore = finite(b.MeanScore)
		d.Parkinson.FrequencyBands[i] = b
	}
	d.ScatterPairs = nil
	return &d
}

func finiteConnections(in []report.Connection) []report.Connection {
	out := make([]report.Connection, len(in))
	for i, c := range in {
		c.Score = finite(c.Score)
		out[i] = c
	}
	return out
}

func finiteHits(in []report.RegionHit) []report.RegionHit {
	out := make([]report.RegionHit, len(in))
	for i, h := range in {
		h.Score = finite(h.Score)
		out[i] = h
	}
	return out
}

type analysisView struct {
	RunID       string           `json:"run_id"`
	BestModel   string           `json:"best_model"`
	BestScore   float64          `json:"best_score"`
	Fingerprint string           `json:"fingerprint"`
	RuntimeMs   int64            `json:"runtime_ms"`
	TopK        int              `json:"top_k"`
	Summary     []importance.Row `json:"summary"`
	Insights    *report.Document `json:"insights"`
}

func analyzeResponse(res *app.AnalysisResult) analysisView {
	v := analysisView{
		RunID:     string(res.RunID),
		BestModel: res.Selection.Model.Name,
		BestScore: finite(res.Selection.Score),
		RuntimeMs: res.RuntimeMs,
		Insights:  finiteDocument(res.Document),
	}
	if res.Record != nil {
		v.Fingerprint = string(res.Record.Fingerprint)
	}
	if res.Summary != nil {
		v.TopK = res.Summary.TopK
		v.Summary = finiteRows(res.Summary.Rows)
	}
	return v
}

type runView struct {
	ID          string           `json:"id"`
	CreatedAt   time.Time        `json:"created_at"`
	Samples     int              `json:"samples"`
	Features    int              `json:"features"`
	BestModel   string           `json:"best_model"`
	BestScore   float64          `json:"best_score"`
	Parameters  run.Parameters   `json:"parameters"`
	Fingerprint string           `json:"fingerprint"`
	Summary     []importance.Row `json:"summary,omitempty"`
}

func newRunView(rec *run.Record, withRows bool) runView {
	v := runView{
		ID:          string(rec.ID),
		CreatedAt:   rec.CreatedAt,
		Samples:     rec.Samples,
		Features:    rec.Features,
		BestModel:   rec.BestModel,
		BestScore:   finite(rec.BestScore),
		Parameters:  rec.Params,
		Fingerprint: string(rec.Fingerprint),
	}
	if withRows && rec.Summary != nil {
		v.Summary = finiteRows(rec.Summary.Rows)
	}
	return v
}
