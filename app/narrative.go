package app

import (
	"fmt"
	"io"
	"strings"

	"pdlens/domain/importance"
	"pdlens/domain/interpret"
	"pdlens/domain/report"
)

const rule = "================================================================================"

// WriteNarrative prints the biological insights of a run for the console.
func WriteNarrative(w io.Writer, summary *importance.Summary, doc *report.Document) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "🧠 BIOLOGICAL INSIGHTS FROM FEATURE IMPORTANCE ANALYSIS")
	fmt.Fprintln(w, rule)

	fmt.Fprintf(w, "\n🏆 Best model: %s (held-out accuracy %.4f)\n", doc.BestModel, doc.BestScore)

	fmt.Fprintln(w, "\n📊 Feature Type Analysis:")
	for _, c := range doc.Categories {
		fmt.Fprintf(w, "  %-24s count=%-4d mean=%.4f\n", c.Category, c.Count, c.Mean)
	}

	fmt.Fprintln(w, "\n🏆 Top 10 Most Important Features (Average Across Methods):")
	for i, f := range doc.TopFeatures {
		if i == ConsoleTopFeatures {
			break
		}
		fmt.Fprintf(w, "%2d. %s\n", i+1, f.Name)
		fmt.Fprintf(w, "    Average Importance: %.4f\n", f.MeanScore)
		fmt.Fprintf(w, "    Average Rank: %.1f\n", f.MeanRank)
		fmt.Fprintf(w, "    Biological Significance: %s\n\n", f.Interpretation)
	}

	if len(doc.TopROIs) > 0 {
		fmt.Fprintln(w, "\n🧭 Brain Region Analysis:")
		fmt.Fprintln(w, "Top 10 Most Important Brain Regions:")
		for i, r := range doc.TopROIs {
			fmt.Fprintf(w, "%2d. %s: %.4f\n", i+1, r.ROI, r.MeanScore)
		}
	}

	fmt.Fprintln(w, "\n🔗 Functional Connectivity Analysis:")
	fcRows := len(summary.ForCategory(interpret.CategoryConnectivity))
	if fcRows > 0 {
		fmt.Fprintf(w, "Functional connectivity features represent %d of top features\n", fcRows)
		fmt.Fprintln(w, "This suggests altered brain network communication in Parkinson's disease")
		fmt.Fprintln(w, "\nTop 5 Most Important Brain Connections:")
		for i, c := range doc.Connections {
			fmt.Fprintf(w, "%d. %s: %.4f\n", i+1, c.Name, c.Score)
		}
	} else {
		fmt.Fprintln(w, "Limited functional connectivity features in top contributors")
	}

	writeParkinson(w, doc.Parkinson)
}

func writeParkinson(w io.Writer, pa report.ParkinsonAnalysis) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule[:60])
	fmt.Fprintln(w, "🧠 PARKINSON'S DISEASE SPECIFIC ANALYSIS")
	fmt.Fprintln(w, rule[:60])

	if len(pa.MotorFeatures) > 0 {
		fmt.Fprintf(w, "\n🎯 Motor System Features (%d found):\n", len(pa.MotorFeatures))
		fmt.Fprintln(w, "These regions are directly affected by dopamine loss in Parkinson's disease")
		for _, h := range pa.MotorFeatures {
			fmt.Fprintf(w, "  • %s: %.4f (%s)\n", h.Name, h.Score, h.Method)
		}
	}
	if len(pa.CognitiveFeatures) > 0 {
		fmt.Fprintf(w, "\n🧩 Cognitive System Features (%d found):\n", len(pa.CognitiveFeatures))
		for _, h := range pa.CognitiveFeatures {
			fmt.Fprintf(w, "  • %s: %.4f (%s)\n", h.Name, h.Score, h.Method)
		}
	}
	if len(pa.ConnectivityFeatures) > 0 {
		fmt.Fprintf(w, "\n🔗 Network Connectivity Features (%d found):\n", len(pa.ConnectivityFeatures))
		fmt.Fprintln(w, "Altered connectivity patterns are hallmarks of Parkinson's disease")
		for _, c := range pa.ConnectivityFeatures {
			fmt.Fprintf(w, "  • %s: %.4f\n", c.Name, c.Score)
			if c.From != "" {
				fmt.Fprintf(w, "    Connection between: %s ↔ %s\n", c.From, c.To)
			}
		}
	}
	if len(pa.FrequencyBands) > 0 {
		fmt.Fprintln(w, "\n📊 Brain Oscillation Features:")
		fmt.Fprintln(w, "Abnormal brain rhythms are associated with Parkinson's motor symptoms")
		for _, b := range pa.FrequencyBands {
			fmt.Fprintf(w, "  • %s: %d features, avg importance: %.4f\n", bandTitle(b.Band), b.Count, b.MeanScore)
		}
	}
}

// bandTitle renders low_freq as "Low Freq".
func bandTitle(band string) string {
	parts := strings.Split(band, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
