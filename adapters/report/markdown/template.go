package markdown

const reportTemplate = `# Parkinson's Disease fMRI Classification - Feature Importance Report

## Executive Summary

This report analyzes the most important brain features contributing to Parkinson's disease 
classification using functional MRI data. The analysis identifies key brain regions, 
connectivity patterns, and neural oscillations that distinguish patients from healthy controls.

## Best Performing Model: {{.BestModel}}

## Top 15 Most Important Features (Averaged Across Methods)

{{range $i, $f := .TopFeatures}}{{printf "%2d" (add $i 1)}}. **{{$f.Name}}**
    - Type: {{$f.Category}}
    - Importance Score: {{score $f.MeanScore}}
    - Average Rank: {{printf "%.1f" $f.MeanRank}}
    - Biological Relevance: {{$f.Interpretation}}

{{end}}
## Feature Type Analysis

| Feature Type | Count | Mean Importance | Std Importance |
|--------------|-------|-----------------|----------------|
{{range .Categories}}| {{.Category}} | {{.Count}} | {{score .Mean}} | {{score .Std}} |
{{end}}
## Clinical Implications

### Motor System Involvement
The prominence of motor-related features confirms the central role of motor circuit 
dysfunction in Parkinson's disease. Key findings include:

- **Basal Ganglia**: Core regions showing altered activity patterns
- **Motor Cortex**: Changes in baseline activity and variability
- **Thalamic Connections**: Disrupted relay function in motor circuits

### Network Connectivity Changes
Functional connectivity features indicate widespread network disruption:

- **Reduced Connectivity**: Between motor regions and other brain areas
- **Compensatory Changes**: Increased connectivity in some non-motor regions
- **Network Reorganization**: Altered communication patterns

### Brain Oscillation Abnormalities
Frequency domain features reveal altered neural rhythms:

- **Beta Band Changes**: Associated with motor symptoms
- **Low Frequency Alterations**: Related to network dysfunction
- **Regional Variations**: Different frequency patterns across brain regions

## Recommendations for Future Research

1. **Targeted ROI Analysis**: Focus on top-ranking brain regions for detailed study
2. **Longitudinal Studies**: Track feature changes over disease progression
3. **Treatment Response**: Monitor feature changes with dopaminergic therapy
4. **Subtype Analysis**: Identify features specific to different Parkinson's subtypes

## Technical Notes

- Analysis based on multiple feature importance methods for robustness
- Features ranked by average importance across all methods
- Biological interpretations based on current neuroscience literature
- Results should be validated in independent datasets
{{- if .RunID}}
- Run {{.RunID}}: {{.Samples}} samples, {{.Features}} features, generated {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}}
{{- end}}

---
*Report generated automatically by Parkinson's fMRI Analysis Pipeline*
`
