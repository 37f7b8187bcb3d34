// Package interpret maps feature names to categories and to short biological
// explanations using explicit, prioritised substring rules.
package interpret

import (
	"sort"
	"strings"
)

// CategoryRule assigns Category to names containing Pattern. Lower Priority
// values are evaluated first.
type CategoryRule struct {
	Priority int
	Pattern  string
	Category Category
}

// BiologyRule attaches Sentence to names whose lowercase form contains the
// lowercase Pattern.
type BiologyRule struct {
	Priority int
	Pattern  string
	Sentence string
}

// DefaultInterpretation is returned when no biology rule matches.
const DefaultInterpretation = "May reflect disease-related changes in brain structure or function"

// DefaultCategoryRules: _mean_activity outranks FC_ when both appear.
var DefaultCategoryRules = []CategoryRule{
	{Priority: 10, Pattern: "_mean_activity", Category: CategoryMeanActivity},
	{Priority: 20, Pattern: "_std_activity", Category: CategoryVariability},
	{Priority: 21, Pattern: "_var_activity", Category: CategoryVariability},
	{Priority: 30, Pattern: "FC_", Category: CategoryConnectivity},
	{Priority: 40, Pattern: "_freq_power", Category: CategoryFrequency},
}

// DefaultBiologyRules are ordered from specific anatomy to generic feature kinds.
var DefaultBiologyRules = []BiologyRule{
	{Priority: 10, Pattern: "motor", Sentence: "Motor control regions - directly affected by dopamine loss in Parkinson's"},
	{Priority: 20, Pattern: "basal_ganglia", Sentence: "Core region affected in Parkinson's - dopaminergic neuron loss"},
	{Priority: 30, Pattern: "substantia_nigra", Sentence: "Primary site of dopamine neuron death in Parkinson's"},
	{Priority: 40, Pattern: "putamen", Sentence: "Part of basal ganglia - motor control and habit formation"},
	{Priority: 50, Pattern: "caudate", Sentence: "Part of basal ganglia - executive function and movement initiation"},
	{Priority: 60, Pattern: "thalamus", Sentence: "Relay station - altered in Parkinson's motor circuits"},
	{Priority: 70, Pattern: "cerebellum", Sentence: "Motor coordination - compensatory changes in Parkinson's"},
	{Priority: 80, Pattern: "frontal", Sentence: "Executive function - affected in Parkinson's cognitive symptoms"},
	{Priority: 90, Pattern: "FC_", Sentence: "Altered brain network connectivity - hallmark of Parkinson's"},
	{Priority: 100, Pattern: "freq_power", Sentence: "Abnormal brain oscillations - beta band changes in Parkinson's"},
}

// Interpreter evaluates category and biology rules in priority order.
type Interpreter struct {
	categoryRules []CategoryRule
	biologyRules  []BiologyRule
}

// NewInterpreter copies and sorts the rules by priority. Equal priorities keep
// their given order.
func NewInterpreter(categoryRules []CategoryRule, biologyRules []BiologyRule) *Interpreter {
	cr := make([]CategoryRule, len(categoryRules))
	copy(cr, categoryRules)
	sort.SliceStable(cr, func(i, j int) bool { return cr[i].Priority < cr[j].Priority })

	br := make([]BiologyRule, len(biologyRules))
	for i, r := range biologyRules {
		r.Pattern = strings.ToLower(r.Pattern)
		br[i] = r
	}
	sort.SliceStable(br, func(i, j int) bool { return br[i].Priority < br[j].Priority })

	return &Interpreter{categoryRules: cr, biologyRules: br}
}

// Default is the interpreter built from the default rule tables.
var Default = NewInterpreter(DefaultCategoryRules, DefaultBiologyRules)

// Categorize returns the first matching category, or CategoryOther.
func (in *Interpreter) Categorize(name string) Category {
	for _, r := range in.categoryRules {
		if strings.Contains(name, r.Pattern) {
			return r.Category
		}
	}
	return CategoryOther
}

// Interpret returns the first matching biological sentence, or
// DefaultInterpretation.
func (in *Interpreter) Interpret(name string) string {
	lower := strings.ToLower(name)
	for _, r := range in.biologyRules {
		if strings.Contains(lower, r.Pattern) {
			return r.Sentence
		}
	}
	return DefaultInterpretation
}

// Categorize uses the default rules.
func Categorize(name string) Category {
	return Default.Categorize(name)
}

// Interpret uses the default rules.
func Interpret(name string) string {
	return Default.Interpret(name)
}

// ContainsAny reports whether name contains any keyword, case-insensitively.
func ContainsAny(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, k := range keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// MotorKeywords select motor-system regions in the Parkinson's analysis.
var MotorKeywords = []string{"motor", "basal", "putamen", "caudate", "substantia", "thalamus"}

// CognitiveKeywords select executive and cognitive regions.
var CognitiveKeywords = []string{"frontal", "prefrontal", "anterior", "cingulate"}
