package interpret

// Category is the coarse feature family a feature name belongs to.
type Category string

const (
	CategoryMeanActivity Category = "ROI Mean Activity"
	CategoryVariability  Category = "ROI Variability"
	CategoryConnectivity Category = "Functional Connectivity"
	CategoryFrequency    Category = "Frequency Power"
	CategoryOther        Category = "Other"
)

// Categories lists every category in report order.
var Categories = []Category{
	CategoryMeanActivity,
	CategoryVariability,
	CategoryConnectivity,
	CategoryFrequency,
	CategoryOther,
}

func (c Category) String() string { return string(c) }
