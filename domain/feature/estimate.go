package feature

import (
	"fmt"
	"math"

	"pdlens/domain/core"
)

// InferROICount inverts CountForROIs exactly: (n² + 11n)/2 = F. It fails when
// no integer ROI count produces nFeatures.
func InferROICount(nFeatures int) (int, error) {
	if nFeatures <= 0 {
		return 0, core.NewROICountError(fmt.Sprintf("feature count must be positive, got %d", nFeatures))
	}
	n := int(math.Round((-11 + math.Sqrt(121+8*float64(nFeatures))) / 2))
	for _, candidate := range []int{n - 1, n, n + 1} {
		if candidate > 0 && CountForROIs(candidate) == nFeatures {
			return candidate, nil
		}
	}
	return 0, core.NewROICountError(fmt.Sprintf("%d features do not match any ROI count", nFeatures))
}

// RoughROIEstimate is the sqrt(F/6) shortcut that ignores the quadratic
// connectivity term. It under-counts for every n > 1 and exists only so the
// divergence stays visible in tests; never build names from it.
func RoughROIEstimate(nFeatures int) int {
	if nFeatures <= 0 {
		return 0
	}
	return int(math.Sqrt(float64(nFeatures) / 6))
}
