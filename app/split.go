package app

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"pdlens/domain/core"
	"pdlens/domain/dataset"
)

// DefaultTestFraction is the held-out share used when none is configured.
const DefaultTestFraction = 0.25

// SplitTrainTest shuffles each class with a seeded generator and moves
// ceil(fraction * classSize) rows of every class to the test set, keeping
// at least one row of each class on both sides.
func SplitTrainTest(ds *dataset.Dataset, fraction float64, seed int64) (train, test *dataset.Dataset, err error) {
	if fraction <= 0 || fraction >= 1 {
		fraction = DefaultTestFraction
	}
	byClass := [2][]int{}
	for i, y := range ds.Labels {
		byClass[int(y)] = append(byClass[int(y)], i)
	}

	r := rand.New(rand.NewSource(seed))
	var trainIdx, testIdx []int
	for c, rows := range byClass {
		if len(rows) < 2 {
			return nil, nil, fmt.Errorf("%w: class %d has %d rows, need 2 to split", core.ErrInsufficientData, c, len(rows))
		}
		r.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		nTest := int(math.Ceil(fraction * float64(len(rows))))
		if nTest >= len(rows) {
			nTest = len(rows) - 1
		}
		testIdx = append(testIdx, rows[:nTest]...)
		trainIdx = append(trainIdx, rows[nTest:]...)
	}
	sort.Ints(trainIdx)
	sort.Ints(testIdx)
	return ds.Subset(trainIdx), ds.Subset(testIdx), nil
}
