package app

import (
	"testing"

	"pdlens/domain/core"
	"pdlens/domain/dataset"
	"pdlens/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTrainTestIsStratified(t *testing.T) {
	g, err := testkit.NewCohortGenerator(testkit.DefaultCohortConfig())
	require.NoError(t, err)
	ds, err := g.Generate()
	require.NoError(t, err)

	train, test, err := SplitTrainTest(ds, 0.25, 42)
	require.NoError(t, err)
	assert.Equal(t, ds.Rows(), train.Rows()+test.Rows())
	assert.Equal(t, [2]int{8, 8}, test.ClassCounts())
	assert.Equal(t, [2]int{22, 22}, train.ClassCounts())
	assert.Equal(t, ds.FeatureNames, train.FeatureNames)
}

func TestSplitTrainTestIsSeeded(t *testing.T) {
	ds := testkit.ToyDataset()
	_, a, err := SplitTrainTest(ds, 0.3, 1)
	require.NoError(t, err)
	_, b, err := SplitTrainTest(ds, 0.3, 1)
	require.NoError(t, err)
	assert.Equal(t, a.X.RawMatrix().Data, b.X.RawMatrix().Data)
}

func TestSplitTrainTestDefaultsFraction(t *testing.T) {
	ds := testkit.ToyDataset()
	_, test, err := SplitTrainTest(ds, 0, 42)
	require.NoError(t, err)
	assert.Equal(t, [2]int{2, 2}, test.ClassCounts(), "ceil(0.25 * 5) per class")
}

func TestSplitTrainTestNeedsTwoRowsPerClass(t *testing.T) {
	ds, err := dataset.FromRows([][]float64{{1}, {2}, {3}}, []float64{0, 0, 1})
	require.NoError(t, err)
	_, _, err = SplitTrainTest(ds, 0.25, 42)
	assert.ErrorIs(t, err, core.ErrInsufficientData)
}
