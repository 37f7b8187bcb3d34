package forest

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// node is a CART node; leaves carry the share of class-1 samples.
type node struct {
	leaf      bool
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
}

type tree struct {
	nodes       []node
	importances []float64 // raw weighted impurity decrease per feature
}

// treeBuilder grows one tree over a bootstrap sample.
type treeBuilder struct {
	x           *mat.Dense
	y           []float64
	maxDepth    int
	minSplit    int
	maxFeatures int
	rng         *rand.Rand
	t           *tree
}

func (b *treeBuilder) grow(rows []int) *tree {
	_, cols := b.x.Dims()
	b.t = &tree{importances: make([]float64, cols)}
	b.build(rows, 0)
	return b.t
}

func (b *treeBuilder) build(rows []int, depth int) int {
	idx := len(b.t.nodes)
	b.t.nodes = append(b.t.nodes, node{})

	n := len(rows)
	pos := 0
	for _, r := range rows {
		if b.y[r] == 1 {
			pos++
		}
	}
	share := float64(pos) / float64(n)

	if depth >= b.maxDepth || n < b.minSplit || pos == 0 || pos == n {
		b.t.nodes[idx] = node{leaf: true, value: share}
		return idx
	}

	split, ok := b.bestSplit(rows, pos)
	if !ok {
		b.t.nodes[idx] = node{leaf: true, value: share}
		return idx
	}
	b.t.importances[split.feature] += split.gain

	var left, right []int
	for _, r := range rows {
		if b.x.At(r, split.feature) <= split.threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	l := b.build(left, depth+1)
	rt := b.build(right, depth+1)
	b.t.nodes[idx] = node{feature: split.feature, threshold: split.threshold, left: l, right: rt}
	return idx
}

type candidate struct {
	feature   int
	threshold float64
	gain      float64
}

// bestSplit samples features without replacement and keeps drawing past
// maxFeatures until at least one valid partition exists.
func (b *treeBuilder) bestSplit(rows []int, pos int) (candidate, bool) {
	_, cols := b.x.Dims()
	n := float64(len(rows))
	parent := n * gini(float64(pos), n)

	best := candidate{gain: 0}
	found := false
	sorted := make([]int, len(rows))

	for examined, f := range b.rng.Perm(cols) {
		if examined >= b.maxFeatures && found {
			break
		}
		copy(sorted, rows)
		sort.Slice(sorted, func(i, j int) bool {
			return b.x.At(sorted[i], f) < b.x.At(sorted[j], f)
		})

		leftPos := 0.0
		for i := 0; i < len(sorted)-1; i++ {
			if b.y[sorted[i]] == 1 {
				leftPos++
			}
			v, next := b.x.At(sorted[i], f), b.x.At(sorted[i+1], f)
			if v == next {
				continue
			}
			nl := float64(i + 1)
			nr := n - nl
			rightPos := float64(pos) - leftPos
			gain := parent - nl*gini(leftPos, nl) - nr*gini(rightPos, nr)
			if !found || gain > best.gain {
				thr := (v + next) / 2
				if thr == next {
					thr = v
				}
				best = candidate{feature: f, threshold: thr, gain: gain}
				found = true
			}
		}
	}
	return best, found
}

// gini returns the impurity of a node with pos class-1 samples out of n.
func gini(pos, n float64) float64 {
	if n == 0 {
		return 0
	}
	p := pos / n
	return 2 * p * (1 - p)
}

// proba walks the tree for one row.
func (t *tree) proba(row []float64) float64 {
	i := 0
	for {
		nd := t.nodes[i]
		if nd.leaf {
			return nd.value
		}
		if row[nd.feature] <= nd.threshold {
			i = nd.left
		} else {
			i = nd.right
		}
	}
}

// normalisedImportances returns per-feature importances summing to one, or
// nil when the tree never split.
func (t *tree) normalisedImportances() []float64 {
	total := 0.0
	for _, v := range t.importances {
		total += v
	}
	if total <= 0 {
		return nil
	}
	out := make([]float64, len(t.importances))
	for i, v := range t.importances {
		out[i] = v / total
	}
	return out
}
