package ml

import (
	"fmt"
	"math"
	"sort"
)

// GBMConfig controls gradient-boosted training. Zero values are replaced
// by defaults in NewGradientBoosted.
type GBMConfig struct {
	Trees        int     `json:"trees"`
	MaxDepth     int     `json:"max_depth"`
	LearningRate float64 `json:"learning_rate"`
	MinLeaf      int     `json:"min_leaf"`
	Seed         int64   `json:"seed"`
}

// TreeNode is one node of a regression tree. Leaves carry the Newton-step
// value added to the running log-odds.
type TreeNode struct {
	Leaf      bool      `json:"leaf"`
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Value     float64   `json:"value,omitempty"`
	Left      *TreeNode `json:"left,omitempty"`
	Right     *TreeNode `json:"right,omitempty"`
}

// GradientBoosted is a binary classifier: an ensemble of shallow
// regression trees fit on logistic-loss gradients. All fields are
// exported so a fitted model round-trips through JSON.
type GradientBoosted struct {
	Config GBMConfig   `json:"config"`
	Base   float64     `json:"base"` // initial log-odds
	Trees  []*TreeNode `json:"trees"`
}

// NewGradientBoosted creates an unfitted classifier.
func NewGradientBoosted(cfg GBMConfig) *GradientBoosted {
	if cfg.Trees <= 0 {
		cfg.Trees = 50
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 3
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.1
	}
	if cfg.MinLeaf <= 0 {
		cfg.MinLeaf = 3
	}
	return &GradientBoosted{Config: cfg}
}

// Fit trains the ensemble. X rows must all share the same length.
// Training is deterministic for a fixed input: splits are greedy over
// sorted feature values, no subsampling.
func (g *GradientBoosted) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("gbm fit: %d rows, %d labels", len(X), len(y))
	}
	dim := len(X[0])
	for i, row := range X {
		if len(row) != dim {
			return fmt.Errorf("gbm fit: row %d has %d features, want %d", i, len(row), dim)
		}
	}

	pos := 0
	for _, label := range y {
		if label == 1 {
			pos++
		}
	}
	// Degenerate single-class input still fits: base log-odds saturates
	// and no tree finds a useful split.
	p := (float64(pos) + 0.5) / (float64(len(y)) + 1.0)
	g.Base = math.Log(p / (1 - p))
	g.Trees = g.Trees[:0]

	scores := make([]float64, len(y))
	for i := range scores {
		scores[i] = g.Base
	}

	grad := make([]float64, len(y))
	hess := make([]float64, len(y))
	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}

	for t := 0; t < g.Config.Trees; t++ {
		for i := range y {
			pi := sigmoid(scores[i])
			grad[i] = float64(y[i]) - pi
			hess[i] = pi * (1 - pi)
		}
		root := g.buildNode(X, grad, hess, idx, 0)
		if root == nil {
			break
		}
		g.Trees = append(g.Trees, root)
		for i := range y {
			scores[i] += g.Config.LearningRate * evalTree(root, X[i])
		}
	}
	return nil
}

// PredictProba returns the probability of the positive class.
func (g *GradientBoosted) PredictProba(x []float64) float64 {
	score := g.Base
	for _, tr := range g.Trees {
		score += g.Config.LearningRate * evalTree(tr, x)
	}
	return sigmoid(score)
}

func (g *GradientBoosted) buildNode(X [][]float64, grad, hess []float64, idx []int, depth int) *TreeNode {
	if len(idx) == 0 {
		return nil
	}
	if depth >= g.Config.MaxDepth || len(idx) < 2*g.Config.MinLeaf {
		return leafNode(grad, hess, idx)
	}

	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	sumG, sumH := sums(grad, hess, idx)
	parentScore := gainScore(sumG, sumH)

	dim := len(X[idx[0]])
	order := make([]int, len(idx))
	for f := 0; f < dim; f++ {
		copy(order, idx)
		sortByFeature(order, X, f)

		leftG, leftH := 0.0, 0.0
		for i := 0; i < len(order)-1; i++ {
			j := order[i]
			leftG += grad[j]
			leftH += hess[j]
			// no split between equal values
			if X[order[i]][f] == X[order[i+1]][f] {
				continue
			}
			if i+1 < g.Config.MinLeaf || len(order)-i-1 < g.Config.MinLeaf {
				continue
			}
			gain := gainScore(leftG, leftH) + gainScore(sumG-leftG, sumH-leftH) - parentScore
			if gain > bestGain+1e-12 {
				bestGain = gain
				bestFeature = f
				bestThreshold = (X[order[i]][f] + X[order[i+1]][f]) / 2
			}
		}
	}

	if bestFeature < 0 {
		return leafNode(grad, hess, idx)
	}

	var left, right []int
	for _, j := range idx {
		if X[j][bestFeature] <= bestThreshold {
			left = append(left, j)
		} else {
			right = append(right, j)
		}
	}
	return &TreeNode{
		Feature:   bestFeature,
		Threshold: bestThreshold,
		Left:      g.buildNode(X, grad, hess, left, depth+1),
		Right:     g.buildNode(X, grad, hess, right, depth+1),
	}
}

func leafNode(grad, hess []float64, idx []int) *TreeNode {
	sumG, sumH := sums(grad, hess, idx)
	v := sumG / (sumH + 1e-6)
	if v > 4 {
		v = 4
	}
	if v < -4 {
		v = -4
	}
	return &TreeNode{Leaf: true, Value: v}
}

func evalTree(n *TreeNode, x []float64) float64 {
	for !n.Leaf {
		if n.Feature < len(x) && x[n.Feature] <= n.Threshold {
			if n.Left == nil {
				break
			}
			n = n.Left
		} else {
			if n.Right == nil {
				break
			}
			n = n.Right
		}
	}
	return n.Value
}

func sums(grad, hess []float64, idx []int) (float64, float64) {
	var g, h float64
	for _, j := range idx {
		g += grad[j]
		h += hess[j]
	}
	return g, h
}

func gainScore(sumG, sumH float64) float64 {
	return sumG * sumG / (sumH + 1e-6)
}

func sortByFeature(idx []int, X [][]float64, f int) {
	sort.SliceStable(idx, func(a, b int) bool { return X[idx[a]][f] < X[idx[b]][f] })
}

func sigmoid(z float64) float64 {
	if z > 35 {
		return 1
	}
	if z < -35 {
		return 0
	}
	return 1 / (1 + math.Exp(-z))
}
