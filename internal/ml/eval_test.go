package ml

import (
	"math"
	"testing"
)

func TestAUCPerfectRanking(t *testing.T) {
	scores := []float64{0.1, 0.2, 0.8, 0.9}
	labels := []int{0, 0, 1, 1}
	if got := AUC(scores, labels); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("AUC = %v, want 1.0", got)
	}
}

func TestAUCReversedRanking(t *testing.T) {
	scores := []float64{0.9, 0.8, 0.2, 0.1}
	labels := []int{0, 0, 1, 1}
	if got := AUC(scores, labels); math.Abs(got) > 1e-9 {
		t.Fatalf("AUC = %v, want 0.0", got)
	}
}

func TestAUCTiesAndSingleClass(t *testing.T) {
	if got := AUC([]float64{0.5, 0.5, 0.5, 0.5}, []int{0, 1, 0, 1}); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("all-tied AUC = %v, want 0.5", got)
	}
	if got := AUC([]float64{0.3, 0.7}, []int{1, 1}); got != 0.5 {
		t.Fatalf("single-class AUC = %v, want 0.5", got)
	}
}

func TestAccuracy(t *testing.T) {
	scores := []float64{0.9, 0.1, 0.6, 0.4}
	labels := []int{1, 0, 0, 1}
	if got := Accuracy(scores, labels); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("accuracy = %v, want 0.5", got)
	}
}

func TestTrainValSplitStratified(t *testing.T) {
	var X [][]float64
	var y []int
	for i := 0; i < 30; i++ {
		X = append(X, []float64{float64(i)})
		y = append(y, i%2)
	}
	trainX, trainY, valX, valY := TrainValSplit(X, y, 0.2, 7)
	if len(trainX)+len(valX) != 30 {
		t.Fatalf("split lost rows: %d + %d", len(trainX), len(valX))
	}
	if len(valX) == 0 {
		t.Fatalf("validation set empty")
	}
	hasPos, hasNeg := false, false
	for _, l := range valY {
		if l == 1 {
			hasPos = true
		} else {
			hasNeg = true
		}
	}
	if !hasPos || !hasNeg {
		t.Fatalf("stratified split missing a class in validation: %v", valY)
	}
	_ = trainY
}

func TestTrainValSplitSingularClassFallsBack(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}, {5}}
	y := []int{1, 1, 1, 1, 0}
	trainX, _, valX, _ := TrainValSplit(X, y, 0.2, 7)
	if len(trainX)+len(valX) != 5 || len(valX) == 0 {
		t.Fatalf("fallback split broken: train=%d val=%d", len(trainX), len(valX))
	}
}
