package ml

import "sort"

// AUC computes the area under the ROC curve from scores and binary
// labels using the rank statistic, with the midrank correction for
// tied scores. Returns 0.5 when only one class is present.
func AUC(scores []float64, labels []int) float64 {
	n := len(scores)
	if n == 0 || n != len(labels) {
		return 0.5
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && scores[idx[j+1]] == scores[idx[i]] {
			j++
		}
		mid := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = mid
		}
		i = j + 1
	}

	var pos, rankSum float64
	for i, l := range labels {
		if l == 1 {
			pos++
			rankSum += ranks[i]
		}
	}
	neg := float64(n) - pos
	if pos == 0 || neg == 0 {
		return 0.5
	}
	return (rankSum - pos*(pos+1)/2) / (pos * neg)
}

// Accuracy scores predictions against labels at a 0.5 threshold.
func Accuracy(scores []float64, labels []int) float64 {
	if len(scores) == 0 || len(scores) != len(labels) {
		return 0
	}
	correct := 0
	for i, s := range scores {
		pred := 0
		if s >= 0.5 {
			pred = 1
		}
		if pred == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(scores))
}
