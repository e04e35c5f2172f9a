package ml

import "math/rand"

// TrainValSplit partitions rows into train and validation sets.
// The split is stratified by label; when a class has fewer than two
// members stratification is abandoned and a plain shuffled split is
// used instead. Deterministic for a fixed seed.
func TrainValSplit(X [][]float64, y []int, valFrac float64, seed int64) (trainX [][]float64, trainY []int, valX [][]float64, valY []int) {
	if valFrac <= 0 || valFrac >= 1 {
		valFrac = 0.2
	}
	rng := rand.New(rand.NewSource(seed))

	var pos, neg []int
	for i, label := range y {
		if label == 1 {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}

	var valIdx map[int]bool
	if len(pos) >= 2 && len(neg) >= 2 {
		valIdx = make(map[int]bool)
		for _, class := range [][]int{pos, neg} {
			shuffled := append([]int(nil), class...)
			rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
			nVal := int(valFrac * float64(len(shuffled)))
			if nVal < 1 {
				nVal = 1
			}
			for _, i := range shuffled[:nVal] {
				valIdx[i] = true
			}
		}
	} else {
		// unstratified fallback
		all := make([]int, len(y))
		for i := range all {
			all[i] = i
		}
		rng.Shuffle(len(all), func(a, b int) { all[a], all[b] = all[b], all[a] })
		nVal := int(valFrac * float64(len(all)))
		if nVal < 1 && len(all) > 1 {
			nVal = 1
		}
		valIdx = make(map[int]bool, nVal)
		for _, i := range all[:nVal] {
			valIdx[i] = true
		}
	}

	for i := range y {
		if valIdx[i] {
			valX = append(valX, X[i])
			valY = append(valY, y[i])
		} else {
			trainX = append(trainX, X[i])
			trainY = append(trainY, y[i])
		}
	}
	return trainX, trainY, valX, valY
}
