package ranking

import (
	"math"
	"sort"
)

// Prediction is one ranked entry of a classification result.
type Prediction struct {
	Rank                 int     `json:"rank"`
	ClassName            string  `json:"class_name"`
	ClassID              int     `json:"class_id"`
	Probability          float64 `json:"probability"`
	ConfidencePercentage float64 `json:"confidence_percentage"`
}

// Namer resolves a class index to its label.
type Namer interface {
	Name(index int) string
}

// TopK returns the k highest scores in descending order. Equal scores keep
// their original index order. A k below 1 is treated as 1 and a k above the
// vector length returns the whole vector.
func TopK(scores []float32, k int, names Namer) []Prediction {
	if len(scores) == 0 {
		return []Prediction{}
	}

	if k < 1 {
		k = 1
	}
	if k > len(scores) {
		k = len(scores)
	}

	indices := make([]int, len(scores))
	for i := range indices {
		indices[i] = i
	}

	sort.SliceStable(indices, func(a, b int) bool {
		return greater(scores[indices[a]], scores[indices[b]])
	})

	predictions := make([]Prediction, 0, k)
	for rank, idx := range indices[:k] {
		probability := float64(scores[idx])
		predictions = append(predictions, Prediction{
			Rank:                 rank + 1,
			ClassName:            names.Name(idx),
			ClassID:              idx,
			Probability:          probability,
			ConfidencePercentage: Percentage(probability),
		})
	}

	return predictions
}

// Percentage converts a probability to a percentage rounded to 2 decimals.
func Percentage(probability float64) float64 {
	return math.Round(probability*100*100) / 100
}

// NaN sorts after every number.
func greater(a, b float32) bool {
	if math.IsNaN(float64(b)) {
		return !math.IsNaN(float64(a))
	}

	return a > b
}
