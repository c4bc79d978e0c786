package entity

import "time"

// ClassificationResult is the outcome of the recognizer cascade. Immutable
// once produced.
type ClassificationResult struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	IsFood     bool    `json:"is_food"`
}

// FoodEstimate is a plausibility-bounded serving estimate.
type FoodEstimate struct {
	WeightGrams int `json:"weight_grams"`
	Calories    int `json:"calories"`
}

// CacheEntry is the last estimate recorded for a label. Labels are not
// unique across images; a later identify for the same label overwrites.
type CacheEntry struct {
	Label       string    `json:"label"`
	WeightGrams int       `json:"weight_grams"`
	Calories    int       `json:"calories"`
	RecordedAt  time.Time `json:"recorded_at"`
}
