package ai

import (
	"math"
	"sort"
)

// Classification holds candidate labels ordered by descending score.
type Classification struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// NewClassification pairs labels with scores, normalizes the scores so they
// sum to one and sorts them in descending order. Ties keep the label order.
// Negative and NaN scores are treated as zero. When every score is zero the
// probability mass is spread evenly.
func NewClassification(labels []string, scores []float64) *Classification {
	type pair struct {
		label string
		score float64
	}

	pairs := make([]pair, len(labels))
	var total float64
	for i, label := range labels {
		var score float64
		if i < len(scores) {
			score = scores[i]
		}
		if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
			score = 0
		}
		pairs[i] = pair{label: label, score: score}
		total += score
	}

	for i := range pairs {
		if total == 0 {
			pairs[i].score = 1 / float64(len(pairs))
			continue
		}
		pairs[i].score /= total
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].score > pairs[j].score
	})

	c := &Classification{
		Labels: make([]string, len(pairs)),
		Scores: make([]float64, len(pairs)),
	}
	for i, p := range pairs {
		c.Labels[i] = p.label
		c.Scores[i] = p.score
	}
	return c
}

// Top returns the best label and its score.
func (c *Classification) Top() (string, float64) {
	if c == nil || len(c.Labels) == 0 {
		return "", 0
	}
	return c.Labels[0], c.Scores[0]
}

// Score returns the score assigned to label, or zero when it is unknown.
func (c *Classification) Score(label string) float64 {
	if c == nil {
		return 0
	}
	for i, l := range c.Labels {
		if l == label {
			return c.Scores[i]
		}
	}
	return 0
}

// Softmax converts logits into probabilities.
func Softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}
	maxVal := logits[0]
	for _, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - maxVal)
		sum += out[i]
	}
	if sum == 0 {
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// SortEntities orders entities by their start offset. Entities that could
// not be located (Start < 0) keep their relative order and go last.
func SortEntities(entities []Entity) {
	sort.SliceStable(entities, func(i, j int) bool {
		a, b := entities[i].Start, entities[j].Start
		if a < 0 {
			return false
		}
		if b < 0 {
			return true
		}
		return a < b
	})
}
