package score

import (
	"math"
	"sort"
)

// LabeledScore pairs a memorability score with the event's ground-truth
// notability flag.
type LabeledScore struct {
	Score float64
	Truth bool
}

// ROCPoint is one operating point of the ROC curve: the true and false
// positive rates when everything scoring at or above Threshold is called
// notable.
type ROCPoint struct {
	Threshold float64 `json:"threshold"`
	TPR       float64 `json:"tpr"`
	FPR       float64 `json:"fpr"`
}

// Evaluation summarizes how well scores separate ground-truth-notable
// events from the rest of the corpus.
type Evaluation struct {
	Positives int        `json:"positives"`
	Negatives int        `json:"negatives"`
	AUC       float64    `json:"auc"`
	Points    []ROCPoint `json:"points"`
}

// Evaluate sweeps the score threshold from high to low and returns the ROC
// curve with its area. It returns nil unless both classes are present;
// a single-class corpus has no separation to measure.
func Evaluate(scored []LabeledScore) *Evaluation {
	var pos, neg int
	for _, s := range scored {
		if s.Truth {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return nil
	}

	sorted := make([]LabeledScore, len(scored))
	copy(sorted, scored)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	ev := &Evaluation{Positives: pos, Negatives: neg}
	ev.Points = append(ev.Points, ROCPoint{Threshold: math.Inf(1)})

	var tp, fp int
	for i, s := range sorted {
		if s.Truth {
			tp++
		} else {
			fp++
		}
		// Tied scores share one operating point: emit after the last of a
		// run, or thresholding could not reproduce the intermediate rates.
		if i+1 < len(sorted) && sorted[i+1].Score == s.Score {
			continue
		}
		ev.Points = append(ev.Points, ROCPoint{
			Threshold: s.Score,
			TPR:       float64(tp) / float64(pos),
			FPR:       float64(fp) / float64(neg),
		})
	}

	// Trapezoid rule over the swept points.
	for i := 1; i < len(ev.Points); i++ {
		a, b := ev.Points[i-1], ev.Points[i]
		ev.AUC += (b.FPR - a.FPR) * (a.TPR + b.TPR) / 2
	}
	return ev
}
