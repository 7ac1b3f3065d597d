package session

import (
	"sort"

	"peerprep/interview/internal/models"
	"peerprep/interview/internal/utils"
)

// Aggregator turns raw expression samples into contiguous labelled segments.
// Only the configured labels are kept in the output.
type Aggregator struct {
	tracked map[string]struct{}
}

func NewAggregator(labels []string) *Aggregator {
	tracked := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if l = utils.NormalizeLabel(l); l != "" {
			tracked[l] = struct{}{}
		}
	}
	return &Aggregator{tracked: tracked}
}

// Tracked returns the retained labels in sorted order.
func (a *Aggregator) Tracked() []string {
	out := make([]string, 0, len(a.tracked))
	for l := range a.tracked {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Segments normalises labels, sorts a copy of samples by timestamp (ties broken by label so any
// permutation of the same samples gives the same result) and collapses runs
// of identical consecutive expressions into segments.
func (a *Aggregator) Segments(samples []models.FaceExpression) map[string][]models.Segment {
	out := make(map[string][]models.Segment)
	if len(samples) == 0 {
		return out
	}

	sorted := make([]models.FaceExpression, len(samples))
	for i, sample := range samples {
		sample.ExpressionState = utils.NormalizeLabel(sample.ExpressionState)
		sorted[i] = sample
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].TimeStamp != sorted[j].TimeStamp {
			return sorted[i].TimeStamp < sorted[j].TimeStamp
		}
		return sorted[i].ExpressionState < sorted[j].ExpressionState
	})

	current := models.Segment{
		Expression: sorted[0].ExpressionState,
		StartTime:  sorted[0].TimeStamp,
		EndTime:    sorted[0].TimeStamp,
	}
	for _, sample := range sorted[1:] {
		if sample.ExpressionState == current.Expression {
			current.EndTime = sample.TimeStamp
			continue
		}
		a.emit(out, current)
		current = models.Segment{
			Expression: sample.ExpressionState,
			StartTime:  sample.TimeStamp,
			EndTime:    sample.TimeStamp,
		}
	}
	a.emit(out, current)

	return out
}

func (a *Aggregator) emit(out map[string][]models.Segment, seg models.Segment) {
	if _, ok := a.tracked[seg.Expression]; !ok {
		return
	}
	out[seg.Expression] = append(out[seg.Expression], seg)
}
