package detection

import (
	"sort"

	"github.com/pkg/errors"
)

// ErrShapeMismatch is returned when boxes, labels and scores differ in length.
var ErrShapeMismatch = errors.New("detection target shape mismatch")

// Target is the set of detections for one image. The zero value is a valid
// target with no detections.
type Target struct {
	boxes  []Box
	labels []int
	scores []float64
}

// NewTarget builds a Target from three parallel sequences. The slices are
// copied, so later changes by the caller do not leak into the target.
func NewTarget(boxes []Box, labels []int, scores []float64) (Target, error) {
	if len(boxes) != len(labels) || len(boxes) != len(scores) {
		return Target{}, errors.Wrapf(ErrShapeMismatch,
			"boxes=%d labels=%d scores=%d", len(boxes), len(labels), len(scores))
	}
	return Target{
		boxes:  append([]Box(nil), boxes...),
		labels: append([]int(nil), labels...),
		scores: append([]float64(nil), scores...),
	}, nil
}

// GroundTruth builds a Target whose scores are all 1.0.
func GroundTruth(boxes []Box, labels []int) (Target, error) {
	scores := make([]float64, len(boxes))
	for i := range scores {
		scores[i] = 1.0
	}
	return NewTarget(boxes, labels, scores)
}

// Len returns the number of detections.
func (t Target) Len() int { return len(t.boxes) }

// At returns the aligned (box, label, score) triple at index i.
// It panics if i is out of range, like a slice index.
func (t Target) At(i int) (Box, int, float64) {
	return t.boxes[i], t.labels[i], t.scores[i]
}

// Boxes returns a copy of the boxes.
func (t Target) Boxes() []Box { return append([]Box(nil), t.boxes...) }

// Labels returns a copy of the labels.
func (t Target) Labels() []int { return append([]int(nil), t.labels...) }

// Scores returns a copy of the scores.
func (t Target) Scores() []float64 { return append([]float64(nil), t.scores...) }

// Clone returns a deep copy that shares no storage with t.
func (t Target) Clone() Target {
	return Target{
		boxes:  t.Boxes(),
		labels: t.Labels(),
		scores: t.Scores(),
	}
}

// Scale returns a new Target whose box x-coordinates are multiplied by sx and
// y-coordinates by sy. Labels and scores are carried through unchanged and in
// the same order.
func (t Target) Scale(sx, sy float64) Target {
	out := t.Clone()
	for i, b := range out.boxes {
		out.boxes[i] = b.Scale(sx, sy)
	}
	return out
}

// UniqueLabels returns the distinct labels in ascending order.
func (t Target) UniqueLabels() []int {
	seen := make(map[int]struct{}, len(t.labels))
	var out []int
	for _, l := range t.labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}

// Equal reports whether two targets hold identical detections in the same order.
func (t Target) Equal(o Target) bool {
	if t.Len() != o.Len() {
		return false
	}
	for i := range t.boxes {
		if t.boxes[i] != o.boxes[i] || t.labels[i] != o.labels[i] || t.scores[i] != o.scores[i] {
			return false
		}
	}
	return true
}
