package perturb

import (
	"github.com/ironsheep/image-sweep/internal/dataset"
	"github.com/ironsheep/image-sweep/internal/detection"
	"github.com/ironsheep/image-sweep/internal/imaging"
	"github.com/ironsheep/image-sweep/internal/metadata"
	"github.com/pkg/errors"
)

// resizeTo is a nearest-neighbour resampler used as a geometric perturber.
type resizeTo struct {
	w, h  int
	calls *int
}

func (r resizeTo) Perturb(img *imaging.Array, _ metadata.Map) (*imaging.Array, error) {
	if r.calls != nil {
		*r.calls++
	}
	out := imaging.NewArray(r.h, r.w, img.Channels)
	for y := 0; y < r.h; y++ {
		for x := 0; x < r.w; x++ {
			sy, sx := y*img.Height/r.h, x*img.Width/r.w
			for c := 0; c < img.Channels; c++ {
				out.Set(y, x, c, img.At(sy, sx, c))
			}
		}
	}
	return out, nil
}

func (r resizeTo) Config() map[string]any {
	return map[string]any{"w": r.w, "h": r.h}
}

// invert modifies its input in place.
type invert struct{}

func (invert) Perturb(img *imaging.Array, _ metadata.Map) (*imaging.Array, error) {
	for i := range img.Pix {
		img.Pix[i] = 255 - img.Pix[i]
	}
	return img, nil
}

func (invert) Config() map[string]any { return map[string]any{} }

type nop struct{}

func (nop) Perturb(img *imaging.Array, _ metadata.Map) (*imaging.Array, error) { return img, nil }
func (nop) Config() map[string]any                                            { return map[string]any{} }

// needsGSD declares img_gsd and counts invocations.
type needsGSD struct {
	calls *int
}

func (n needsGSD) Perturb(img *imaging.Array, md metadata.Map) (*imaging.Array, error) {
	*n.calls++
	return img, nil
}

func (needsGSD) Config() map[string]any     { return map[string]any{"altitude": 75.0} }
func (needsGSD) RequiredMetadata() []string { return []string{"img_gsd"} }

type failing struct{}

func (failing) Perturb(*imaging.Array, metadata.Map) (*imaging.Array, error) {
	return nil, errors.New("boom")
}
func (failing) Config() map[string]any { return nil }

// listFactory yields a fixed list of perturbers and combinations.
type listFactory struct {
	keys   []string
	combos []Combination
	build  func(Combination) Perturber
}

func (f listFactory) ThetaKeys() []string { return f.keys }
func (f listFactory) Len() int            { return len(f.combos) }
func (f listFactory) At(i int) (Perturber, Combination, error) {
	if i < 0 || i >= len(f.combos) {
		return nil, nil, errors.Errorf("index %d", i)
	}
	return f.build(f.combos[i]), f.combos[i], nil
}

func sizeFactory(sizes ...[2]int) listFactory {
	f := listFactory{keys: []string{"w", "h"}}
	for _, s := range sizes {
		f.combos = append(f.combos, Combination{"w": s[0], "h": s[1]})
	}
	f.build = func(c Combination) Perturber {
		return resizeTo{w: c["w"].(int), h: c["h"].(int)}
	}
	return f
}

func gradient(h, w int) *imaging.Array {
	a := imaging.NewArray(h, w, 3)
	for i := range a.Pix {
		a.Pix[i] = uint8(i % 251)
	}
	return a
}

func mustTarget(boxes []detection.Box, labels []int, scores []float64) detection.Target {
	t, err := detection.NewTarget(boxes, labels, scores)
	if err != nil {
		panic(err)
	}
	return t
}

// countingDataset wraps a dataset and counts Get calls.
type countingDataset struct {
	dataset.Dataset
	gets int
}

func (c *countingDataset) Get(i int) (dataset.Datum, error) {
	c.gets++
	return c.Dataset.Get(i)
}

func testDataset(n int, md func(i int) metadata.Map) *countingDataset {
	images := make([]*imaging.Array, n)
	targets := make([]detection.Target, n)
	mds := make([]metadata.Map, n)
	for i := 0; i < n; i++ {
		images[i] = gradient(16, 16)
		targets[i] = mustTarget(
			[]detection.Box{{4, 8, 12, 16}, {0, 0, float64(i + 1), 2}},
			[]int{i % 3, 7},
			[]float64{1, 0.5},
		)
		mds[i] = metadata.Map{"id": metadata.String(string(rune('a' + i)))}
		if md != nil {
			mds[i] = mds[i].Merge(md(i))
		}
	}
	m, err := dataset.NewMemory(images, targets, mds)
	if err != nil {
		panic(err)
	}
	return &countingDataset{Dataset: m}
}
