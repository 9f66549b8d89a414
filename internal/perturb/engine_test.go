package perturb

import (
	"context"
	"testing"

	"github.com/ironsheep/image-sweep/internal/dataset"
	"github.com/ironsheep/image-sweep/internal/detection"
	"github.com/ironsheep/image-sweep/internal/metadata"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_StepsCoverEveryCombination(t *testing.T) {
	ds := testDataset(3, nil)
	f := sizeFactory([2]int{8, 8}, [2]int{32, 16}, [2]int{4, 64})
	eng := NewEngine(ds, f)

	var labels []string
	it := eng.Steps()
	for it.Next() {
		st := it.Step()
		labels = append(labels, it.Label())
		assert.Equal(t, st.Label, it.Label())
		assert.Equal(t, st.Combination, it.Combination())

		require.Equal(t, ds.Len(), it.Dataset().Len())
		w := st.Combination["w"].(int)
		h := st.Combination["h"].(int)
		for i := 0; i < ds.Len(); i++ {
			d, err := it.Dataset().Get(i)
			require.NoError(t, err)
			assert.Equal(t, w, d.Image.Width)
			assert.Equal(t, h, d.Image.Height)

			src, _ := ds.Get(i)
			assert.Equal(t, src.Target.Labels(), d.Target.Labels())
			assert.Equal(t, src.Target.Scores(), d.Target.Scores())
			assert.Equal(t, src.Target.Scale(float64(w)/16, float64(h)/16).Boxes(), d.Target.Boxes())
			assert.True(t, d.Metadata.Has("sweep::perturber"))
		}
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"_w-8_h-8", "_w-32_h-16", "_w-4_h-64"}, labels)
	assert.False(t, it.Next(), "exhausted iterator must stay exhausted")
}

func TestEngine_ReadsDatasetOnce(t *testing.T) {
	ds := testDataset(4, nil)
	eng := NewEngine(ds, sizeFactory([2]int{8, 8}, [2]int{4, 4}))

	n := 0
	for it := eng.Steps(); it.Next(); {
		n++
	}
	assert.Equal(t, 2, n)
	assert.Equal(t, 4, ds.gets)

	// A second pass restarts from the first combination without rereading.
	it := eng.Steps()
	require.True(t, it.Next())
	assert.Equal(t, "_w-8_h-8", it.Label())
	assert.Equal(t, 4, ds.gets)
}

func TestEngine_InputUnchanged(t *testing.T) {
	ds := testDataset(2, nil)
	before := make([]dataset.Datum, ds.Len())
	for i := range before {
		before[i], _ = ds.Get(i)
	}

	f := listFactory{
		keys:   []string{"k"},
		combos: []Combination{{"k": 1}, {"k": 2}},
		build:  func(Combination) Perturber { return invert{} },
	}
	steps, err := NewEngine(ds, f).Collect(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, steps, 2)

	for i := range before {
		after, _ := ds.Get(i)
		assert.True(t, before[i].Image.Equal(after.Image))
		assert.True(t, before[i].Target.Equal(after.Target))
		assert.True(t, before[i].Metadata.Equal(after.Metadata))
	}

	// Both steps inverted the original, not each other's output.
	a, _ := steps[0].Dataset.Get(0)
	b, _ := steps[1].Dataset.Get(0)
	assert.True(t, a.Image.Equal(b.Image))
}

func TestEngine_KeyOrder(t *testing.T) {
	f := listFactory{
		keys:   []string{"f", "D"},
		combos: []Combination{{"f": 0.014, "D": 0.001}},
		build:  func(Combination) Perturber { return nop{} },
	}
	labels, err := NewEngine(testDataset(1, nil), f).Labels()
	require.NoError(t, err)
	assert.Equal(t, []string{"_f-0.014_D-0.001"}, labels)

	labels, err = NewEngine(testDataset(1, nil), f, WithKeyOrder([]string{"D", "f"})).Labels()
	require.NoError(t, err)
	assert.Equal(t, []string{"_D-0.001_f-0.014"}, labels)
}

func TestEngine_MissingMetadataStopsSweep(t *testing.T) {
	calls := 0
	ds := testDataset(3, nil)
	f := listFactory{
		keys:   []string{"altitude"},
		combos: []Combination{{"altitude": 75}, {"altitude": 100}},
		build:  func(Combination) Perturber { return needsGSD{calls: &calls} },
	}

	written := 0
	err := NewEngine(ds, f).Run(context.Background(), func(Step) error {
		written++
		return nil
	})
	require.Error(t, err)
	assert.Zero(t, written, "no output may be produced for a failed step")
	assert.Zero(t, calls)

	var missing *MissingMetadataError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "img_gsd", missing.Key)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "_altitude-75", stepErr.Label)
	assert.Equal(t, 0, stepErr.Index)
}

func TestEngine_WithGSD(t *testing.T) {
	calls := 0
	ds := testDataset(3, func(i int) metadata.Map {
		return metadata.Map{"img_gsd": metadata.Number(0.1 * float64(i+1))}
	})
	f := listFactory{
		keys:   []string{"altitude"},
		combos: []Combination{{"altitude": 75}},
		build:  func(Combination) Perturber { return needsGSD{calls: &calls} },
	}
	steps, err := NewEngine(ds, f).Collect(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, 3, calls)

	d, _ := steps[0].Dataset.Get(2)
	prov, ok := d.Metadata.Object("sweep::perturber")
	require.True(t, ok)
	alt, _ := prov.Number("altitude")
	assert.Equal(t, 75.0, alt)
}

func TestEngine_FailureKeepsEarlierSteps(t *testing.T) {
	f := listFactory{
		keys:   []string{"i"},
		combos: []Combination{{"i": 0}, {"i": 1}, {"i": 2}},
		build: func(c Combination) Perturber {
			if c["i"].(int) == 1 {
				return failing{}
			}
			return nop{}
		},
	}
	eng := NewEngine(testDataset(2, nil), f)

	it := eng.Steps()
	require.True(t, it.Next())
	first := it.Step()
	assert.False(t, it.Next())
	assert.False(t, it.Next())

	var stepErr *StepError
	require.True(t, errors.As(it.Err(), &stepErr))
	assert.Equal(t, 1, stepErr.Index)
	assert.Equal(t, "_i-1", stepErr.Label)
	assert.Equal(t, 2, first.Dataset.Len())

	_, err := eng.Collect(context.Background(), 3)
	assert.True(t, errors.As(err, &stepErr))
}

func TestEngine_CollectMatchesSteps(t *testing.T) {
	ds := testDataset(2, nil)
	f := sizeFactory([2]int{8, 8}, [2]int{16, 4}, [2]int{2, 2}, [2]int{20, 10}, [2]int{6, 6})
	eng := NewEngine(ds, f)

	steps, err := eng.Collect(context.Background(), 3)
	require.NoError(t, err)

	i := 0
	for it := eng.Steps(); it.Next(); i++ {
		assert.Equal(t, it.Label(), steps[i].Label)
		assert.Equal(t, i, steps[i].Index)
		a, _ := it.Dataset().Get(1)
		b, _ := steps[i].Dataset.Get(1)
		assert.True(t, a.Image.Equal(b.Image))
	}
	assert.Equal(t, 5, i)
}

func TestEngine_RunCallbackError(t *testing.T) {
	eng := NewEngine(testDataset(1, nil), sizeFactory([2]int{8, 8}, [2]int{4, 4}))

	var seen []string
	err := eng.Run(context.Background(), func(s Step) error {
		seen = append(seen, s.Label)
		return errors.New("disk full")
	})
	require.Error(t, err)
	assert.Equal(t, []string{"_w-8_h-8"}, seen)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, err.Error(), "_w-8_h-8")
}

func TestEngine_RunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewEngine(testDataset(1, nil), sizeFactory([2]int{8, 8})).Run(ctx, func(Step) error { return nil })
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEngine_EmptyDataset(t *testing.T) {
	empty, err := dataset.NewMemory(nil, []detection.Target{}, nil)
	require.NoError(t, err)

	steps, err := NewEngine(empty, sizeFactory([2]int{8, 8})).Collect(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, 0, steps[0].Dataset.Len())
}

func TestEngine_SourceMetadata(t *testing.T) {
	ds := testDataset(2, func(i int) metadata.Map {
		return metadata.Map{"img_gsd": metadata.Number(float64(i) + 0.5)}
	})
	eng := NewEngine(ds, sizeFactory([2]int{8, 8}))

	mds, err := eng.SourceMetadata()
	require.NoError(t, err)
	require.Len(t, mds, 2)
	gsd, ok := mds[1].Number("img_gsd")
	assert.True(t, ok)
	assert.Equal(t, 1.5, gsd)

	// Returned maps are copies.
	mds[0]["img_gsd"] = metadata.Number(99)
	again, err := eng.SourceMetadata()
	require.NoError(t, err)
	gsd, _ = again[0].Number("img_gsd")
	assert.Equal(t, 0.5, gsd)
	assert.False(t, again[0].Has("sweep::perturber"))
}

func TestEngine_DuplicateLabels(t *testing.T) {
	f := listFactory{
		keys:   []string{"k"},
		combos: []Combination{{"k": 1}, {"k": "1"}},
		build:  func(Combination) Perturber { return nop{} },
	}
	ds := testDataset(2, nil)
	eng := NewEngine(ds, f)

	_, err := eng.Labels()
	assert.True(t, errors.Is(err, ErrDuplicateLabel))

	it := eng.Steps()
	assert.False(t, it.Next())
	assert.True(t, errors.Is(it.Err(), ErrDuplicateLabel))
	assert.Zero(t, ds.gets, "nothing is read for a colliding sweep")

	_, err = NewEngine(ds, f).Collect(context.Background(), 2)
	assert.True(t, errors.Is(err, ErrDuplicateLabel))
}
