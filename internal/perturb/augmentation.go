package perturb

import (
	"strconv"

	"github.com/ironsheep/image-sweep/internal/detection"
	"github.com/ironsheep/image-sweep/internal/imaging"
	"github.com/ironsheep/image-sweep/internal/metadata"
	"github.com/pkg/errors"
)

// ProvenancePrefix namespaces every metadata key the augmentation adds.
const ProvenancePrefix = "sweep::"

// ImageInfoKey holds an object describing the image. Its width and height
// follow the perturbed image.
const ImageInfoKey = "image_info"

// ErrBatchMismatch is returned by ApplyBatch when the three input slices
// differ in length.
var ErrBatchMismatch = errors.New("batch length mismatch")

// ProvenanceKey returns the metadata key for perturber i of a chain of n.
func ProvenanceKey(i, n int) string {
	if n == 1 {
		return ProvenancePrefix + "perturber"
	}
	return ProvenancePrefix + "perturber_" + strconv.Itoa(i)
}

// Augmentation applies an ordered chain of perturbers.
type Augmentation struct {
	perturbers []Perturber
	metrics    []Metric
}

// NewAugmentation builds an augmentation from at least one perturber.
func NewAugmentation(perturbers ...Perturber) (*Augmentation, error) {
	if len(perturbers) == 0 {
		return nil, errors.New("augmentation needs at least one perturber")
	}
	for i, p := range perturbers {
		if p == nil {
			return nil, errors.Errorf("perturber %d is nil", i)
		}
	}
	return &Augmentation{perturbers: append([]Perturber(nil), perturbers...)}, nil
}

// WithMetrics returns a copy of a that also scores each output against its
// input and records the score under "sweep::<name>".
func (a *Augmentation) WithMetrics(metrics ...Metric) *Augmentation {
	c := *a
	c.metrics = append(append([]Metric(nil), a.metrics...), metrics...)
	return &c
}

// Apply perturbs one image and returns the new image, the rescaled target
// and the provenance-extended metadata.
func (a *Augmentation) Apply(img *imaging.Array, target detection.Target, md metadata.Map) (*imaging.Array, detection.Target, metadata.Map, error) {
	if img == nil || img.Width == 0 || img.Height == 0 {
		return nil, detection.Target{}, nil, errors.New("cannot augment an empty image")
	}

	out := img.Clone()
	outMD := md.Clone()
	n := len(a.perturbers)

	for i, p := range a.perturbers {
		if err := CheckMetadata(p, md); err != nil {
			return nil, detection.Target{}, nil, err
		}
		next, err := p.Perturb(out, md.Clone())
		if err != nil {
			return nil, detection.Target{}, nil, err
		}
		if next == nil {
			return nil, detection.Target{}, nil, errors.Errorf("perturber %d returned no image", i)
		}
		out = next

		cfg, err := metadata.FromAny(p.Config())
		if err != nil {
			return nil, detection.Target{}, nil, errors.Wrapf(err, "perturber %d config", i)
		}
		outMD[ProvenanceKey(i, n)] = cfg.Clone()
	}

	for _, m := range a.metrics {
		v, err := m.Compute(img, out)
		if err != nil {
			return nil, detection.Target{}, nil, errors.Wrapf(err, "metric %s", m.Name())
		}
		outMD[ProvenancePrefix+m.Name()] = metadata.Number(v)
	}

	if info, ok := outMD.Object(ImageInfoKey); ok {
		info["width"] = metadata.Number(float64(out.Width))
		info["height"] = metadata.Number(float64(out.Height))
		outMD[ImageInfoKey] = metadata.Object(info)
	}

	sx := float64(out.Width) / float64(img.Width)
	sy := float64(out.Height) / float64(img.Height)
	return out, target.Scale(sx, sy), outMD, nil
}

// ApplyBatch runs Apply over aligned slices and returns three new aligned
// slices. The first failing datum aborts the batch.
func (a *Augmentation) ApplyBatch(images []*imaging.Array, targets []detection.Target, mds []metadata.Map) ([]*imaging.Array, []detection.Target, []metadata.Map, error) {
	if len(images) != len(targets) || len(images) != len(mds) {
		return nil, nil, nil, errors.Wrapf(ErrBatchMismatch,
			"images=%d targets=%d metadata=%d", len(images), len(targets), len(mds))
	}

	outImages := make([]*imaging.Array, len(images))
	outTargets := make([]detection.Target, len(images))
	outMDs := make([]metadata.Map, len(images))
	for i := range images {
		img, t, md, err := a.Apply(images[i], targets[i], mds[i])
		if err != nil {
			return nil, nil, nil, errors.WithMessagef(err, "datum %d", i)
		}
		outImages[i], outTargets[i], outMDs[i] = img, t, md
	}
	return outImages, outTargets, outMDs, nil
}
