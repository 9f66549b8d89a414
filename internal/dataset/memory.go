package dataset

import (
	"github.com/ironsheep/image-sweep/internal/detection"
	"github.com/ironsheep/image-sweep/internal/imaging"
	"github.com/ironsheep/image-sweep/internal/metadata"
	"github.com/pkg/errors"
)

// Memory is a dataset backed by three aligned slices. It owns its contents:
// NewMemory copies nothing, so callers hand over slices they no longer use,
// and Get returns deep copies.
type Memory struct {
	images   []*imaging.Array
	targets  []detection.Target
	metadata []metadata.Map
}

// NewMemory wraps the slices. A nil metadata slice means empty metadata for
// every image.
func NewMemory(images []*imaging.Array, targets []detection.Target, mds []metadata.Map) (*Memory, error) {
	if mds == nil {
		mds = make([]metadata.Map, len(images))
	}
	if len(images) != len(targets) || len(images) != len(mds) {
		return nil, errors.Wrapf(ErrDatasetIntegrity,
			"images=%d targets=%d metadata=%d", len(images), len(targets), len(mds))
	}
	for i, md := range mds {
		if md == nil {
			mds[i] = metadata.Map{}
		}
	}
	return &Memory{images: images, targets: targets, metadata: mds}, nil
}

// Len returns the number of records.
func (m *Memory) Len() int { return len(m.images) }

// Get returns a deep copy of record i.
func (m *Memory) Get(i int) (Datum, error) {
	if err := CheckIndex(i, len(m.images)); err != nil {
		return Datum{}, err
	}
	d := Datum{Image: m.images[i], Target: m.targets[i], Metadata: m.metadata[i]}
	return d.Clone(), nil
}

// Metadata returns copies of every record's metadata in index order.
func (m *Memory) Metadata() []metadata.Map {
	out := make([]metadata.Map, len(m.metadata))
	for i, md := range m.metadata {
		out[i] = md.Clone()
	}
	return out
}
