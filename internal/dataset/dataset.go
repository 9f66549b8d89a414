package dataset

import (
	"fmt"

	"github.com/ironsheep/image-sweep/internal/detection"
	"github.com/ironsheep/image-sweep/internal/imaging"
	"github.com/ironsheep/image-sweep/internal/metadata"
	"github.com/pkg/errors"
)

var (
	// ErrIndexOutOfRange is returned by Get for an index outside [0, Len()).
	ErrIndexOutOfRange = errors.New("dataset index out of range")

	// ErrDatasetIntegrity marks a dataset whose images, targets and metadata
	// cannot be paired one to one.
	ErrDatasetIntegrity = errors.New("dataset integrity error")
)

// ImageLoadError reports an image file that could not be decoded.
type ImageLoadError struct {
	Path string
	Err  error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("failed to load image %s: %v", e.Path, e.Err)
}

func (e *ImageLoadError) Unwrap() error { return e.Err }

// MetadataLengthDetail is the user-facing detail of a metadata length
// mismatch.
const MetadataLengthDetail = "Image metadata length mismatch, metadata needed for every image"

// IntegrityError is an ErrDatasetIntegrity failure with a message meant for
// end users.
type IntegrityError struct {
	Detail string
}

func (e *IntegrityError) Error() string { return e.Detail }

// Is matches ErrDatasetIntegrity.
func (e *IntegrityError) Is(target error) bool { return target == ErrDatasetIntegrity }

// Datum is one record of a dataset.
type Datum struct {
	Image    *imaging.Array
	Target   detection.Target
	Metadata metadata.Map
}

// Clone returns a deep copy of d.
func (d Datum) Clone() Datum {
	return Datum{
		Image:    d.Image.Clone(),
		Target:   d.Target.Clone(),
		Metadata: d.Metadata.Clone(),
	}
}

// Dataset is an ordered collection of Datum addressed by position.
type Dataset interface {
	Len() int
	Get(i int) (Datum, error)
}

// CheckIndex returns ErrIndexOutOfRange, annotated with i and n, unless
// 0 <= i < n.
func CheckIndex(i, n int) error {
	if i < 0 || i >= n {
		return errors.Wrapf(ErrIndexOutOfRange, "index %d, length %d", i, n)
	}
	return nil
}

// ReadAll loads every datum of ds in index order.
func ReadAll(ds Dataset) ([]*imaging.Array, []detection.Target, []metadata.Map, error) {
	n := ds.Len()
	images := make([]*imaging.Array, n)
	targets := make([]detection.Target, n)
	mds := make([]metadata.Map, n)

	for i := 0; i < n; i++ {
		d, err := ds.Get(i)
		if err != nil {
			return nil, nil, nil, errors.Wrapf(err, "reading datum %d", i)
		}
		images[i], targets[i], mds[i] = d.Image, d.Target, d.Metadata
	}
	return images, targets, mds, nil
}
