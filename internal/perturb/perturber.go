package perturb

import (
	"fmt"

	"github.com/ironsheep/image-sweep/internal/imaging"
	"github.com/ironsheep/image-sweep/internal/metadata"
	"github.com/pkg/errors"
)

// Perturber transforms one image. Implementations may return img itself
// after modifying it in place; callers always pass a private copy.
type Perturber interface {
	Perturb(img *imaging.Array, md metadata.Map) (*imaging.Array, error)
	// Config returns a snapshot of the perturber's parameters.
	Config() map[string]any
}

// MetadataRequirer is implemented by perturbers that read per-image metadata.
// The listed keys are checked before Perturb is called.
type MetadataRequirer interface {
	RequiredMetadata() []string
}

// ErrMissingRequiredMetadata matches every *MissingMetadataError.
var ErrMissingRequiredMetadata = errors.New("missing required metadata")

// MissingMetadataError names a metadata key a perturber needs but the datum
// lacks.
type MissingMetadataError struct {
	Key string
}

func (e *MissingMetadataError) Error() string {
	return fmt.Sprintf("missing required metadata %q", e.Key)
}

// Is makes errors.Is(err, ErrMissingRequiredMetadata) hold.
func (e *MissingMetadataError) Is(target error) bool {
	return target == ErrMissingRequiredMetadata
}

// CheckMetadata returns a *MissingMetadataError for the first key p requires
// that md does not hold.
func CheckMetadata(p Perturber, md metadata.Map) error {
	req, ok := p.(MetadataRequirer)
	if !ok {
		return nil
	}
	for _, key := range req.RequiredMetadata() {
		if !md.Has(key) {
			return &MissingMetadataError{Key: key}
		}
	}
	return nil
}

// Metric scores a perturbed image against the image it came from.
type Metric interface {
	Name() string
	Compute(ref, img *imaging.Array) (float64, error)
}
