package imaging

import (
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Save encodes a to path, choosing the format from the file extension.
// Parent directories are created as needed. JPEG output uses quality 95.
func Save(a *Array, path string) error {
	img, err := a.Image()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(95)); err != nil {
		return errors.Wrapf(err, "failed to encode %s", path)
	}
	return nil
}
