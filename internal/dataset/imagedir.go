package dataset

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ironsheep/image-sweep/internal/detection"
	"github.com/ironsheep/image-sweep/internal/imaging"
	"github.com/ironsheep/image-sweep/internal/metadata"
	"github.com/pkg/errors"
)

// ImageDir is a dataset of every image file directly inside a directory,
// sorted by name, with no detections.
type ImageDir struct {
	paths []string
	extra []metadata.Map
	cache *imaging.ImageCache
}

// OpenImageDir scans dir. extra, when non-nil, must hold one entry per image.
// cache may be nil.
func OpenImageDir(dir string, extra []metadata.Map, cache *imaging.ImageCache) (*ImageDir, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading image directory %s", dir)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !imaging.IsImageFile(e.Name()) {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, errors.WithStack(err)
		}
		paths = append(paths, abs)
	}
	sort.Strings(paths)

	if extra != nil && len(extra) != len(paths) {
		return nil, MetadataLengthError(len(paths), len(extra))
	}
	return &ImageDir{paths: paths, extra: extra, cache: cache}, nil
}

// Len returns the number of images.
func (d *ImageDir) Len() int { return len(d.paths) }

// ImagePaths returns the sorted absolute image paths.
func (d *ImageDir) ImagePaths() []string {
	return append([]string(nil), d.paths...)
}

// Get decodes image i.
func (d *ImageDir) Get(i int) (Datum, error) {
	if err := CheckIndex(i, len(d.paths)); err != nil {
		return Datum{}, err
	}
	img, err := LoadArray(d.cache, d.paths[i])
	if err != nil {
		return Datum{}, err
	}

	var extra metadata.Map
	if d.extra != nil {
		extra = d.extra[i]
	}
	target := detection.Target{}
	md := BuildMetadata(Stem(d.paths[i]), img, target, nil, extra)
	return Datum{Image: img, Target: target, Metadata: md}, nil
}

// MetadataLengthError reports per-image metadata that does not cover every
// image.
func MetadataLengthError(images, entries int) error {
	return errors.WithMessagef(errors.WithStack(&IntegrityError{Detail: MetadataLengthDetail}),
		"images=%d metadata=%d", images, entries)
}

// Stem returns the file name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadArray decodes path, through cache when it is non-nil, reporting
// failures as *ImageLoadError.
func LoadArray(cache *imaging.ImageCache, path string) (*imaging.Array, error) {
	var (
		img *imaging.Array
		err error
	)
	if cache != nil {
		img, err = cache.LoadArray(path)
	} else {
		img, err = imaging.LoadArray(path)
	}
	if err != nil {
		return nil, &ImageLoadError{Path: path, Err: err}
	}
	return img, nil
}
