package coco

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/ironsheep/image-sweep/internal/dataset"
	"github.com/ironsheep/image-sweep/internal/detection"
	"github.com/ironsheep/image-sweep/internal/imaging"
	"github.com/ironsheep/image-sweep/internal/metadata"
	"github.com/ironsheep/image-sweep/internal/monitoring"
	"github.com/pkg/errors"
)

// Dataset is a COCO annotation file paired with its image directory. Images
// are decoded on Get.
type Dataset struct {
	paths      []string
	targets    []detection.Target
	categories []Category
	extra      []metadata.Map
	cache      *imaging.ImageCache
}

// Option configures a Dataset.
type Option func(*Dataset)

// WithImageMetadata supplies one metadata entry per image, in sorted file
// name order. Entries are merged into each datum's metadata.
func WithImageMetadata(mds []metadata.Map) Option {
	return func(d *Dataset) { d.extra = mds }
}

// WithCache decodes images through cache.
func WithCache(cache *imaging.ImageCache) Option {
	return func(d *Dataset) { d.cache = cache }
}

// Open loads labelFile and builds a dataset rooted at root.
func Open(root, labelFile string, opts ...Option) (*Dataset, error) {
	f, err := Load(labelFile)
	if err != nil {
		return nil, err
	}
	return NewDataset(root, f, opts...)
}

// ImageDir returns the directory holding a dataset's images: root/images
// when it exists, root otherwise.
func ImageDir(root string) string {
	dir := filepath.Join(root, "images")
	if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
		return dir
	}
	return root
}

// NewDataset reconciles f against the image directory under root. Every
// annotated image must exist on disk; files without annotations entries are
// ignored.
func NewDataset(root string, f *File, opts ...Option) (*Dataset, error) {
	d := &Dataset{categories: f.SortedCategories()}
	for _, opt := range opts {
		opt(d)
	}

	dir, err := filepath.Abs(ImageDir(root))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	classOf := make(map[int64]int, len(d.categories))
	for i, c := range d.categories {
		classOf[c.ID] = i
	}

	byImage := make(map[int64][]Annotation)
	for _, a := range f.Annotations {
		byImage[a.ImageID] = append(byImage[a.ImageID], a)
	}

	images := append([]Image(nil), f.Images...)
	sort.Slice(images, func(i, j int) bool { return images[i].FileName < images[j].FileName })

	if d.extra != nil && len(d.extra) != len(images) {
		return nil, dataset.MetadataLengthError(len(images), len(d.extra))
	}

	d.paths = make([]string, len(images))
	d.targets = make([]detection.Target, len(images))
	for i, img := range images {
		path := filepath.Join(dir, img.FileName)
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrapf(dataset.ErrDatasetIntegrity, "image %q listed in annotations not found in %s", img.FileName, dir)
		}
		d.paths[i] = path

		anns := byImage[img.ID]
		boxes := make([]detection.Box, len(anns))
		labels := make([]int, len(anns))
		scores := make([]float64, len(anns))
		for j, a := range anns {
			boxes[j] = detection.BoxFromXYWH(a.BBox[0], a.BBox[1], a.BBox[2], a.BBox[3])
			labels[j] = classOf[a.CategoryID]
			scores[j] = 1
			if a.Score != nil {
				scores[j] = *a.Score
			}
		}
		t, err := detection.NewTarget(boxes, labels, scores)
		if err != nil {
			return nil, err
		}
		d.targets[i] = t
	}

	monitoring.Debugf("coco: %d images, %d annotations, %d categories in %s",
		len(images), len(f.Annotations), len(d.categories), dir)
	return d, nil
}

// Len returns the number of annotated images.
func (d *Dataset) Len() int { return len(d.paths) }

// Get decodes image i and returns it with its detections and metadata.
func (d *Dataset) Get(i int) (dataset.Datum, error) {
	if err := dataset.CheckIndex(i, len(d.paths)); err != nil {
		return dataset.Datum{}, err
	}
	img, err := dataset.LoadArray(d.cache, d.paths[i])
	if err != nil {
		return dataset.Datum{}, err
	}

	var extra metadata.Map
	if d.extra != nil {
		extra = d.extra[i]
	}
	md := dataset.BuildMetadata(dataset.Stem(d.paths[i]), img, d.targets[i], d.ClassNames(), extra)
	return dataset.Datum{Image: img, Target: d.targets[i], Metadata: md}, nil
}

// ImagePaths returns the absolute image paths in dataset order.
func (d *Dataset) ImagePaths() []string {
	return append([]string(nil), d.paths...)
}

// FileNames returns the base name of each image in dataset order.
func (d *Dataset) FileNames() []string {
	out := make([]string, len(d.paths))
	for i, p := range d.paths {
		out[i] = filepath.Base(p)
	}
	return out
}

// Categories returns the category table indexed by class.
func (d *Dataset) Categories() []Category {
	return append([]Category(nil), d.categories...)
}

// ClassNames returns the category name per class index.
func (d *Dataset) ClassNames() []string {
	out := make([]string, len(d.categories))
	for i, c := range d.categories {
		out[i] = c.Name
	}
	return out
}
