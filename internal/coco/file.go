package coco

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/ironsheep/image-sweep/internal/dataset"
	"github.com/pkg/errors"
)

// File is a COCO annotation document.
type File struct {
	Info        map[string]any `json:"info,omitempty"`
	Images      []Image        `json:"images"`
	Annotations []Annotation   `json:"annotations"`
	Categories  []Category     `json:"categories"`
}

// Image is one entry of the "images" table.
type Image struct {
	ID       int64  `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// Annotation is one object instance. BBox is [x, y, width, height].
type Annotation struct {
	ID         int64      `json:"id"`
	ImageID    int64      `json:"image_id"`
	CategoryID int64      `json:"category_id"`
	BBox       [4]float64 `json:"bbox"`
	Area       float64    `json:"area"`
	IsCrowd    int        `json:"iscrowd"`
	Score      *float64   `json:"score,omitempty"`
}

// Category names one object class.
type Category struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory,omitempty"`
}

// Load reads and validates an annotation file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading annotation file %s", path)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "parsing annotation file %s", path)
	}
	if err := f.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "annotation file %s", path)
	}
	return &f, nil
}

// Validate checks that ids are unique and every annotation refers to a known
// image and category.
func (f *File) Validate() error {
	images := make(map[int64]bool, len(f.Images))
	for _, img := range f.Images {
		if images[img.ID] {
			return errors.Wrapf(dataset.ErrDatasetIntegrity, "duplicate image id %d", img.ID)
		}
		images[img.ID] = true
	}
	cats := make(map[int64]bool, len(f.Categories))
	for _, c := range f.Categories {
		if cats[c.ID] {
			return errors.Wrapf(dataset.ErrDatasetIntegrity, "duplicate category id %d", c.ID)
		}
		cats[c.ID] = true
	}
	for _, a := range f.Annotations {
		if !images[a.ImageID] {
			return errors.Wrapf(dataset.ErrDatasetIntegrity, "annotation %d refers to unknown image %d", a.ID, a.ImageID)
		}
		if !cats[a.CategoryID] {
			return errors.Wrapf(dataset.ErrDatasetIntegrity, "annotation %d refers to unknown category %d", a.ID, a.CategoryID)
		}
	}
	return nil
}

// SortedCategories returns the categories ordered by id. Position in the
// result is the class index.
func (f *File) SortedCategories() []Category {
	out := append([]Category(nil), f.Categories...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
