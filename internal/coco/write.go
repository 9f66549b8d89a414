package coco

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ironsheep/image-sweep/internal/dataset"
	"github.com/ironsheep/image-sweep/internal/imaging"
	"github.com/ironsheep/image-sweep/internal/metadata"
	"github.com/pkg/errors"
)

// Names of the files Write produces inside its output directory.
const (
	ImagesDirName    = "images"
	LabelFileName    = "annotations.json"
	MetadataFileName = "image_metadata.json"
)

// FileWriteError reports a file that could not be written.
type FileWriteError struct {
	Path string
	Err  error
}

func (e *FileWriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *FileWriteError) Unwrap() error { return e.Err }

// Output locates what Write produced. LabelFile and MetadataFile are relative
// to RootDir.
type Output struct {
	RootDir      string `json:"root_dir"`
	LabelFile    string `json:"label_file"`
	MetadataFile string `json:"metadata_file"`
}

// Write materializes ds under outDir: every image as images/<filename>, the
// detections as annotations.json and the metadata as image_metadata.json.
// filenames must hold one name per datum. Class index i is written with the
// id of categories[i]; classes beyond the table are written as i+1.
func Write(ds dataset.Dataset, outDir string, filenames []string, categories []Category) (*Output, error) {
	if len(filenames) != ds.Len() {
		return nil, errors.Wrapf(dataset.ErrDatasetIntegrity,
			"Image filename and dataset length mismatch (filenames=%d images=%d)", len(filenames), ds.Len())
	}

	imgDir := filepath.Join(outDir, ImagesDirName)
	if err := os.MkdirAll(imgDir, 0o755); err != nil {
		return nil, &FileWriteError{Path: imgDir, Err: err}
	}

	out := File{
		Images:      make([]Image, 0, ds.Len()),
		Annotations: []Annotation{},
		Categories:  categories,
	}
	if out.Categories == nil {
		out.Categories = []Category{}
	}
	mds := make([]metadata.Map, 0, ds.Len())

	var annID int64
	for i, name := range filenames {
		d, err := ds.Get(i)
		if err != nil {
			return nil, err
		}

		path := filepath.Join(imgDir, name)
		if err := imaging.Save(d.Image, path); err != nil {
			return nil, &FileWriteError{Path: path, Err: err}
		}

		imageID := int64(i + 1)
		out.Images = append(out.Images, Image{
			ID:       imageID,
			FileName: name,
			Width:    d.Image.Width,
			Height:   d.Image.Height,
		})

		for j := 0; j < d.Target.Len(); j++ {
			box, label, score := d.Target.At(j)
			x, y, w, h := box.XYWH()
			annID++
			a := Annotation{
				ID:         annID,
				ImageID:    imageID,
				CategoryID: categoryID(categories, label),
				BBox:       [4]float64{x, y, w, h},
				Area:       box.Area(),
			}
			if score != 1 {
				s := score
				a.Score = &s
			}
			out.Annotations = append(out.Annotations, a)
		}
		mds = append(mds, d.Metadata)
	}

	if err := writeJSON(filepath.Join(outDir, LabelFileName), out); err != nil {
		return nil, err
	}
	if err := writeJSON(filepath.Join(outDir, MetadataFileName), mds); err != nil {
		return nil, err
	}

	return &Output{RootDir: outDir, LabelFile: LabelFileName, MetadataFile: MetadataFileName}, nil
}

func categoryID(categories []Category, label int) int64 {
	if label >= 0 && label < len(categories) {
		return categories[label].ID
	}
	return int64(label + 1)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encoding %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &FileWriteError{Path: path, Err: err}
	}
	return nil
}
