package pipeline

import (
	"path/filepath"

	"github.com/ironsheep/image-sweep/internal/coco"
	"github.com/ironsheep/image-sweep/internal/dataset"
	"github.com/ironsheep/image-sweep/internal/imaging"
	"github.com/ironsheep/image-sweep/internal/metadata"
	"github.com/pkg/errors"
)

// source is an opened input dataset with what the writer needs to mirror it.
type source struct {
	ds         dataset.Dataset
	filenames  []string
	categories []coco.Category
}

func openSource(req Request, cache *imaging.ImageCache) (*source, error) {
	if req.ImageMetadata.Kind() == metadata.KindObject {
		// A single object is applied to every image, so the image count is
		// needed first.
		bare, err := open(req, nil, cache)
		if err != nil {
			return nil, err
		}
		mds, err := ImageMetadata(req.ImageMetadata, bare.ds.Len())
		if err != nil {
			return nil, err
		}
		return open(req, mds, cache)
	}

	mds, err := ImageMetadata(req.ImageMetadata, -1)
	if err != nil {
		return nil, err
	}
	return open(req, mds, cache)
}

func open(req Request, mds []metadata.Map, cache *imaging.ImageCache) (*source, error) {
	if req.LabelFile != "" {
		ds, err := coco.Open(req.DatasetDir, req.LabelFile, coco.WithImageMetadata(mds), coco.WithCache(cache))
		if err != nil {
			return nil, err
		}
		return &source{ds: ds, filenames: ds.FileNames(), categories: ds.Categories()}, nil
	}

	ds, err := dataset.OpenImageDir(coco.ImageDir(req.DatasetDir), mds, cache)
	if err != nil {
		return nil, err
	}
	paths := ds.ImagePaths()
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return &source{ds: ds, filenames: names}, nil
}

// ImageMetadata converts a request's image_metadata value into per-image
// entries. Null yields nil. An array must hold only objects (or nulls, read as
// empty entries). An object is copied n times; n < 0 rejects objects.
func ImageMetadata(v metadata.Value, n int) ([]metadata.Map, error) {
	switch v.Kind() {
	case metadata.KindNull:
		return nil, nil
	case metadata.KindObject:
		if n < 0 {
			return nil, errors.Wrap(ErrInvalidRequest, "image_metadata object needs the image count")
		}
		obj, _ := v.AsObject()
		out := make([]metadata.Map, n)
		for i := range out {
			out[i] = obj.Clone()
		}
		return out, nil
	case metadata.KindArray:
		items, _ := v.AsArray()
		out := make([]metadata.Map, len(items))
		for i, item := range items {
			switch item.Kind() {
			case metadata.KindNull:
				out[i] = metadata.Map{}
			case metadata.KindObject:
				out[i], _ = item.AsObject()
			default:
				return nil, errors.Wrapf(ErrInvalidRequest, "image_metadata[%d] must be an object, got %s", i, item.Kind())
			}
		}
		return out, nil
	default:
		return nil, errors.Wrapf(ErrInvalidRequest, "image_metadata must be an object or an array of objects, got %s", v.Kind())
	}
}
