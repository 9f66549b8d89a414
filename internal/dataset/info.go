package dataset

import (
	"github.com/ironsheep/image-sweep/internal/detection"
	"github.com/ironsheep/image-sweep/internal/imaging"
	"github.com/ironsheep/image-sweep/internal/metadata"
)

// BuildMetadata assembles the metadata of one datum: caller-supplied extra
// entries, then "id" and the derived "image_info" sub-map. classNames maps
// class index to display name; indices without a name are reported as
// numbers.
func BuildMetadata(id string, img *imaging.Array, target detection.Target, classNames []string, extra metadata.Map) metadata.Map {
	md := extra.Clone()

	unique := target.UniqueLabels()
	classes := make([]metadata.Value, len(unique))
	for i, l := range unique {
		if l >= 0 && l < len(classNames) {
			classes[i] = metadata.String(classNames[l])
		} else {
			classes[i] = metadata.Number(float64(l))
		}
	}

	mean, std := img.Stats()
	md["id"] = metadata.String(id)
	md["image_info"] = metadata.Object(metadata.Map{
		"width":              metadata.Number(float64(img.Width)),
		"height":             metadata.Number(float64(img.Height)),
		"num_objects":        metadata.Number(float64(target.Len())),
		"num_unique_classes": metadata.Number(float64(len(unique))),
		"unique_classes":     metadata.Array(classes...),
		"mean_intensity":     metadata.Number(mean),
		"std_intensity":      metadata.Number(std),
	})
	return md
}
