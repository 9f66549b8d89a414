// Package coco reads and writes COCO-style detection annotation files and
// exposes an annotation file plus its image directory as a dataset.
//
// COCO boxes are [x, y, width, height]; they are converted to and from the
// corner convention of package detection at the boundary. Category ids map to
// zero-based class indices by ascending id.
package coco
