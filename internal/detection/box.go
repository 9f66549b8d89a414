package detection

import (
	"fmt"
	"image"
)

// Box is an axis-aligned bounding box in (x_min, y_min, x_max, y_max) order.
type Box [4]float64

// BoxFromXYWH converts a box given as top-left corner plus width and height
// (the COCO convention) into corner form.
func BoxFromXYWH(x, y, w, h float64) Box {
	return Box{x, y, x + w, y + h}
}

// XYWH returns the box as top-left corner plus width and height.
func (b Box) XYWH() (x, y, w, h float64) {
	return b[0], b[1], b[2] - b[0], b[3] - b[1]
}

// Width returns x_max - x_min.
func (b Box) Width() float64 { return b[2] - b[0] }

// Height returns y_max - y_min.
func (b Box) Height() float64 { return b[3] - b[1] }

// Area returns the box area, or 0 for degenerate boxes.
func (b Box) Area() float64 {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Scale multiplies x-coordinates by sx and y-coordinates by sy.
func (b Box) Scale(sx, sy float64) Box {
	return Box{b[0] * sx, b[1] * sy, b[2] * sx, b[3] * sy}
}

// Rect converts the box to an integral image.Rectangle. Fractional pixels
// are truncated, so this is only suitable for drawing and overlap estimates.
func (b Box) Rect() image.Rectangle {
	return image.Rect(int(b[0]), int(b[1]), int(b[2]), int(b[3])).Canon()
}

func (b Box) String() string {
	return fmt.Sprintf("(%g, %g), (%g, %g)", b[0], b[1], b[2], b[3])
}
