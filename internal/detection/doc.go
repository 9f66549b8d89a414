// Package detection holds the per-image object detection record carried through
// a dataset: parallel sequences of bounding boxes, class labels and confidence
// scores.
//
// # Box Convention
//
// Boxes are axis-aligned rectangles stored as four float64 values in
// (x_min, y_min, x_max, y_max) order, in absolute pixel units:
//   - Origin (0, 0) at the top-left corner of the image
//   - X increases rightward, Y increases downward
//
// Annotation formats that use (x, y, width, height) are converted at the
// dataset boundary with BoxFromXYWH and converted back with Box.XYWH.
//
// # Immutability
//
// A Target is never mutated after NewTarget returns. Accessors hand out
// copies, and every semantic change (for example Scale after an image resize)
// produces a new Target. This keeps source datasets intact while augmented
// copies are produced from them.
//
// # Alignment
//
// Boxes, labels and scores always have the same length. NewTarget rejects
// mismatched inputs with ErrShapeMismatch; a Target with zero detections is
// valid.
package detection
