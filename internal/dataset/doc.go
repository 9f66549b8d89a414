// Package dataset defines the indexable collection of (image, detections,
// metadata) records that perturbation sweeps consume and produce.
//
// Every Dataset keeps the image, target and metadata at index i paired. Any
// filtering or reordering must move all three together.
//
// Two realizations live here: Memory, backed by explicit slices, and ImageDir,
// a directory of images with empty targets. The COCO-backed realization lives
// in package coco next to the annotation file model.
package dataset
