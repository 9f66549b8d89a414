// Package imaging holds the in-memory image representation used by datasets
// and perturbers, along with decoding, encoding and per-image statistics.
//
// # Array Layout
//
// An Array is a dense Height x Width x Channels block of 8-bit samples stored
// channel-last (HWC), which is the layout every dataset hands out. Perturbers
// that prefer channel-first data can convert with ToChannelFirst and
// FromChannelFirst.
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner, X (column)
// increasing rightward and Y (row) increasing downward.
//
// # Formats
//
// Decoding supports PNG, JPEG, GIF, BMP, TIFF and WebP. Encoding picks the
// format from the file extension and supports every decodable format except
// WebP.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Arrays are plain values; callers
// that share one across goroutines must not mutate it.
package imaging
