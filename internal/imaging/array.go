package imaging

import (
	"bytes"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Array is an image as a dense channel-last block of 8-bit samples.
// The sample for row y, column x and channel c lives at
// Pix[(y*Width+x)*Channels+c].
type Array struct {
	Height   int
	Width    int
	Channels int
	Pix      []uint8
}

// NewArray allocates a zeroed array.
func NewArray(height, width, channels int) *Array {
	return &Array{
		Height:   height,
		Width:    width,
		Channels: channels,
		Pix:      make([]uint8, height*width*channels),
	}
}

// FromImage converts any decoded image into a 3-channel RGB array.
// Alpha is dropped; colors are taken un-premultiplied.
func FromImage(img image.Image) *Array {
	return FromImageChannels(img, 3)
}

// FromImageChannels converts img into an array with the given channel
// count. One channel holds luma, three hold RGB and four hold
// un-premultiplied RGBA. Any other count falls back to RGB.
func FromImageChannels(img image.Image, channels int) *Array {
	if channels != 1 && channels != 4 {
		channels = 3
	}
	src := imaging.Clone(img)
	b := src.Bounds()
	a := NewArray(b.Dy(), b.Dx(), channels)

	for y := 0; y < a.Height; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+a.Width*4]
		for x := 0; x < a.Width; x++ {
			p := row[x*4 : x*4+4]
			o := (y*a.Width + x) * channels
			if channels == 1 {
				a.Pix[o] = luma(p[0], p[1], p[2])
				continue
			}
			copy(a.Pix[o:o+channels], p)
		}
	}
	return a
}

// luma matches color.GrayModel on 8-bit samples.
func luma(r, g, b uint8) uint8 {
	return uint8((19595*uint32(r) + 38470*uint32(g) + 7471*uint32(b) + 1<<15) >> 16)
}

// Image returns the array as a standard library image. One channel maps to
// *image.Gray, three and four channels map to *image.NRGBA.
func (a *Array) Image() (image.Image, error) {
	r := image.Rect(0, 0, a.Width, a.Height)
	if len(a.Pix) != a.Height*a.Width*a.Channels {
		return nil, errors.Errorf("array has %d samples, want %dx%dx%d", len(a.Pix), a.Height, a.Width, a.Channels)
	}

	switch a.Channels {
	case 1:
		g := image.NewGray(r)
		for y := 0; y < a.Height; y++ {
			copy(g.Pix[y*g.Stride:], a.Pix[y*a.Width:(y+1)*a.Width])
		}
		return g, nil
	case 3, 4:
		dst := image.NewNRGBA(r)
		for y := 0; y < a.Height; y++ {
			for x := 0; x < a.Width; x++ {
				o := (y*a.Width + x) * a.Channels
				alpha := uint8(255)
				if a.Channels == 4 {
					alpha = a.Pix[o+3]
				}
				dst.SetNRGBA(x, y, color.NRGBA{R: a.Pix[o], G: a.Pix[o+1], B: a.Pix[o+2], A: alpha})
			}
		}
		return dst, nil
	}
	return nil, errors.Errorf("unsupported channel count %d", a.Channels)
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	if a == nil {
		return nil
	}
	c := *a
	c.Pix = append([]uint8(nil), a.Pix...)
	return &c
}

// Equal reports whether both arrays have the same shape and samples.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Height == b.Height && a.Width == b.Width && a.Channels == b.Channels &&
		bytes.Equal(a.Pix, b.Pix)
}

// At returns the sample at row y, column x, channel c.
func (a *Array) At(y, x, c int) uint8 {
	return a.Pix[(y*a.Width+x)*a.Channels+c]
}

// Set stores v at row y, column x, channel c.
func (a *Array) Set(y, x, c int, v uint8) {
	a.Pix[(y*a.Width+x)*a.Channels+c] = v
}

// ToChannelFirst returns the samples in CHW order.
func (a *Array) ToChannelFirst() []uint8 {
	out := make([]uint8, len(a.Pix))
	plane := a.Height * a.Width
	for i := 0; i < plane; i++ {
		for c := 0; c < a.Channels; c++ {
			out[c*plane+i] = a.Pix[i*a.Channels+c]
		}
	}
	return out
}

// FromChannelFirst builds a channel-last array from CHW samples.
func FromChannelFirst(channels, height, width int, data []uint8) (*Array, error) {
	if len(data) != channels*height*width {
		return nil, errors.Errorf("channel-first data has %d samples, want %dx%dx%d", len(data), channels, height, width)
	}
	a := NewArray(height, width, channels)
	plane := height * width
	for c := 0; c < channels; c++ {
		for i := 0; i < plane; i++ {
			a.Pix[i*channels+c] = data[c*plane+i]
		}
	}
	return a, nil
}
