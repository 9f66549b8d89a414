package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patternArray() *Array {
	a := NewArray(2, 3, 3)
	for i := range a.Pix {
		a.Pix[i] = uint8(i * 10)
	}
	return a
}

func TestFromImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{10, 20, 30, 255})
	img.Set(1, 1, color.RGBA{200, 100, 50, 255})

	a := FromImage(img)
	require.Equal(t, 2, a.Height)
	require.Equal(t, 2, a.Width)
	require.Equal(t, 3, a.Channels)
	assert.Equal(t, []uint8{10, 20, 30}, a.Pix[0:3])
	assert.Equal(t, []uint8{200, 100, 50}, a.Pix[9:12])
}

func TestFromImage_OffsetBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(5, 5, 8, 7))
	img.Set(5, 5, color.RGBA{1, 2, 3, 255})

	a := FromImage(img)
	assert.Equal(t, 2, a.Height)
	assert.Equal(t, 3, a.Width)
	assert.Equal(t, []uint8{1, 2, 3}, a.Pix[0:3])
}

func TestFromImageChannels(t *testing.T) {
	gray := NewArray(2, 3, 1)
	for i := range gray.Pix {
		gray.Pix[i] = uint8(40 * i)
	}
	img, err := gray.Image()
	require.NoError(t, err)
	assert.True(t, gray.Equal(FromImageChannels(img, 1)))

	rgba := NewArray(1, 2, 4)
	copy(rgba.Pix, []uint8{10, 20, 30, 128, 200, 100, 50, 0})
	img, err = rgba.Image()
	require.NoError(t, err)
	assert.True(t, rgba.Equal(FromImageChannels(img, 4)))

	c := image.NewRGBA(image.Rect(0, 0, 1, 1))
	c.Set(0, 0, color.RGBA{255, 0, 0, 255})
	assert.Equal(t, []uint8{76}, FromImageChannels(c, 1).Pix)
	assert.Equal(t, 3, FromImageChannels(c, 2).Channels)
}

func TestArray_ImageRoundTrip(t *testing.T) {
	a := patternArray()
	img, err := a.Image()
	require.NoError(t, err)
	assert.True(t, a.Equal(FromImage(img)))
}

func TestArray_ImageChannels(t *testing.T) {
	gray := NewArray(2, 2, 1)
	gray.Pix[3] = 99
	img, err := gray.Image()
	require.NoError(t, err)
	g, ok := img.(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, uint8(99), g.GrayAt(1, 1).Y)

	rgba := NewArray(1, 1, 4)
	copy(rgba.Pix, []uint8{1, 2, 3, 4})
	img, err = rgba.Image()
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{1, 2, 3, 4}, img.(*image.NRGBA).NRGBAAt(0, 0))

	_, err = NewArray(1, 1, 2).Image()
	assert.Error(t, err)

	short := &Array{Height: 2, Width: 2, Channels: 3, Pix: make([]uint8, 5)}
	_, err = short.Image()
	assert.Error(t, err)
}

func TestArray_CloneIsIndependent(t *testing.T) {
	a := patternArray()
	c := a.Clone()
	require.True(t, a.Equal(c))

	c.Set(1, 2, 0, 255)
	assert.False(t, a.Equal(c))
	assert.Equal(t, uint8(150), a.At(1, 2, 0))

	var nilArr *Array
	assert.Nil(t, nilArr.Clone())
}

func TestArray_ChannelFirst(t *testing.T) {
	a := NewArray(1, 2, 3)
	copy(a.Pix, []uint8{1, 2, 3, 4, 5, 6})

	chw := a.ToChannelFirst()
	assert.Equal(t, []uint8{1, 4, 2, 5, 3, 6}, chw)

	back, err := FromChannelFirst(3, 1, 2, chw)
	require.NoError(t, err)
	assert.True(t, a.Equal(back))

	_, err = FromChannelFirst(3, 2, 2, chw)
	assert.Error(t, err)
}

func TestArray_Stats(t *testing.T) {
	a := NewArray(1, 2, 1)
	a.Pix[0], a.Pix[1] = 0, 10
	mean, std := a.Stats()
	assert.InDelta(t, 5.0, mean, 1e-9)
	assert.InDelta(t, 7.0710678, std, 1e-6)

	mean, std = NewArray(0, 0, 3).Stats()
	assert.Zero(t, mean)
	assert.Zero(t, std)
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	a := patternArray()

	path := dir + "/nested/out.png"
	require.NoError(t, Save(a, path))

	back, err := LoadArray(path)
	require.NoError(t, err)
	assert.True(t, a.Equal(back))

	assert.Error(t, Save(a, dir+"/out.unknown"))
}
