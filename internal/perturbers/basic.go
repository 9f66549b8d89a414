package perturbers

import (
	"image"
	"strings"

	"github.com/disintegration/imaging"
	sweepimg "github.com/ironsheep/image-sweep/internal/imaging"
	"github.com/ironsheep/image-sweep/internal/metadata"
	"github.com/ironsheep/image-sweep/internal/perturb"
	"github.com/pkg/errors"
)

// viaImage runs fn on img as a standard library image and converts back,
// keeping the array's channel count.
func viaImage(img *sweepimg.Array, fn func(image.Image) image.Image) (*sweepimg.Array, error) {
	src, err := img.Image()
	if err != nil {
		return nil, err
	}
	return sweepimg.FromImageChannels(fn(src), img.Channels), nil
}

// Nop returns its input unchanged.
type Nop struct{}

func buildNop(params map[string]any) (perturb.Perturber, error) {
	var p Nop
	return p, decode(params, &p)
}

func (Nop) Perturb(img *sweepimg.Array, _ metadata.Map) (*sweepimg.Array, error) {
	return img, nil
}

func (Nop) Config() map[string]any { return map[string]any{} }

var resampleFilters = map[string]imaging.ResampleFilter{
	"nearest":    imaging.NearestNeighbor,
	"box":        imaging.Box,
	"linear":     imaging.Linear,
	"catmullrom": imaging.CatmullRom,
	"lanczos":    imaging.Lanczos,
}

// Resize scales images to W x H. A zero dimension preserves aspect ratio.
type Resize struct {
	W      int    `mapstructure:"w"`
	H      int    `mapstructure:"h"`
	Filter string `mapstructure:"filter"`
}

func buildResize(params map[string]any) (perturb.Perturber, error) {
	p := Resize{Filter: "lanczos"}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	p.Filter = strings.ToLower(p.Filter)
	if _, ok := resampleFilters[p.Filter]; !ok {
		return nil, errors.Errorf("unknown resample filter %q", p.Filter)
	}
	if p.W < 0 || p.H < 0 || (p.W == 0 && p.H == 0) {
		return nil, errors.Errorf("invalid size %dx%d", p.W, p.H)
	}
	return p, nil
}

func (p Resize) Perturb(img *sweepimg.Array, _ metadata.Map) (*sweepimg.Array, error) {
	return viaImage(img, func(src image.Image) image.Image {
		return imaging.Resize(src, p.W, p.H, resampleFilters[p.Filter])
	})
}

func (p Resize) Config() map[string]any { return encode(p) }

// Blur applies a Gaussian blur.
type Blur struct {
	Sigma float64 `mapstructure:"sigma"`
}

func buildBlur(params map[string]any) (perturb.Perturber, error) {
	p := Blur{Sigma: 1}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if p.Sigma < 0 {
		return nil, errors.Errorf("sigma must not be negative, got %g", p.Sigma)
	}
	return p, nil
}

func (p Blur) Perturb(img *sweepimg.Array, _ metadata.Map) (*sweepimg.Array, error) {
	if p.Sigma == 0 {
		return img, nil
	}
	return viaImage(img, func(src image.Image) image.Image {
		return imaging.Blur(src, p.Sigma)
	})
}

func (p Blur) Config() map[string]any { return encode(p) }

// Brightness shifts brightness by Percentage in [-100, 100].
type Brightness struct {
	Percentage float64 `mapstructure:"percentage"`
}

func buildBrightness(params map[string]any) (perturb.Perturber, error) {
	var p Brightness
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if p.Percentage < -100 || p.Percentage > 100 {
		return nil, errors.Errorf("percentage %g outside [-100, 100]", p.Percentage)
	}
	return p, nil
}

func (p Brightness) Perturb(img *sweepimg.Array, _ metadata.Map) (*sweepimg.Array, error) {
	return viaImage(img, func(src image.Image) image.Image {
		return imaging.AdjustBrightness(src, p.Percentage)
	})
}

func (p Brightness) Config() map[string]any { return encode(p) }

// Contrast changes contrast by Percentage in [-100, 100].
type Contrast struct {
	Percentage float64 `mapstructure:"percentage"`
}

func buildContrast(params map[string]any) (perturb.Perturber, error) {
	var p Contrast
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if p.Percentage < -100 || p.Percentage > 100 {
		return nil, errors.Errorf("percentage %g outside [-100, 100]", p.Percentage)
	}
	return p, nil
}

func (p Contrast) Perturb(img *sweepimg.Array, _ metadata.Map) (*sweepimg.Array, error) {
	return viaImage(img, func(src image.Image) image.Image {
		return imaging.AdjustContrast(src, p.Percentage)
	})
}

func (p Contrast) Config() map[string]any { return encode(p) }
