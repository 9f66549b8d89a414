package perturbers

import (
	"image"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blend"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/noise"
	sweepimg "github.com/ironsheep/image-sweep/internal/imaging"
	"github.com/ironsheep/image-sweep/internal/metadata"
	"github.com/ironsheep/image-sweep/internal/perturb"
	"github.com/pkg/errors"
)

// Gamma applies gamma correction. Values above 1 brighten.
type Gamma struct {
	Gamma float64 `mapstructure:"gamma"`
}

func buildGamma(params map[string]any) (perturb.Perturber, error) {
	p := Gamma{Gamma: 1}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if p.Gamma <= 0 {
		return nil, errors.Errorf("gamma must be positive, got %g", p.Gamma)
	}
	return p, nil
}

func (p Gamma) Perturb(img *sweepimg.Array, _ metadata.Map) (*sweepimg.Array, error) {
	return viaImage(img, func(src image.Image) image.Image {
		return adjust.Gamma(src, p.Gamma)
	})
}

func (p Gamma) Config() map[string]any { return encode(p) }

// Saturation scales saturation by 1+Change; -1 desaturates fully.
type Saturation struct {
	Change float64 `mapstructure:"change"`
}

func buildSaturation(params map[string]any) (perturb.Perturber, error) {
	var p Saturation
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if p.Change < -1 {
		return nil, errors.Errorf("change must be at least -1, got %g", p.Change)
	}
	return p, nil
}

func (p Saturation) Perturb(img *sweepimg.Array, _ metadata.Map) (*sweepimg.Array, error) {
	return viaImage(img, func(src image.Image) image.Image {
		return adjust.Saturation(src, p.Change)
	})
}

func (p Saturation) Config() map[string]any { return encode(p) }

// Sharpen applies a 3x3 sharpening kernel Passes times.
type Sharpen struct {
	Passes int `mapstructure:"passes"`
}

func buildSharpen(params map[string]any) (perturb.Perturber, error) {
	p := Sharpen{Passes: 1}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if p.Passes < 0 {
		return nil, errors.Errorf("passes must not be negative, got %d", p.Passes)
	}
	return p, nil
}

func (p Sharpen) Perturb(img *sweepimg.Array, _ metadata.Map) (*sweepimg.Array, error) {
	return viaImage(img, func(src image.Image) image.Image {
		for i := 0; i < p.Passes; i++ {
			src = effect.Sharpen(src)
		}
		return src
	})
}

func (p Sharpen) Config() map[string]any { return encode(p) }

// Noise overlays Gaussian noise at opacity Amount in [0, 1].
type Noise struct {
	Amount     float64 `mapstructure:"amount"`
	Monochrome bool    `mapstructure:"monochrome"`
}

func buildNoise(params map[string]any) (perturb.Perturber, error) {
	p := Noise{Amount: 0.1}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if p.Amount < 0 || p.Amount > 1 {
		return nil, errors.Errorf("amount %g outside [0, 1]", p.Amount)
	}
	return p, nil
}

func (p Noise) Perturb(img *sweepimg.Array, _ metadata.Map) (*sweepimg.Array, error) {
	return viaImage(img, func(src image.Image) image.Image {
		b := src.Bounds()
		n := noise.Generate(b.Dx(), b.Dy(), &noise.Options{
			NoiseFn:    noise.Gaussian,
			Monochrome: p.Monochrome,
		})
		return blend.Opacity(src, n, p.Amount)
	})
}

func (p Noise) Config() map[string]any { return encode(p) }
