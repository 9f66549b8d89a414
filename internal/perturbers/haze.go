package perturbers

import (
	"math"

	sweepimg "github.com/ironsheep/image-sweep/internal/imaging"
	"github.com/ironsheep/image-sweep/internal/metadata"
	"github.com/ironsheep/image-sweep/internal/perturb"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// Haze blends every pixel toward an airlight color in CIE-Lab space. The
// blend weight is 1-exp(-Density), so zero density leaves the image intact.
// With Gradient set, the weight fades from full at the top row to zero at the
// bottom, imitating distance increasing toward the horizon.
type Haze struct {
	Density  float64 `mapstructure:"density"`
	Airlight string  `mapstructure:"airlight"`
	Gradient bool    `mapstructure:"gradient"`

	air colorful.Color
}

func buildHaze(params map[string]any) (perturb.Perturber, error) {
	p := Haze{Density: 0.5, Airlight: "#c8c8d2"}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if p.Density < 0 {
		return nil, errors.Errorf("density must not be negative, got %g", p.Density)
	}
	air, err := colorful.Hex(p.Airlight)
	if err != nil {
		return nil, errors.Wrapf(err, "airlight %q", p.Airlight)
	}
	p.air = air
	return &p, nil
}

func (p *Haze) Perturb(img *sweepimg.Array, _ metadata.Map) (*sweepimg.Array, error) {
	if img.Channels < 3 {
		return nil, errors.Errorf("haze needs a color image, got %d channels", img.Channels)
	}
	weight := 1 - math.Exp(-p.Density)

	// Rows share one weight, so blends are memoized per row by source color.
	for y := 0; y < img.Height; y++ {
		t := weight
		if p.Gradient && img.Height > 1 {
			t *= 1 - float64(y)/float64(img.Height-1)
		}
		memo := make(map[[3]uint8][3]uint8)
		for x := 0; x < img.Width; x++ {
			o := (y*img.Width + x) * img.Channels
			key := [3]uint8{img.Pix[o], img.Pix[o+1], img.Pix[o+2]}
			out, ok := memo[key]
			if !ok {
				c := colorful.Color{R: float64(key[0]) / 255, G: float64(key[1]) / 255, B: float64(key[2]) / 255}
				r, g, b := c.BlendLab(p.air, t).Clamped().RGB255()
				out = [3]uint8{r, g, b}
				memo[key] = out
			}
			img.Pix[o], img.Pix[o+1], img.Pix[o+2] = out[0], out[1], out[2]
		}
	}
	return img, nil
}

func (p *Haze) Config() map[string]any {
	return map[string]any{"density": p.Density, "airlight": p.Airlight, "gradient": p.Gradient}
}
