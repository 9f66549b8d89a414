package perturbers

import (
	"math"
	"strings"

	"github.com/disintegration/imaging"
	sweepimg "github.com/ironsheep/image-sweep/internal/imaging"
	"github.com/ironsheep/image-sweep/internal/perturb"
	"github.com/pkg/errors"
)

// MaxPSNR is reported for identical images.
const MaxPSNR = 100.0

// PSNR scores a perturbed image by peak signal-to-noise ratio in decibels
// against its source. Images of a different size are first resampled to the
// source size.
type PSNR struct{}

func (PSNR) Name() string { return "psnr" }

func (PSNR) Compute(ref, img *sweepimg.Array) (float64, error) {
	if ref.Channels != img.Channels {
		return 0, errors.Errorf("channel mismatch %d vs %d", ref.Channels, img.Channels)
	}
	if ref.Width != img.Width || ref.Height != img.Height {
		src, err := img.Image()
		if err != nil {
			return 0, err
		}
		img = sweepimg.FromImageChannels(imaging.Resize(src, ref.Width, ref.Height, imaging.Linear), ref.Channels)
	}
	if len(ref.Pix) == 0 {
		return MaxPSNR, nil
	}

	var sum float64
	for i, a := range ref.Pix {
		d := float64(a) - float64(img.Pix[i])
		sum += d * d
	}
	mse := sum / float64(len(ref.Pix))
	if mse == 0 {
		return MaxPSNR, nil
	}
	return math.Min(MaxPSNR, 10*math.Log10(255*255/mse)), nil
}

// StdRatio scores a perturbed image by the ratio of its intensity standard
// deviation to that of its source. Blur and haze drive it below 1. A flat
// source scores 1 when the output is flat too and MaxPSNR otherwise.
type StdRatio struct{}

func (StdRatio) Name() string { return "std_ratio" }

func (StdRatio) Compute(ref, img *sweepimg.Array) (float64, error) {
	_, refStd := ref.Stats()
	_, std := img.Stats()
	if refStd == 0 {
		if std == 0 {
			return 1, nil
		}
		return MaxPSNR, nil
	}
	return std / refStd, nil
}

var metrics = map[string]perturb.Metric{
	PSNR{}.Name():     PSNR{},
	StdRatio{}.Name(): StdRatio{},
}

// Metrics resolves metric names such as "psnr" or "std_ratio".
func Metrics(names ...string) ([]perturb.Metric, error) {
	out := make([]perturb.Metric, 0, len(names))
	for _, name := range names {
		m, ok := metrics[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, errors.Errorf("unknown metric %q", name)
		}
		out = append(out, m)
	}
	return out, nil
}
