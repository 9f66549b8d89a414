package perturbers

import (
	"math"

	"github.com/disintegration/imaging"
	sweepimg "github.com/ironsheep/image-sweep/internal/imaging"
	"github.com/ironsheep/image-sweep/internal/metadata"
	"github.com/ironsheep/image-sweep/internal/perturb"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// GSDKey is the metadata key holding an image's ground sample distance in
// meters per pixel.
const GSDKey = "img_gsd"

const maxSensorDim = 16384

// Sensor re-images a scene as seen by a simple camera: the image is
// resampled from its own ground sample distance to the camera's
// (Altitude*Px/F) and then blurred by the diffraction spot of the aperture.
// All lengths are meters.
type Sensor struct {
	Name       string  `mapstructure:"name"`
	Altitude   float64 `mapstructure:"altitude"`
	F          float64 `mapstructure:"f"`
	D          float64 `mapstructure:"D"`
	Px         float64 `mapstructure:"px"`
	Wavelength float64 `mapstructure:"wavelength"`
}

func buildSensor(params map[string]any) (perturb.Perturber, error) {
	p := Sensor{
		Name:       "sensor",
		Altitude:   75,
		F:          0.014,
		D:          0.004,
		Px:         2e-5,
		Wavelength: 5.5e-7,
	}
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	for name, v := range map[string]float64{"altitude": p.Altitude, "f": p.F, "D": p.D, "px": p.Px, "wavelength": p.Wavelength} {
		if v <= 0 {
			return nil, errors.Errorf("%s must be positive, got %g", name, v)
		}
	}
	return p, nil
}

// RequiredMetadata implements perturb.MetadataRequirer.
func (Sensor) RequiredMetadata() []string { return []string{GSDKey} }

// GSD returns the camera's ground sample distance.
func (p Sensor) GSD() float64 { return p.Altitude * p.Px / p.F }

// BlurSigma returns the Gaussian approximation of the diffraction spot in
// sensor pixels.
func (p Sensor) BlurSigma() float64 { return 0.45 * p.Wavelength * p.F / (p.D * p.Px) }

func (p Sensor) Perturb(img *sweepimg.Array, md metadata.Map) (*sweepimg.Array, error) {
	if !md.Has(GSDKey) {
		return nil, &perturb.MissingMetadataError{Key: GSDKey}
	}
	gsd, ok := md.Number(GSDKey)
	if !ok || gsd <= 0 || math.IsNaN(gsd) || math.IsInf(gsd, 0) {
		return nil, errors.Errorf("%s must be a positive number, got %s", GSDKey, md[GSDKey])
	}

	scale := gsd / p.GSD()
	w := int(math.Round(float64(img.Width) * scale))
	h := int(math.Round(float64(img.Height) * scale))
	w, h = max(w, 1), max(h, 1)
	if w > maxSensorDim || h > maxSensorDim {
		return nil, errors.Errorf("sensor output %dx%d exceeds %d pixels per side", w, h, maxSensorDim)
	}

	src, err := img.Image()
	if err != nil {
		return nil, err
	}
	out := resize.Resize(uint(w), uint(h), src, resize.Lanczos3)
	if sigma := p.BlurSigma(); sigma >= 0.1 {
		out = imaging.Blur(out, sigma)
	}
	return sweepimg.FromImageChannels(out, img.Channels), nil
}

func (p Sensor) Config() map[string]any { return encode(p) }
