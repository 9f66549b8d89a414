package perturbers

import (
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/ironsheep/image-sweep/internal/perturb"
	"github.com/pkg/errors"
)

// ErrUnknownKind is returned by New for an unregistered perturber name.
var ErrUnknownKind = errors.New("unknown perturber kind")

// Builder constructs a perturber from decoded parameters.
type Builder func(params map[string]any) (perturb.Perturber, error)

var registry = map[string]Builder{
	"nop":        buildNop,
	"resize":     buildResize,
	"blur":       buildBlur,
	"brightness": buildBrightness,
	"contrast":   buildContrast,
	"gamma":      buildGamma,
	"saturation": buildSaturation,
	"sharpen":    buildSharpen,
	"noise":      buildNoise,
	"haze":       buildHaze,
	"sensor":     buildSensor,
}

// New builds the perturber registered as kind.
func New(kind string, params map[string]any) (perturb.Perturber, error) {
	b, ok := registry[kind]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKind, "%q", kind)
	}
	p, err := b(params)
	if err != nil {
		return nil, errors.WithMessagef(err, "perturber %s", kind)
	}
	return p, nil
}

// Kinds lists the registered perturber names in ascending order.
func Kinds() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// decode fills out from params, starting from whatever defaults out holds.
func decode(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return errors.WithStack(err)
	}
	if err := dec.Decode(params); err != nil {
		return errors.Wrap(err, "invalid parameters")
	}
	return nil
}

// encode renders a parameter struct back into a plain map.
func encode(in any) map[string]any {
	out := map[string]any{}
	if err := mapstructure.Decode(in, &out); err != nil {
		// parameter structs only hold scalars
		panic(errors.Wrap(err, "perturbers: encode config"))
	}
	return out
}
