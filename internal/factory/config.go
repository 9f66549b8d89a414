package factory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/ironsheep/image-sweep/internal/perturbers"
)

type thetaSpec struct {
	Perturber string         `mapstructure:"perturber"`
	Params    map[string]any `mapstructure:"params"`
	ThetaKeys []string       `mapstructure:"theta_keys"`
	Thetas    []any          `mapstructure:"thetas"`
	Sets      [][]int        `mapstructure:"sets"`
}

type stepSpec struct {
	Perturber string         `mapstructure:"perturber"`
	Params    map[string]any `mapstructure:"params"`
	ThetaKey  string         `mapstructure:"theta_key"`
	Start     float64        `mapstructure:"start"`
	Stop      float64        `mapstructure:"stop"`
	Step      float64        `mapstructure:"step"`
	ToInt     bool           `mapstructure:"to_int"`
}

type rangeSpec struct {
	Start float64 `mapstructure:"start"`
	End   float64 `mapstructure:"end"`
	Step  float64 `mapstructure:"step"`
}

var builders = map[string]func(section map[string]any) (Factory, error){
	"grid": fromGridSection,
	"sets": fromSetsSection,
	"step": fromStepSection,
}

// Types lists the factory implementation names FromConfig accepts.
func Types() []string {
	out := make([]string, 0, len(builders))
	for k := range builders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FromConfig builds a factory from {"type": "<impl>", "<impl>": {...}}.
// Every failure is a *ConfigurationError.
func FromConfig(cfg map[string]any) (Factory, error) {
	typ, ok := cfg["type"].(string)
	if !ok || typ == "" {
		return nil, configErrorf(MissingTypeDetail)
	}
	build, ok := builders[typ]
	if !ok {
		return nil, configErrorf("Implementation type specified as %q, but no implementation is available for that type. Available: %s",
			typ, strings.Join(Types(), ", "))
	}
	raw, ok := cfg[typ]
	if !ok {
		return nil, configErrorf("Configuration dictionary has no %q section for its implementation type", typ)
	}
	section, ok := raw.(map[string]any)
	if !ok {
		return nil, configErrorf("Configuration section %q must be a mapping, got %T", typ, raw)
	}
	return build(section)
}

func decodeSection(section map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return configWrap(err, "internal decoder error")
	}
	if err := dec.Decode(section); err != nil {
		return configWrap(err, "invalid factory configuration")
	}
	return nil
}

func checkKind(kind string) error {
	for _, k := range perturbers.Kinds() {
		if k == kind {
			return nil
		}
	}
	return configErrorf("unknown perturber %q, available: %s", kind, strings.Join(perturbers.Kinds(), ", "))
}

// expandThetas turns each entry of thetas into a value list. An entry is
// either a list of values or a {start, end, step} range.
func expandThetas(thetas []any) ([][]any, error) {
	out := make([][]any, len(thetas))
	for i, t := range thetas {
		switch v := t.(type) {
		case []any:
			out[i] = v
		case map[string]any:
			var r rangeSpec
			if err := decodeSection(v, &r); err != nil {
				return nil, err
			}
			vals, err := Range(r.Start, r.End, r.Step)
			if err != nil {
				return nil, err
			}
			out[i] = vals
		default:
			out[i] = []any{v}
		}
	}
	return out, nil
}

func fromThetaSpec(section map[string]any) (thetaSpec, [][]any, error) {
	var spec thetaSpec
	if err := decodeSection(section, &spec); err != nil {
		return spec, nil, err
	}
	if err := checkKind(spec.Perturber); err != nil {
		return spec, nil, err
	}
	thetas, err := expandThetas(spec.Thetas)
	if err != nil {
		return spec, nil, err
	}
	return spec, thetas, nil
}

func fromGridSection(section map[string]any) (Factory, error) {
	spec, thetas, err := fromThetaSpec(section)
	if err != nil {
		return nil, err
	}
	if spec.Sets != nil {
		return nil, configErrorf("grid does not take sets; use type %q", "sets")
	}
	return NewGrid(spec.Perturber, spec.Params, spec.ThetaKeys, thetas)
}

func fromSetsSection(section map[string]any) (Factory, error) {
	spec, thetas, err := fromThetaSpec(section)
	if err != nil {
		return nil, err
	}
	return NewSets(spec.Perturber, spec.Params, spec.ThetaKeys, thetas, spec.Sets)
}

func fromStepSection(section map[string]any) (Factory, error) {
	var spec stepSpec
	if err := decodeSection(section, &spec); err != nil {
		return nil, err
	}
	if err := checkKind(spec.Perturber); err != nil {
		return nil, err
	}
	if spec.ThetaKey == "" {
		return nil, configErrorf("step factory needs a theta_key")
	}
	return NewStep(spec.Perturber, spec.Params, spec.ThetaKey, spec.Start, spec.Stop, spec.Step, spec.ToInt)
}

// Describe renders a one-line summary of f for logs.
func Describe(f Factory) string {
	cfg := f.Config()
	return fmt.Sprintf("%v factory with %d combinations over %v", cfg["type"], f.Len(), f.ThetaKeys())
}
