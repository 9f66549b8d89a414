// Package perturbers implements the concrete image perturbers a sweep can
// run and the registry that builds them by name from parameter maps.
//
// Parameter maps come from JSON or YAML configuration, so values are decoded
// weakly: 64 and "64" both fill an int field. Unknown keys are rejected.
//
//	p, err := perturbers.New("blur", map[string]any{"sigma": 1.5})
//
// Every perturber returns its parameters from Config in the same shape it was
// built from, which is what sweeps record as provenance.
package perturbers
