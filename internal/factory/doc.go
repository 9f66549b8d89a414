// Package factory builds the ordered sequence of perturbers a sweep runs.
//
// A Grid yields every combination of its theta values in row-major order:
// the first theta key varies slowest. Sets yields only the listed index
// combinations, and Step sweeps one key over an arithmetic range.
//
// Factories are described by configuration maps of the form
//
//	{"type": "grid", "grid": {"perturber": "sensor", "params": {...},
//	 "theta_keys": ["f", "D"], "thetas": [[0.014, 0.012], [0.001, 0.003]]}}
//
// and FromConfig turns such a map into a Factory. Config reports the same
// shape back with ranges expanded.
package factory
