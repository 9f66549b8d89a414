package factory

import (
	"math"
	"strconv"
)

// NewStep sweeps a single key over start, start+step, ... up to but not
// including stop. With toInt set the values are truncated to integers.
func NewStep(kind string, params map[string]any, key string, start, stop, step float64, toInt bool) (*Grid, error) {
	if step <= 0 {
		return nil, configErrorf("step must be positive, got %g", step)
	}
	if stop <= start {
		return nil, configErrorf("stop %g must exceed start %g", stop, start)
	}
	count := int(math.Ceil((stop-start)/step - 1e-9))
	if count > MaxCombinations {
		return nil, configErrorf("parameter combinations would exceed safe limit of %d", MaxCombinations)
	}

	vals := make([]any, 0, count)
	for k := 0; k < count; k++ {
		v := tidy(start + float64(k)*step)
		if toInt {
			vals = append(vals, int(v))
		} else {
			vals = append(vals, v)
		}
	}
	return NewGrid(kind, params, []string{key}, [][]any{vals})
}

// Range expands an inclusive arithmetic range.
func Range(start, end, step float64) ([]any, error) {
	if step <= 0 {
		return nil, configErrorf("range step must be positive, got %g", step)
	}
	if start > end {
		return nil, configErrorf("range start %g exceeds end %g", start, end)
	}
	count := int(math.Floor((end-start)/step+1e-9)) + 1
	if count > MaxCombinations {
		return nil, configErrorf("range would exceed safe limit of %d values", MaxCombinations)
	}
	vals := make([]any, count)
	for k := range vals {
		vals[k] = tidy(start + float64(k)*step)
	}
	return vals, nil
}

// tidy drops floating point accumulation noise so 0.1+0.2 reads as 0.3.
func tidy(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'g', 12, 64), 64)
	if err != nil {
		return v
	}
	return r
}
