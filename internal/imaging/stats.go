package imaging

import (
	"gonum.org/v1/gonum/stat"
)

// Stats returns the mean and sample standard deviation over every sample of
// every channel. An empty array yields zeros.
func (a *Array) Stats() (mean, std float64) {
	if len(a.Pix) == 0 {
		return 0, 0
	}
	vals := make([]float64, len(a.Pix))
	for i, p := range a.Pix {
		vals[i] = float64(p)
	}
	mean, std = stat.MeanStdDev(vals, nil)
	if len(vals) == 1 {
		std = 0
	}
	return mean, std
}
