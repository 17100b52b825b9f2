package analytics

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/inferloop/tsforecast/pkg/models"
)

// Describe summarizes values with the sample standard deviation and quartiles
// interpolated on the empirical CDF.
func Describe(values []float64) models.Statistics {
	n := len(values)
	if n == 0 {
		return models.Statistics{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	if n < 2 {
		std = 0
	}

	return models.Statistics{
		Count:  n,
		Mean:   mean,
		Std:    std,
		Min:    sorted[0],
		Q25:    stat.Quantile(0.25, stat.LinInterp, sorted, nil),
		Median: stat.Quantile(0.5, stat.LinInterp, sorted, nil),
		Q75:    stat.Quantile(0.75, stat.LinInterp, sorted, nil),
		Max:    sorted[n-1],
	}
}
