package stats

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// normCDF computes the cumulative distribution function of the standard
// normal at x.
func normCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// normQuantile computes the standard normal quantile (inverse CDF) at p.
func normQuantile(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}
