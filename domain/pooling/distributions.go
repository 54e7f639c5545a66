package pooling

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// twoSidedPValue computes P(|T| >= |t|) under Student's t with df degrees of
// freedom. df may be non-integer; infinite df means the standard normal
// limit.
func twoSidedPValue(t, df float64) float64 {
	if math.IsInf(df, 1) {
		return 2 * (1 - distuv.UnitNormal.CDF(math.Abs(t)))
	}
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * (1 - tDist.CDF(math.Abs(t)))
}

// criticalValue computes the two-sided Student-t critical value for the
// given confidence level, falling back to the normal quantile at infinite
// df.
func criticalValue(confidenceLevel, df float64) float64 {
	alpha := 1.0 - confidenceLevel
	if math.IsInf(df, 1) {
		return distuv.UnitNormal.Quantile(1.0 - alpha/2.0)
	}
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Quantile(1.0 - alpha/2.0)
}
