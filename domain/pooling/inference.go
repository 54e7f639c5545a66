package pooling

import (
	"math"

	"mipool/domain/core"
)

// Summarize derives the t-statistic, two-sided p-value, critical value, and
// confidence interval for a pooled coefficient. The reference distribution
// is Student's t with the pooled (possibly non-integer) degrees of freedom;
// an infinite df uses the normal limit.
func Summarize(pooled PooledEstimate, opts SummarizeOptions) (InferenceSummary, error) {
	if err := opts.Validate(); err != nil {
		return InferenceSummary{}, err
	}
	if pooled.TotalVariance <= 0 || math.IsNaN(pooled.TotalVariance) {
		return InferenceSummary{}, core.NewDegenerateVarianceError(pooled.Coefficient, "total pooled variance is not positive")
	}
	if pooled.DF <= 0 || math.IsNaN(pooled.DF) {
		return InferenceSummary{}, core.NewNonPositiveDFError(pooled.Coefficient, pooled.DF)
	}

	se := pooled.StdError()
	t := (pooled.Estimate - opts.NullValue) / se
	p := twoSidedPValue(t, pooled.DF)
	crit := criticalValue(opts.ConfidenceLevel, pooled.DF)

	return InferenceSummary{
		Coefficient:     pooled.Coefficient,
		Estimate:        pooled.Estimate,
		StdError:        se,
		TStatistic:      t,
		DF:              pooled.DF,
		PValue:          p,
		CriticalValue:   crit,
		CILower:         pooled.Estimate - se*crit,
		CIUpper:         pooled.Estimate + se*crit,
		ConfidenceLevel: opts.ConfidenceLevel,
		NullValue:       opts.NullValue,
	}, nil
}
