package pooling

import (
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"

	"mipool/domain/core"
)

// Pool combines one coefficient's per-imputation estimates via Rubin's rules
// and attaches the Barnard-Rubin small-sample degrees of freedom. All records
// must share a coefficient name and there must be at least two of them —
// a single imputation carries no between-imputation information, so pooling
// it would manufacture a meaningless degrees-of-freedom value.
func Pool(records []ImputationRecord) (PooledEstimate, error) {
	m := len(records)
	if m < 2 {
		name := "(none)"
		if m == 1 {
			name = records[0].Coefficient
		}
		return PooledEstimate{}, core.NewInsufficientImputationsError(name, m)
	}

	name := records[0].Coefficient
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return PooledEstimate{}, err
		}
		if r.Coefficient != name {
			return PooledEstimate{}, core.NewInvalidRecordError(name, "group mixes coefficient "+r.Coefficient)
		}
	}

	estimates := make([]float64, m)
	variances := make([]float64, m)
	dfs := make([]float64, m)
	for i, r := range records {
		estimates[i] = r.Estimate
		variances[i] = r.StdError * r.StdError
		dfs[i] = r.DF
	}

	// Aggregate over sorted copies so summation order is fixed: permuting
	// the input records must not move even the last bit of any output.
	sort.Float64s(estimates)
	sort.Float64s(variances)
	sort.Float64s(dfs)

	betaBar, _ := stats.Mean(estimates)
	vBar, _ := stats.Mean(variances)
	etaBar, _ := stats.Mean(dfs)

	// m copies of one value must give B == 0 exactly; the two-pass sample
	// variance can round away from zero whenever the mean itself rounds.
	b := 0.0
	if !allEqual(estimates) {
		b, _ = stats.SampleVariance(estimates)
	}

	mf := float64(m)
	vTotal := vBar + b*(mf+1)/mf
	if vTotal == 0 {
		return PooledEstimate{}, core.NewDegenerateVarianceError(name, "total pooled variance is zero")
	}

	gamma := ((mf + 1) / mf) * b / vTotal
	if gamma < 0 || gamma >= 1 {
		return PooledEstimate{}, core.NewDegenerateVarianceError(name, fmt.Sprintf("fraction of missing information %g outside [0,1)", gamma))
	}

	dfObs := etaBar * (etaBar + 1) * (1 - gamma) / (etaBar + 3)

	// gamma == 0 puts the between-imputation df at positive infinity, so
	// the harmonic combination collapses to the observed-data df alone.
	// Taking that branch explicitly keeps df bit-identical to dfObs instead
	// of routing it through 1/(0 + 1/dfObs).
	var dfTotal float64
	if gamma == 0 {
		dfTotal = dfObs
	} else {
		dfM := (mf - 1) / (gamma * gamma)
		dfTotal = 1 / (1/dfM + 1/dfObs)
	}

	return PooledEstimate{
		Coefficient:     name,
		M:               m,
		Estimate:        betaBar,
		WithinVariance:  vBar,
		BetweenVariance: b,
		TotalVariance:   vTotal,
		CompleteDF:      etaBar,
		MissingInfo:     gamma,
		DF:              dfTotal,
	}, nil
}

func allEqual(values []float64) bool {
	for i := 1; i < len(values); i++ {
		if values[i] != values[0] {
			return false
		}
	}
	return true
}
