package pooling

import (
	"math"

	"mipool/domain/core"
)

// ============================================================================
// INPUT PRIMITIVES
// ============================================================================

// ImputationRecord holds the fit output for one coefficient in one imputed
// dataset: the point estimate, its cluster-robust standard error, and the
// complete-data degrees of freedom attached to that variance estimate.
// INVARIANTS:
// - Coefficient is non-empty and stable across imputations (grouping key)
// - StdError >= 0
// - DF > 0, possibly non-integer (Satterthwaite-type approximations)
type ImputationRecord struct {
	Imputation  int     `json:"imputation"` // 1-based index of the imputed dataset; informational
	Coefficient string  `json:"coefficient"`
	Estimate    float64 `json:"estimate"`
	StdError    float64 `json:"std_error"`
	DF          float64 `json:"df"`
}

// NewImputationRecord creates a validated imputation record
func NewImputationRecord(imputation int, coefficient string, estimate, stdError, df float64) (ImputationRecord, error) {
	r := ImputationRecord{
		Imputation:  imputation,
		Coefficient: coefficient,
		Estimate:    estimate,
		StdError:    stdError,
		DF:          df,
	}
	if err := r.Validate(); err != nil {
		return ImputationRecord{}, err
	}
	return r, nil
}

// Validate checks the record against its field invariants
func (r ImputationRecord) Validate() error {
	if r.Coefficient == "" {
		return core.NewInvalidRecordError("(empty)", "coefficient name is empty")
	}
	if !isFinite(r.Estimate) {
		return core.NewInvalidRecordError(r.Coefficient, "estimate is not finite")
	}
	if !isFinite(r.StdError) {
		return core.NewInvalidRecordError(r.Coefficient, "standard error is not finite")
	}
	if r.StdError < 0 {
		return core.NewInvalidRecordError(r.Coefficient, "standard error is negative")
	}
	if math.IsNaN(r.DF) || math.IsInf(r.DF, 0) {
		return core.NewInvalidRecordError(r.Coefficient, "degrees of freedom is not finite")
	}
	if r.DF <= 0 {
		return core.NewNonPositiveDFError(r.Coefficient, r.DF)
	}
	return nil
}

// ============================================================================
// POOLED OUTPUTS
// ============================================================================

// PooledEstimate is the Rubin's-rules combination of one coefficient's
// per-imputation estimates, with the Barnard-Rubin small-sample df.
// Immutable once computed.
type PooledEstimate struct {
	Coefficient string `json:"coefficient"`
	M           int    `json:"m"` // number of imputations pooled

	Estimate        float64 `json:"estimate"`         // beta_bar: mean of per-imputation estimates
	WithinVariance  float64 `json:"within_variance"`  // V_bar: mean squared standard error
	BetweenVariance float64 `json:"between_variance"` // B: sample variance of estimates (divisor m-1)
	TotalVariance   float64 `json:"total_variance"`   // V_total = V_bar + B*(m+1)/m
	CompleteDF      float64 `json:"complete_df"`      // eta_bar: mean complete-data df
	MissingInfo     float64 `json:"missing_info"`     // gamma: fraction of missing information, in [0,1)
	DF              float64 `json:"df"`               // Barnard-Rubin combined degrees of freedom
}

// StdError returns sqrt of the total pooled variance
func (p PooledEstimate) StdError() float64 {
	return math.Sqrt(p.TotalVariance)
}

// InferenceSummary carries the hypothesis-test and interval outputs derived
// from a PooledEstimate under a Student-t reference with DF degrees of
// freedom (normal limit when DF is infinite).
type InferenceSummary struct {
	Coefficient     string  `json:"coefficient"`
	Estimate        float64 `json:"estimate"`
	StdError        float64 `json:"std_error"`
	TStatistic      float64 `json:"t_statistic"`
	DF              float64 `json:"df"`
	PValue          float64 `json:"p_value"`
	CriticalValue   float64 `json:"critical_value"`
	CILower         float64 `json:"ci_lower"`
	CIUpper         float64 `json:"ci_upper"`
	ConfidenceLevel float64 `json:"confidence_level"`
	NullValue       float64 `json:"null_value"`
}

// SummarizeOptions configures inference derivation. The zero value is NOT
// valid; start from DefaultSummarizeOptions.
type SummarizeOptions struct {
	ConfidenceLevel float64 `json:"confidence_level"` // strictly inside (0,1)
	NullValue       float64 `json:"null_value"`       // hypothesized coefficient value
}

// DefaultSummarizeOptions returns the standard 95% two-sided setup against a
// zero null
func DefaultSummarizeOptions() SummarizeOptions {
	return SummarizeOptions{
		ConfidenceLevel: 0.95,
		NullValue:       0,
	}
}

// Validate checks the confidence level bounds
func (o SummarizeOptions) Validate() error {
	if o.ConfidenceLevel <= 0 || o.ConfidenceLevel >= 1 || math.IsNaN(o.ConfidenceLevel) {
		return core.NewInvalidConfidenceError(o.ConfidenceLevel)
	}
	return nil
}

// ============================================================================
// RESULT TABLE
// ============================================================================

// ResultRow is one coefficient's line in the pooled output table. A row
// either carries the full numeric summary or, when its group failed
// validation, the coefficient name, the record count, and the error — failed
// coefficients stay visible instead of disappearing from the table.
type ResultRow struct {
	Coefficient string  `json:"coefficient"`
	M           int     `json:"m"`
	Estimate    float64 `json:"estimate"`
	StdError    float64 `json:"std_error"`
	TStatistic  float64 `json:"t_statistic"`
	DF          float64 `json:"df"`
	PValue      float64 `json:"p_value"`
	CILower     float64 `json:"ci_lower"`
	CIUpper     float64 `json:"ci_upper"`
	MissingInfo float64 `json:"missing_info"`

	Err error `json:"-"`
}

// Failed reports whether this coefficient's group was rejected
func (r ResultRow) Failed() bool {
	return r.Err != nil
}

// ResultTable is the pooled summary for one model's imputations, one row per
// coefficient in first-seen input order.
type ResultTable struct {
	Rows []ResultRow `json:"rows"`
}

// Coefficients returns the coefficient names in table order
func (t ResultTable) Coefficients() []string {
	names := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		names[i] = row.Coefficient
	}
	return names
}

// FailedRows counts rows whose pooling or inference failed
func (t ResultTable) FailedRows() int {
	n := 0
	for _, row := range t.Rows {
		if row.Failed() {
			n++
		}
	}
	return n
}

// Row looks up a row by coefficient name
func (t ResultTable) Row(coefficient string) (ResultRow, bool) {
	for _, row := range t.Rows {
		if row.Coefficient == coefficient {
			return row, true
		}
	}
	return ResultRow{}, false
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
