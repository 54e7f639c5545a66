package pooling

import (
	"errors"
	"math"
	"testing"

	"mipool/domain/core"
)

// TestPool_KnownThreeImputationValues pins the whole derivation chain on a
// hand-computed example: estimates {1.0, 1.2, 0.8}, equal standard errors
// 0.1, complete-data df 20. In exact arithmetic beta_bar = 1, V_bar = 0.01,
// B = 0.04, V_total = 0.01 + 0.04*4/3 = 19/300, gamma = 16/19,
// df_m = 722/256, df_obs = 1260/437, and the harmonic combination gives
// df ~ 1.4257.
func TestPool_KnownThreeImputationValues(t *testing.T) {
	records := []ImputationRecord{
		{Imputation: 1, Coefficient: "treatment", Estimate: 1.0, StdError: 0.1, DF: 20},
		{Imputation: 2, Coefficient: "treatment", Estimate: 1.2, StdError: 0.1, DF: 20},
		{Imputation: 3, Coefficient: "treatment", Estimate: 0.8, StdError: 0.1, DF: 20},
	}

	pooled, err := Pool(records)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}

	if pooled.Coefficient != "treatment" {
		t.Errorf("expected coefficient 'treatment', got %q", pooled.Coefficient)
	}
	if pooled.M != 3 {
		t.Errorf("expected m=3, got %d", pooled.M)
	}

	checks := []struct {
		name string
		got  float64
		want float64
		tol  float64
	}{
		{"estimate", pooled.Estimate, 1.0, 1e-9},
		{"within variance", pooled.WithinVariance, 0.01, 1e-9},
		{"between variance", pooled.BetweenVariance, 0.04, 1e-9},
		{"total variance", pooled.TotalVariance, 0.01 + 0.04*4.0/3.0, 1e-9},
		{"complete df", pooled.CompleteDF, 20.0, 1e-9},
		{"missing info", pooled.MissingInfo, 16.0 / 19.0, 1e-9},
		{"combined df", pooled.DF, 1.4257, 1e-3},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > c.tol {
			t.Errorf("%s: got %.10f, want %.10f (tol %g)", c.name, c.got, c.want, c.tol)
		}
	}

	// The combined df must also reproduce the closed forms it is built from.
	dfM := float64(pooled.M-1) / (pooled.MissingInfo * pooled.MissingInfo)
	dfObs := pooled.CompleteDF * (pooled.CompleteDF + 1) * (1 - pooled.MissingInfo) / (pooled.CompleteDF + 3)
	want := 1 / (1/dfM + 1/dfObs)
	if math.Abs(pooled.DF-want) > 1e-12 {
		t.Errorf("combined df %.12f does not match harmonic combination %.12f", pooled.DF, want)
	}
}

// TestPool_SingleImputationRejected verifies m=1 fails loudly rather than
// producing a fake zero between-imputation variance
func TestPool_SingleImputationRejected(t *testing.T) {
	records := []ImputationRecord{
		{Imputation: 1, Coefficient: "slope", Estimate: 0.42, StdError: 0.05, DF: 31.5},
	}

	_, err := Pool(records)
	if err == nil {
		t.Fatal("expected error for single imputation, got none")
	}
	if !errors.Is(err, core.ErrInsufficientImputations) {
		t.Errorf("expected ErrInsufficientImputations, got %v", err)
	}

	if _, err := Pool(nil); !errors.Is(err, core.ErrInsufficientImputations) {
		t.Errorf("expected ErrInsufficientImputations for empty input, got %v", err)
	}
}

// TestPool_IdenticalEstimatesGiveZeroMissingInfo covers the gamma == 0 path:
// identical estimates with positive within-variance must yield exactly zero
// between-imputation variance and a combined df equal to the observed-data
// df, bit for bit
func TestPool_IdenticalEstimatesGiveZeroMissingInfo(t *testing.T) {
	records := []ImputationRecord{
		{Imputation: 1, Coefficient: "intercept", Estimate: 2.5, StdError: 0.3, DF: 12},
		{Imputation: 2, Coefficient: "intercept", Estimate: 2.5, StdError: 0.3, DF: 12},
		{Imputation: 3, Coefficient: "intercept", Estimate: 2.5, StdError: 0.3, DF: 12},
	}

	pooled, err := Pool(records)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}

	if pooled.BetweenVariance != 0 {
		t.Errorf("expected between variance exactly 0, got %g", pooled.BetweenVariance)
	}
	if pooled.MissingInfo != 0 {
		t.Errorf("expected missing info exactly 0, got %g", pooled.MissingInfo)
	}
	if pooled.TotalVariance != pooled.WithinVariance {
		t.Errorf("expected total variance == within variance, got %g vs %g", pooled.TotalVariance, pooled.WithinVariance)
	}

	dfObs := pooled.CompleteDF * (pooled.CompleteDF + 1) * (1 - pooled.MissingInfo) / (pooled.CompleteDF + 3)
	if pooled.DF != dfObs {
		t.Errorf("expected combined df exactly equal to observed-data df %g, got %g", dfObs, pooled.DF)
	}
	// eta_bar = 12 gives 12*13/15 = 10.4
	if math.Abs(pooled.DF-10.4) > 1e-12 {
		t.Errorf("expected df 10.4, got %g", pooled.DF)
	}
}

// TestPool_DegenerateVariance covers V_total == 0: identical estimates with
// zero standard errors leave nothing to do inference with
func TestPool_DegenerateVariance(t *testing.T) {
	records := []ImputationRecord{
		{Imputation: 1, Coefficient: "x1", Estimate: 1.5, StdError: 0, DF: 10},
		{Imputation: 2, Coefficient: "x1", Estimate: 1.5, StdError: 0, DF: 10},
	}

	_, err := Pool(records)
	if !errors.Is(err, core.ErrDegenerateVariance) {
		t.Errorf("expected ErrDegenerateVariance, got %v", err)
	}
}

// TestPool_MissingInfoAtOneRejected: zero within-variance with nonzero
// between-variance drives gamma to 1, where the observed-data df collapses
// to zero. That must surface as a variance anomaly, not a df of 0.
func TestPool_MissingInfoAtOneRejected(t *testing.T) {
	records := []ImputationRecord{
		{Imputation: 1, Coefficient: "x2", Estimate: 1.0, StdError: 0, DF: 10},
		{Imputation: 2, Coefficient: "x2", Estimate: 2.0, StdError: 0, DF: 10},
	}

	_, err := Pool(records)
	if !errors.Is(err, core.ErrDegenerateVariance) {
		t.Errorf("expected ErrDegenerateVariance for gamma at 1, got %v", err)
	}
}

// TestPool_NonPositiveDFRejected verifies a df <= 0 fails the whole group;
// dropping the record instead would bias the mean complete-data df
func TestPool_NonPositiveDFRejected(t *testing.T) {
	for _, badDF := range []float64{0, -3.5} {
		records := []ImputationRecord{
			{Imputation: 1, Coefficient: "x3", Estimate: 1.0, StdError: 0.2, DF: 18},
			{Imputation: 2, Coefficient: "x3", Estimate: 1.1, StdError: 0.2, DF: badDF},
		}

		_, err := Pool(records)
		if !errors.Is(err, core.ErrNonPositiveDF) {
			t.Errorf("df=%g: expected ErrNonPositiveDF, got %v", badDF, err)
		}
	}
}

// TestPool_MalformedRecordsRejected verifies non-finite fields, negative
// standard errors, and mixed coefficient names are caught before any
// arithmetic
func TestPool_MalformedRecordsRejected(t *testing.T) {
	base := ImputationRecord{Imputation: 1, Coefficient: "x4", Estimate: 1.0, StdError: 0.2, DF: 18}
	second := ImputationRecord{Imputation: 2, Coefficient: "x4", Estimate: 1.2, StdError: 0.25, DF: 18}

	cases := []struct {
		name   string
		mutate func(r *ImputationRecord)
	}{
		{"nan estimate", func(r *ImputationRecord) { r.Estimate = math.NaN() }},
		{"inf estimate", func(r *ImputationRecord) { r.Estimate = math.Inf(1) }},
		{"nan std error", func(r *ImputationRecord) { r.StdError = math.NaN() }},
		{"negative std error", func(r *ImputationRecord) { r.StdError = -0.1 }},
		{"mixed coefficients", func(r *ImputationRecord) { r.Coefficient = "other" }},
	}

	for _, c := range cases {
		bad := second
		c.mutate(&bad)
		_, err := Pool([]ImputationRecord{base, bad})
		if !errors.Is(err, core.ErrInvalidRecord) {
			t.Errorf("%s: expected ErrInvalidRecord, got %v", c.name, err)
		}
	}
}

// TestPool_OrderInvariance verifies permuting the records changes no output
// bit: aggregation happens over sorted copies, so summation order is pinned
func TestPool_OrderInvariance(t *testing.T) {
	records := []ImputationRecord{
		{Imputation: 1, Coefficient: "dose", Estimate: 0.31, StdError: 0.071, DF: 17.2},
		{Imputation: 2, Coefficient: "dose", Estimate: 0.27, StdError: 0.068, DF: 19.8},
		{Imputation: 3, Coefficient: "dose", Estimate: 0.35, StdError: 0.074, DF: 16.1},
		{Imputation: 4, Coefficient: "dose", Estimate: 0.29, StdError: 0.070, DF: 18.5},
		{Imputation: 5, Coefficient: "dose", Estimate: 0.33, StdError: 0.072, DF: 17.9},
	}

	baseline, err := Pool(records)
	if err != nil {
		t.Fatalf("pool baseline: %v", err)
	}

	permutations := [][]int{
		{4, 3, 2, 1, 0},
		{2, 0, 4, 1, 3},
		{1, 4, 0, 3, 2},
		{3, 1, 4, 2, 0},
	}
	for _, perm := range permutations {
		shuffled := make([]ImputationRecord, len(records))
		for i, j := range perm {
			shuffled[i] = records[j]
		}

		pooled, err := Pool(shuffled)
		if err != nil {
			t.Fatalf("pool permutation %v: %v", perm, err)
		}
		if pooled != baseline {
			t.Errorf("permutation %v changed the pooled result:\n got %+v\nwant %+v", perm, pooled, baseline)
		}
	}
}
