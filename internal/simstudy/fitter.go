package simstudy

import (
	"context"

	"mipool/domain/pooling"
	"mipool/ports"
)

// Fitter adapts the generator to the model-fitter capability contract: one
// FitImputations call stands in for fitting the target regression on every
// imputed dataset and reporting per-coefficient estimates. The seed in the
// config makes repeated fits identical.
type Fitter struct {
	cfg Config
}

var _ ports.ModelFitterPort = (*Fitter)(nil)

// NewFitter creates a synthetic model fitter for the given study config
func NewFitter(cfg Config) *Fitter {
	return &Fitter{cfg: cfg}
}

// FitImputations generates the per-imputation, per-coefficient records for
// the configured study
func (f *Fitter) FitImputations(ctx context.Context) ([]pooling.ImputationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds, err := Generate(f.cfg)
	if err != nil {
		return nil, err
	}
	return ds.Records, nil
}
