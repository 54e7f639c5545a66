package ports

import (
	"context"

	"mipool/domain/pooling"
)

// ModelFitterPort is the capability contract for the upstream model-fitting
// collaborator: anything that can fit the target regression on each imputed
// dataset and report, per coefficient, a point estimate, a cluster-robust
// standard error, and an approximate degrees of freedom. The pooling side
// never learns how the fit or the variance flavor was computed.
type ModelFitterPort interface {
	// FitImputations runs the fit across all m imputed datasets and returns
	// the flat per-imputation, per-coefficient records in coefficient-vector
	// order within each imputation.
	FitImputations(ctx context.Context) ([]pooling.ImputationRecord, error)
}
