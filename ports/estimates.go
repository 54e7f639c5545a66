package ports

import (
	"context"

	"mipool/domain/pooling"
)

// EstimateSourcePort provides read access to stored per-imputation estimate
// records (files, databases, upstream services). Implementations preserve
// the record order of the underlying source: first-seen coefficient order
// drives result-table row order.
type EstimateSourcePort interface {
	ReadRecords(ctx context.Context) ([]pooling.ImputationRecord, error)
}
