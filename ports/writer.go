package ports

import (
	"context"

	"mipool/domain/pooling"
)

// TableWriterPort renders a pooled result table to some output medium
// (XLSX, CSV, ...). Failed rows are written with their error text so a bad
// coefficient never disappears from the output.
type TableWriterPort interface {
	WriteTable(ctx context.Context, table pooling.ResultTable, path string) error
}
