package pooling

import (
	"mipool/domain/core"
)

// PoolingRun is the audit record for one pooling pass: what was pooled,
// under which options, with a deterministic fingerprint over the resulting
// table. Rows live alongside it in the repository.
type PoolingRun struct {
	ID              core.RunID     `json:"id"`
	CreatedAt       core.Timestamp `json:"created_at"`
	Source          string         `json:"source"` // free-form input label (filename, "api", ...)
	M               int            `json:"m"`      // imputation count observed in the input
	ConfidenceLevel float64        `json:"confidence_level"`
	NullValue       float64        `json:"null_value"`
	Fingerprint     core.Hash      `json:"fingerprint"`
	Rows            int            `json:"rows"`
	FailedRows      int            `json:"failed_rows"`
}

// NewPoolingRun stamps a fresh run record for a just-built table
func NewPoolingRun(source string, m int, opts SummarizeOptions, table ResultTable, fingerprint core.Hash) PoolingRun {
	return PoolingRun{
		ID:              core.NewRunID(),
		CreatedAt:       core.Now(),
		Source:          source,
		M:               m,
		ConfidenceLevel: opts.ConfidenceLevel,
		NullValue:       opts.NullValue,
		Fingerprint:     fingerprint,
		Rows:            len(table.Rows),
		FailedRows:      table.FailedRows(),
	}
}
