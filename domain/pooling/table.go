package pooling

// Group is one coefficient's records, in input order.
type Group struct {
	Coefficient string
	Records     []ImputationRecord
}

// GroupRecords splits a flat record sequence by coefficient name,
// preserving first-seen coefficient order so downstream tables line up
// with the upstream model's coefficient vector.
func GroupRecords(records []ImputationRecord) []Group {
	order := make([]string, 0)
	byName := make(map[string][]ImputationRecord)
	for _, r := range records {
		if _, seen := byName[r.Coefficient]; !seen {
			order = append(order, r.Coefficient)
		}
		byName[r.Coefficient] = append(byName[r.Coefficient], r)
	}

	groups := make([]Group, 0, len(order))
	for _, name := range order {
		groups = append(groups, Group{Coefficient: name, Records: byName[name]})
	}
	return groups
}

// BuildRow pools and summarizes one coefficient's records, folding any
// failure into the row's Err so a bad group never leaks NaN into the
// numeric columns.
func BuildRow(name string, group []ImputationRecord, opts SummarizeOptions) ResultRow {
	pooled, err := Pool(group)
	if err != nil {
		return ResultRow{Coefficient: name, M: len(group), Err: err}
	}

	summary, err := Summarize(pooled, opts)
	if err != nil {
		return ResultRow{Coefficient: name, M: pooled.M, Err: err}
	}

	return ResultRow{
		Coefficient: name,
		M:           pooled.M,
		Estimate:    pooled.Estimate,
		StdError:    summary.StdError,
		TStatistic:  summary.TStatistic,
		DF:          summary.DF,
		PValue:      summary.PValue,
		CILower:     summary.CILower,
		CIUpper:     summary.CIUpper,
		MissingInfo: pooled.MissingInfo,
	}
}

// BuildTable groups records by coefficient and pools each group
// independently.
//
// The table is partial on per-coefficient failure: a group that cannot be
// pooled contributes a row carrying its error instead of vanishing. Only a
// bad confidence level, which poisons every group alike, fails the whole
// build.
func BuildTable(records []ImputationRecord, opts SummarizeOptions) (ResultTable, error) {
	if err := opts.Validate(); err != nil {
		return ResultTable{}, err
	}

	groups := GroupRecords(records)
	rows := make([]ResultRow, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, BuildRow(g.Coefficient, g.Records, opts))
	}
	return ResultTable{Rows: rows}, nil
}
