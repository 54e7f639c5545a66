package ui

import (
	"mipool/domain/pooling"
)

// rowResponse mirrors one result table row. Failed rows carry the error
// text and zeroed numeric columns.
type rowResponse struct {
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
	Error       string  `json:"error,omitempty"`
}

// poolResponse is the POST /api/pool reply
type poolResponse struct {
	Run         pooling.PoolingRun `json:"run"`
	Rows        []rowResponse      `json:"rows"`
	Fingerprint string             `json:"fingerprint"`
	RuntimeMs   int64              `json:"runtime_ms"`
	Persisted   bool               `json:"persisted"`
	Success     bool               `json:"success"`
}

// runResponse is the GET /api/runs/{id} reply
type runResponse struct {
	Run  pooling.PoolingRun `json:"run"`
	Rows []rowResponse      `json:"rows"`
}

// runListResponse is the GET /api/runs reply
type runListResponse struct {
	Runs []pooling.PoolingRun `json:"runs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toRowResponses(table pooling.ResultTable) []rowResponse {
	rows := make([]rowResponse, 0, len(table.Rows))
	for _, row := range table.Rows {
		resp := rowResponse{
			Coefficient: row.Coefficient,
			M:           row.M,
			Estimate:    row.Estimate,
			StdError:    row.StdError,
			TStatistic:  row.TStatistic,
			DF:          row.DF,
			PValue:      row.PValue,
			CILower:     row.CILower,
			CIUpper:     row.CIUpper,
			MissingInfo: row.MissingInfo,
		}
		if row.Failed() {
			resp.Error = row.Err.Error()
		}
		rows = append(rows, resp)
	}
	return rows
}
