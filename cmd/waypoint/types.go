package main

import "github.com/jward/waypoint"

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
	Code       string `json:"code,omitempty"`
}

// CLIRecord is a JSON-friendly record.
type CLIRecord struct {
	Table    string `json:"table"`
	Position int64  `json:"position"`
	Name     string `json:"name"`
	Tel      string `json:"tel"`
	Address  string `json:"address"`
	Favorite *bool  `json:"favorite,omitempty"`
}

// CLIToggle reports the outcome of a favorite toggle.
type CLIToggle struct {
	Table    string `json:"table"`
	Position int64  `json:"position"`
	Result   string `json:"result"`
}

// CLILink is a map provider link for one record.
type CLILink struct {
	Table    string `json:"table"`
	Position int64  `json:"position"`
	Link     string `json:"link"`
}

// CLICount reports how many rows a mutation touched.
type CLICount struct {
	Count int `json:"count"`
}

func toCLIRecord(table string, r waypoint.Record) CLIRecord {
	return CLIRecord{
		Table:    table,
		Position: r.Position,
		Name:     r.Name,
		Tel:      r.Tel,
		Address:  r.Address,
	}
}

func toCLIRecords(table string, recs []waypoint.Record) []CLIRecord {
	out := make([]CLIRecord, len(recs))
	for i, r := range recs {
		out[i] = toCLIRecord(table, r)
	}
	return out
}
