package domain

import (
	"encoding/json"
	"time"
)

// RawCommit is one commits listing entry exactly as the API returned it
type RawCommit = json.RawMessage

// RunTagColumn is the sink column holding the run tag
const RunTagColumn = "pipeline_run_date"

// Columns lists sink columns in the order Record.Values returns them
var Columns = []string{
	"sha",
	"committer_id",
	"committer_username",
	"committer_name",
	"committer_email",
	"commit_timestamp",
	RunTagColumn,
}

// MaxBindParams is the postgres limit on parameters in one statement
const MaxBindParams = 65535

// MaxBatchSize is the largest number of Records one multi row INSERT can carry
func MaxBatchSize() int { return MaxBindParams / len(Columns) }

// Record is one validated commit row
type Record struct {
	SHA               string    `json:"sha" validate:"notblank"`
	CommitterID       int64     `json:"committer_id" validate:"gte=0"`
	CommitterUsername string    `json:"committer_username"`
	CommitterName     string    `json:"committer_name"`
	CommitterEmail    string    `json:"committer_email"`
	CommitTimestamp   time.Time `json:"commit_timestamp" validate:"required,notfuture"`
	PipelineRunDate   string    `json:"pipeline_run_date" validate:"notblank"`
}

// Values returns the row in Columns order
func (r Record) Values() []any {
	return []any{
		r.SHA,
		r.CommitterID,
		r.CommitterUsername,
		r.CommitterName,
		r.CommitterEmail,
		r.CommitTimestamp.UTC(),
		r.PipelineRunDate,
	}
}
