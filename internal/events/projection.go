package events

import "time"

// ProjectStart is emitted when a projection helper begins a result batch.
type ProjectStart struct {
	DocType    string
	Results    int
	JoinFields []string
}

// ProjectFinish is emitted when the batch completes, successfully or not.
type ProjectFinish struct {
	DocType  string
	Results  int
	Err      error
	Duration time.Duration
}

// SubQueryStart is emitted before one reference-join sub-query runs.
type SubQueryStart struct {
	DocType    string
	RefField   string
	TargetType string
	IDs        int
}

// SubQueryFinish is emitted after one reference-join sub-query completes.
type SubQueryFinish struct {
	DocType    string
	RefField   string
	TargetType string
	IDs        int
	Fetched    int
	Err        error
	Duration   time.Duration
}
