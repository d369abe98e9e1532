package integration

import "time"

// FunctionStatus is the outcome of one sync function within a phase.
type FunctionStatus string

const (
	// FunctionStatusSuccess indicates the function completed
	FunctionStatusSuccess FunctionStatus = "SUCCESS"
	// FunctionStatusError indicates the function raised an error
	FunctionStatusError FunctionStatus = "ERROR"
)

// SessionStatus is the overall outcome of a sync session.
type SessionStatus string

const (
	// SessionStatusSuccess indicates every function in every phase succeeded
	SessionStatusSuccess SessionStatus = "SUCCESS"
	// SessionStatusPartial indicates the session ran to completion with some failures
	SessionStatusPartial SessionStatus = "PARTIAL"
	// SessionStatusError indicates the session itself aborted
	SessionStatusError SessionStatus = "ERROR"
)

// FunctionResult records the outcome of one sync function. Failures are data
// here, not propagated errors: a failed function never cancels its siblings.
type FunctionResult struct {
	Function     string         `json:"function"`
	TableLabel   string         `json:"table_name"`
	Status       FunctionStatus `json:"status"`
	Processed    int            `json:"processed"`
	Errors       int            `json:"errors"`
	ErrorDetails []string       `json:"error_details,omitempty"`
}

// PhaseResult aggregates the concurrent functions of one phase. Immutable
// once produced by the phase runner.
type PhaseResult struct {
	Phase          string           `json:"phase"`
	StartTime      time.Time        `json:"start_time"`
	EndTime        time.Time        `json:"end_time"`
	Functions      []FunctionResult `json:"functions"`
	TotalProcessed int              `json:"total_processed"`
	TotalErrors    int              `json:"total_errors"`
}

// SessionResult is the consolidated outcome of one full or incremental sync
// run. Callers always receive one, even on partial failure.
type SessionResult struct {
	Status         SessionStatus        `json:"status"`
	Incremental    bool                 `json:"incremental"`
	StartTime      time.Time            `json:"start_time"`
	EndTime        time.Time            `json:"end_time"`
	Phases         []PhaseResult        `json:"phases"`
	TotalProcessed int                  `json:"total_processed"`
	TotalErrors    int                  `json:"total_errors"`
	LastIDs        map[EntityType]int64 `json:"last_ids,omitempty"`
	Error          string               `json:"error,omitempty"`
}

// AddPhase appends a phase result and folds its totals into the session.
func (r *SessionResult) AddPhase(p PhaseResult) {
	r.Phases = append(r.Phases, p)
	r.TotalProcessed += p.TotalProcessed
	r.TotalErrors += p.TotalErrors
}

// Finalize stamps the end time and derives the overall status from the
// accumulated error count.
func (r *SessionResult) Finalize() {
	r.EndTime = time.Now()
	if r.TotalErrors == 0 {
		r.Status = SessionStatusSuccess
	} else {
		r.Status = SessionStatusPartial
	}
}
