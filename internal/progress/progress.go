package progress

import "webmify/internal/model"

// Stage identifies where a file is in the conversion state machine.
type Stage string

const (
	StagePending   Stage = "pending"
	StageProbing   Stage = "probing"
	StagePlanning  Stage = "planning"
	StageEncoding  Stage = "encoding"
	StageSucceeded Stage = "succeeded"
	StageFailed    Stage = "failed"
	StageSkipped   Stage = "skipped"
)

// Terminal reports whether no further transitions follow s.
func (s Stage) Terminal() bool {
	return s == StageSucceeded || s == StageFailed || s == StageSkipped
}

// Outcome is the terminal result of one file.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Stage maps an outcome onto its terminal stage.
func (o Outcome) Stage() Stage {
	switch o {
	case OutcomeSuccess:
		return StageSucceeded
	case OutcomeSkipped:
		return StageSkipped
	default:
		return StageFailed
	}
}

// LogStream indicates which stream produced a log line.
type LogStream int

const (
	StreamStdout LogStream = iota
	StreamStderr
)

// Update conveys a stage change or encode progress for one file.
// Percent is 0..100 while encoding; negative means unknown.
type Update struct {
	FilePath string
	Stage    Stage
	Percent  float64
	Message  string
}

// Log is a raw subprocess line associated with a file.
type Log struct {
	FilePath string
	Stream   LogStream
	Line     string
}

// Result is emitted exactly once per input file.
type Result struct {
	FilePath   string
	Outcome    Outcome
	Reason     string // human-readable; empty on plain success
	OutputPath string
	Bytes      int64
	Plan       *model.EncodePlan // nil when planning never completed
}

// Batch reports overall progress after each file reaches a terminal state.
type Batch struct {
	Completed int
	Total     int
}

// Fraction returns Completed/Total, or 0 for an empty batch.
func (b Batch) Fraction() float64 {
	if b.Total <= 0 {
		return 0
	}
	return float64(b.Completed) / float64(b.Total)
}

// Reporter is implemented by UI or any observer interested in progress events.
// Implementations must be safe for concurrent use when the converter runs
// more than one file at a time.
type Reporter interface {
	Update(u Update)
	Log(l Log)
	Result(r Result)
	Batch(b Batch)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Update(Update) {}
func (Nop) Log(Log)       {}
func (Nop) Result(Result) {}
func (Nop) Batch(Batch)   {}
