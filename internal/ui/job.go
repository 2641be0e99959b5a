package ui

import (
	"fmt"
	"path/filepath"

	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"

	"webmify/internal/progress"
	"webmify/internal/util/format"
)

// maxLogLines bounds the per-file ffmpeg output kept for display.
const maxLogLines = 3

type jobState struct {
	path    string
	stage   progress.Stage
	status  string
	outcome progress.Outcome
	done    bool

	outputPath string
	bytes      int64
	percent    float64 // -1 means unknown
	reduced    bool

	spinner spinner.Model
	bar     bubblesprogress.Model

	logsRing []string
}

func newJobState(path string, styles Styles) jobState {
	sp := spinner.New()
	sp.Style = styles.Spinner
	bar := bubblesprogress.New(
		bubblesprogress.WithDefaultGradient(),
		bubblesprogress.WithWidth(40),
	)
	return jobState{
		path:    path,
		stage:   progress.StagePending,
		status:  "Queued",
		percent: -1,
		spinner: sp,
		bar:     bar,
	}
}

func (js *jobState) applyUpdate(u progress.Update) {
	js.stage = u.Stage
	if u.Stage == progress.StageEncoding {
		if u.Percent >= 0 && u.Percent >= js.percent {
			js.percent = u.Percent
		}
	} else {
		js.percent = -1
	}
	if u.Message != "" {
		js.status = u.Message
	} else if !u.Stage.Terminal() {
		js.status = stageLabel(u.Stage)
	}
	if u.Stage == progress.StagePlanning && u.Message != "" {
		js.reduced = true
	}
}

func (js *jobState) applyLog(line string) {
	if len(js.logsRing) >= maxLogLines {
		js.logsRing = js.logsRing[1:]
	}
	js.logsRing = append(js.logsRing, line)
}

func (js *jobState) applyResult(r progress.Result) {
	js.done = true
	js.outcome = r.Outcome
	js.stage = r.Outcome.Stage()
	js.outputPath = r.OutputPath
	js.bytes = r.Bytes
	if r.Plan != nil && r.Plan.ResolutionReduced {
		js.reduced = true
	}
	switch r.Outcome {
	case progress.OutcomeSuccess:
		js.percent = 100
		js.status = fmt.Sprintf("Saved: %s (%s)", filepath.Base(r.OutputPath), format.HumanizeBytes(r.Bytes))
	case progress.OutcomeSkipped:
		js.percent = -1
		js.status = "Skipped: " + r.Reason
	default:
		js.percent = -1
		js.status = "Failed: " + r.Reason
	}
}

func stageLabel(s progress.Stage) string {
	switch s {
	case progress.StagePending:
		return "Queued"
	case progress.StageProbing:
		return "Reading media info"
	case progress.StagePlanning:
		return "Planning bitrate"
	case progress.StageEncoding:
		return "Encoding"
	}
	return string(s)
}
