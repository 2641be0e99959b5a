package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"webmify/internal/pipeline"
	"webmify/internal/progress"
	"webmify/internal/util/format"
)

// percentStep is how often plain mode prints encode progress.
const percentStep = 25

// plainPrinter renders batch events as text lines for non-TTY output.
type plainPrinter struct {
	out, errOut io.Writer
	verbose     bool
	lastStep    map[string]int
	completed   int
	total       int
}

func newPlainPrinter(out, errOut io.Writer, verbose bool, total int) *plainPrinter {
	return &plainPrinter{out: out, errOut: errOut, verbose: verbose, total: total, lastStep: map[string]int{}}
}

type batchOutcome struct {
	sum pipeline.Summary
	err error
}

// run executes batch on a worker goroutine and prints its events from the
// calling one.
func (p *plainPrinter) run(ctx context.Context, batch func(context.Context, progress.Reporter) (pipeline.Summary, error)) (pipeline.Summary, error) {
	ch := progress.NewChannel(256)
	done := make(chan batchOutcome, 1)
	go func() {
		sum, err := batch(ctx, ch)
		ch.Close()
		done <- batchOutcome{sum: sum, err: err}
	}()

	for e := range ch.Events() {
		p.handle(e)
	}
	res := <-done
	if res.err == nil {
		p.summary(res.sum)
	}
	return res.sum, res.err
}

func (p *plainPrinter) handle(e progress.Event) {
	switch ev := e.(type) {
	case progress.Update:
		name := filepath.Base(ev.FilePath)
		switch {
		case ev.Stage == progress.StageEncoding && ev.Percent >= 0:
			step := int(ev.Percent) / percentStep * percentStep
			if last, ok := p.lastStep[ev.FilePath]; !ok || step > last {
				p.lastStep[ev.FilePath] = step
				fmt.Fprintf(p.out, "  %s: encoding %d%%\n", name, step)
			}
		case ev.Stage == progress.StagePlanning && ev.Message != "":
			fmt.Fprintf(p.out, "  %s: %s\n", name, ev.Message)
		}
	case progress.Log:
		if p.verbose {
			fmt.Fprintln(p.errOut, ev.Line)
		}
	case progress.Batch:
		p.completed, p.total = ev.Completed, ev.Total
	case progress.Result:
		prefix := fmt.Sprintf("[%d/%d]", p.completed+1, p.total)
		name := filepath.Base(ev.FilePath)
		switch ev.Outcome {
		case progress.OutcomeSuccess:
			fmt.Fprintf(p.out, "%s Saved: %s (%s)\n", prefix, ev.OutputPath, format.HumanizeBytes(ev.Bytes))
		case progress.OutcomeSkipped:
			fmt.Fprintf(p.out, "%s Skipped %s: %s\n", prefix, name, ev.Reason)
		default:
			fmt.Fprintf(p.out, "%s Failed %s: %s\n", prefix, name, ev.Reason)
		}
	}
}

func (p *plainPrinter) summary(sum pipeline.Summary) {
	fmt.Fprintf(p.out, "Converted %d/%d file(s): %d failed, %d skipped\n",
		sum.Succeeded, sum.Total, sum.Failed, sum.Skipped)
}
