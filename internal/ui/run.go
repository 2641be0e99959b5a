package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"webmify/internal/pipeline"
	"webmify/internal/progress"
)

// BatchFunc runs a conversion batch, reporting to rep.
type BatchFunc func(ctx context.Context, rep progress.Reporter) (pipeline.Summary, error)

type batchResult struct {
	sum pipeline.Summary
	err error
}

// Run launches the TUI for inputs and drives run on a worker goroutine.
// It returns once the batch has finished, even if the UI exits first.
func Run(ctx context.Context, inputs []string, run BatchFunc) (pipeline.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := progress.NewChannel(256)
	done := make(chan batchResult, 1)
	go func() {
		sum, err := run(ctx, ch)
		ch.Close()
		done <- batchResult{sum: sum, err: err}
	}()

	m := NewModel(inputs, ch.Events(), cancel)
	prog := tea.NewProgram(m, tea.WithContext(ctx))
	_, uiErr := prog.Run()
	if uiErr != nil {
		cancel()
	}

	// The UI may have quit early; keep the reporter unblocked until the
	// batch closes it.
	for range ch.Events() {
	}
	res := <-done
	if res.err != nil {
		return res.sum, res.err
	}
	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		return res.sum, uiErr
	}
	return res.sum, nil
}
