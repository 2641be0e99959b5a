package ui

import "webmify/internal/progress"

type eventMsg struct {
	E progress.Event
}

// batchDoneMsg is sent once the event stream is closed.
type batchDoneMsg struct{}
