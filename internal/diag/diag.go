// Package diag is the host diagnostic sink: console echoes go to the application
// logger, one-shot reports go to a zerolog JSON report log.
package diag

import (
	"io"
	"log/slog"
	"sync"

	"github.com/rs/zerolog"

	"github.com/objectstream/streamer/pkg/core"
)

// reported holds every code written by any Sink in this process.
var reported sync.Map

// Sink implements core.DiagnosticSink.
type Sink struct {
	console *slog.Logger
	report  zerolog.Logger
}

var _ core.DiagnosticSink = (*Sink)(nil)

// NewSink creates a Sink writing console output to console and report entries to
// reportLog. A nil reportLog discards reports.
func NewSink(console *slog.Logger, reportLog io.Writer) *Sink {
	if console == nil {
		console = slog.Default()
	}
	if reportLog == nil {
		reportLog = io.Discard
	}
	return &Sink{
		console: console.With("component", "console"),
		report:  zerolog.New(reportLog).With().Timestamp().Logger(),
	}
}

func (s *Sink) Echo(msg string) {
	s.console.Info(msg)
}

// ReportOnce writes msg under code unless that code was already reported.
func (s *Sink) ReportOnce(code int, msg string) {
	if _, loaded := reported.LoadOrStore(code, struct{}{}); loaded {
		return
	}
	s.report.Warn().Int("code", code).Msg(msg)
}

// Reported reports whether code has been written in this process.
func Reported(code int) bool {
	_, ok := reported.Load(code)
	return ok
}
