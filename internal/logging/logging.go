package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const sessionStamp = "20060102_150405"

// LogFilePath names the log of one run, e.g. logs/objectstream.20260212_213836.log.
func LogFilePath(logsDir, name string, sessionStart time.Time) string {
	return filepath.Join(logsDir, name+"."+sessionStart.Format(sessionStamp)+".log")
}

// SessionFiles are the two append-only logs a simulation run writes.
type SessionFiles struct {
	Log    *os.File // slog text, otel pretty print and zerolog recorder lines
	Report *os.File // diag report
}

// OpenSessionFiles creates logsDir if needed and opens <app>.<stamp>.log and
// <app>.report.<stamp>.log inside it.
func OpenSessionFiles(logsDir, app string, sessionStart time.Time) (*SessionFiles, error) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("creating logs dir: %w", err)
	}
	open := func(name string) (*os.File, error) {
		return os.OpenFile(LogFilePath(logsDir, name, sessionStart), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	}

	logFile, err := open(app)
	if err != nil {
		return nil, fmt.Errorf("opening session log: %w", err)
	}
	report, err := open(app + ".report")
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening report log: %w", err)
	}
	return &SessionFiles{Log: logFile, Report: report}, nil
}

// Close closes both files and returns the first error.
func (s *SessionFiles) Close() error {
	errLog := s.Log.Close()
	errReport := s.Report.Close()
	if errLog != nil {
		return errLog
	}
	return errReport
}
