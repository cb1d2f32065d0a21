// Package monitor periodically writes the manager's published status to a text file.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/objectstream/streamer/internal/manager"
)

// StatusSource publishes the latest manager status. Status must be safe to call
// from any goroutine.
type StatusSource interface {
	Status() manager.Status
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Source     StatusSource
	Logger     *slog.Logger
	StatusFile string
	Interval   time.Duration
	// Pending reports rows still queued by the storage backend. Optional.
	Pending func() int
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// ledgerStatus is the JSON block for the admission ledger.
type ledgerStatus struct {
	Standard    int  `json:"standard"`
	LowLOD      int  `json:"lowLod"`
	ObjectLimit bool `json:"objectLimit"`
	LowLODLimit bool `json:"lowLodLimit"`
	HardLimit   bool `json:"hardLimit"`
}

// poolStatus is the JSON block for the shared host pools.
type poolStatus struct {
	EntryInfoNodes     int `json:"entryInfoNodes"`
	PointerSingleLinks int `json:"pointerSingleLinks"`
	PointerDoubleLinks int `json:"pointerDoubleLinks"`
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus renders the current status as text lines. The flags select the
// optional JSON blocks that follow the summary line.
func (s *Service) GetProgramStatus(ledger, pools, writeQueue bool) []string {
	st := s.deps.Source.Status()

	output := []string{fmt.Sprintf("tick:%d registered:%d resident:%d time:%s",
		st.Tick, st.Registered, st.Resident, st.Time.UTC().Format(time.RFC3339))}

	if ledger {
		output = append(output, marshalBlock(ledgerStatus{
			Standard:    st.Ledger.Standard,
			LowLOD:      st.Ledger.LowLOD,
			ObjectLimit: st.Ledger.ObjectLimit,
			LowLODLimit: st.Ledger.LowLODLimit,
			HardLimit:   st.Ledger.HardLimit,
		}))
	}
	if pools {
		output = append(output, marshalBlock(poolStatus{
			EntryInfoNodes:     st.Ledger.EntryInfoNodes,
			PointerSingleLinks: st.Ledger.PointerSingleLinks,
			PointerDoubleLinks: st.Ledger.PointerDoubleLinks,
		}))
	}
	if writeQueue && s.deps.Pending != nil {
		output = append(output, fmt.Sprintf("pending writes: %d", s.deps.Pending()))
	}
	if st.Warned {
		output = append(output, "warning: "+st.Warning)
	}

	return output
}

func marshalBlock(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "%s"}`, err)
	}
	return string(data)
}

// WriteStatus overwrites the status file with the current status.
func (s *Service) WriteStatus(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	for _, line := range s.GetProgramStatus(true, true, true) {
		if _, err := f.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	if s.deps.Source == nil {
		return fmt.Errorf("monitor: status source is required")
	}

	statusFile, err := os.Create(s.deps.StatusFile)
	if err != nil {
		return fmt.Errorf("error creating status file: %w", err)
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(statusFile, s.stopChan, s.done)
	return nil
}

func (s *Service) run(statusFile *os.File, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer statusFile.Close()

	logger := s.deps.Logger
	logger.Debug("Starting status monitor goroutine", "file", s.deps.StatusFile)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			// final write so the file reflects the end state
			if err := s.WriteStatus(statusFile); err != nil {
				logger.Error("Error writing status file", "error", err)
			}
			return
		case <-ticker.C:
			if err := s.WriteStatus(statusFile); err != nil {
				logger.Error("Error writing status file", "error", err)
			}
		}
	}
}

// Stop stops the status monitor and waits for its last write.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()

	<-done
}
