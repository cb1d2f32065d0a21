package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/objectstream/streamer/pkg/core"
)

// SessionExport is the root JSON structure of an exported session
type SessionExport struct {
	Session   core.Session          `json:"session"`
	EndTime   time.Time             `json:"endTime"`
	Summary   ExportSummary         `json:"summary"`
	Snapshots []core.LimitSnapshot  `json:"snapshots"`
	Checks    []core.ResidencyCheck `json:"residencyChecks"`
	Warnings  []core.LimitWarning   `json:"warnings"`
}

// ExportSummary holds peak values over the recorded snapshots
type ExportSummary struct {
	Ticks          uint64 `json:"ticks"`
	PeakStandard   int    `json:"peakStandard"`
	PeakLowLOD     int    `json:"peakLowLod"`
	PeakResident   int    `json:"peakResident"`
	HardLimitTicks int    `json:"hardLimitTicks"`
	ChecksLoaded   int    `json:"checksLoaded"`
	ChecksPending  int    `json:"checksPending"`
}

// exportJSON writes the session data to a (optionally gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	name := sanitizeName(b.session.Name)
	timestamp := b.session.StartTime.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", name, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", name, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() SessionExport {
	export := SessionExport{
		Session:   *b.session,
		EndTime:   b.endTime,
		Snapshots: b.snapshots,
		Checks:    b.checks,
		Warnings:  b.warnings,
	}
	if export.Snapshots == nil {
		export.Snapshots = []core.LimitSnapshot{}
	}
	if export.Checks == nil {
		export.Checks = []core.ResidencyCheck{}
	}
	if export.Warnings == nil {
		export.Warnings = []core.LimitWarning{}
	}

	sum := &export.Summary
	for _, s := range b.snapshots {
		sum.Ticks = max(sum.Ticks, s.Tick)
		sum.PeakStandard = max(sum.PeakStandard, s.Standard)
		sum.PeakLowLOD = max(sum.PeakLowLOD, s.LowLOD)
		sum.PeakResident = max(sum.PeakResident, s.Resident)
		if s.HardLimit {
			sum.HardLimitTicks++
		}
	}
	for _, c := range b.checks {
		if c.Loaded {
			sum.ChecksLoaded++
		} else {
			sum.ChecksPending++
		}
	}
	return export
}

func sanitizeName(name string) string {
	if name == "" {
		return "session"
	}
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, ":", "_")
	return strings.ReplaceAll(name, string(filepath.Separator), "_")
}

func writeJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
