package diag

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_Echo(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(slog.New(slog.NewTextHandler(&buf, nil)), nil)

	s.Echo("pool limit reached")
	assert.Contains(t, buf.String(), `msg="pool limit reached"`)
	assert.Contains(t, buf.String(), "component=console")
}

func TestSink_ReportOnce(t *testing.T) {
	var report bytes.Buffer
	s := NewSink(nil, &report)
	const code = 91001

	assert.False(t, Reported(code))
	s.ReportOnce(code, "first")
	s.ReportOnce(code, "second")
	NewSink(nil, &report).ReportOnce(code, "other sink")

	lines := strings.Split(strings.TrimSpace(report.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, float64(code), entry["code"])
	assert.Equal(t, "first", entry["message"])
	assert.Contains(t, entry, "time")
	assert.True(t, Reported(code))
}

func TestSink_ReportOnceConcurrent(t *testing.T) {
	var report syncBuffer
	s := NewSink(nil, &report)
	const code = 91002

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.ReportOnce(code, "racing")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, strings.Count(report.String(), "racing"))
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
