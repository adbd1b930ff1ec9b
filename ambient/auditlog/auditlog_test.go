package auditlog

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memWriter struct {
	events []*Event
}

func (w *memWriter) WriteEvent(e *Event) error {
	w.events = append(w.events, e)
	return nil
}

func TestLoggerRecordsSpawnAndDone(t *testing.T) {
	w := &memWriter{}
	logger := NewLogger(10, w)

	logger.LogSpawn("sess-1")
	logger.LogDone("sess-1", "eof", 4096, 50*time.Millisecond, nil)

	events := logger.GetEvents()
	require.Len(t, events, 2)
	require.Equal(t, EventTypeSpawn, events[0].EventType)
	require.Equal(t, EventTypeDone, events[1].EventType)
	require.Equal(t, "eof", events[1].Outcome)
	require.True(t, events[1].Success)
	require.Equal(t, int64(4096), events[1].BytesStreamed)
}

func TestLoggerRecordsFailureOutcome(t *testing.T) {
	w := &memWriter{}
	logger := NewLogger(10, w)

	logger.LogDone("sess-2", "worker_fault", 0, 0, errors.New("boom"))

	events := logger.GetEvents()
	require.Len(t, events, 1)
	require.False(t, events[0].Success)
	require.Equal(t, "boom", events[0].Error)
}

func TestLoggerCapsRetainedEvents(t *testing.T) {
	w := &memWriter{}
	logger := NewLogger(2, w)

	logger.LogSpawn("a")
	logger.LogSpawn("b")
	logger.LogSpawn("c")

	events := logger.GetEvents()
	require.Len(t, events, 2)
	require.Equal(t, "b", events[0].SessionID)
	require.Equal(t, "c", events[1].SessionID)
}

func TestFileSinkAppendsNewlineDelimitedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	sink := NewFileSink(path)

	require.NoError(t, sink.WriteEvent(&Event{SessionID: "sess-1", EventType: EventTypeSpawn}))
	require.NoError(t, sink.WriteEvent(&Event{SessionID: "sess-2", EventType: EventTypeDone}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var lines []string
	for _, l := range splitLines(string(data)) {
		if l != "" {
			lines = append(lines, l)
		}
	}
	require.Len(t, lines, 2)

	var first Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.Equal(t, "sess-1", first.SessionID)
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i, c := range s {
		if c == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func TestBatchSinkFlushesOnClose(t *testing.T) {
	w := &memWriter{}
	batch := NewBatchSink(w, 100, time.Hour, 0, 0)

	require.NoError(t, batch.WriteEvent(&Event{SessionID: "sess-1"}))
	require.NoError(t, batch.WriteEvent(&Event{SessionID: "sess-2"}))
	require.NoError(t, batch.Close())

	require.Len(t, w.events, 2)
}
