// Package auditlog records the lifecycle of creditstream sessions —
// spawn, completion, and key rotation — as a compact, queryable event
// trail, independent of the structured request logs middleware emits.
package auditlog

import (
	"sync"
	"time"

	"github.com/kenneth/creditstream/config"
)

// EventType identifies the kind of session-lifecycle event recorded.
type EventType string

const (
	// EventTypeSpawn fires when a stream's worker is spawned.
	EventTypeSpawn EventType = "spawn"
	// EventTypeDone fires when a stream reaches a terminal state (EOF,
	// worker fault, or kill).
	EventTypeDone EventType = "done"
	// EventTypeKeyRotation fires when the active session key version
	// changes.
	EventTypeKeyRotation EventType = "key_rotation"
)

// Event is a single audit log entry.
type Event struct {
	Timestamp     time.Time              `json:"timestamp"`
	EventType     EventType              `json:"event_type"`
	SessionID     string                 `json:"session_id,omitempty"`
	Outcome       string                 `json:"outcome,omitempty"`
	KeyVersion    int                    `json:"key_version,omitempty"`
	Success       bool                   `json:"success"`
	Error         string                 `json:"error,omitempty"`
	Duration      time.Duration          `json:"duration_ms,omitempty"`
	BytesStreamed int64                  `json:"bytes_streamed,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// EventWriter writes a single event to its destination.
type EventWriter interface {
	WriteEvent(event *Event) error
}

// Logger is the session audit trail.
type Logger interface {
	Log(event *Event) error
	LogSpawn(sessionID string)
	LogDone(sessionID, outcome string, bytesStreamed int64, duration time.Duration, err error)
	LogKeyRotation(keyVersion int, success bool, err error)
	GetEvents() []*Event
	Close() error
}

type auditLogger struct {
	mu         sync.Mutex
	events     []*Event
	maxEvents  int
	writer     EventWriter
	redactKeys []string
}

// NewLogger creates a Logger writing through writer, retaining at most
// maxEvents in memory for GetEvents.
func NewLogger(maxEvents int, writer EventWriter) Logger {
	return NewLoggerWithRedaction(maxEvents, writer, nil)
}

// NewLoggerWithRedaction is NewLogger with metadata keys that are
// replaced with "[REDACTED]" before an event is persisted.
func NewLoggerWithRedaction(maxEvents int, writer EventWriter, redactKeys []string) Logger {
	if writer == nil {
		writer = &StdoutSink{}
	}
	if maxEvents <= 0 {
		maxEvents = 1000
	}
	return &auditLogger{
		events:     make([]*Event, 0, maxEvents),
		maxEvents:  maxEvents,
		writer:     writer,
		redactKeys: redactKeys,
	}
}

// NewLoggerFromConfig builds a Logger from an AuditConfig, selecting the
// sink type and batching wrapper the config names.
func NewLoggerFromConfig(cfg config.AuditConfig) (Logger, error) {
	var writer EventWriter
	switch cfg.Sink.Type {
	case "http":
		writer = NewHTTPSink(cfg.Sink.Endpoint, cfg.Sink.Headers)
	case "file":
		writer = NewFileSink(cfg.Sink.FilePath)
	case "stdout", "":
		writer = &StdoutSink{}
	default:
		return nil, &unknownSinkError{sinkType: cfg.Sink.Type}
	}

	if cfg.Sink.BatchSize > 0 || cfg.Sink.FlushInterval > 0 {
		writer = NewBatchSink(writer, cfg.Sink.BatchSize, cfg.Sink.FlushInterval, cfg.Sink.RetryCount, cfg.Sink.RetryBackoff)
	}

	return NewLoggerWithRedaction(cfg.MaxEvents, writer, cfg.RedactMetadataKeys), nil
}

type unknownSinkError struct{ sinkType string }

func (e *unknownSinkError) Error() string { return "auditlog: unknown sink type: " + e.sinkType }

func (l *auditLogger) Log(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.redactKeys) > 0 && len(event.Metadata) > 0 {
		redacted := *event
		redacted.Metadata = make(map[string]interface{}, len(event.Metadata))
		for k, v := range event.Metadata {
			redacted.Metadata[k] = v
		}
		for _, k := range l.redactKeys {
			if _, ok := redacted.Metadata[k]; ok {
				redacted.Metadata[k] = "[REDACTED]"
			}
		}
		event = &redacted
	}

	if l.writer != nil {
		_ = l.writer.WriteEvent(event)
	}

	l.events = append(l.events, event)
	if len(l.events) > l.maxEvents {
		l.events = l.events[len(l.events)-l.maxEvents:]
	}
	return nil
}

func (l *auditLogger) GetEvents() []*Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Event, len(l.events))
	copy(out, l.events)
	return out
}

func (l *auditLogger) Close() error {
	if closer, ok := l.writer.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func (l *auditLogger) LogSpawn(sessionID string) {
	l.Log(&Event{
		Timestamp: time.Now(),
		EventType: EventTypeSpawn,
		SessionID: sessionID,
		Success:   true,
	})
}

func (l *auditLogger) LogDone(sessionID, outcome string, bytesStreamed int64, duration time.Duration, err error) {
	event := &Event{
		Timestamp:     time.Now(),
		EventType:     EventTypeDone,
		SessionID:     sessionID,
		Outcome:       outcome,
		Success:       err == nil,
		Duration:      duration,
		BytesStreamed: bytesStreamed,
	}
	if err != nil {
		event.Error = err.Error()
	}
	l.Log(event)
}

func (l *auditLogger) LogKeyRotation(keyVersion int, success bool, err error) {
	event := &Event{
		Timestamp:  time.Now(),
		EventType:  EventTypeKeyRotation,
		KeyVersion: keyVersion,
		Success:    success,
	}
	if err != nil {
		event.Error = err.Error()
	}
	l.Log(event)
}
