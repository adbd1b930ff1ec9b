package auditlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Sink is an EventWriter that can also be closed.
type Sink interface {
	EventWriter
	Close() error
}

// BatchWriter is implemented by sinks that can write many events in one
// round trip.
type BatchWriter interface {
	WriteBatch(events []*Event) error
}

// BatchSink buffers events and flushes them to wrapped either when the
// buffer fills or on a fixed interval, whichever comes first.
type BatchSink struct {
	wrapped       EventWriter
	buffer        []*Event
	bufferSize    int
	flushInterval time.Duration
	mu            sync.Mutex
	closeChan     chan struct{}
	wg            sync.WaitGroup
	retryCount    int
	retryBackoff  time.Duration
}

// NewBatchSink wraps writer with batching. size and interval each fall
// back to a sane default when zero.
func NewBatchSink(writer EventWriter, size int, interval time.Duration, retryCount int, retryBackoff time.Duration) *BatchSink {
	if size <= 0 {
		size = 100
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}

	s := &BatchSink{
		wrapped:       writer,
		buffer:        make([]*Event, 0, size),
		bufferSize:    size,
		flushInterval: interval,
		closeChan:     make(chan struct{}),
		retryCount:    retryCount,
		retryBackoff:  retryBackoff,
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *BatchSink) WriteEvent(event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer = append(s.buffer, event)
	if len(s.buffer) >= s.bufferSize {
		events := s.drainBufferLocked()
		go s.writeWithRetry(events)
	}
	return nil
}

// Close stops the flush loop after flushing any buffered events.
func (s *BatchSink) Close() error {
	close(s.closeChan)
	s.wg.Wait()
	return nil
}

func (s *BatchSink) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			events := s.drainBufferLocked()
			s.mu.Unlock()
			if len(events) > 0 {
				s.writeWithRetry(events)
			}
		case <-s.closeChan:
			s.mu.Lock()
			events := s.drainBufferLocked()
			s.mu.Unlock()
			if len(events) > 0 {
				s.writeWithRetry(events)
			}
			return
		}
	}
}

func (s *BatchSink) drainBufferLocked() []*Event {
	if len(s.buffer) == 0 {
		return nil
	}
	events := make([]*Event, len(s.buffer))
	copy(events, s.buffer)
	s.buffer = s.buffer[:0]
	return events
}

func (s *BatchSink) writeWithRetry(events []*Event) error {
	if len(events) == 0 {
		return nil
	}

	var err error
	for i := 0; i <= s.retryCount; i++ {
		if bw, ok := s.wrapped.(BatchWriter); ok {
			err = bw.WriteBatch(events)
		} else {
			for _, event := range events {
				if e := s.wrapped.WriteEvent(event); e != nil {
					err = e
				}
			}
		}
		if err == nil {
			return nil
		}
		if i < s.retryCount {
			time.Sleep(s.retryBackoff * time.Duration(1<<uint(i)))
		}
	}

	logrus.WithError(err).WithField("dropped_events", len(events)).
		Error("auditlog: failed to flush events after retries")
	return err
}

// HTTPSink posts events to an HTTP endpoint as a JSON array.
type HTTPSink struct {
	endpoint string
	client   *http.Client
	headers  map[string]string
}

// NewHTTPSink creates an HTTPSink posting to endpoint with extra headers.
func NewHTTPSink(endpoint string, headers map[string]string) *HTTPSink {
	return &HTTPSink{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		headers:  headers,
	}
}

func (s *HTTPSink) WriteEvent(event *Event) error {
	return s.WriteBatch([]*Event{event})
}

func (s *HTTPSink) WriteBatch(events []*Event) error {
	data, err := json.Marshal(events)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, s.endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("auditlog: http sink returned status %s", resp.Status)
	}
	return nil
}

// FileSink appends newline-delimited JSON events to a file.
type FileSink struct {
	path string
	mu   sync.Mutex
}

// NewFileSink creates a FileSink writing to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) WriteEvent(event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return err
	}
	_, err = f.WriteString("\n")
	return err
}

// StdoutSink logs events through logrus at info level, one structured
// line per event.
type StdoutSink struct{}

func (s *StdoutSink) WriteEvent(event *Event) error {
	logrus.WithFields(logrus.Fields{
		"event_type": event.EventType,
		"session_id": event.SessionID,
		"outcome":    event.Outcome,
		"success":    event.Success,
	}).Info("auditlog event")
	return nil
}
