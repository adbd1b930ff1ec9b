package creditstream

import (
	"context"
	"fmt"
	"io"
	"sync"
)

type streamState int

const (
	stateSpawning streamState = iota
	stateRunning
	stateDraining
	stateDone
)

// Stream is the consumer-side handle to a running generator: a lazy,
// credit-flow-controlled sequence of T produced by a dedicated worker.
// A Stream must not be read from more than one goroutine at a time.
type Stream[T any] struct {
	dataRx  <-chan message[T]
	handoff <-chan chan<- struct{}
	ackTx   chan<- struct{} // nil until the rendezvous handoff completes
	done    chan struct{}   // closed once, by Kill
	errCh   <-chan error
	handle  WorkerHandle

	sessionID string
	observer  Observer

	st        streamState
	closeOnce sync.Once
}

// NewStream spawns gen on the default goroutine-backed WorkerRuntime and
// returns a Stream reading its output.
func NewStream[T any](gen Generator[T], opts ...Option) *Stream[T] {
	o := defaultStreamOptions()
	for _, opt := range opts {
		opt(o)
	}
	return newStream[T](gen, o)
}

// NewStreamWithRuntime is NewStream with an explicit WorkerRuntime, for
// callers that need a non-default execution strategy (tests stubbing out
// concurrency, or an alternative worker pool). Equivalent to passing
// WithRuntime(runtime) to NewStream.
func NewStreamWithRuntime[T any](gen Generator[T], runtime WorkerRuntime, opts ...Option) *Stream[T] {
	o := defaultStreamOptions()
	o.runtime = runtime
	for _, opt := range opts {
		opt(o)
	}
	return newStream[T](gen, o)
}

func newStream[T any](gen Generator[T], o *streamOptions) *Stream[T] {
	dataCh := make(chan message[T])
	handoff := make(chan chan<- struct{}, 1)
	done := make(chan struct{})
	errCh := make(chan error, 1)

	s := &Stream[T]{
		dataRx:    dataCh,
		handoff:   handoff,
		done:      done,
		errCh:     errCh,
		sessionID: o.sessionID,
		observer:  o.observer,
	}

	s.handle = o.runtime.Spawn(func(ctx context.Context) {
		// The worker creates the ack channel locally and keeps the
		// receive end for itself, handing the send end to the consumer
		// across the rendezvous. Only after this handoff can the
		// producer's waitForAcks ever see a real ack.
		ackCh := make(chan struct{})
		handoff <- (chan<- struct{})(ackCh)

		state := newProducerState[T](dataCh, ackCh, done, gen.SizeOf, gen.BufferBudget())
		state.observer = o.observer
		state.sessionID = o.sessionID
		ph := &ProducerHandle[T]{state: state}

		genErr := runGenerate(ctx, gen, ph)
		// Published before the EOF send below so the happens-before edge
		// from that channel operation guarantees the consumer observes
		// genErr once it has processed EOF, without extra synchronization.
		if genErr != nil {
			errCh <- genErr
		}
		closeErr := state.close(ctx)
		if genErr == nil && closeErr != nil && closeErr != ErrConsumerGone {
			errCh <- closeErr
		}
	})

	o.observer.OnSpawn(o.sessionID)
	return s
}

// runGenerate invokes gen.Generate, converting a panic inside it into an
// error instead of taking down the worker goroutine silently.
func runGenerate[T any](ctx context.Context, gen Generator[T], ph *ProducerHandle[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("creditstream: generator panicked: %v", r)
		}
	}()
	return gen.Generate(ctx, ph)
}

// ackBack completes the rendezvous handoff on first use, then sends one
// credit unit back to the producer. It is called once per ack/eof marker
// the producer injects into the data channel.
func (s *Stream[T]) ackBack(ctx context.Context) error {
	if s.ackTx == nil {
		select {
		case tx := <-s.handoff:
			s.ackTx = tx
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case s.ackTx <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next blocks until the next value is available, the generator finishes,
// or ctx is cancelled. On clean completion it returns io.EOF. If the
// generator returned an error, Next returns a *Error of KindWorkerFault
// wrapping it instead of io.EOF.
func (s *Stream[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if s.st == stateDone {
		return zero, io.EOF
	}
	s.st = stateRunning

	for {
		select {
		case m, ok := <-s.dataRx:
			if !ok {
				s.st = stateDone
				return zero, newErr(KindProtocolViolation, fmt.Errorf("data channel closed without EOF"))
			}
			switch m.kind {
			case kindValue:
				return m.value, nil
			case kindAck:
				if err := s.ackBack(ctx); err != nil {
					s.st = stateDone
					return zero, err
				}
				continue
			case kindEOF:
				s.st = stateDraining
				if err := s.ackBack(ctx); err != nil {
					s.st = stateDone
					return zero, err
				}
				s.st = stateDone
				select {
				case genErr := <-s.errCh:
					s.observer.OnDone(s.sessionID, "worker_fault")
					return zero, newErr(KindWorkerFault, genErr)
				default:
					s.observer.OnDone(s.sessionID, "eof")
					return zero, io.EOF
				}
			default:
				s.st = stateDone
				return zero, newErr(KindProtocolViolation, fmt.Errorf("unknown message kind %d", m.kind))
			}
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Kill requests early termination: the worker's Generate call is
// cancelled and any in-flight Send/Push on it returns ErrConsumerGone or,
// when a Send is waiting for credit, possibly the context's cancellation
// error.
// Safe to call more than once and safe to call after the stream has
// already drained to EOF.
func (s *Stream[T]) Kill(priority Priority) {
	s.closeOnce.Do(func() {
		alreadyDone := s.st == stateDone
		s.observer.OnKill(s.sessionID, priority)
		close(s.done)
		if !alreadyDone {
			s.observer.OnDone(s.sessionID, "killed")
		}
	})
	s.handle.Kill(priority)
}
