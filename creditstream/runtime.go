package creditstream

import "context"

// Priority mirrors the WorkerRuntime capability's kill priority from the
// host: a request to terminate a worker can be scheduled to happen before
// the worker's next event loop turn, as a regular queued event, or
// immediately. A goroutine-backed WorkerRuntime has no event loop to
// schedule against, so all three priorities collapse to an immediate
// context cancellation here; the enum is kept so a future WorkerRuntime
// backed by a real cooperative scheduler can honor the distinction.
type Priority int

const (
	PriorityBeforeNextEvent Priority = iota
	PriorityAsEvent
	PriorityImmediate
)

// WorkerHandle is the live handle to a spawned worker: a one-shot exit
// notifier plus a kill primitive, matching the WorkerRuntime capability's
// per-worker surface.
type WorkerHandle interface {
	// Kill requests termination of the worker at the given priority.
	// Safe to call multiple times and safe to call before the worker has
	// started running.
	Kill(priority Priority)
	// Done is closed once the worker's entry function has returned.
	Done() <-chan struct{}
}

// WorkerRuntime is the host capability CreditStream is built on: spawn a
// task as a new execution unit with a disjoint heap, communicating only
// through channels. In Go, goroutines plus channels already express this
// contract directly, so goroutineRuntime is both the default and — unlike
// the source's platform-worker harness — the only implementation most
// callers need.
type WorkerRuntime interface {
	// Spawn starts entry in a new execution unit and returns a handle to
	// it. entry receives a context that is cancelled when the handle is
	// killed.
	Spawn(entry func(ctx context.Context)) WorkerHandle
}

// goroutineRuntime is the default WorkerRuntime: one goroutine per spawn.
type goroutineRuntime struct{}

// DefaultRuntime returns the goroutine-backed WorkerRuntime used when no
// other runtime is supplied.
func DefaultRuntime() WorkerRuntime { return goroutineRuntime{} }

func (goroutineRuntime) Spawn(entry func(ctx context.Context)) WorkerHandle {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	h := &goroutineHandle{cancel: cancel, done: done}

	go func() {
		defer close(done)
		entry(ctx)
	}()

	return h
}

type goroutineHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Kill cancels the worker's context. Priority is accepted for interface
// conformance but does not change goroutine scheduling; see the Priority
// doc comment.
func (h *goroutineHandle) Kill(_ Priority) {
	h.cancel()
}

func (h *goroutineHandle) Done() <-chan struct{} {
	return h.done
}
