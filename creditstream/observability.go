package creditstream

// Observer receives lifecycle notifications from a Stream, letting a
// caller wire metrics and tracing without creditstream itself depending
// on any particular backend.
type Observer interface {
	// OnSpawn fires once, right after the worker goroutine is started.
	OnSpawn(sessionID string)
	// OnCredit fires whenever the producer's acksOutstanding/amountPending
	// counters change, for gauges that track live back-pressure.
	OnCredit(sessionID string, acksOutstanding, amountPending int)
	// OnKill fires when Kill is called, before the worker is signalled.
	OnKill(sessionID string, priority Priority)
	// OnDone fires exactly once, when the stream reaches its terminal
	// state: outcome is one of "eof", "worker_fault", or "killed".
	OnDone(sessionID string, outcome string)
}

// noopObserver discards every notification; it is the default so Stream
// never needs a nil check on the hot path.
type noopObserver struct{}

func (noopObserver) OnSpawn(string)                     {}
func (noopObserver) OnCredit(string, int, int)           {}
func (noopObserver) OnKill(string, Priority)             {}
func (noopObserver) OnDone(string, string)               {}

// Option configures a Stream at construction time.
type Option func(*streamOptions)

type streamOptions struct {
	sessionID string
	observer  Observer
	runtime   WorkerRuntime
}

func defaultStreamOptions() *streamOptions {
	return &streamOptions{observer: noopObserver{}, runtime: DefaultRuntime()}
}

// WithSessionID attaches an identifier used to label every Observer
// callback and metrics/tracing emission for this stream.
func WithSessionID(id string) Option {
	return func(o *streamOptions) { o.sessionID = id }
}

// WithObserver installs a lifecycle Observer, typically backed by the
// metrics and tracing packages.
func WithObserver(obs Observer) Option {
	return func(o *streamOptions) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithRuntime overrides the WorkerRuntime a Stream spawns its worker on.
func WithRuntime(rt WorkerRuntime) Option {
	return func(o *streamOptions) {
		if rt != nil {
			o.runtime = rt
		}
	}
}
