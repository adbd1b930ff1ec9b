package creditstream

import "context"

// Generator is user-supplied code that runs inside the worker and
// produces values of type T. It is constructed by the caller and moved to
// the worker at Stream construction; after spawn it is owned exclusively
// by the worker and must never be touched from the creator again.
//
// Generate must not attempt to close the underlying channel itself —
// shutdown is entirely driven by the producer session's own EOF emission
// once Generate returns, the same division the source's generator base
// class enforces by making its Close a no-op.
type Generator[T any] interface {
	// Generate produces values by calling Send or Push on p. It may
	// return an error, which is surfaced to the consumer as a
	// KindWorkerFault stream error.
	Generate(ctx context.Context, p *ProducerHandle[T]) error

	// SizeOf reports the logical size of v in the same unit as
	// BufferBudget. Every returned value is treated as max(1, SizeOf(v)).
	SizeOf(v T) int

	// BufferBudget is read exactly once, at session start, and copied
	// into the producer state — never re-read mid-session — so a
	// generator mutating its own budget field cannot race the producer
	// that is already using it.
	BufferBudget() int
}

// ProducerHandle is the single, uniform surface Generate drives: Send for
// credit-aware, possibly-suspending production and Push for immediate,
// caller-managed production. Both ultimately update the same
// producerState; Send layers a wait_for_acks suspension point on top of
// Push's plain add.
type ProducerHandle[T any] struct {
	state *producerState[T]
}

// Send is the credit-aware convenience: depending on the budget installed
// at session start, it suspends before or after adding v so that
// unacknowledged channel occupancy never exceeds 2*ack_unit. See
// producerState.sendValue for the exact budget-dependent suspension
// rule.
func (h *ProducerHandle[T]) Send(ctx context.Context, v T) error {
	if h == nil || h.state == nil {
		return newErr(KindIllegalCall, nil)
	}
	return h.state.sendValue(ctx, v)
}

// Push sends v without suspending for credit; the caller is responsible
// for pacing calls (for example, a sink-style generator that periodically
// yields to let credit replenish instead of calling Send per value).
func (h *ProducerHandle[T]) Push(v T) error {
	if h == nil || h.state == nil {
		return newErr(KindIllegalCall, nil)
	}
	return h.state.add(v)
}
