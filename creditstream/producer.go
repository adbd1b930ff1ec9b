package creditstream

import "context"

// producerState is the credit bookkeeping living inside the worker for
// the duration of one Generate call. ack_unit = max(2, buffer_budget); a
// value's contribution to amount_pending is doubled, so two ACKs are
// emitted per "full buffer" of production — the consumer's ACK therefore
// signals "half drained, you may resume" rather than "fully drained".
// This doubling is preserved exactly as specified even though it makes
// the effective buffer bound buffer_budget/2 items; do not simplify it,
// later timing-sensitive tests depend on it.
type producerState[T any] struct {
	dataTx chan<- message[T]
	ackRx  <-chan struct{}
	done   <-chan struct{} // closed by the consumer when it stops reading early

	sizeOf func(T) int
	budget int
	ackUnit int

	acksOutstanding int
	amountPending   int

	sessionID string
	observer  Observer
}

func newProducerState[T any](dataTx chan<- message[T], ackRx <-chan struct{}, done <-chan struct{}, sizeOf func(T) int, budget int) *producerState[T] {
	ackUnit := budget
	if ackUnit < 2 {
		ackUnit = 2
	}
	return &producerState[T]{
		dataTx:   dataTx,
		ackRx:    ackRx,
		done:     done,
		sizeOf:   sizeOf,
		budget:   budget,
		ackUnit:  ackUnit,
		observer: noopObserver{},
	}
}

// reportCredit notifies the observer of the current acksOutstanding and
// amountPending values; called after every mutation of either.
func (p *producerState[T]) reportCredit() {
	p.observer.OnCredit(p.sessionID, p.acksOutstanding, p.amountPending)
}

func (p *producerState[T]) sendMessage(m message[T]) error {
	select {
	case p.dataTx <- m:
		return nil
	case <-p.done:
		return ErrConsumerGone
	}
}

// add sends v without suspending for credit, then accounts for it,
// returning acks to the consumer's credit supply whenever amount_pending
// crosses ack_unit.
func (p *producerState[T]) add(v T) error {
	if err := p.sendMessage(message[T]{kind: kindValue, value: v}); err != nil {
		return err
	}

	size := p.sizeOf(v)
	if size < 1 {
		size = 1
	}
	p.amountPending += size * 2
	p.reportCredit()

	for p.amountPending >= p.ackUnit {
		if err := p.sendMessage(message[T]{kind: kindAck}); err != nil {
			return err
		}
		p.acksOutstanding++
		p.amountPending -= p.ackUnit
		p.reportCredit()
	}
	return nil
}

// waitForAcks blocks, consuming one ack per iteration, until at most
// pending acks remain outstanding.
func (p *producerState[T]) waitForAcks(ctx context.Context, pending int) error {
	for p.acksOutstanding > pending {
		select {
		case _, ok := <-p.ackRx:
			if !ok {
				return ErrConsumerGone
			}
			p.acksOutstanding--
			p.reportCredit()
		case <-p.done:
			return ErrConsumerGone
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// sendValue is the credit-aware, suspending counterpart to add: it awaits
// enough returned credit before (or, for a zero/negative budget, after)
// sending so the channel's unacknowledged byte count never exceeds
// 2*ack_unit.
func (p *producerState[T]) sendValue(ctx context.Context, v T) error {
	switch {
	case p.budget > 1:
		if err := p.waitForAcks(ctx, 1); err != nil {
			return err
		}
	case p.budget == 1:
		if err := p.waitForAcks(ctx, 0); err != nil {
			return err
		}
	}

	if err := p.add(v); err != nil {
		return err
	}

	if p.budget <= 0 {
		// Rendezvous: the sender does not return until the consumer has
		// observed v.
		if err := p.waitForAcks(ctx, 0); err != nil {
			return err
		}
	}
	return nil
}

// close sends EOF and waits for the consumer's final ack, which is what
// releases this call and lets the worker terminate without leaking.
func (p *producerState[T]) close(ctx context.Context) error {
	if err := p.sendMessage(message[T]{kind: kindEOF}); err != nil {
		return err
	}
	p.acksOutstanding++
	p.reportCredit()
	return p.waitForAcks(ctx, 0)
}
