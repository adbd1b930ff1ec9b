package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kenneth/creditstream/ambient/tracefilter"
	"github.com/kenneth/creditstream/creditstream"
	"github.com/kenneth/creditstream/metrics"
)

// gatewayObserver feeds the spawn, credit and kill callbacks into the
// Prometheus metrics package (OnDone records nothing; the handler records
// session duration); tracefilter wraps it to add verbose logging
// for sessions whose worker name matches a configured glob.
type gatewayObserver struct {
	m *metrics.Metrics
}

func newGatewayObserver(m *metrics.Metrics, filter *tracefilter.Filter, workerName string, log *logrus.Logger) creditstream.Observer {
	base := &gatewayObserver{m: m}
	return tracefilter.NewObserver(base, filter, func(string) string { return workerName }, log)
}

func (o *gatewayObserver) OnSpawn(sessionID string) {
	o.m.RecordWorkerSpawn(sessionID)
}

func (o *gatewayObserver) OnCredit(sessionID string, acksOutstanding, amountPending int) {
	o.m.SetAcksOutstanding(sessionID, acksOutstanding)
	o.m.SetAmountPending(sessionID, amountPending)
}

func (o *gatewayObserver) OnKill(sessionID string, priority creditstream.Priority) {
	o.m.RecordWorkerKill(sessionID, priorityLabel(priority))
}

func (o *gatewayObserver) OnDone(sessionID string, outcome string) {
	// Session duration is recorded by the handler, which has the actual
	// elapsed time; OnDone here only needs to exist to satisfy Observer.
	_ = outcome
}

func priorityLabel(p creditstream.Priority) string {
	switch p {
	case creditstream.PriorityBeforeNextEvent:
		return "before_next_event"
	case creditstream.PriorityAsEvent:
		return "as_event"
	case creditstream.PriorityImmediate:
		return "immediate"
	default:
		return fmt.Sprintf("unknown_%d", int(p))
	}
}
