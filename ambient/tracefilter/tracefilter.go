// Package tracefilter decides which creditstream sessions get verbose,
// per-event trace logging. Unlike a single global debug flag, it matches
// a session's worker name against a configurable list of glob patterns,
// so an operator can turn on tracing for "ingest-*" without also
// drowning in output from every other worker in the fleet.
package tracefilter

import (
	"sync"

	"github.com/ryanuber/go-glob"
	"github.com/sirupsen/logrus"

	"github.com/kenneth/creditstream/config"
	"github.com/kenneth/creditstream/creditstream"
)

// Filter matches worker names against a set of glob patterns.
type Filter struct {
	mu       sync.RWMutex
	patterns []string
}

// New builds a Filter from the configured patterns.
func New(patterns []string) *Filter {
	return &Filter{patterns: append([]string(nil), patterns...)}
}

// FromConfig builds a Filter from a DebugConfig, so it can be rebuilt
// each time the config hot-reloads.
func FromConfig(cfg config.DebugConfig) *Filter {
	return New(cfg.TraceWorkerGlobs)
}

// Enabled reports whether workerName matches any configured pattern.
func (f *Filter) Enabled(workerName string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, pattern := range f.patterns {
		if glob.Glob(pattern, workerName) {
			return true
		}
	}
	return false
}

// SetPatterns replaces the filter's pattern set, e.g. after a config
// hot-reload.
func (f *Filter) SetPatterns(patterns []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patterns = append([]string(nil), patterns...)
}

// Observer wraps another creditstream.Observer and additionally emits a
// logrus trace line for every callback whose session's worker name
// matches the Filter, leaving non-matching sessions untouched.
type Observer struct {
	next       creditstream.Observer
	filter     *Filter
	workerName func(sessionID string) string
	log        *logrus.Logger
}

// NewObserver wraps next, tracing sessions whose worker name (as
// resolved by workerName) matches filter. next may be nil.
func NewObserver(next creditstream.Observer, filter *Filter, workerName func(sessionID string) string, log *logrus.Logger) *Observer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Observer{next: next, filter: filter, workerName: workerName, log: log}
}

func (o *Observer) traced(sessionID string) *logrus.Entry {
	name := sessionID
	if o.workerName != nil {
		name = o.workerName(sessionID)
	}
	if !o.filter.Enabled(name) {
		return nil
	}
	return o.log.WithFields(logrus.Fields{"session_id": sessionID, "worker": name})
}

func (o *Observer) OnSpawn(sessionID string) {
	if e := o.traced(sessionID); e != nil {
		e.Debug("creditstream: worker spawned")
	}
	if o.next != nil {
		o.next.OnSpawn(sessionID)
	}
}

func (o *Observer) OnCredit(sessionID string, acksOutstanding, amountPending int) {
	if e := o.traced(sessionID); e != nil {
		e.WithFields(logrus.Fields{
			"acks_outstanding": acksOutstanding,
			"amount_pending":   amountPending,
		}).Debug("creditstream: credit state changed")
	}
	if o.next != nil {
		o.next.OnCredit(sessionID, acksOutstanding, amountPending)
	}
}

func (o *Observer) OnKill(sessionID string, priority creditstream.Priority) {
	if e := o.traced(sessionID); e != nil {
		e.WithField("priority", priority).Debug("creditstream: worker killed")
	}
	if o.next != nil {
		o.next.OnKill(sessionID, priority)
	}
}

func (o *Observer) OnDone(sessionID string, outcome string) {
	if e := o.traced(sessionID); e != nil {
		e.WithField("outcome", outcome).Debug("creditstream: worker done")
	}
	if o.next != nil {
		o.next.OnDone(sessionID, outcome)
	}
}
