package tracefilter

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/kenneth/creditstream/creditstream"
)

func TestFilterEnabledMatchesGlob(t *testing.T) {
	f := New([]string{"ingest-*", "exact-name"})

	require.True(t, f.Enabled("ingest-orders"))
	require.True(t, f.Enabled("exact-name"))
	require.False(t, f.Enabled("export-orders"))
}

func TestFilterEmptyPatternsMatchesNothing(t *testing.T) {
	f := New(nil)
	require.False(t, f.Enabled("anything"))
}

func TestFilterSetPatternsReplaces(t *testing.T) {
	f := New([]string{"a-*"})
	require.True(t, f.Enabled("a-1"))

	f.SetPatterns([]string{"b-*"})
	require.False(t, f.Enabled("a-1"))
	require.True(t, f.Enabled("b-1"))
}

func TestObserverLogsOnlyMatchingSessions(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	f := New([]string{"traced-*"})
	names := map[string]string{"sess-1": "traced-worker", "sess-2": "quiet-worker"}
	obs := NewObserver(nil, f, func(id string) string { return names[id] }, log)

	obs.OnSpawn("sess-1")
	obs.OnSpawn("sess-2")
	obs.OnDone("sess-1", "eof")

	require.Len(t, hook.Entries, 2)
	for _, e := range hook.Entries {
		require.Equal(t, "sess-1", e.Data["session_id"])
	}
}

func TestObserverForwardsToNext(t *testing.T) {
	log, _ := test.NewNullLogger()
	f := New(nil)

	var spawned []string
	next := recordingObserver{onSpawn: func(id string) { spawned = append(spawned, id) }}

	obs := NewObserver(next, f, nil, log)
	obs.OnSpawn("sess-1")

	require.Equal(t, []string{"sess-1"}, spawned)
}

type recordingObserver struct {
	onSpawn func(string)
}

func (r recordingObserver) OnSpawn(sessionID string)                                   { r.onSpawn(sessionID) }
func (r recordingObserver) OnCredit(sessionID string, acksOutstanding, amountPending int) {}
func (r recordingObserver) OnKill(sessionID string, priority creditstream.Priority)      {}
func (r recordingObserver) OnDone(sessionID string, outcome string)                     {}
