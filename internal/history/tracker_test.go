package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock returns a clock that advances one minute per call.
func stepClock() func() time.Time {
	t := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

type memoryStore struct {
	mu      sync.Mutex
	entries []Entry
	saves   int
	loadErr error
	saveErr error
	release chan struct{} // when set, Save blocks until it is closed
}

func (m *memoryStore) Load(ctx context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.entries, nil
}

func (m *memoryStore) Save(ctx context.Context, entries []Entry) error {
	if m.release != nil {
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.entries = entries
	return nil
}

func (m *memoryStore) snapshot() ([]Entry, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries, m.saves
}

func closeTracker(t *testing.T, tr *Tracker) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, tr.Close(ctx))
}

func TestRecord_RepeatedQueryIncrementsFrequency(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.SetClock(stepClock())

	tr.Record("beca", 4)
	tr.Record("beca", 2)
	tr.Record("BECA", 1)

	entries := tr.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "beca", entries[0].Query)
	assert.Equal(t, 3, entries[0].Frequency)
	assert.Equal(t, 1, entries[0].LastResultCount)
	assert.True(t, entries[0].LastSeen.After(entries[0].FirstSeen))
}

func TestRecord_NewestFirst(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.SetClock(stepClock())

	tr.Record("uno", 1)
	tr.Record("dos", 1)
	tr.Record("uno", 1)

	entries := tr.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "dos", entries[0].Query)
	assert.Equal(t, "uno", entries[1].Query)
}

func TestRecord_IgnoresBlank(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.Record("   ", 3)
	assert.Equal(t, 0, tr.Len())
}

func TestRecord_CapDropsOldest(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.SetClock(stepClock())

	for i := range 60 {
		tr.Record(fmt.Sprintf("consulta %02d", i), i)
	}

	entries := tr.Entries()
	require.Len(t, entries, MaxEntries)
	present := map[string]bool{}
	for _, e := range entries {
		present[e.Query] = true
	}
	for i := range 10 {
		assert.False(t, present[fmt.Sprintf("consulta %02d", i)], "entry %d should be evicted", i)
	}
	for i := 10; i < 60; i++ {
		assert.True(t, present[fmt.Sprintf("consulta %02d", i)], "entry %d should be kept", i)
	}
}

func TestRecord_CapUsesFirstSeenNotRecency(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.SetClock(stepClock())

	tr.Record("antigua", 1)
	for i := range MaxEntries - 1 {
		tr.Record(fmt.Sprintf("q%d", i), 1)
	}
	// Refreshing the oldest entry does not protect it from eviction.
	tr.Record("antigua", 1)
	tr.Record("nueva", 1)

	for _, e := range tr.Entries() {
		assert.NotEqual(t, "antigua", e.Query)
	}
	assert.Equal(t, MaxEntries, tr.Len())
}

func TestSuggestions(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.SetClock(stepClock())

	tr.Record("becas deportivas", 1)
	tr.Record("Becas", 1)
	tr.Record("becas", 1)
	tr.Record("pagos", 1)
	tr.Record("becas excelencia", 1)

	assert.Equal(t, []string{"Becas", "becas excelencia", "becas deportivas"}, tr.Suggestions("BEC"))
	assert.Equal(t, []string{"pagos"}, tr.Suggestions("ago"))
	assert.Empty(t, tr.Suggestions("zzz"))
}

func TestSuggestions_Capped(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.SetClock(stepClock())
	for i := range 20 {
		tr.Record(fmt.Sprintf("aviso %d", i), 1)
	}
	assert.Len(t, tr.Suggestions("aviso"), MaxSuggestions)
}

func TestTop(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.SetClock(stepClock())
	tr.Record("a1", 1)
	tr.Record("b2", 1)
	tr.Record("b2", 1)
	tr.Record("c3", 1)

	top := tr.Top(2)
	require.Len(t, top, 2)
	assert.Equal(t, "b2", top[0].Query)
	assert.Equal(t, "c3", top[1].Query)
	assert.Empty(t, NewTracker(nil, nil).Top(5))
}

func TestPersistence_SavesLatestSnapshot(t *testing.T) {
	store := &memoryStore{}
	tr := NewTracker(store, nil)

	tr.Record("beca", 1)
	tr.Record("pagos", 1)
	closeTracker(t, tr)

	entries, saves := store.snapshot()
	assert.GreaterOrEqual(t, saves, 1)
	assert.LessOrEqual(t, saves, 2)
	require.Len(t, entries, 2)
	assert.Equal(t, "pagos", entries[0].Query)
}

func TestPersistence_RecordDoesNotWaitForStore(t *testing.T) {
	store := &memoryStore{release: make(chan struct{})}
	tr := NewTracker(store, nil)

	recorded := make(chan struct{})
	go func() {
		for i := range 20 {
			tr.Record(fmt.Sprintf("consulta %d", i), i)
		}
		close(recorded)
	}()

	select {
	case <-recorded:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a stalled store")
	}
	assert.Equal(t, 20, tr.Len())

	close(store.release)
	closeTracker(t, tr)

	// Pending snapshots coalesce: the stalled write plus at most one more.
	entries, saves := store.snapshot()
	assert.LessOrEqual(t, saves, 2)
	require.Len(t, entries, 20)
	assert.Equal(t, "consulta 19", entries[0].Query)
}

func TestClose_RespectsContext(t *testing.T) {
	store := &memoryStore{release: make(chan struct{})}
	tr := NewTracker(store, nil)
	tr.Record("beca", 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tr.Close(ctx), context.DeadlineExceeded)

	close(store.release)
	closeTracker(t, tr)
	tr.Record("pagos", 1)
	_, saves := store.snapshot()
	assert.Equal(t, 1, saves)
	assert.Equal(t, 2, tr.Len())
	assert.NoError(t, NewTracker(nil, nil).Close(context.Background()))
}

func TestPersistence_LoadRestores(t *testing.T) {
	now := time.Now()
	store := &memoryStore{entries: []Entry{
		{Query: "beca", Frequency: 3, FirstSeen: now, LastSeen: now},
		{Query: "  ", Frequency: 1},
	}}
	tr := NewTracker(store, nil)
	tr.Load(context.Background())

	require.Equal(t, 1, tr.Len())
	tr.Record("Beca", 2)
	assert.Equal(t, 4, tr.Entries()[0].Frequency)
	closeTracker(t, tr)
}

func TestPersistence_FailuresAreSwallowed(t *testing.T) {
	store := &memoryStore{loadErr: errors.New("corrupt"), saveErr: errors.New("disk full")}
	tr := NewTracker(store, nil)

	tr.Load(context.Background())
	assert.Equal(t, 0, tr.Len())

	tr.Record("beca", 1)
	assert.Equal(t, 1, tr.Len())
	closeTracker(t, tr)
	_, saves := store.snapshot()
	assert.Equal(t, 1, saves)
}
