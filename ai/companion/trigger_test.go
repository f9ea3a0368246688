package companion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/akihq/aki/store"
)

type fakeCondenser struct {
	mu          sync.Mutex
	fullBatches [][]*store.Exchange
	memoryOnly  [][]*store.Exchange
}

func (f *fakeCondenser) Compact(_ context.Context, _ int32, batch []*store.Exchange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fullBatches = append(f.fullBatches, batch)
	return nil
}

func (f *fakeCondenser) CompactMemoryOnly(_ context.Context, _ int32, batch []*store.Exchange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memoryOnly = append(f.memoryOnly, batch)
	return nil
}

func seedExchanges(t *testing.T, ms *memStore, userID int32, n int, startTs int64) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := ms.CreateExchange(context.Background(), &store.CreateExchange{
			UserID:    userID,
			Role:      store.ExchangeRoleUser,
			Content:   "msg",
			CreatedTs: startTs + int64(i*60),
		})
		require.NoError(t, err)
	}
}

func TestMaybeCompactBelowThreshold(t *testing.T) {
	ms := newMemStore()
	fc := &fakeCondenser{}
	tr := NewTrigger(ms, fc, TriggerConfig{CompactInterval: 10, MemoryInterval: 10})

	seedExchanges(t, ms, 1, 9, time.Now().Unix()-1000)

	require.NoError(t, tr.MaybeCompact(context.Background(), 1))
	require.Empty(t, fc.fullBatches)
	require.Empty(t, fc.memoryOnly)
}

func TestMaybeCompactColdStartCountsEverything(t *testing.T) {
	ms := newMemStore()
	fc := &fakeCondenser{}
	tr := NewTrigger(ms, fc, TriggerConfig{CompactInterval: 10, MemoryInterval: 10})

	seedExchanges(t, ms, 1, 10, time.Now().Unix()-1000)

	require.NoError(t, tr.MaybeCompact(context.Background(), 1))
	require.Len(t, fc.fullBatches, 1)
	require.Len(t, fc.fullBatches[0], 10)
	// The full pass covers the memory tier for this window.
	require.Empty(t, fc.memoryOnly)
}

// The threshold count restarts from the newest durable summary, not from an
// in-memory counter, so a process restart changes nothing.
func TestMaybeCompactRestartSafe(t *testing.T) {
	ms := newMemStore()
	fc := &fakeCondenser{}
	tr := NewTrigger(ms, fc, TriggerConfig{CompactInterval: 10, MemoryInterval: 10})

	base := time.Now().Unix() - 10000
	seedExchanges(t, ms, 1, 10, base)

	// A summary created after that batch marks it condensed.
	_, err := ms.CreateDurableRecord(context.Background(), &store.CreateDurableRecord{
		UserID:    1,
		Kind:      store.DurableRecordCompactSummary,
		Content:   "condensed",
		CreatedTs: base + 9*60 + 1,
	})
	require.NoError(t, err)
	_, err = ms.CreateDurableRecord(context.Background(), &store.CreateDurableRecord{
		UserID:    1,
		Kind:      store.DurableRecordMemoryEntry,
		Content:   "remembered",
		CreatedTs: base + 9*60 + 1,
	})
	require.NoError(t, err)

	// Only 5 exchanges since: stays quiet.
	seedExchanges(t, ms, 1, 5, base+20000)
	require.NoError(t, tr.MaybeCompact(context.Background(), 1))
	require.Empty(t, fc.fullBatches)

	// Five more crosses the threshold. A fresh trigger (as after a restart)
	// fires on only the new window, since the count derives from the store.
	seedExchanges(t, ms, 1, 5, base+30000)
	fresh := NewTrigger(ms, fc, TriggerConfig{CompactInterval: 10, MemoryInterval: 10})
	require.NoError(t, fresh.MaybeCompact(context.Background(), 1))
	require.Len(t, fc.fullBatches, 1)
	require.Len(t, fc.fullBatches[0], 10)
}

// A long unprocessed backlog must not balloon the condensation prompt: the
// batch is capped at twice the interval, keeping only the newest exchanges.
func TestMaybeCompactBoundsBatchOnBacklog(t *testing.T) {
	ms := newMemStore()
	fc := &fakeCondenser{}
	tr := NewTrigger(ms, fc, TriggerConfig{CompactInterval: 10, MemoryInterval: 10})

	base := time.Now().Unix() - 100000
	seedExchanges(t, ms, 1, 200, base)

	require.NoError(t, tr.MaybeCompact(context.Background(), 1))
	require.Len(t, fc.fullBatches, 1)

	batch := fc.fullBatches[0]
	require.Len(t, batch, 20)
	// The window is the most recent exchanges, still in chronological order.
	require.Equal(t, base+int64(180*60), batch[0].CreatedTs)
	require.Equal(t, base+int64(199*60), batch[len(batch)-1].CreatedTs)
}

func TestMaybeCompactMemoryTierIndependentCadence(t *testing.T) {
	ms := newMemStore()
	fc := &fakeCondenser{}
	tr := NewTrigger(ms, fc, TriggerConfig{CompactInterval: 10, MemoryInterval: 5})

	base := time.Now().Unix() - 10000
	seedExchanges(t, ms, 1, 5, base)

	require.NoError(t, tr.MaybeCompact(context.Background(), 1))
	require.Empty(t, fc.fullBatches)
	require.Len(t, fc.memoryOnly, 1)
	require.Len(t, fc.memoryOnly[0], 5)
}
