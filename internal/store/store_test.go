package store_test

import (
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/risk-asset-explorer/internal/domain"
	"github.com/couchcryptid/risk-asset-explorer/internal/store"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(names ...string) []domain.AssetRecord {
	out := make([]domain.AssetRecord, len(names))
	for i, n := range names {
		out[i] = domain.AssetRecord{AssetName: n, Year: 2030}
	}
	return out
}

func TestStore_AppendKeepsOrder(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() { domain.SetClock(nil) })

	s := store.New()
	b1 := s.Append("first.csv", records("A", "B"))
	fakeClock.Advance(time.Minute)
	b2 := s.Append("second.csv", records("C"))

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, "A", all[0].AssetName)
	assert.Equal(t, "C", all[2].AssetName)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, uint64(2), s.Version())

	_, err := uuid.Parse(b1.ID)
	require.NoError(t, err)
	assert.NotEqual(t, b1.ID, b2.ID)
	assert.Equal(t, 2, b1.Count)
	assert.Equal(t, "second.csv", b2.Source)
	assert.Equal(t, fakeClock.Now(), b2.LoadedAt)
	assert.Equal(t, fakeClock.Now().Add(-time.Minute), b1.LoadedAt)

	assert.Equal(t, []store.Batch{b1, b2}, s.Batches())
}

func TestStore_EmptyAppendIsNoop(t *testing.T) {
	s := store.New()
	b := s.Append("empty.csv", nil)

	assert.Empty(t, b.ID)
	assert.Zero(t, s.Version())
	assert.Empty(t, s.Batches())
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := store.New()
	s.Append("a.csv", records("A"))

	snap := s.Snapshot()
	snap.Records[0].AssetName = "changed"
	s.Append("b.csv", records("B"))

	assert.Equal(t, uint64(1), snap.Version)
	assert.Len(t, snap.Records, 1)
	assert.Equal(t, "A", s.All()[0].AssetName)
}

func TestStore_ConcurrentAppendIsAtomic(t *testing.T) {
	s := store.New()
	const writers = 8
	const batch = 50

	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Append("w", records(make([]string, batch)...))
		}()
	}

	// Readers must only ever observe whole batches.
	for range 100 {
		assert.Zero(t, s.Len()%batch)
	}
	wg.Wait()

	assert.Equal(t, writers*batch, s.Len())
	assert.Equal(t, uint64(writers), s.Version())
}
