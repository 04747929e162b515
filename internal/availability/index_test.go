package availability

import (
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func at(h, m int) time.Time {
    return time.Date(2026, 9, 1, h, m, 0, 0, time.UTC)
}

func TestReserveAndIsFree(t *testing.T) {
    ix := NewIndex()

    require.NoError(t, ix.Reserve(1, 10, at(10, 0), at(11, 0)))

    assert.False(t, ix.IsFree(1, at(10, 0), at(11, 0)), "identical window")
    assert.False(t, ix.IsFree(1, at(10, 30), at(11, 30)), "partial overlap")
    assert.False(t, ix.IsFree(1, at(9, 30), at(10, 30)), "overlap from the left")
    assert.False(t, ix.IsFree(1, at(9, 0), at(12, 0)), "fully containing window")
    assert.True(t, ix.IsFree(1, at(9, 0), at(10, 0)), "touching end is not a conflict")
    assert.True(t, ix.IsFree(1, at(11, 0), at(12, 0)), "touching start is not a conflict")

    // Other tables are independent.
    assert.True(t, ix.IsFree(2, at(10, 0), at(11, 0)))
}

func TestReserveConflictNamesBlocker(t *testing.T) {
    ix := NewIndex()
    require.NoError(t, ix.Reserve(1, 10, at(10, 0), at(11, 0)))

    err := ix.Reserve(1, 11, at(10, 30), at(11, 30))
    require.Error(t, err)
    var ce *ConflictError
    require.ErrorAs(t, err, &ce)
    assert.Equal(t, uint64(1), ce.TableID)
    assert.Equal(t, uint64(10), ce.ReservationID)
}

func TestConflictingReturnsCopy(t *testing.T) {
    ix := NewIndex()
    require.NoError(t, ix.Reserve(1, 10, at(10, 0), at(11, 0)))

    c := ix.Conflicting(1, at(10, 15), at(10, 45))
    require.NotNil(t, c)
    assert.Equal(t, uint64(10), c.ReservationID)

    // Mutating the copy must not poison the index.
    c.End = at(23, 0)
    assert.True(t, ix.IsFree(1, at(11, 0), at(12, 0)))

    assert.Nil(t, ix.Conflicting(1, at(11, 0), at(12, 0)))
}

func TestReleaseFreesWindow(t *testing.T) {
    ix := NewIndex()
    require.NoError(t, ix.Reserve(1, 10, at(10, 0), at(11, 0)))
    require.False(t, ix.IsFree(1, at(10, 0), at(11, 0)))

    ix.Release(1, 10)
    assert.True(t, ix.IsFree(1, at(10, 0), at(11, 0)))

    // Releasing again, or releasing something never reserved, is a no-op.
    ix.Release(1, 10)
    ix.Release(1, 99)
    ix.Release(42, 10)
}

func TestBusyClipsToRangeAndSorts(t *testing.T) {
    ix := NewIndex()
    ix.Rebuild(1, []Interval{
        {ReservationID: 3, Start: at(14, 0), End: at(15, 0)},
        {ReservationID: 1, Start: at(9, 0), End: at(10, 0)},
        {ReservationID: 2, Start: at(11, 0), End: at(12, 0)},
    })

    busy := ix.Busy(1, at(9, 30), at(14, 30))
    require.Len(t, busy, 3)
    assert.Equal(t, uint64(1), busy[0].ReservationID)
    assert.Equal(t, uint64(2), busy[1].ReservationID)
    assert.Equal(t, uint64(3), busy[2].ReservationID)

    // A window touching an interval's end excludes it.
    busy = ix.Busy(1, at(10, 0), at(11, 0))
    assert.Empty(t, busy)
}

func TestRebuildReplacesState(t *testing.T) {
    ix := NewIndex()
    require.NoError(t, ix.Reserve(1, 10, at(10, 0), at(11, 0)))

    ix.Rebuild(1, []Interval{{ReservationID: 20, Start: at(13, 0), End: at(14, 0)}})

    assert.True(t, ix.IsFree(1, at(10, 0), at(11, 0)), "old window dropped")
    assert.False(t, ix.IsFree(1, at(13, 0), at(14, 0)), "new window indexed")
}

// Hammering one window from many goroutines must admit exactly one.
func TestConcurrentReserveSingleWinner(t *testing.T) {
    ix := NewIndex()
    const attempts = 64

    var wg sync.WaitGroup
    var mu sync.Mutex
    winners := 0

    for i := 0; i < attempts; i++ {
        wg.Add(1)
        go func(id uint64) {
            defer wg.Done()
            if err := ix.Reserve(7, id, at(18, 0), at(19, 0)); err == nil {
                mu.Lock()
                winners++
                mu.Unlock()
            }
        }(uint64(i + 1))
    }
    wg.Wait()

    assert.Equal(t, 1, winners)

    busy := ix.Busy(7, at(0, 0), at(23, 59))
    require.Len(t, busy, 1)
}

// Disjoint windows claimed concurrently must all land and stay sorted.
func TestConcurrentReserveDisjointWindows(t *testing.T) {
    ix := NewIndex()
    const n = 32

    var wg sync.WaitGroup
    for i := 0; i < n; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            start := at(0, 0).Add(time.Duration(i) * 30 * time.Minute)
            assert.NoError(t, ix.Reserve(3, uint64(i+1), start, start.Add(30*time.Minute)))
        }(i)
    }
    wg.Wait()

    busy := ix.Busy(3, at(0, 0), at(23, 59))
    require.Len(t, busy, n)
    for i := 1; i < len(busy); i++ {
        assert.False(t, busy[i].Start.Before(busy[i-1].End), "intervals out of order at %d", i)
    }
}
