// Package availability maintains the per-table index of active
// reservation windows.  The index is derived state: the reservations
// table is the source of truth and the index is rebuilt from it at
// startup.  Every reservation entering or leaving the active set
// (PENDING/CONFIRMED) must be mirrored here by the booking service.
package availability

import (
    "fmt"
    "sort"
    "sync"
    "time"
)

// Interval is one active reservation window on a table.  Windows are
// half-open: [Start, End).
type Interval struct {
    ReservationID uint64    `json:"reservation_id"`
    Start         time.Time `json:"start"`
    End           time.Time `json:"end"`
}

// ConflictError reports that a requested window overlaps an existing
// active reservation.  The conflicting reservation ID is carried for
// diagnostics so callers can tell the customer what is in the way.
type ConflictError struct {
    TableID       uint64
    ReservationID uint64
}

func (e *ConflictError) Error() string {
    return fmt.Sprintf("table %d: window conflicts with reservation %d", e.TableID, e.ReservationID)
}

// tableIntervals holds the start-sorted windows of a single table.
// Each table has its own mutex so bookings on different tables never
// contend with each other.
type tableIntervals struct {
    mu        sync.Mutex
    intervals []Interval // sorted by Start ascending
}

// Index answers "is [start, end) free on table T" and records claims.
// All methods are safe for concurrent use.
type Index struct {
    mu     sync.RWMutex // guards the tables map, not the per-table slices
    tables map[uint64]*tableIntervals
}

// NewIndex returns an empty index.
func NewIndex() *Index {
    return &Index{tables: make(map[uint64]*tableIntervals)}
}

func (ix *Index) table(tableID uint64) *tableIntervals {
    ix.mu.RLock()
    ti, ok := ix.tables[tableID]
    ix.mu.RUnlock()
    if ok {
        return ti
    }
    ix.mu.Lock()
    defer ix.mu.Unlock()
    if ti, ok = ix.tables[tableID]; ok {
        return ti
    }
    ti = &tableIntervals{}
    ix.tables[tableID] = ti
    return ti
}

// conflictLocked returns the interval overlapping [start, end), or nil.
// The slice is sorted by Start, so a binary search for the insertion
// point plus a look at the left neighbour covers every overlap case:
// the left neighbour is the only earlier-starting interval that can
// still reach into the window, and the interval at the insertion point
// is the earliest later-starting candidate.
func (ti *tableIntervals) conflictLocked(start, end time.Time) *Interval {
    n := len(ti.intervals)
    i := sort.Search(n, func(j int) bool { return !ti.intervals[j].Start.Before(start) })
    if i > 0 && ti.intervals[i-1].End.After(start) {
        return &ti.intervals[i-1]
    }
    if i < n && ti.intervals[i].Start.Before(end) {
        return &ti.intervals[i]
    }
    return nil
}

// IsFree reports whether no active window on the table overlaps
// [start, end).  Touching endpoints are not conflicts.
func (ix *Index) IsFree(tableID uint64, start, end time.Time) bool {
    ti := ix.table(tableID)
    ti.mu.Lock()
    defer ti.mu.Unlock()
    return ti.conflictLocked(start, end) == nil
}

// Conflicting returns a copy of the active window overlapping
// [start, end) on the table, or nil when the window is free.  Callers
// that need the conflicting reservation ID for diagnostics use this
// instead of IsFree.
func (ix *Index) Conflicting(tableID uint64, start, end time.Time) *Interval {
    ti := ix.table(tableID)
    ti.mu.Lock()
    defer ti.mu.Unlock()
    if c := ti.conflictLocked(start, end); c != nil {
        cp := *c
        return &cp
    }
    return nil
}

// Reserve atomically checks [start, end) and inserts it for the given
// reservation.  The check and the insertion happen under the table's
// mutex, so two concurrent Reserve calls for overlapping windows on the
// same table resolve to exactly one success and one *ConflictError.
func (ix *Index) Reserve(tableID, reservationID uint64, start, end time.Time) error {
    ti := ix.table(tableID)
    ti.mu.Lock()
    defer ti.mu.Unlock()
    if c := ti.conflictLocked(start, end); c != nil {
        return &ConflictError{TableID: tableID, ReservationID: c.ReservationID}
    }
    i := sort.Search(len(ti.intervals), func(j int) bool { return !ti.intervals[j].Start.Before(start) })
    ti.intervals = append(ti.intervals, Interval{})
    copy(ti.intervals[i+1:], ti.intervals[i:])
    ti.intervals[i] = Interval{ReservationID: reservationID, Start: start, End: end}
    return nil
}

// Release removes the reservation's window from the table.  It is
// idempotent: releasing an absent reservation is a no-op, which is what
// the expiry sweep relies on when it loses a race with a manual cancel.
func (ix *Index) Release(tableID, reservationID uint64) {
    ti := ix.table(tableID)
    ti.mu.Lock()
    defer ti.mu.Unlock()
    for i := range ti.intervals {
        if ti.intervals[i].ReservationID == reservationID {
            ti.intervals = append(ti.intervals[:i], ti.intervals[i+1:]...)
            return
        }
    }
}

// Busy returns the active windows on the table overlapping [from, to),
// in start order.  The result is a copy and safe to retain.
func (ix *Index) Busy(tableID uint64, from, to time.Time) []Interval {
    ti := ix.table(tableID)
    ti.mu.Lock()
    defer ti.mu.Unlock()
    out := make([]Interval, 0)
    for _, iv := range ti.intervals {
        if iv.Start.Before(to) && from.Before(iv.End) {
            out = append(out, iv)
        }
    }
    return out
}

// Rebuild replaces the table's windows with the given set, typically
// loaded from the reservations table at startup.  Input order does not
// matter; the index sorts.
func (ix *Index) Rebuild(tableID uint64, intervals []Interval) {
    ti := ix.table(tableID)
    ti.mu.Lock()
    defer ti.mu.Unlock()
    ti.intervals = append([]Interval(nil), intervals...)
    sort.Slice(ti.intervals, func(a, b int) bool { return ti.intervals[a].Start.Before(ti.intervals[b].Start) })
}
