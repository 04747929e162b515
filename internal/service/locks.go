package service

import "sync"

// tableLocks hands out one mutex per table so the check-then-reserve
// sequence is a critical section keyed by table: concurrent bookings on
// the same table serialize, bookings on different tables never contend.
type tableLocks struct {
    mu    sync.Mutex
    locks map[uint64]*sync.Mutex
}

func newTableLocks() *tableLocks {
    return &tableLocks{locks: make(map[uint64]*sync.Mutex)}
}

func (l *tableLocks) forTable(tableID uint64) *sync.Mutex {
    l.mu.Lock()
    defer l.mu.Unlock()
    m, ok := l.locks[tableID]
    if !ok {
        m = &sync.Mutex{}
        l.locks[tableID] = m
    }
    return m
}
