package model

import "time"

// TableStatus is the operational state of a billiard table as set by
// staff.  It is independent of reservation scheduling: a table can be
// AVAILABLE here and still be fully booked for a given window.
type TableStatus string

const (
    TableStatusAvailable   TableStatus = "AVAILABLE"   // open for new bookings
    TableStatusOccupied    TableStatus = "OCCUPIED"    // a party is currently playing
    TableStatusMaintenance TableStatus = "MAINTENANCE" // blocks new bookings only
)

// ParseTableStatus validates a raw status string coming from a request
// body and returns the typed value.  The boolean is false for any value
// outside the closed set.
func ParseTableStatus(raw string) (TableStatus, bool) {
    switch TableStatus(raw) {
    case TableStatusAvailable, TableStatusOccupied, TableStatusMaintenance:
        return TableStatus(raw), true
    }
    return "", false
}

// Table describes a physical billiard table in the hall.  Each table
// references a TableType that carries its hourly rate.
//
// Fields:
//  ID          – primary key identifier.
//  TableTypeID – type this table belongs to (rate, display attributes).
//  Label       – human label printed on the table ("T1", "Snooker 2").
//  Status      – operational status set by staff.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Table struct {
    ID          uint64      `json:"id"`            // tables.id
    TableTypeID uint64      `json:"table_type_id"` // tables.table_type_id
    Label       string      `json:"label"`         // tables.label
    Status      TableStatus `json:"status"`        // tables.status
    CreatedAt   time.Time   `json:"created_at"`    // tables.created_at
    UpdatedAt   time.Time   `json:"updated_at"`    // tables.updated_at
}
