package model

import "time"

// TableType groups tables that share a rate and display attributes
// (e.g. pool, snooker, carom).  Rate changes never reprice existing
// reservations: a reservation stores its total at creation time.
//
// Fields:
//  ID              – primary key identifier.
//  Name            – display name of the type.
//  HourlyRateCents – price per hour in the smallest currency unit.
//  Description     – optional free-form description.
//  Color           – display color used by the floor plan UI.
//  IsActive        – inactive types cannot be assigned to new tables.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type TableType struct {
    ID              uint64    `json:"id"`                    // table_types.id
    Name            string    `json:"name"`                  // table_types.name
    HourlyRateCents uint32    `json:"hourly_rate_cents"`     // table_types.hourly_rate_cents
    Description     *string   `json:"description,omitempty"` // table_types.description (nullable)
    Color           string    `json:"color"`                 // table_types.color
    IsActive        bool      `json:"is_active"`             // table_types.is_active
    CreatedAt       time.Time `json:"created_at"`            // table_types.created_at
    UpdatedAt       time.Time `json:"updated_at"`            // table_types.updated_at
}
