package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/rackhouse/billiard-reservation/internal/model"
)

// TableTypeRepo provides CRUD operations for table types.  A type
// carries the hourly rate used to price reservations at creation time;
// rate updates never reprice reservations that already exist.
type TableTypeRepo struct {
    db *sql.DB
}

// NewTableTypeRepo returns a new TableTypeRepo bound to the given database.
func NewTableTypeRepo(db *sql.DB) *TableTypeRepo { return &TableTypeRepo{db: db} }

const typeColumns = `id, name, hourly_rate_cents, description, color, is_active, created_at, updated_at`

func scanTableType(row interface{ Scan(...any) error }) (*model.TableType, error) {
    var tt model.TableType
    var desc sql.NullString
    if err := row.Scan(&tt.ID, &tt.Name, &tt.HourlyRateCents, &desc, &tt.Color, &tt.IsActive, &tt.CreatedAt, &tt.UpdatedAt); err != nil {
        return nil, err
    }
    if desc.Valid {
        d := desc.String
        tt.Description = &d
    }
    return &tt, nil
}

// GetByID returns a single table type.  ErrTableTypeNotFound is
// returned when the ID is unknown.
func (r *TableTypeRepo) GetByID(ctx context.Context, id uint64) (*model.TableType, error) {
    const q = `SELECT ` + typeColumns + ` FROM table_types WHERE id = ?`
    tt, err := scanTableType(r.db.QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrTableTypeNotFound
    }
    return tt, err
}

// List returns table types ordered by name.  When activeOnly is true,
// inactive types are excluded.
func (r *TableTypeRepo) List(ctx context.Context, activeOnly bool) ([]model.TableType, error) {
    q := `SELECT ` + typeColumns + ` FROM table_types`
    if activeOnly {
        q += ` WHERE is_active = 1`
    }
    q += ` ORDER BY name`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.TableType, 0)
    for rows.Next() {
        tt, err := scanTableType(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *tt)
    }
    return out, rows.Err()
}

// Create inserts a new table type and populates the generated ID and
// timestamps on the provided model.
func (r *TableTypeRepo) Create(ctx context.Context, tt *model.TableType) error {
    const q = `INSERT INTO table_types (name, hourly_rate_cents, description, color, is_active) VALUES (?, ?, ?, ?, ?)`
    var desc any
    if tt.Description != nil {
        desc = *tt.Description
    }
    res, err := r.db.ExecContext(ctx, q, tt.Name, tt.HourlyRateCents, desc, tt.Color, tt.IsActive)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    tt.ID = uint64(id)
    const sel = `SELECT created_at, updated_at FROM table_types WHERE id = ?`
    return r.db.QueryRowContext(ctx, sel, tt.ID).Scan(&tt.CreatedAt, &tt.UpdatedAt)
}

// Update changes the rate, name and active flag of a type.  Existing
// reservations keep the total they were priced with.
func (r *TableTypeRepo) Update(ctx context.Context, tt *model.TableType) error {
    const q = `UPDATE table_types SET name = ?, hourly_rate_cents = ?, description = ?, color = ?, is_active = ? WHERE id = ?`
    var desc any
    if tt.Description != nil {
        desc = *tt.Description
    }
    res, err := r.db.ExecContext(ctx, q, tt.Name, tt.HourlyRateCents, desc, tt.Color, tt.IsActive, tt.ID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        var one int
        if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM table_types WHERE id = ?`, tt.ID).Scan(&one); err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return ErrTableTypeNotFound
            }
            return err
        }
    }
    return nil
}
