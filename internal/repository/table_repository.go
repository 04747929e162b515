package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/go-sql-driver/mysql"

    "github.com/rackhouse/billiard-reservation/internal/model"
)

// TableRepo provides CRUD operations for billiard tables.  All
// timestamp fields are stored in UTC.
type TableRepo struct {
    db *sql.DB
}

// NewTableRepo returns a new TableRepo bound to the given database.
func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

const tableColumns = `id, table_type_id, label, status, created_at, updated_at`

func scanTable(row interface{ Scan(...any) error }) (*model.Table, error) {
    var t model.Table
    var status string
    if err := row.Scan(&t.ID, &t.TableTypeID, &t.Label, &status, &t.CreatedAt, &t.UpdatedAt); err != nil {
        return nil, err
    }
    t.Status = model.TableStatus(status)
    return &t, nil
}

// GetByID returns a single table.  ErrTableNotFound is returned when
// the ID is unknown.
func (r *TableRepo) GetByID(ctx context.Context, id uint64) (*model.Table, error) {
    const q = `SELECT ` + tableColumns + ` FROM tables WHERE id = ?`
    t, err := scanTable(r.db.QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrTableNotFound
    }
    return t, err
}

// GetWithType returns a table together with its type so the booking
// service can price the window from the hourly rate in one round trip.
func (r *TableRepo) GetWithType(ctx context.Context, id uint64) (*model.Table, *model.TableType, error) {
    const q = `SELECT t.id, t.table_type_id, t.label, t.status, t.created_at, t.updated_at,
                      tt.id, tt.name, tt.hourly_rate_cents, tt.description, tt.color, tt.is_active, tt.created_at, tt.updated_at
               FROM tables t
               JOIN table_types tt ON tt.id = t.table_type_id
               WHERE t.id = ?`
    var t model.Table
    var tt model.TableType
    var status string
    var desc sql.NullString
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &t.ID, &t.TableTypeID, &t.Label, &status, &t.CreatedAt, &t.UpdatedAt,
        &tt.ID, &tt.Name, &tt.HourlyRateCents, &desc, &tt.Color, &tt.IsActive, &tt.CreatedAt, &tt.UpdatedAt,
    )
    if errors.Is(err, sql.ErrNoRows) {
        return nil, nil, ErrTableNotFound
    }
    if err != nil {
        return nil, nil, err
    }
    t.Status = model.TableStatus(status)
    if desc.Valid {
        d := desc.String
        tt.Description = &d
    }
    return &t, &tt, nil
}

// TableFilter narrows List results.  Zero values mean "no filter".
type TableFilter struct {
    Status      model.TableStatus
    TableTypeID uint64
}

// List returns tables matching the filter, ordered by label for
// deterministic output.
func (r *TableRepo) List(ctx context.Context, f TableFilter) ([]model.Table, error) {
    q := `SELECT ` + tableColumns + ` FROM tables`
    var conds []string
    var args []any
    if f.Status != "" {
        conds = append(conds, "status = ?")
        args = append(args, string(f.Status))
    }
    if f.TableTypeID != 0 {
        conds = append(conds, "table_type_id = ?")
        args = append(args, f.TableTypeID)
    }
    if len(conds) > 0 {
        q += " WHERE " + strings.Join(conds, " AND ")
    }
    q += " ORDER BY label"
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Table, 0)
    for rows.Next() {
        t, err := scanTable(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *t)
    }
    return out, rows.Err()
}

// Create inserts a new table and populates the generated ID and
// timestamps on the provided model.  The table type must exist and be
// active; a foreign key violation surfaces as ErrTableTypeNotFound.
func (r *TableRepo) Create(ctx context.Context, t *model.Table) error {
    const q = `INSERT INTO tables (table_type_id, label, status) VALUES (?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q, t.TableTypeID, t.Label, string(t.Status))
    if err != nil {
        if isForeignKeyErr(err) {
            return ErrTableTypeNotFound
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    t.ID = uint64(id)
    const sel = `SELECT created_at, updated_at FROM tables WHERE id = ?`
    return r.db.QueryRowContext(ctx, sel, t.ID).Scan(&t.CreatedAt, &t.UpdatedAt)
}

// Update changes the label and type of a table.
func (r *TableRepo) Update(ctx context.Context, id uint64, label string, tableTypeID uint64) error {
    const q = `UPDATE tables SET label = ?, table_type_id = ? WHERE id = ?`
    res, err := r.db.ExecContext(ctx, q, label, tableTypeID, id)
    if err != nil {
        if isForeignKeyErr(err) {
            return ErrTableTypeNotFound
        }
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        // Could also mean the row already holds these values; re-check
        // existence so a no-op update does not read as a missing table.
        var one int
        if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM tables WHERE id = ?`, id).Scan(&one); err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return ErrTableNotFound
            }
            return err
        }
    }
    return nil
}

// SetOperationalStatus flips the staff-controlled status.  Setting the
// current value again is an idempotent no-op, not an error.  Flipping
// to MAINTENANCE never touches existing reservations; it only blocks
// new bookings at the policy gate in the booking service.
func (r *TableRepo) SetOperationalStatus(ctx context.Context, id uint64, status model.TableStatus) error {
    const q = `UPDATE tables SET status = ? WHERE id = ?`
    res, err := r.db.ExecContext(ctx, q, string(status), id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        var one int
        if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM tables WHERE id = ?`, id).Scan(&one); err != nil {
            if errors.Is(err, sql.ErrNoRows) {
                return ErrTableNotFound
            }
            return err
        }
    }
    return nil
}

// isForeignKeyErr detects MySQL error 1452 (foreign key constraint
// fails).
func isForeignKeyErr(err error) bool {
    var me *mysql.MySQLError
    return errors.As(err, &me) && me.Number == 1452
}
