package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "time"

    "github.com/go-sql-driver/mysql"

    "github.com/rackhouse/billiard-reservation/internal/model"
)

// ReservationRepo provides persistence for reservations.  The booking
// service owns the lifecycle rules; this layer owns the SQL, including
// the storage-side overlap guard that keeps the non-overlap invariant
// intact even when several processes share the database.  All
// timestamps are stored in UTC.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, table_id, customer_id, starts_at, ends_at, status, payment_status,
                            payment_method, total_amount_cents, paid_amount_cents, checked_in_at,
                            created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (*model.Reservation, error) {
    var res model.Reservation
    var status, payStatus string
    var method sql.NullString
    var checkedIn sql.NullTime
    err := row.Scan(
        &res.ID, &res.TableID, &res.CustomerID, &res.StartsAt, &res.EndsAt, &status, &payStatus,
        &method, &res.TotalAmountCents, &res.PaidAmountCents, &checkedIn,
        &res.CreatedAt, &res.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    res.Status = model.ReservationStatus(status)
    res.PaymentStatus = model.PaymentStatus(payStatus)
    if method.Valid {
        m := method.String
        res.PaymentMethod = &m
    }
    if checkedIn.Valid {
        t := checkedIn.Time.UTC()
        res.CheckedInAt = &t
    }
    return &res, nil
}

// Create inserts a new reservation after re-checking, inside one
// transaction, that no active reservation overlaps the window.  Locking
// the table row with FOR UPDATE serializes concurrent creates on the
// same table while leaving other tables fully parallel; this is the
// storage-layer last line of defense behind the in-process index.  On
// overlap it returns a *ConflictError naming the blocking reservation.
// The generated ID and timestamps are populated on the provided model.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    // Serialize on the table row. Also confirms the table still exists.
    var tableID uint64
    err = tx.QueryRowContext(ctx, `SELECT id FROM tables WHERE id = ? FOR UPDATE`, res.TableID).Scan(&tableID)
    if errors.Is(err, sql.ErrNoRows) {
        return ErrTableNotFound
    }
    if err != nil {
        return err
    }

    // Half-open overlap test: existing.start < end AND start < existing.end.
    const overlapQ = `SELECT id FROM reservations
                      WHERE table_id = ? AND status IN ('PENDING','CONFIRMED')
                        AND starts_at < ? AND ? < ends_at
                      LIMIT 1`
    var conflictID uint64
    err = tx.QueryRowContext(ctx, overlapQ, res.TableID, fmtTime(res.EndsAt), fmtTime(res.StartsAt)).Scan(&conflictID)
    if err == nil {
        return &ConflictError{ConflictingID: conflictID}
    }
    if !errors.Is(err, sql.ErrNoRows) {
        return err
    }

    const ins = `INSERT INTO reservations
                 (table_id, customer_id, starts_at, ends_at, status, payment_status, total_amount_cents, paid_amount_cents)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
    result, err := tx.ExecContext(ctx, ins,
        res.TableID, res.CustomerID, fmtTime(res.StartsAt), fmtTime(res.EndsAt),
        string(res.Status), string(res.PaymentStatus), res.TotalAmountCents, res.PaidAmountCents,
    )
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    res.ID = uint64(id)
    // Query back to populate timestamps set by the database.
    const sel = `SELECT created_at, updated_at FROM reservations WHERE id = ?`
    if err := tx.QueryRowContext(ctx, sel, res.ID).Scan(&res.CreatedAt, &res.UpdatedAt); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// GetByID returns a single reservation.  ErrReservationNotFound is
// returned when the ID is unknown.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
    res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrReservationNotFound
    }
    return res, err
}

// UpdatePaymentIf writes the payment fields back to the row only while
// the reservation is still active, reporting whether the row changed.
// Status never travels through this statement; lifecycle transitions go
// through UpdateStatusIf exclusively, so a cancel or expiry sweep
// landing between the caller's read and this write can never be
// overwritten by a payment.
func (r *ReservationRepo) UpdatePaymentIf(ctx context.Context, res *model.Reservation) (bool, error) {
    const q = `UPDATE reservations
               SET payment_status = ?, payment_method = ?, paid_amount_cents = ?
               WHERE id = ? AND status IN ('PENDING','CONFIRMED')`
    var method any
    if res.PaymentMethod != nil {
        method = *res.PaymentMethod
    }
    result, err := r.db.ExecContext(ctx, q, string(res.PaymentStatus), method, res.PaidAmountCents, res.ID)
    if err != nil {
        return false, err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return false, err
    }
    if n == 0 {
        // Distinguish a terminal reservation from a missing one.
        var one int
        err := r.db.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE id = ?`, res.ID).Scan(&one)
        if errors.Is(err, sql.ErrNoRows) {
            return false, ErrReservationNotFound
        }
        if err != nil {
            return false, err
        }
        return false, nil
    }
    return true, nil
}

// SetRefunded marks the payment as returned after a cancellation.  The
// row is terminal at this point, so unlike UpdatePaymentIf no status
// guard applies.
func (r *ReservationRepo) SetRefunded(ctx context.Context, id uint64) error {
    result, err := r.db.ExecContext(ctx,
        `UPDATE reservations SET payment_status = 'REFUNDED' WHERE id = ?`, id)
    if err != nil {
        return err
    }
    if n, err := result.RowsAffected(); err == nil && n == 0 {
        var one int
        if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE id = ?`, id).Scan(&one); errors.Is(err, sql.ErrNoRows) {
            return ErrReservationNotFound
        }
    }
    return nil
}

// SetCheckedInIf stamps the arrival time while the reservation is still
// CONFIRMED and not yet checked in, reporting whether the row changed.
// A cancel landing between the caller's read and this write leaves the
// stamp unwritten.
func (r *ReservationRepo) SetCheckedInIf(ctx context.Context, id uint64, at time.Time) (bool, error) {
    const q = `UPDATE reservations SET checked_in_at = ?
               WHERE id = ? AND status = 'CONFIRMED' AND checked_in_at IS NULL`
    result, err := r.db.ExecContext(ctx, q, fmtTime(at), id)
    if err != nil {
        return false, err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// UpdateStatusIf moves a reservation to the given status only when its
// current status is in the allowed set, reporting whether the row
// changed.  The conditional WHERE makes concurrent transitions race
// safely: whichever executes first wins, the loser sees changed=false
// and treats it as a no-op.  The expiry sweep and manual cancellation
// both rely on this.
func (r *ReservationRepo) UpdateStatusIf(ctx context.Context, id uint64, from []model.ReservationStatus, to model.ReservationStatus) (bool, error) {
    if len(from) == 0 {
        return false, nil
    }
    placeholders := make([]string, len(from))
    args := []any{string(to)}
    for i, s := range from {
        placeholders[i] = "?"
        args = append(args, string(s))
    }
    args = append(args, id)
    q := `UPDATE reservations SET status = ? WHERE status IN (` + strings.Join(placeholders, ",") + `) AND id = ?`
    res, err := r.db.ExecContext(ctx, q, args...)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// ListExpiredPending returns reservations still PENDING whose creation
// time is at or before the cutoff, the candidates for the expiry sweep.
func (r *ReservationRepo) ListExpiredPending(ctx context.Context, cutoff time.Time) ([]model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations
               WHERE status = 'PENDING' AND created_at <= ?`
    rows, err := r.db.QueryContext(ctx, q, fmtTime(cutoff))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    return collectReservations(rows)
}

// ListActive returns every PENDING or CONFIRMED reservation.  Used to
// rebuild the availability index at startup.
func (r *ReservationRepo) ListActive(ctx context.Context) ([]model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations
               WHERE status IN ('PENDING','CONFIRMED')
               ORDER BY table_id, starts_at`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    return collectReservations(rows)
}

// Filter narrows List results.  Zero values mean "no filter"; From/To
// bound the reservation window with half-open semantics.
type Filter struct {
    TableID    uint64
    CustomerID uint64
    Status     model.ReservationStatus
    From       time.Time
    To         time.Time
}

// List returns reservations matching the filter, newest first.
func (r *ReservationRepo) List(ctx context.Context, f Filter) ([]model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations`
    var conds []string
    var args []any
    if f.TableID != 0 {
        conds = append(conds, "table_id = ?")
        args = append(args, f.TableID)
    }
    if f.CustomerID != 0 {
        conds = append(conds, "customer_id = ?")
        args = append(args, f.CustomerID)
    }
    if f.Status != "" {
        conds = append(conds, "status = ?")
        args = append(args, string(f.Status))
    }
    if !f.From.IsZero() {
        conds = append(conds, "ends_at > ?")
        args = append(args, fmtTime(f.From))
    }
    if !f.To.IsZero() {
        conds = append(conds, "starts_at < ?")
        args = append(args, fmtTime(f.To))
    }
    if len(conds) > 0 {
        q += " WHERE " + strings.Join(conds, " AND ")
    }
    q += " ORDER BY created_at DESC"
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    return collectReservations(rows)
}

func collectReservations(rows *sql.Rows) ([]model.Reservation, error) {
    out := make([]model.Reservation, 0)
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *res)
    }
    return out, rows.Err()
}

// IsRetryable reports whether the error is transient storage contention
// (deadlock or lock wait timeout) worth a bounded retry of the booking
// transaction.  Anything else is surfaced immediately.
func IsRetryable(err error) bool {
    var me *mysql.MySQLError
    if !errors.As(err, &me) {
        return false
    }
    return me.Number == 1213 || me.Number == 1205
}

// fmtTime renders a timestamp in the DATETIME format the schema uses,
// always in UTC.
func fmtTime(t time.Time) string {
    return t.UTC().Format("2006-01-02 15:04:05")
}
