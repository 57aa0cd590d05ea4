package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/mentorship-escrow/internal/booking"
	"github.com/iliyamo/mentorship-escrow/internal/model"
)

// BookingRepo persists bookings in the `bookings` table.  It implements
// booking.Store; sentinel errors come from the booking package so callers
// never see database/sql details.
type BookingRepo struct{ DB *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{DB: db} }

const bookingColumns = "id,mentee,mentor,session_time,amount_cents,status,booking_type,attendance_set,attended,created_by_relayer,created_at"

// Create inserts the booking and fills in its assigned id.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO bookings (mentee, mentor, session_time, amount_cents, status, booking_type, attendance_set, attended, created_by_relayer) VALUES (?,?,?,?,?,?,?,?,?)",
		b.Mentee, b.Mentor, b.SessionTime, b.AmountCents, string(b.Status), string(b.Type), b.AttendanceSet, b.Attended, b.CreatedByRelayer)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

func scanBooking(scan func(dest ...any) error) (*model.Booking, error) {
	var b model.Booking
	var status, typ string
	err := scan(&b.ID, &b.Mentee, &b.Mentor, &b.SessionTime, &b.AmountCents,
		&status, &typ, &b.AttendanceSet, &b.Attended, &b.CreatedByRelayer, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	b.Type = model.BookingType(typ)
	return &b, nil
}

// Get fetches a booking by id.
func (r *BookingRepo) Get(ctx context.Context, id uint64) (*model.Booking, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE id=? LIMIT 1", id)
	b, err := scanBooking(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrNotFound
	}
	return b, err
}

// UpdateStatus rewrites the booking status.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, status model.BookingStatus) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE bookings SET status=? WHERE id=?", string(status), id)
	if err != nil {
		return err
	}
	return requireRow(res, booking.ErrNotFound)
}

// SetAttendance records the resolved attendance outcome.
func (r *BookingRepo) SetAttendance(ctx context.Context, id uint64, attended bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE bookings SET attendance_set=1, attended=? WHERE id=?", attended, id)
	if err != nil {
		return err
	}
	return requireRow(res, booking.ErrNotFound)
}

// Delete removes a booking row.  Used only by the creation compensation
// path, before the booking was ever visible.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM bookings WHERE id=?", id)
	return err
}

// ListByAddress returns all bookings where addr is the mentee or the
// mentor, oldest first.
func (r *BookingRepo) ListByAddress(ctx context.Context, addr string) ([]model.Booking, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE mentee=? OR mentor=? ORDER BY id", addr, addr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// requireRow maps a zero-row UPDATE to the package's not-found sentinel.
// Guarded updates that can legitimately match zero rows must not use it.
func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
