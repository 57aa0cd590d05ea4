package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/mentorship-escrow/internal/model"
	"github.com/iliyamo/mentorship-escrow/internal/session"
)

// AckRepo persists acknowledgment records in the `session_acks` table and
// implements session.Store.  MarkAcknowledged and MarkConsumed are guarded
// single UPDATEs so exactly one caller consumes a record.
type AckRepo struct{ DB *sql.DB }

func NewAckRepo(db *sql.DB) *AckRepo { return &AckRepo{DB: db} }

const ackColumns = "booking_id,token_digest,salt,generated,acknowledged,consumed,expires_at,mentee,mentor,created_at"

// Create inserts the acknowledgment record; one record exists per booking.
func (r *AckRepo) Create(ctx context.Context, a *model.SessionAck) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO session_acks (booking_id, token_digest, salt, generated, acknowledged, consumed, expires_at, mentee, mentor) VALUES (?,?,?,?,?,?,?,?,?)",
		a.BookingID, a.TokenDigest, a.Salt, a.Generated, a.Acknowledged, a.Consumed,
		a.ExpiresAt, a.Mentee, a.Mentor)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return session.ErrAlreadyGenerated
	}
	return err
}

// Get fetches the acknowledgment record for a booking.
func (r *AckRepo) Get(ctx context.Context, id uint64) (*model.SessionAck, error) {
	var a model.SessionAck
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+ackColumns+" FROM session_acks WHERE booking_id=? LIMIT 1", id).
		Scan(&a.BookingID, &a.TokenDigest, &a.Salt, &a.Generated, &a.Acknowledged,
			&a.Consumed, &a.ExpiresAt, &a.Mentee, &a.Mentor, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// MarkAcknowledged consumes the record as attended.  False means it was
// already consumed.
func (r *AckRepo) MarkAcknowledged(ctx context.Context, id uint64) (bool, error) {
	return r.guarded(ctx,
		"UPDATE session_acks SET acknowledged=1, consumed=1 WHERE booking_id=? AND consumed=0", id)
}

// MarkConsumed consumes the record as a no-show.
func (r *AckRepo) MarkConsumed(ctx context.Context, id uint64) (bool, error) {
	return r.guarded(ctx,
		"UPDATE session_acks SET consumed=1 WHERE booking_id=? AND consumed=0", id)
}

// Reset clears the consumption flags after a failed downstream callback.
func (r *AckRepo) Reset(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE session_acks SET acknowledged=0, consumed=0 WHERE booking_id=?", id)
	return err
}

// ForceResolve stamps the final outcome unconditionally (admin path).
func (r *AckRepo) ForceResolve(ctx context.Context, id uint64, acknowledged bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE session_acks SET acknowledged=?, consumed=1 WHERE booking_id=?", acknowledged, id)
	if err != nil {
		return err
	}
	return requireRow(res, session.ErrNotFound)
}

func (r *AckRepo) guarded(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
