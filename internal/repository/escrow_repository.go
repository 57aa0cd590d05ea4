package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/mentorship-escrow/internal/escrow"
	"github.com/iliyamo/mentorship-escrow/internal/model"
)

// EscrowRepo persists escrow records in the `escrows` table and implements
// escrow.Store.  The latch and debit operations are single guarded UPDATEs;
// the vault reads RowsAffected through the bool return to learn whether it
// won the race.
type EscrowRepo struct{ DB *sql.DB }

func NewEscrowRepo(db *sql.DB) *EscrowRepo { return &EscrowRepo{DB: db} }

const escrowColumns = "booking_id,mentee,mentor,amount_cents,mentor_cents,platform_cents,mentee_refund_cents,session_time,booking_type,claimed,fee_claimed,active,created_at"

// Create inserts the escrow record.  The booking id is the primary key, so
// a duplicate insert maps to ErrExists.
func (r *EscrowRepo) Create(ctx context.Context, e *model.Escrow) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO escrows (booking_id, mentee, mentor, amount_cents, mentor_cents, platform_cents, mentee_refund_cents, session_time, booking_type, claimed, fee_claimed, active) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)",
		e.BookingID, e.Mentee, e.Mentor, e.AmountCents, e.MentorCents, e.PlatformCents,
		e.MenteeRefundCents, e.SessionTime, string(e.Type), e.Claimed, e.FeeClaimed, e.Active)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return escrow.ErrExists
		}
		return err
	}
	return nil
}

// Get fetches an escrow record by booking id.
func (r *EscrowRepo) Get(ctx context.Context, id uint64) (*model.Escrow, error) {
	var e model.Escrow
	var typ string
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+escrowColumns+" FROM escrows WHERE booking_id=? LIMIT 1", id).
		Scan(&e.BookingID, &e.Mentee, &e.Mentor, &e.AmountCents, &e.MentorCents,
			&e.PlatformCents, &e.MenteeRefundCents, &e.SessionTime, &typ,
			&e.Claimed, &e.FeeClaimed, &e.Active, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, escrow.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.Type = model.BookingType(typ)
	return &e, nil
}

// LatchClaimed atomically flips the claimed flag of an active, unclaimed
// record.  A false return means another caller already holds the latch.
func (r *EscrowRepo) LatchClaimed(ctx context.Context, id uint64) (bool, error) {
	return r.guarded(ctx,
		"UPDATE escrows SET claimed=1 WHERE booking_id=? AND active=1 AND claimed=0", id)
}

// UnlatchClaimed releases the claimed flag (payout compensation path).
func (r *EscrowRepo) UnlatchClaimed(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE escrows SET claimed=0 WHERE booking_id=?", id)
	return err
}

// LatchFeeClaimed atomically flips the fee_claimed flag.
func (r *EscrowRepo) LatchFeeClaimed(ctx context.Context, id uint64) (bool, error) {
	return r.guarded(ctx,
		"UPDATE escrows SET fee_claimed=1 WHERE booking_id=? AND fee_claimed=0", id)
}

// UpdateShares rewrites the three shares in one statement.
func (r *EscrowRepo) UpdateShares(ctx context.Context, id uint64, mentor, platform, refund uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE escrows SET mentor_cents=?, platform_cents=?, mentee_refund_cents=? WHERE booking_id=?",
		mentor, platform, refund, id)
	if err != nil {
		return err
	}
	return requireRow(res, escrow.ErrNotFound)
}

// DebitAmount subtracts amount from the pool only when the pool covers it.
func (r *EscrowRepo) DebitAmount(ctx context.Context, id uint64, amount uint64) (bool, error) {
	return r.guarded(ctx,
		"UPDATE escrows SET amount_cents=amount_cents-? WHERE booking_id=? AND amount_cents>=?",
		amount, id, amount)
}

// CreditAmount returns amount to the pool (payout compensation path).
func (r *EscrowRepo) CreditAmount(ctx context.Context, id uint64, amount uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE escrows SET amount_cents=amount_cents+? WHERE booking_id=?", amount, id)
	return err
}

// SetActive flips the active flag.
func (r *EscrowRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE escrows SET active=? WHERE booking_id=?", active, id)
	if err != nil {
		return err
	}
	return requireRow(res, escrow.ErrNotFound)
}

// ActiveTotal sums the remaining pools of all active records.  The vault
// seeds its custody aggregate from it at startup.
func (r *EscrowRepo) ActiveTotal(ctx context.Context) (uint64, error) {
	var total uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_cents),0) FROM escrows WHERE active=1").Scan(&total)
	return total, err
}

func (r *EscrowRepo) guarded(ctx context.Context, query string, args ...any) (bool, error) {
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
