package repository

import (
	"context"
	"database/sql"
)

// NonceRepo tracks delegated-request nonces in the `relay_nonces` table and
// implements relay.NonceStore.  Advance is a guarded UPDATE: of two requests
// racing on the same nonce exactly one sees an affected row.
type NonceRepo struct{ DB *sql.DB }

func NewNonceRepo(db *sql.DB) *NonceRepo { return &NonceRepo{DB: db} }

// Nonce returns the signer's next expected nonce, zero for unseen signers.
func (r *NonceRepo) Nonce(ctx context.Context, signer string) (uint64, error) {
	var n uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT nonce FROM relay_nonces WHERE signer=? LIMIT 1", signer).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}

// Advance consumes exactly the expected nonce.  The INSERT IGNORE seeds the
// row for first-time signers; the UPDATE then only matches when nobody got
// there first.
func (r *NonceRepo) Advance(ctx context.Context, signer string, expected uint64) (bool, error) {
	if _, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO relay_nonces (signer, nonce) VALUES (?,0)", signer); err != nil {
		return false, err
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE relay_nonces SET nonce=nonce+1 WHERE signer=? AND nonce=?", signer, expected)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
