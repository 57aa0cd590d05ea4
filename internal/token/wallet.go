package token

import (
	"context"
	"database/sql"
)

// WalletLedger implements Ledger on top of the wallet_accounts table.  The
// customary custody account is a reserved row keyed by the service's own
// address so that pulled funds remain visible on the same ledger.  Each
// transfer is a pair of guarded single-statement updates executed inside one
// transaction: the debit carries a balance predicate so an overdraw affects
// zero rows and the transaction rolls back.
type WalletLedger struct {
	db      *sql.DB
	custody string // address of the reserved custody row
}

// NewWalletLedger returns a WalletLedger using the given custody address.
func NewWalletLedger(db *sql.DB, custodyAddr string) *WalletLedger {
	return &WalletLedger{db: db, custody: custodyAddr}
}

// Pull moves amount from the given account into the custody row.
func (w *WalletLedger) Pull(ctx context.Context, from string, amount uint64) error {
	return w.transfer(ctx, from, w.custody, amount)
}

// Push moves amount from the custody row to the given account.
func (w *WalletLedger) Push(ctx context.Context, to string, amount uint64) error {
	return w.transfer(ctx, w.custody, to, amount)
}

func (w *WalletLedger) transfer(ctx context.Context, from, to string, amount uint64) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx,
		`UPDATE wallet_accounts SET balance_cents = balance_cents - ? WHERE address = ? AND balance_cents >= ?`,
		amount, from, amount)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish a missing row from an overdraw for the error taxonomy.
		var exists int
		if scanErr := tx.QueryRowContext(ctx,
			`SELECT 1 FROM wallet_accounts WHERE address = ?`, from).Scan(&exists); scanErr == sql.ErrNoRows {
			return ErrUnknownAccount
		}
		return ErrInsufficientFunds
	}
	res, err = tx.ExecContext(ctx,
		`UPDATE wallet_accounts SET balance_cents = balance_cents + ? WHERE address = ?`,
		amount, to)
	if err != nil {
		return err
	}
	if n, err = res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrUnknownAccount
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// EnsureAccount creates the wallet row for an address if it does not exist.
// Called at registration and at startup for the custody and platform rows.
func (w *WalletLedger) EnsureAccount(ctx context.Context, addr string) error {
	_, err := w.db.ExecContext(ctx,
		`INSERT IGNORE INTO wallet_accounts (address, balance_cents) VALUES (?, 0)`, addr)
	return err
}

// Deposit credits an account directly, creating the row if needed.  This is
// the admin on-ramp; settlement moves money only through Pull and Push.
func (w *WalletLedger) Deposit(ctx context.Context, addr string, amount uint64) error {
	if err := w.EnsureAccount(ctx, addr); err != nil {
		return err
	}
	_, err := w.db.ExecContext(ctx,
		`UPDATE wallet_accounts SET balance_cents = balance_cents + ? WHERE address = ?`,
		amount, addr)
	return err
}

// BalanceOf returns the current balance of an account.
func (w *WalletLedger) BalanceOf(ctx context.Context, addr string) (uint64, error) {
	var bal uint64
	err := w.db.QueryRowContext(ctx,
		`SELECT balance_cents FROM wallet_accounts WHERE address = ?`, addr).Scan(&bal)
	if err == sql.ErrNoRows {
		return 0, ErrUnknownAccount
	}
	return bal, err
}
