// Package token exposes the fungible value-transfer primitive consumed by the
// escrow ledger.  The primitive is deliberately narrow: a transfer either
// fully succeeds or the enclosing operation aborts with no state change.  The
// service ships a MySQL-backed wallet implementation; an in-memory ledger is
// provided for tests and local development.
package token

import (
	"context"
	"errors"
	"sync"
)

// ErrInsufficientFunds is returned when a pull would overdraw the source
// account.  Callers must treat it as a hard failure of the whole operation.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrUnknownAccount is returned when the referenced account does not exist.
var ErrUnknownAccount = errors.New("unknown account")

// Ledger is the blocking transfer contract.  Pull moves amount from the
// given account into custody; Push moves amount from custody to the given
// account.  Implementations must be atomic per call.
type Ledger interface {
	Pull(ctx context.Context, from string, amount uint64) error
	Push(ctx context.Context, to string, amount uint64) error
}

// MemLedger is an in-memory Ledger keyed by account address.  It tracks the
// custody pool explicitly so tests can assert aggregate conservation.
type MemLedger struct {
	mu       sync.Mutex
	balances map[string]uint64
	custody  uint64
}

// NewMemLedger returns an empty in-memory ledger.
func NewMemLedger() *MemLedger {
	return &MemLedger{balances: make(map[string]uint64)}
}

// Credit seeds an account balance.  Test helper; not part of Ledger.
func (m *MemLedger) Credit(addr string, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[addr] += amount
}

// Balance returns the current balance of an account.
func (m *MemLedger) Balance(addr string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[addr]
}

// Custody returns the total amount currently pulled but not yet pushed out.
func (m *MemLedger) Custody() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.custody
}

// Pull implements Ledger.
func (m *MemLedger) Pull(ctx context.Context, from string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[from]
	if !ok {
		return ErrUnknownAccount
	}
	if bal < amount {
		return ErrInsufficientFunds
	}
	m.balances[from] = bal - amount
	m.custody += amount
	return nil
}

// Push implements Ledger.
func (m *MemLedger) Push(ctx context.Context, to string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.custody < amount {
		return ErrInsufficientFunds
	}
	m.custody -= amount
	m.balances[to] += amount
	return nil
}
