package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/mentorship-escrow/internal/model"
)

// RoleRepo persists capability grants in the `role_grants` table.  The
// users.role column carries the account's base role; grants layer extra
// capabilities (currently ADMIN) on top without rewriting it.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

// Grant records a capability for an address.  Granting twice is a no-op.
func (r *RoleRepo) Grant(ctx context.Context, address, role, grantedBy string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO role_grants (address, role, granted_by) VALUES (?,?,?)",
		address, role, grantedBy)
	return err
}

// Revoke removes a capability from an address.
func (r *RoleRepo) Revoke(ctx context.Context, address, role string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM role_grants WHERE address=? AND role=?", address, role)
	return err
}

// Has reports whether the address holds the capability, either as its base
// role or through a grant.
func (r *RoleRepo) Has(ctx context.Context, address, role string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM role_grants WHERE address=? AND role=?", address, role).Scan(&n)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	var base string
	err = r.DB.QueryRowContext(ctx,
		"SELECT role FROM users WHERE address=? LIMIT 1", address).Scan(&base)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return strings.EqualFold(base, role), nil
}

// ListByAddress returns all grants held by an address.
func (r *RoleRepo) ListByAddress(ctx context.Context, address string) ([]model.RoleGrant, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT address, role, granted_by, created_at FROM role_grants WHERE address=? ORDER BY created_at", address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RoleGrant
	for rows.Next() {
		var g model.RoleGrant
		if err := rows.Scan(&g.Address, &g.Role, &g.GrantedBy, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
