package repository

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/iliyamo/mentorship-escrow/internal/model"
	"github.com/iliyamo/mentorship-escrow/internal/relay"
	"github.com/iliyamo/mentorship-escrow/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrUsernameExists = errors.New("username already exists")

const userColumns = "id,address,username,password_hash,role,signing_key,relay_secret,is_active,created_at,updated_at"

// newAddress issues a fresh 20-byte lowercase hex account address.
func newAddress() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Create inserts a user with a freshly issued address and returns it.
func (r *UserRepo) Create(ctx context.Context, username, password, role string, cost int) (model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}
	address, err := newAddress()
	if err != nil {
		return model.User{}, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (address, username, password_hash, role) VALUES (?,?,?,?)",
		address, username, hash, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.User{}, ErrUsernameExists
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return model.User{ID: uint64(id), Address: address, Username: username, Role: role, IsActive: true}, nil
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var u model.User
	var signingKey, relaySecret sql.NullString
	err := row.Scan(&u.ID, &u.Address, &u.Username, &u.PasswordHash, &u.Role,
		&signingKey, &relaySecret, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	u.SigningKey = signingKey.String
	u.RelaySecret = relaySecret.String
	return u, err
}

// GetByUsername fetches a user by normalized username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetByAddress fetches a user by account address.
func (r *UserRepo) GetByAddress(ctx context.Context, address string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE address=? LIMIT 1", address))
}

// SetSigningKey registers the hex Ed25519 public key used to verify the
// account's signed delegated requests.
func (r *UserRepo) SetSigningKey(ctx context.Context, id uint64, hexKey string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET signing_key=? WHERE id=?", hexKey, id)
	return err
}

// SetRelaySecret registers the managed-account HMAC secret.
func (r *UserRepo) SetRelaySecret(ctx context.Context, id uint64, secret string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET relay_secret=? WHERE id=?", secret, id)
	return err
}

// ResolveSigner implements relay.KeyResolver against the users table.  An
// unknown or deactivated address, or one with no registered credentials,
// resolves to relay.ErrUnknownSigner.
func (r *UserRepo) ResolveSigner(ctx context.Context, address string) (*relay.Signer, error) {
	u, err := r.GetByAddress(ctx, address)
	if err == sql.ErrNoRows {
		return nil, relay.ErrUnknownSigner
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, relay.ErrUnknownSigner
	}
	s := &relay.Signer{Address: u.Address}
	if u.SigningKey != "" {
		raw, err := hex.DecodeString(u.SigningKey)
		if err != nil || len(raw) != ed25519.PublicKeySize {
			return nil, relay.ErrUnknownSigner
		}
		s.PublicKey = ed25519.PublicKey(raw)
	}
	if u.RelaySecret != "" {
		s.Secret = []byte(u.RelaySecret)
	}
	if s.PublicKey == nil && len(s.Secret) == 0 {
		return nil, relay.ErrUnknownSigner
	}
	return s, nil
}

// MentorDirectory adapts the users table to the directory.Client interface
// used by booking creation: a mentor "exists" when an active MENTOR account
// owns the address.
type MentorDirectory struct{ Users *UserRepo }

func NewMentorDirectory(u *UserRepo) *MentorDirectory { return &MentorDirectory{Users: u} }

// Exists implements directory.Client.
func (d *MentorDirectory) Exists(ctx context.Context, address string) (string, bool, error) {
	u, err := d.Users.GetByAddress(ctx, address)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if !u.IsActive || u.Role != model.RoleMentor {
		return "", false, nil
	}
	return u.Username, true, nil
}

// SetRole rewrites the account role.
func (r *UserRepo) SetRole(ctx context.Context, address, role string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET role=? WHERE address=?", role, address)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
