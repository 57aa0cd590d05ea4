package model

import "time"

// Account roles recognised by the service.  MENTEE and MENTOR are chosen at
// registration; ADMIN (the platform-admin grant) is assigned through the
// roles endpoints and additionally mirrored in the role_grants table.
const (
	RoleMentee string = "MENTEE"
	RoleMentor string = "MENTOR"
	RoleAdmin  string = "ADMIN"
)

// User represents an application account as stored in the `users` table.
// Each account owns an address: a lowercase hex identifier issued at
// registration and used everywhere funds or bookings reference a party.
// The json tags are omitted because these structs are used internally by
// the repository layer; handlers define separate response types.
//
// Fields:
//  ID            – primary key identifier of the user.
//  Address       – unique hex account address.
//  Username      – unique login name.
//  PasswordHash  – bcrypt hashed password.
//  Role          – MENTEE, MENTOR or ADMIN.
//  SigningKey    – hex Ed25519 public key for signed delegated requests
//                  (empty when the account never registered one).
//  RelaySecret   – managed-account HMAC secret for HS256-signed delegated
//                  requests (empty when unused).
//  IsActive      – whether the account is active.
//  CreatedAt     – timestamp of creation.
//  UpdatedAt     – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Address      string    // users.address
	Username     string    // users.username
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	SigningKey   string    // users.signing_key
	RelaySecret  string    // users.relay_secret
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RoleGrant records a named capability held by an address.  Grants are
// checked before privileged mutations and changed only by an admin.
//
// Fields:
//  Address   – holder of the capability.
//  Role      – capability name (currently only ADMIN is persisted; the
//              booking-manager capability is construction-time, not a row).
//  GrantedBy – admin address that issued the grant.
//  CreatedAt – timestamp of the grant.
type RoleGrant struct {
	Address   string    // role_grants.address
	Role      string    // role_grants.role
	GrantedBy string    // role_grants.granted_by
	CreatedAt time.Time // role_grants.created_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
