package relay

import "errors"

// Sentinel errors returned by the relay, in the order the checks run: a
// request that fails an earlier check is never inspected further.
var (
	ErrExpired       = errors.New("relay: request deadline has passed")
	ErrUnknownSigner = errors.New("relay: signer is not registered")
	ErrBadNonce      = errors.New("relay: nonce does not match the signer's next nonce")
	ErrBadSignature  = errors.New("relay: signature verification failed")
	ErrWrongTarget   = errors.New("relay: request targets a different relay")
	ErrReplayed      = errors.New("relay: nonce was consumed concurrently")
	ErrUnknownKind   = errors.New("relay: unsupported payload kind")
	ErrBadPayload    = errors.New("relay: payload is missing required fields")
	ErrNoCredentials = errors.New("relay: signer has no credentials for the signature scheme")
)
