package identity

import "errors"

// Lookup and precondition failures. Callers match with errors.Is; the
// registry wraps these with the operation and key.
var (
	ErrNotFound        = errors.New("identity not found")
	ErrSubjectNotFound = errors.New("subject not found")
	ErrAlreadyRevoked  = errors.New("identity already revoked")
	ErrIdentityRevoked = errors.New("identity has been revoked")
	ErrInvalidProfile  = errors.New("invalid profile")
	ErrDIDInUse        = errors.New("decentralized id already in use")
	ErrClaimNotFound   = errors.New("claim not found")
	ErrNonceReplayed   = errors.New("disclosure nonce already used")
)

// Verification error messages reported in VerifyResult.Errors.
const (
	VerifyErrNotFound  = "Identity not found"
	VerifyErrRevoked   = "Identity has been revoked"
	VerifyErrSuspended = "Identity is suspended"
)
