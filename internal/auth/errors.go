// ABOUTME: Error taxonomy for the authentication and authorization core
// ABOUTME: All errors are terminal; callers classify them, never retry them

package auth

import (
	"errors"
	"fmt"
)

// Authentication and authorization errors.
//
// ErrInvalidCredentials deliberately covers both "account not found" and
// "wrong password/unknown passkey" so responses never leak whether an
// account exists. ErrAccountDisabled is distinct because it is only
// surfaced after at least one factor has been proven.
var (
	ErrUnauthenticated      = errors.New("authentication required")
	ErrForbidden            = errors.New("insufficient permissions")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountDisabled      = errors.New("account is disabled")
	ErrChallengeExpired     = errors.New("challenge expired")
	ErrInvalidOrExpiredLink = errors.New("invalid or expired login link")
	ErrRateLimited          = errors.New("too many requests")
	ErrInvalidSession       = errors.New("invalid session")
	ErrVerificationFailed   = errors.New("verification failed")
)

// ErrExpiredLink marks a login link that existed but is spent or past its
// expiry, as opposed to a token that was never issued. It wraps
// ErrInvalidOrExpiredLink so existing errors.Is checks keep matching.
var ErrExpiredLink = fmt.Errorf("%w: link expired", ErrInvalidOrExpiredLink)
