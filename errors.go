package authkit

import "errors"

var (
	// ErrUnauthorized covers every authentication failure the caller is not
	// told apart: missing or malformed header, bad signature, wrong
	// audience, CSRF mismatch, revoked session. The engine logs the real
	// reason; the caller sees one generic error.
	ErrUnauthorized = errors.New("invalid authorization")
	// ErrExpiredAuthorization is the one authentication failure surfaced
	// distinctly, so clients can re-authenticate silently instead of
	// treating it as a hard failure.
	ErrExpiredAuthorization = errors.New("expired authorization")
	// ErrForbidden means the principal authenticated but its role does not
	// satisfy the operation's policy.
	ErrForbidden = errors.New("forbidden")
	// ErrIncorrectCredential means the presented secret did not match the
	// stored hash.
	ErrIncorrectCredential = errors.New("incorrect credential")
	// ErrServerError covers unexpected internal states, e.g. an
	// unrecognized verification status from the hasher.
	ErrServerError = errors.New("server error")
)
