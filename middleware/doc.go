// Package middleware adapts the authkit engine to net/http.
//
// # Guards
//
//   - [Guard] wraps a handler with the full authentication pipeline and a
//     role policy.
//   - [WriteGrant] emits the CSRF header at issuance time.
//
// Guard reads the Authorization and x-csrf-token headers, calls
// Engine.Authenticate, sets the x-refresh-token hint, and injects the
// verified principal into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself; all decisions are delegated to
// Engine.Authenticate.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Engine).
//   - Access the ledger store (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from the Engine.
package middleware
