// Package authkit provides a stateless-token authentication and
// role-based authorization engine: ES256/ES512 signed access tokens, a
// Redis-backed revocation ledger, CSRF double-submit binding, argon2id
// credential verification with transparent rehash upgrades, and a
// declarative role/permission hierarchy.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authkit is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (Grant, Result, MetricsSnapshot). Token encoding lives in
// the token package, hashing in password, revocation in ledger, and the
// role algebra in roles; audit dispatch lives under internal/ and is never
// exported directly.
//
// # What this package must NOT do
//
//   - Expose Redis clients or ledger encoding details in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Leak which authentication check failed to the caller; diagnostic
//     detail is logged server-side only.
//
// # Performance contract
//
// Authenticate is the hot path: signature verification plus exactly one
// ledger round-trip. Issue and Revoke are allowed one ledger round-trip
// per call. Password hashing is bounded by the hasher's concurrency slots
// and never runs on the caller's critical path unbounded.
package authkit
