// Package token signs and verifies the compact bearer tokens issued by the
// engine. Tokens are scoped by issuer, purpose audience, and expiry; only
// the configured elliptic-curve algorithm is accepted during verification.
//
// # Architecture boundaries
//
// This package owns key parsing, claim defaults, and signature checks. It
// knows nothing about sessions, revocation, or HTTP; the root package
// layers those on top.
//
// # What this package must NOT do
//
//   - Accept shared-secret or "none" algorithms during verification.
//   - Perform any I/O. Sign and verify are synchronous CPU-bound calls.
//   - Mutate configuration after NewCodec returns.
package token
