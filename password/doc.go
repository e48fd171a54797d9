// Package password hashes and verifies credentials with argon2id, encoded
// as PHC strings. Verification distinguishes a current hash from one whose
// parameters have since been strengthened, so the engine can transparently
// rehash on successful login.
//
// Hashing is memory-hard and CPU-heavy. A bounded slot set caps concurrent
// derivations; callers waiting on a slot are suspended and respect context
// cancellation, so request handling is never starved by a burst of logins.
package password
