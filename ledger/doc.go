// Package ledger tracks which session ids are live. Each issued token
// carries a session id; the ledger maps it to the bound subject with a TTL
// at least as long as the token's lifetime. Revocation overwrites the entry
// with a sentinel, so a structurally valid token dies the moment its session
// is closed.
//
// The store contract is three calls (get, set-with-TTL, delete), satisfied
// here by Redis and in tests by miniredis. Store failures during liveness
// checks fail closed.
package ledger
