package roles

// Policy is the access requirement attached to a guarded operation: either
// open (authentication without a role check) or a role Predicate.
//
// The zero Policy requires a predicate that is never set and therefore
// denies everything except root and admin; use Open or Require.
type Policy struct {
	open      bool
	predicate Predicate
}

// Open returns a policy for unauthenticated endpoints such as login or
// public email verification. The guard short-circuits on it: no token, CSRF
// nonce, or session is required, and the request flows through with an
// anonymous principal. To require a valid token without restricting the
// role, use Require with an empty Exclude.
func Open() Policy {
	return Policy{open: true}
}

// Require returns a policy gated on the given predicate.
func Require(p Predicate) Policy {
	return Policy{predicate: p}
}

// IsOpen reports whether the policy skips the role check entirely.
func (p Policy) IsOpen() bool {
	return p.open
}

// Allows evaluates the policy against a role. Open policies allow every
// role; root and admin pass even a zero policy.
func (p Policy) Allows(role string) bool {
	if p.open {
		return true
	}
	if p.predicate == nil {
		return IsAdmin(role)
	}
	return p.predicate(role)
}
