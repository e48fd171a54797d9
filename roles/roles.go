package roles

import (
	"fmt"
	"strings"
)

const (
	// Root is the highest-privilege built-in role.
	Root = "root"
	// Admin is the second-highest built-in role.
	Admin = "admin"

	// reservedPrefix marks the helper namespace; declared role names must
	// not use it.
	reservedPrefix = "$"
)

// Predicate reports whether a role value satisfies an access requirement.
type Predicate func(role string) bool

// IsRoot reports whether role is the root role.
func IsRoot(role string) bool {
	return role == Root
}

// IsAdmin reports whether role is root or admin.
func IsAdmin(role string) bool {
	return IsRoot(role) || role == Admin
}

// Role declares one role and its permission names. Declaration order fixes
// the hierarchy: earlier roles outrank later ones, and every declared role
// ranks below the built-in root and admin.
type Role struct {
	Name        string
	Permissions []string
}

// Table is the validated role/permission mapping, built once at startup and
// safe for unsynchronized concurrent reads.
type Table struct {
	rank        map[string]int
	permissions map[string]map[string]bool
}

// New validates the declared roles and precomputes ranks and permission
// sets. Malformed declarations are rejected here, at load time, never
// per-request.
func New(declared []Role) (*Table, error) {
	t := &Table{
		rank:        map[string]int{Root: 0, Admin: 1},
		permissions: make(map[string]map[string]bool, len(declared)),
	}

	for i, role := range declared {
		if role.Name == "" {
			return nil, fmt.Errorf("roles: role %d has an empty name", i)
		}
		if strings.HasPrefix(role.Name, reservedPrefix) {
			return nil, fmt.Errorf("roles: %q uses the reserved %q prefix", role.Name, reservedPrefix)
		}
		if IsAdmin(role.Name) {
			return nil, fmt.Errorf("roles: %q is built in and cannot be redeclared", role.Name)
		}
		if _, dup := t.rank[role.Name]; dup {
			return nil, fmt.Errorf("roles: %q declared twice", role.Name)
		}

		t.rank[role.Name] = i + 2

		set := make(map[string]bool, len(role.Permissions))
		for _, permission := range role.Permissions {
			set[permission] = true
		}
		t.permissions[role.Name] = set
	}

	return t, nil
}

// superuser wraps every constructed predicate so root and admin always
// pass. Centralizing the bypass here means a new predicate constructor
// cannot forget it.
func superuser(p Predicate) Predicate {
	return func(role string) bool {
		return IsAdmin(role) || p(role)
	}
}

// Only allows exactly the named roles (plus root/admin).
func (t *Table) Only(names ...string) Predicate {
	allowed := make(map[string]bool, len(names))
	for _, name := range names {
		allowed[name] = true
	}
	return superuser(func(role string) bool {
		return allowed[role]
	})
}

// Exclude allows every role except the named ones (root/admin are never
// excluded).
func (t *Table) Exclude(names ...string) Predicate {
	denied := make(map[string]bool, len(names))
	for _, name := range names {
		denied[name] = true
	}
	return superuser(func(role string) bool {
		return !denied[role]
	})
}

// Permission allows roles whose declared permission list contains name
// (plus root/admin, which hold every permission).
func (t *Table) Permission(name string) Predicate {
	return superuser(func(role string) bool {
		return t.permissions[role][name]
	})
}

// AtLeast allows roles ranked at or above the named role. Lower rank means
// more privilege; an unknown target or unknown role never passes (except
// root/admin).
func (t *Table) AtLeast(name string) Predicate {
	target, known := t.rank[name]
	return superuser(func(role string) bool {
		if !known {
			return false
		}
		r, ok := t.rank[role]
		return ok && r <= target
	})
}

// HasPermission is the raw table lookup, without the superuser bypass.
func (t *Table) HasPermission(role, permission string) bool {
	return t.permissions[role][permission]
}

// Rank returns the hierarchy position of a role; 0 is root.
func (t *Table) Rank(role string) (int, bool) {
	rank, ok := t.rank[role]
	return rank, ok
}

// Known reports whether role is built in or declared.
func (t *Table) Known(role string) bool {
	_, ok := t.rank[role]
	return ok
}
