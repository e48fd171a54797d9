package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// revokedSentinel overwrites a session entry at revocation. Overwrite rather
// than delete: a replayed old token then reads an explicit revoked state
// instead of racing a delete against eventual consistency, and a revoked
// session stays distinguishable from one that never existed.
const revokedSentinel = "REVOKED"

const (
	defaultPrefix = "access:"
	defaultTTL    = 25 * time.Hour
)

// Ledger maps session ids to their bound subject. It is the single source of
// truth that makes an otherwise-stateless signed token revocable.
type Ledger struct {
	store  Store
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// Options configure a Ledger. TTL must equal or exceed the maximum token
// lifetime; an entry that expires before its token would look revoked.
type Options struct {
	Prefix string
	TTL    time.Duration
	Logger *zap.Logger
}

// New builds a Ledger over the given store.
func New(store Store, opts Options) *Ledger {
	if opts.Prefix == "" {
		opts.Prefix = defaultPrefix
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Ledger{
		store:  store,
		prefix: opts.Prefix,
		ttl:    opts.TTL,
		logger: opts.Logger,
	}
}

// Open generates a fresh session id and binds it to the subject. It must
// complete before the corresponding token is handed to the caller: a token
// whose session id is not yet written is indistinguishable from a revoked
// one.
func (l *Ledger) Open(ctx context.Context, subject string) (string, error) {
	if subject == "" {
		return "", errors.New("ledger: subject required")
	}

	sessionID := uuid.NewString()
	if err := l.store.Set(ctx, l.key(sessionID), subject, l.ttl); err != nil {
		return "", err
	}
	return sessionID, nil
}

// Close marks the session revoked by overwriting its entry with the
// sentinel. The entry keeps its TTL and ages out naturally.
func (l *Ledger) Close(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return errors.New("ledger: session id required")
	}
	return l.store.Set(ctx, l.key(sessionID), revokedSentinel, l.ttl)
}

// IsLive reports whether the session exists and is still bound to subject.
// Revoked, absent, or foreign-subject entries are all dead. A failed store
// read is treated as dead too: a revocation-store outage denies access, it
// never grants it.
func (l *Ledger) IsLive(ctx context.Context, sessionID, subject string) bool {
	if sessionID == "" || subject == "" {
		return false
	}

	value, err := l.store.Get(ctx, l.key(sessionID))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			l.logger.Warn("ledger read failed, treating session as dead",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
		return false
	}

	return value != revokedSentinel && value == subject
}

func (l *Ledger) key(sessionID string) string {
	return l.prefix + sessionID
}
