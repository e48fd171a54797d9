package authkit

import (
	"context"

	"github.com/beginco/authkit/password"
	"go.uber.org/zap"
)

// UpgradeFunc persists a freshly computed hash blob when verification finds
// the stored one stale. It is invoked at most once per VerifySecret call.
type UpgradeFunc func(ctx context.Context, newBlob string) error

// HashSecret computes an argon2id blob for the secret. Hashing is bounded
// by the hasher's concurrency slots, so a burst of registrations cannot
// starve request handling.
func (e *Engine) HashSecret(ctx context.Context, secret string) (string, error) {
	blob, err := e.hasher.Hash(ctx, secret)
	if err != nil {
		e.logger.Error("secret hashing failed", zap.Error(err))
		return "", ErrServerError
	}
	return blob, nil
}

// VerifySecret checks a secret against its stored blob. When the blob's
// cost parameters are older than the current configuration and an upgrade
// callback is supplied, a new blob is computed and the callback invoked
// exactly once to persist it. An upgrade failure is logged and swallowed;
// the verification itself still succeeds.
func (e *Engine) VerifySecret(ctx context.Context, encodedBlob, secret string, upgrade UpgradeFunc) error {
	status, err := e.hasher.Verify(ctx, encodedBlob, secret)
	if err != nil {
		e.logger.Error("secret verification failed", zap.Error(err))
		return ErrServerError
	}

	switch status {
	case password.StatusValid:
		return nil

	case password.StatusValidNeedsRehash:
		if e.config.Password.UpgradeOnVerify && upgrade != nil {
			e.upgradeSecret(ctx, secret, upgrade)
		}
		return nil

	case password.StatusInvalid:
		e.metricInc(MetricCredentialMismatch)
		return ErrIncorrectCredential

	default:
		// The hasher reports exactly three statuses; anything else means
		// the scheme changed underneath us.
		e.logger.Error("unrecognized verification status", zap.Int("status", int(status)))
		return ErrServerError
	}
}

func (e *Engine) upgradeSecret(ctx context.Context, secret string, upgrade UpgradeFunc) {
	newBlob, err := e.hasher.Hash(ctx, secret)
	if err != nil {
		e.logger.Warn("rehash for upgrade failed", zap.Error(err))
		return
	}
	if err := upgrade(ctx, newBlob); err != nil {
		e.logger.Warn("hash upgrade persistence failed", zap.Error(err))
		return
	}

	e.metricInc(MetricCredentialUpgrade)
	e.emitAudit(ctx, auditEventCredentialUpgrade, true, "", "", nil, nil)
}
