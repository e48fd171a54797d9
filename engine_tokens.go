package authkit

import (
	"context"
	"errors"
	"time"

	"github.com/beginco/authkit/token"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Issue mints a signed access token for the subject. The ledger session is
// opened before the token is signed: a token whose session entry is not yet
// written would read as revoked. Each issuance gets a fresh session id and
// CSRF nonce; concurrent sessions for one subject are independent.
func (e *Engine) Issue(ctx context.Context, req IssueRequest) (*Grant, error) {
	if req.Subject == "" {
		return nil, errors.New("authkit: subject required")
	}
	if req.Role != "" && !e.table.Known(req.Role) {
		return nil, errors.New("authkit: undeclared role " + req.Role)
	}

	sessionID, err := e.ledger.Open(ctx, req.Subject)
	if err != nil {
		e.logger.Error("session open failed",
			zap.String("subject", req.Subject),
			zap.Error(err),
		)
		return nil, ErrServerError
	}

	csrf := uuid.NewString()

	claims := &token.Claims{
		SessionID: sessionID,
		CSRF:      csrf,
		Role:      req.Role,
	}
	claims.Subject = req.Subject

	signed, err := e.codec.Mint(claims, token.MintOptions{
		Purpose: token.PurposeAccess,
		TTL:     e.config.Token.AccessTTL,
	})
	if err != nil {
		e.logger.Error("token mint failed",
			zap.String("subject", req.Subject),
			zap.Error(err),
		)
		return nil, ErrServerError
	}

	e.metricInc(MetricTokenIssued)
	e.emitAudit(ctx, auditEventTokenIssued, true, req.Subject, sessionID, nil, nil)

	return &Grant{
		Token:     signed,
		CSRF:      csrf,
		SessionID: sessionID,
	}, nil
}

// Revoke closes the session carried by the token. The token is decoded
// without signature verification: an expired token can still name a session
// that must be closed.
func (e *Engine) Revoke(ctx context.Context, raw string) error {
	claims, err := e.codec.Decode(raw)
	if err != nil {
		return ErrUnauthorized
	}
	if claims.SessionID == "" {
		return ErrUnauthorized
	}

	if err := e.ledger.Close(ctx, claims.SessionID); err != nil {
		e.logger.Error("session close failed",
			zap.String("session_id", claims.SessionID),
			zap.Error(err),
		)
		return ErrServerError
	}

	e.metricInc(MetricTokenRevoked)
	e.emitAudit(ctx, auditEventTokenRevoked, true, claims.Subject, claims.SessionID, nil, nil)

	return nil
}

// PurposeTokenOptions control minting of non-access tokens.
type PurposeTokenOptions struct {
	// TTL overrides the default lifetime when positive.
	TTL time.Duration
	// NoExpiry disables expiry entirely, for infrequently rotated tokens.
	NoExpiry bool
}

// MintPurposeToken signs a token scoped to a non-access purpose, such as
// email verification or password reset. Purpose tokens carry no session or
// CSRF binding; the audience alone prevents their use as access tokens.
func (e *Engine) MintPurposeToken(subject string, purpose token.Purpose, opts PurposeTokenOptions) (string, error) {
	if subject == "" {
		return "", errors.New("authkit: subject required")
	}

	claims := &token.Claims{}
	claims.Subject = subject

	return e.codec.Mint(claims, token.MintOptions{
		Purpose:  purpose,
		TTL:      opts.TTL,
		NoExpiry: opts.NoExpiry,
	})
}

// VerifyPurposeToken verifies a token against the given purpose. A token
// minted for any other purpose fails, even though the same key signed it.
func (e *Engine) VerifyPurposeToken(raw string, purpose token.Purpose) (*token.Claims, error) {
	claims, err := e.codec.Verify(raw, purpose)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, ErrExpiredAuthorization
		}
		return nil, ErrUnauthorized
	}
	return claims, nil
}
