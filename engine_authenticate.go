package authkit

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/beginco/authkit/roles"
	"github.com/beginco/authkit/token"
	"go.uber.org/zap"
)

const bearerPrefix = "Bearer "

// Authenticate runs the full request guard: header extraction, token
// verification, CSRF double-submit check, role policy, and session
// liveness, in that order. Any failure is terminal for the request.
//
// An open policy bypasses the pipeline entirely: the request passes with an
// anonymous Result (nil Claims) so unauthenticated endpoints dispatch
// through the same machinery as guarded ones.
//
// The caller learns only three outcomes: ErrExpiredAuthorization (so
// clients can re-authenticate silently), ErrForbidden (authenticated but
// insufficient role), and ErrUnauthorized for everything else. Which check
// actually failed is logged with the caller's address, never surfaced.
func (e *Engine) Authenticate(ctx context.Context, req Request, policy roles.Policy) (*Result, error) {
	start := e.now()
	result, err := e.authenticate(ctx, req, policy)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricAuthenticateLatency, e.now().Sub(start))
	}
	return result, err
}

func (e *Engine) authenticate(ctx context.Context, req Request, policy roles.Policy) (*Result, error) {
	if policy.IsOpen() {
		return &Result{}, nil
	}

	header := req.Header(AuthorizationHeader)
	if header == "" {
		return nil, e.deny(ctx, req, "missing authorization header", nil, MetricAuthFailure, ErrUnauthorized)
	}

	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return nil, e.deny(ctx, req, "authorization header is not bearer", nil, MetricAuthFailure, ErrUnauthorized)
	}
	raw := header[len(bearerPrefix):]

	if _, err := e.codec.Decode(raw); err != nil {
		return nil, e.deny(ctx, req, "token decode failed", err, MetricAuthFailure, ErrUnauthorized)
	}

	claims, err := e.codec.Verify(raw, token.PurposeAccess)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, e.deny(ctx, req, "token expired", err, MetricAuthExpired, ErrExpiredAuthorization)
		}
		return nil, e.deny(ctx, req, "token verification failed", err, MetricAuthFailure, ErrUnauthorized)
	}

	nonce := req.Header(CSRFHeader)
	if nonce == "" || subtle.ConstantTimeCompare([]byte(nonce), []byte(claims.CSRF)) != 1 {
		return nil, e.deny(ctx, req, "csrf nonce mismatch", nil, MetricAuthCSRFMismatch, ErrUnauthorized)
	}

	refreshAdvised := false
	if claims.IssuedAt != nil {
		age := e.now().Sub(claims.IssuedAt.Time)
		refreshAdvised = age >= e.config.Token.RefreshAfter
	}

	if !policy.Allows(claims.Role) {
		e.metricInc(MetricAuthForbidden)
		e.emitAudit(ctx, auditEventAuthFailure, false, claims.Subject, claims.SessionID, ErrForbidden, map[string]string{
			"role": claims.Role,
		})
		return nil, ErrForbidden
	}

	// Liveness runs last so a revoked session cannot be probed for role
	// information. Store errors count as dead: an outage denies access, it
	// never grants it.
	if !e.ledger.IsLive(ctx, claims.SessionID, claims.Subject) {
		return nil, e.deny(ctx, req, "session revoked or absent", nil, MetricAuthRevoked, ErrUnauthorized)
	}

	e.metricInc(MetricAuthSuccess)
	if refreshAdvised {
		e.metricInc(MetricRefreshAdvised)
	}
	e.emitAudit(ctx, auditEventAuthSuccess, true, claims.Subject, claims.SessionID, nil, nil)

	return &Result{
		Claims:         claims,
		RefreshAdvised: refreshAdvised,
	}, nil
}

// deny logs the real failure reason with the caller's address, records the
// metric, emits the audit event, and returns the caller-facing error.
func (e *Engine) deny(ctx context.Context, req Request, reason string, cause error, metric MetricID, out error) error {
	fields := []zap.Field{
		zap.String("reason", reason),
		zap.String("remote_addr", req.RemoteAddr()),
	}
	if ip := clientIPFromContext(ctx); ip != "" {
		fields = append(fields, zap.String("client_ip", ip))
	}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	e.logger.Warn("authentication denied", fields...)

	e.metricInc(metric)
	e.emitAudit(ctx, auditEventAuthFailure, false, "", "", out, map[string]string{
		"reason": reason,
	})

	return out
}
