package authkit

import (
	"context"
	"time"
)

const (
	auditEventTokenIssued       = "token_issued"
	auditEventTokenRevoked      = "token_revoked"
	auditEventAuthSuccess       = "auth_success"
	auditEventAuthFailure       = "auth_failure"
	auditEventCredentialUpgrade = "credential_upgrade"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subject string,
	sessionID string,
	err error,
	metadata map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		Subject:    subject,
		SessionID:  sessionID,
		RemoteAddr: clientIPFromContext(ctx),
		Success:    success,
		Metadata:   metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}

	e.audit.Emit(ctx, event)
}
