package authkit

import (
	"io"

	internalaudit "github.com/beginco/authkit/internal/audit"
	"github.com/beginco/authkit/token"
)

// Header names the engine reads and the middleware writes. Matching is
// case-insensitive per HTTP semantics; these are the canonical spellings.
const (
	// AuthorizationHeader carries the bearer token.
	AuthorizationHeader = "Authorization"
	// CSRFHeader carries the double-submit nonce that must echo the csrf
	// claim inside the token.
	CSRFHeader = "x-csrf-token"
	// RefreshHeader is the response hint set when the presented token is
	// old enough that the caller should refresh it.
	RefreshHeader = "x-refresh-token"
)

// Request is the minimal read surface the engine needs from an incoming
// request. net/http requests satisfy it through the middleware adapter; any
// other transport can implement it directly.
type Request interface {
	// Header returns the value of the named header, or "" when absent.
	Header(name string) string
	// RemoteAddr returns the caller's network address, for logging and
	// audit only.
	RemoteAddr() string
}

// IssueRequest describes the principal a new token is minted for.
type IssueRequest struct {
	// Subject is the opaque external identity id; it becomes the token's
	// sub claim and the ledger binding.
	Subject string
	// Role is carried as a token claim and evaluated by role policies on
	// every authenticated request.
	Role string
}

// Grant is the product of issuance: the signed token, the CSRF nonce the
// client must echo on every request, and the ledger session id (useful for
// audit correlation; it is also inside the token).
type Grant struct {
	Token     string
	CSRF      string
	SessionID string
}

// Result is returned by Authenticate on success.
type Result struct {
	// Claims are the verified token claims, including subject, role, and
	// session id. Nil when an open policy admitted the request anonymously.
	Claims *token.Claims
	// RefreshAdvised is set when the token is old enough that the caller
	// should mint a fresh one. The request itself succeeded.
	RefreshAdvised bool
}

// AuditEvent is the structured record handed to audit sinks.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the engine's dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink drops audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink buffers audit events on a channel for the host to drain.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink returns a ChannelSink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing one JSON object per line.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
