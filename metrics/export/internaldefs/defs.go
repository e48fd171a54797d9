package internaldefs

import (
	authkit "github.com/beginco/authkit"
)

// CounterDef binds one engine counter to its stable exported name.
type CounterDef struct {
	ID   authkit.MetricID
	Name string
	Help string
}

// HistogramDef binds one engine histogram to its stable exported name.
type HistogramDef struct {
	ID   authkit.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter. Both exporters render from this
// table so names never diverge.
var CounterDefs = []CounterDef{
	{ID: authkit.MetricTokenIssued, Name: "authkit_token_issued_total", Help: "Issued access tokens."},
	{ID: authkit.MetricTokenRevoked, Name: "authkit_token_revoked_total", Help: "Revoked sessions."},
	{ID: authkit.MetricAuthSuccess, Name: "authkit_auth_success_total", Help: "Requests that passed the full guard."},
	{ID: authkit.MetricAuthFailure, Name: "authkit_auth_failure_total", Help: "Generic authentication denials."},
	{ID: authkit.MetricAuthExpired, Name: "authkit_auth_expired_total", Help: "Denials for expired tokens."},
	{ID: authkit.MetricAuthCSRFMismatch, Name: "authkit_auth_csrf_mismatch_total", Help: "Denials for missing or wrong CSRF nonce."},
	{ID: authkit.MetricAuthRevoked, Name: "authkit_auth_revoked_total", Help: "Denials for dead ledger sessions."},
	{ID: authkit.MetricAuthForbidden, Name: "authkit_auth_forbidden_total", Help: "Role policy denials."},
	{ID: authkit.MetricRefreshAdvised, Name: "authkit_refresh_advised_total", Help: "Successes that carried the refresh hint."},
	{ID: authkit.MetricCredentialUpgrade, Name: "authkit_credential_upgrade_total", Help: "Stale hashes rewritten on verify."},
	{ID: authkit.MetricCredentialMismatch, Name: "authkit_credential_mismatch_total", Help: "Wrong-secret verifications."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: authkit.MetricAuthenticateLatency, Name: "authkit_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramBounds are the upper bounds of the engine's fixed buckets, in
// seconds, as Prometheus renders them.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix mirrors HistogramBounds with characters legal in
// OTel instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies a snapshot slice into the fixed bucket array,
// tolerating short or missing slices.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form
// Prometheus histograms use.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
