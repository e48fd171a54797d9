package authkit

import (
	"time"

	internalaudit "github.com/beginco/authkit/internal/audit"
	"github.com/beginco/authkit/ledger"
	"github.com/beginco/authkit/password"
	"github.com/beginco/authkit/roles"
	"github.com/beginco/authkit/token"
	"go.uber.org/zap"
)

// Engine is the assembled authentication and authorization core. Construct
// it through the Builder; all fields are set at Build and never mutated, so
// every method is safe for concurrent use.
type Engine struct {
	config  Config
	codec   *token.Codec
	hasher  *password.Hasher
	ledger  *ledger.Ledger
	table   *roles.Table
	audit   *internalaudit.Dispatcher
	metrics *Metrics
	logger  *zap.Logger

	// now is swapped in tests to control token age.
	now func() time.Time
}

// Roles exposes the compiled role table for building access policies.
func (e *Engine) Roles() *roles.Table {
	return e.table
}

// Close stops the audit dispatcher after draining buffered events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine's counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
