package authkit

import (
	"errors"
	"time"

	internalaudit "github.com/beginco/authkit/internal/audit"
	"github.com/beginco/authkit/ledger"
	"github.com/beginco/authkit/password"
	"github.com/beginco/authkit/roles"
	"github.com/beginco/authkit/token"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an Engine. A Builder is single-use: Build consumes it.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  ledger.Store

	roles []roles.Role

	auditSink AuditSink
	logger    *zap.Logger

	built bool
}

// New returns a Builder preloaded with default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration. The config is cloned;
// callers may reuse or mutate their copy afterwards.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the Redis client backing the session ledger.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore supplies a custom ledger store. Takes precedence over
// WithRedis; useful for tests and non-Redis deployments.
func (b *Builder) WithStore(store ledger.Store) *Builder {
	b.store = store
	return b
}

// WithRoles declares the role hierarchy, in descending privilege order.
func (b *Builder) WithRoles(declared []roles.Role) *Builder {
	b.roles = declared
	return b
}

// WithAuditSink sets the sink receiving audit events. Ignored unless
// Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the authentication latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and assembles the Engine. Any
// misconfiguration fails here, before the process starts serving; nothing
// is re-validated per request.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or ledger store required")
		}
		store = ledger.NewRedisStore(b.redis)
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	table, err := roles.New(b.roles)
	if err != nil {
		return nil, err
	}

	codec, err := token.NewCodec(token.Config{
		Issuer:        cfg.Issuer,
		SigningMethod: token.SigningMethod(cfg.Token.SigningMethod),
		PrivateKey:    cloneBytes(cfg.Token.PrivateKey),
		PublicKey:     cloneBytes(cfg.Token.PublicKey),
		AccessTTL:     cfg.Token.AccessTTL,
		Leeway:        cfg.Token.Leeway,
		Version:       cfg.Token.Version,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:        cfg.Password.Memory,
		Time:          cfg.Password.Time,
		Parallelism:   cfg.Password.Parallelism,
		SaltLength:    cfg.Password.SaltLength,
		KeyLength:     cfg.Password.KeyLength,
		MaxConcurrent: cfg.Password.MaxConcurrent,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config: cfg,
		codec:  codec,
		hasher: hasher,
		table:  table,
		logger: logger,
		now:    time.Now,
	}

	engine.ledger = ledger.New(store, ledger.Options{
		Prefix: cfg.Ledger.RedisPrefix,
		TTL:    cfg.Ledger.TTL,
		Logger: logger,
	})
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
