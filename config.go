package authkit

import (
	"errors"
	"time"
)

// Config is the full engine configuration. Populate it once, pass it to the
// Builder, and treat it as immutable afterwards; the Builder clones it so
// later mutation of the caller's copy has no effect.
type Config struct {
	// Issuer identifies this deployment in every token, typically the
	// serving domain. Tokens carrying any other issuer are rejected before
	// signature verification.
	Issuer string

	Token    TokenConfig
	Password PasswordConfig
	Ledger   LedgerConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls signing and lifetime of issued tokens.
type TokenConfig struct {
	SigningMethod string // "es256" (default) or "es512"
	PrivateKey    []byte // PEM, or base64-wrapped PEM
	PublicKey     []byte // optional; derived from PrivateKey when empty
	AccessTTL     time.Duration
	Leeway        time.Duration
	// RefreshAfter is the token age past which authentication succeeds but
	// advises the caller to refresh.
	RefreshAfter time.Duration
	// Version marks the claim schema in every token's jti claim. Empty
	// means "1.0".
	Version string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig carries argon2id cost parameters. Raising costs here is
// how deployed hashes get upgraded: verification against an older, cheaper
// blob still succeeds but reports the hash as stale.
type PasswordConfig struct {
	Memory        uint32 // in KB
	Time          uint32
	Parallelism   uint8
	SaltLength    uint32
	KeyLength     uint32
	MaxConcurrent int // 0 means GOMAXPROCS
	// UpgradeOnVerify rewrites stale hashes through the callback passed to
	// VerifySecret.
	UpgradeOnVerify bool
}

/*
====================================
LEDGER CONFIG
====================================
*/

// LedgerConfig controls the session revocation ledger.
type LedgerConfig struct {
	RedisPrefix string
	// TTL must equal or exceed the maximum token lifetime, or a live token
	// would outlast its ledger entry and read as revoked.
	TTL time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			SigningMethod: "es256",
			AccessTTL:     24 * time.Hour,
			Leeway:        0,
			RefreshAfter:  24 * time.Hour,
			Version:       "1.0",
		},
		Password: PasswordConfig{
			Memory:          65536,
			Time:            3,
			Parallelism:     2,
			SaltLength:      16,
			KeyLength:       32,
			UpgradeOnVerify: true,
		},
		Ledger: LedgerConfig{
			RedisPrefix: "access:",
			TTL:         25 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate rejects configurations the engine must not start with.
// Misconfiguration is fatal at Build, never discovered per-request.
func (c *Config) Validate() error {
	if c.Issuer == "" {
		return errors.New("Issuer is required")
	}

	switch c.Token.SigningMethod {
	case "es256", "es512":
	default:
		return errors.New("Token.SigningMethod must be es256 or es512")
	}

	if len(c.Token.PrivateKey) == 0 {
		return errors.New("Token.PrivateKey is required")
	}
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token.AccessTTL must be positive")
	}
	if c.Token.Leeway < 0 {
		return errors.New("Token.Leeway must not be negative")
	}
	if c.Token.RefreshAfter <= 0 {
		return errors.New("Token.RefreshAfter must be positive")
	}

	if c.Ledger.TTL < c.Token.AccessTTL {
		return errors.New("Ledger.TTL must not be shorter than Token.AccessTTL")
	}

	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("Audit.BufferSize must not be negative")
	}

	return nil
}
