package token

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose partitions tokens by audience. A token minted for one purpose is
// cryptographically rejected when verified for another, even though the same
// key pair signs all of them.
type Purpose string

const (
	// PurposeAccess scopes the bearer tokens issued at login.
	PurposeAccess Purpose = "access"
	// PurposeVerifyEmail scopes email-verification tokens.
	PurposeVerifyEmail Purpose = "verifyEmail"
	// PurposeResetPassword scopes password-reset tokens.
	PurposeResetPassword Purpose = "resetPassword"
)

// Audience builds the audience string for a purpose: "{issuer}#{purpose}".
func Audience(issuer string, purpose Purpose) string {
	return issuer + "#" + string(purpose)
}

// SigningMethod selects the elliptic-curve signature algorithm. Only
// asymmetric methods are supported; shared-secret and "none" algorithms are
// rejected during verification to prevent downgrade forgery.
type SigningMethod string

const (
	// MethodES256 signs with ECDSA over P-256 and SHA-256.
	MethodES256 SigningMethod = "es256"
	// MethodES512 signs with ECDSA over P-521 and SHA-512.
	MethodES512 SigningMethod = "es512"
)

var (
	// ErrMalformed is returned by Decode when the token structure cannot be
	// parsed or the issuer does not match the configured issuer.
	ErrMalformed = errors.New("malformed token")
	// ErrExpired is returned by Verify for an otherwise valid token past its
	// expiry. Callers distinguish it so clients can silently re-authenticate.
	ErrExpired = errors.New("token expired")
	// ErrInvalid covers every other verification failure: bad signature,
	// wrong audience, disallowed algorithm.
	ErrInvalid = errors.New("invalid token")
)

// Claims is the payload of an issued token. SessionID and CSRF are generated
// per issuance and never reused.
type Claims struct {
	SessionID string `json:"_id,omitempty"`
	CSRF      string `json:"csrf,omitempty"`
	Role      string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Config holds the immutable signing configuration, fixed at process start.
type Config struct {
	// Issuer is derived from the deployment domain and stamped into every
	// token; Decode rejects tokens carrying any other issuer.
	Issuer        string
	SigningMethod SigningMethod

	// PrivateKey and PublicKey are PEM-encoded EC keys. A base64-wrapped PEM
	// (the form the deployment environment stores) is also accepted.
	// PublicKey may be omitted, in which case it is derived from PrivateKey.
	PrivateKey []byte
	PublicKey  []byte

	// AccessTTL is the default token lifetime. Zero means 24h.
	AccessTTL time.Duration
	Leeway    time.Duration

	// Version is stamped into every token's jti claim, marking the claim
	// schema a token was minted under. Empty means "1.0".
	Version string
}

// Codec signs and verifies tokens with a single key pair, loaded once.
type Codec struct {
	config    Config
	method    jwt.SigningMethod
	signKey   *ecdsa.PrivateKey
	verifyKey *ecdsa.PublicKey
}

// NewCodec parses the key pair and freezes the configuration. A missing or
// unparseable private key is an error; callers treat it as fatal at startup.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("token: issuer required")
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = 24 * time.Hour
	}
	if cfg.AccessTTL < 0 {
		return nil, errors.New("token: invalid access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("token: invalid leeway")
	}
	if cfg.Version == "" {
		cfg.Version = "1.0"
	}

	var method jwt.SigningMethod
	switch cfg.SigningMethod {
	case "", MethodES256:
		cfg.SigningMethod = MethodES256
		method = jwt.SigningMethodES256
	case MethodES512:
		method = jwt.SigningMethodES512
	default:
		return nil, fmt.Errorf("token: unsupported signing method %q", cfg.SigningMethod)
	}

	if len(cfg.PrivateKey) == 0 {
		return nil, errors.New("token: private signing key required")
	}
	signKey, err := parsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	verifyKey := &signKey.PublicKey
	if len(cfg.PublicKey) > 0 {
		verifyKey, err = parsePublicKey(cfg.PublicKey)
		if err != nil {
			return nil, err
		}
	}

	return &Codec{
		config:    cfg,
		method:    method,
		signKey:   signKey,
		verifyKey: verifyKey,
	}, nil
}

// Issuer returns the configured issuer string.
func (c *Codec) Issuer() string {
	return c.config.Issuer
}

// MintOptions adjust a single Mint call. The zero value mints an access
// token with the default lifetime.
type MintOptions struct {
	// Purpose selects the audience. Empty means PurposeAccess.
	Purpose Purpose
	// TTL overrides the default lifetime when non-zero. A negative TTL mints
	// an already-expired token; tests use this.
	TTL time.Duration
	// NoExpiry disables expiry entirely. Used for infrequently rotated
	// purpose tokens.
	NoExpiry bool
}

// Mint merges the caller's claims with issuer, audience, and temporal
// defaults and returns the compact signed token. The caller's Claims value
// is not mutated.
func (c *Codec) Mint(claims *Claims, opts MintOptions) (string, error) {
	purpose := opts.Purpose
	if purpose == "" {
		purpose = PurposeAccess
	}

	cl := Claims{}
	if claims != nil {
		cl = *claims
	}

	now := time.Now()
	cl.Issuer = c.config.Issuer
	cl.Audience = jwt.ClaimStrings{Audience(c.config.Issuer, purpose)}
	cl.ID = c.config.Version
	cl.IssuedAt = jwt.NewNumericDate(now)
	switch {
	case opts.NoExpiry:
		cl.ExpiresAt = nil
	case opts.TTL != 0:
		cl.ExpiresAt = jwt.NewNumericDate(now.Add(opts.TTL))
	default:
		cl.ExpiresAt = jwt.NewNumericDate(now.Add(c.config.AccessTTL))
	}

	return jwt.NewWithClaims(c.method, &cl).SignedString(c.signKey)
}

// Decode parses a token without verifying its signature. It fails with
// ErrMalformed when the structure cannot be parsed or the issuer is not
// ours. Revocation uses this: a token being thrown away does not need a
// signature check.
func (c *Codec) Decode(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if claims.Issuer != c.config.Issuer {
		return nil, fmt.Errorf("%w: unknown issuer %q", ErrMalformed, claims.Issuer)
	}
	return claims, nil
}

// Verify checks the signature against the public key, restricts the
// algorithm to the single configured EC method, and enforces issuer and the
// audience for the given purpose. Expiry surfaces as ErrExpired; every other
// failure collapses to ErrInvalid.
func (c *Codec) Verify(raw string, purpose Purpose) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithIssuer(c.config.Issuer),
		jwt.WithAudience(Audience(c.config.Issuer, purpose)),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}

	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return c.verifyKey, nil
	}, options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}
	return claims, nil
}

func parsePrivateKey(key []byte) (*ecdsa.PrivateKey, error) {
	parsed, err := jwt.ParseECPrivateKeyFromPEM(unwrapPEM(key))
	if err != nil {
		return nil, errors.New("token: invalid EC private key")
	}
	return parsed, nil
}

func parsePublicKey(key []byte) (*ecdsa.PublicKey, error) {
	parsed, err := jwt.ParseECPublicKeyFromPEM(unwrapPEM(key))
	if err != nil {
		return nil, errors.New("token: invalid EC public key")
	}
	return parsed, nil
}

// unwrapPEM accepts either raw PEM or base64-wrapped PEM, the form keys are
// stored in environment properties.
func unwrapPEM(key []byte) []byte {
	trimmed := bytes.TrimSpace(key)
	if bytes.HasPrefix(trimmed, []byte("-----")) {
		return trimmed
	}
	decoded, err := base64.StdEncoding.DecodeString(string(trimmed))
	if err != nil {
		return trimmed
	}
	return decoded
}
