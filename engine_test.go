package authkit

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/beginco/authkit/password"
	"github.com/beginco/authkit/roles"
	"github.com/beginco/authkit/token"
	"github.com/redis/go-redis/v9"
)

func testKeyPEM(t *testing.T) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
}

func testConfig(t *testing.T) Config {
	t.Helper()

	cfg := defaultConfig()
	cfg.Issuer = "auth.example.com"
	cfg.Token.PrivateKey = testKeyPEM(t)
	return cfg
}

func testEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithRoles([]roles.Role{
			{Name: "editor", Permissions: []string{"posts.write"}},
			{Name: "viewer", Permissions: []string{"posts.read"}},
		}).
		Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine
}

type fakeRequest struct {
	headers map[string]string
	addr    string
}

func (f fakeRequest) Header(name string) string {
	return f.headers[name]
}

func (f fakeRequest) RemoteAddr() string {
	if f.addr == "" {
		return "203.0.113.9:4400"
	}
	return f.addr
}

func grantRequest(grant *Grant) fakeRequest {
	return fakeRequest{headers: map[string]string{
		AuthorizationHeader: "Bearer " + grant.Token,
		CSRFHeader:          grant.CSRF,
	}}
}

// anyRole requires a valid token but accepts every declared role.
func anyRole(engine *Engine) roles.Policy {
	return roles.Require(engine.Roles().Exclude())
}

func TestIssueAuthenticateRevoke(t *testing.T) {
	engine := testEngine(t, testConfig(t))
	ctx := context.Background()

	grant, err := engine.Issue(ctx, IssueRequest{Subject: "u1", Role: "editor"})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if grant.Token == "" || grant.CSRF == "" || grant.SessionID == "" {
		t.Fatalf("incomplete grant: %+v", grant)
	}

	policy := roles.Require(engine.Roles().AtLeast("editor"))

	res, err := engine.Authenticate(ctx, grantRequest(grant), policy)
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if res.Claims.Subject != "u1" || res.Claims.Role != "editor" {
		t.Fatalf("unexpected claims: sub=%q role=%q", res.Claims.Subject, res.Claims.Role)
	}
	if res.Claims.SessionID != grant.SessionID {
		t.Fatal("result must carry the issued session id")
	}
	if res.RefreshAdvised {
		t.Fatal("fresh token must not advise refresh")
	}

	if err := engine.Revoke(ctx, grant.Token); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}

	// Same token, same CSRF, still signed correctly, but the session is dead.
	if _, err := engine.Authenticate(ctx, grantRequest(grant), policy); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("after revoke Authenticate = %v, want ErrUnauthorized", err)
	}
}

func TestAuthenticateRejectsBadHeaders(t *testing.T) {
	engine := testEngine(t, testConfig(t))
	ctx := context.Background()

	grant, err := engine.Issue(ctx, IssueRequest{Subject: "u1", Role: "viewer"})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	policy := anyRole(engine)

	cases := []struct {
		name    string
		headers map[string]string
	}{
		{"missing authorization", map[string]string{CSRFHeader: grant.CSRF}},
		{"not bearer", map[string]string{AuthorizationHeader: "Basic dXNlcg==", CSRFHeader: grant.CSRF}},
		{"garbage token", map[string]string{AuthorizationHeader: "Bearer not.a.token", CSRFHeader: grant.CSRF}},
		{"missing csrf", map[string]string{AuthorizationHeader: "Bearer " + grant.Token}},
		{"wrong csrf", map[string]string{AuthorizationHeader: "Bearer " + grant.Token, CSRFHeader: "stolen"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Authenticate(ctx, fakeRequest{headers: tc.headers}, policy)
			if !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("Authenticate = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestAuthenticateBearerPrefixIsCaseInsensitive(t *testing.T) {
	engine := testEngine(t, testConfig(t))
	ctx := context.Background()

	grant, err := engine.Issue(ctx, IssueRequest{Subject: "u1", Role: "viewer"})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	req := fakeRequest{headers: map[string]string{
		AuthorizationHeader: "bearer " + grant.Token,
		CSRFHeader:          grant.CSRF,
	}}
	if _, err := engine.Authenticate(ctx, req, anyRole(engine)); err != nil {
		t.Fatalf("lowercase bearer prefix rejected: %v", err)
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.Token.AccessTTL = time.Millisecond
	engine := testEngine(t, cfg)
	ctx := context.Background()

	grant, err := engine.Issue(ctx, IssueRequest{Subject: "u1", Role: "viewer"})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	_, err = engine.Authenticate(ctx, grantRequest(grant), anyRole(engine))
	if !errors.Is(err, ErrExpiredAuthorization) {
		t.Fatalf("Authenticate = %v, want ErrExpiredAuthorization", err)
	}
}

func TestAuthenticateRefreshHint(t *testing.T) {
	cfg := testConfig(t)
	engine := testEngine(t, cfg)
	ctx := context.Background()

	grant, err := engine.Issue(ctx, IssueRequest{Subject: "u1", Role: "viewer"})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	// Age the token past RefreshAfter without expiring it: the engine
	// clock moves, the verifier's does not.
	engine.now = func() time.Time { return time.Now().Add(cfg.Token.RefreshAfter + time.Minute) }

	res, err := engine.Authenticate(ctx, grantRequest(grant), anyRole(engine))
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if !res.RefreshAdvised {
		t.Fatal("old token must advise refresh")
	}
}

func TestAuthenticateForbidden(t *testing.T) {
	engine := testEngine(t, testConfig(t))
	ctx := context.Background()

	grant, err := engine.Issue(ctx, IssueRequest{Subject: "u1", Role: "viewer"})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	policy := roles.Require(engine.Roles().Only("editor"))
	if _, err := engine.Authenticate(ctx, grantRequest(grant), policy); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Authenticate = %v, want ErrForbidden", err)
	}
}

func TestAuthenticateOpenPolicyAdmitsAnonymous(t *testing.T) {
	engine := testEngine(t, testConfig(t))
	ctx := context.Background()

	// A login-style endpoint: no Authorization header, no CSRF nonce.
	res, err := engine.Authenticate(ctx, fakeRequest{headers: map[string]string{}}, roles.Open())
	if err != nil {
		t.Fatalf("Authenticate with open policy = %v, want nil", err)
	}
	if res.Claims != nil {
		t.Fatalf("anonymous result must carry nil claims, got %+v", res.Claims)
	}
	if res.RefreshAdvised {
		t.Fatal("anonymous result must not advise refresh")
	}

	// A garbage token is irrelevant under an open policy; the request still
	// passes anonymously.
	junk := fakeRequest{headers: map[string]string{AuthorizationHeader: "Bearer not.a.token"}}
	if _, err := engine.Authenticate(ctx, junk, roles.Open()); err != nil {
		t.Fatalf("open policy must ignore credentials entirely: %v", err)
	}
}

func TestRevocationIsPerSession(t *testing.T) {
	engine := testEngine(t, testConfig(t))
	ctx := context.Background()

	a, err := engine.Issue(ctx, IssueRequest{Subject: "u1", Role: "viewer"})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	b, err := engine.Issue(ctx, IssueRequest{Subject: "u1", Role: "viewer"})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if a.SessionID == b.SessionID {
		t.Fatal("concurrent grants must get distinct sessions")
	}

	if err := engine.Revoke(ctx, a.Token); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}

	if _, err := engine.Authenticate(ctx, grantRequest(a), anyRole(engine)); !errors.Is(err, ErrUnauthorized) {
		t.Fatal("revoked session must be rejected")
	}
	if _, err := engine.Authenticate(ctx, grantRequest(b), anyRole(engine)); err != nil {
		t.Fatalf("sibling session must survive revocation: %v", err)
	}
}

func TestIssueRejectsUndeclaredRole(t *testing.T) {
	engine := testEngine(t, testConfig(t))

	if _, err := engine.Issue(context.Background(), IssueRequest{Subject: "u1", Role: "ghost"}); err == nil {
		t.Fatal("expected error for undeclared role")
	}
}

func TestPurposeTokens(t *testing.T) {
	engine := testEngine(t, testConfig(t))

	raw, err := engine.MintPurposeToken("u1", token.PurposeVerifyEmail, PurposeTokenOptions{})
	if err != nil {
		t.Fatalf("MintPurposeToken error: %v", err)
	}

	claims, err := engine.VerifyPurposeToken(raw, token.PurposeVerifyEmail)
	if err != nil {
		t.Fatalf("VerifyPurposeToken error: %v", err)
	}
	if claims.Subject != "u1" {
		t.Fatalf("subject = %q, want u1", claims.Subject)
	}

	// A purpose token is never an access token, and vice versa.
	if _, err := engine.VerifyPurposeToken(raw, token.PurposeAccess); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("cross-purpose verify = %v, want ErrUnauthorized", err)
	}
}

func TestVerifySecretUpgradesStaleHash(t *testing.T) {
	engine := testEngine(t, testConfig(t))
	ctx := context.Background()

	// Hash with weaker costs than the engine's current configuration.
	weak, err := password.NewHasher(password.Config{
		Memory:      32768,
		Time:        2,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}
	staleBlob, err := weak.Hash(ctx, "hunter2")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	var upgraded []string
	err = engine.VerifySecret(ctx, staleBlob, "hunter2", func(_ context.Context, newBlob string) error {
		upgraded = append(upgraded, newBlob)
		return nil
	})
	if err != nil {
		t.Fatalf("VerifySecret error: %v", err)
	}
	if len(upgraded) != 1 {
		t.Fatalf("upgrade callback invoked %d times, want 1", len(upgraded))
	}

	// The new blob verifies cleanly, with no further upgrade.
	err = engine.VerifySecret(ctx, upgraded[0], "hunter2", func(context.Context, string) error {
		t.Fatal("fresh blob must not trigger another upgrade")
		return nil
	})
	if err != nil {
		t.Fatalf("VerifySecret on upgraded blob: %v", err)
	}
}

func TestVerifySecretSwallowsUpgradeFailure(t *testing.T) {
	engine := testEngine(t, testConfig(t))
	ctx := context.Background()

	weak, err := password.NewHasher(password.Config{
		Memory:      32768,
		Time:        2,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}
	staleBlob, err := weak.Hash(ctx, "hunter2")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	err = engine.VerifySecret(ctx, staleBlob, "hunter2", func(context.Context, string) error {
		return errors.New("database down")
	})
	if err != nil {
		t.Fatalf("verification must succeed despite upgrade failure, got %v", err)
	}
}

func TestVerifySecretWrongSecret(t *testing.T) {
	engine := testEngine(t, testConfig(t))
	ctx := context.Background()

	blob, err := engine.HashSecret(ctx, "hunter2")
	if err != nil {
		t.Fatalf("HashSecret error: %v", err)
	}

	if err := engine.VerifySecret(ctx, blob, "wrong", nil); !errors.Is(err, ErrIncorrectCredential) {
		t.Fatalf("VerifySecret = %v, want ErrIncorrectCredential", err)
	}
}

func TestMetricsCountOutcomes(t *testing.T) {
	engine := testEngine(t, testConfig(t))
	ctx := context.Background()

	grant, err := engine.Issue(ctx, IssueRequest{Subject: "u1", Role: "viewer"})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := engine.Authenticate(ctx, grantRequest(grant), anyRole(engine)); err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	_, _ = engine.Authenticate(ctx, fakeRequest{headers: map[string]string{}}, anyRole(engine))

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricTokenIssued] != 1 {
		t.Fatalf("issued = %d, want 1", snap.Counters[MetricTokenIssued])
	}
	if snap.Counters[MetricAuthSuccess] != 1 {
		t.Fatalf("success = %d, want 1", snap.Counters[MetricAuthSuccess])
	}
	if snap.Counters[MetricAuthFailure] != 1 {
		t.Fatalf("failure = %d, want 1", snap.Counters[MetricAuthFailure])
	}
}

func TestAuditEventsEmitted(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sink := NewChannelSink(16)
	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithRoles([]roles.Role{{Name: "viewer"}}).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	grant, err := engine.Issue(context.Background(), IssueRequest{Subject: "u1", Role: "viewer"})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	engine.Close() // drains the dispatcher

	select {
	case ev := <-sink.Events():
		if ev.EventType != "token_issued" || ev.Subject != "u1" || ev.SessionID != grant.SessionID {
			t.Fatalf("unexpected audit event: %+v", ev)
		}
	default:
		t.Fatal("expected a token_issued audit event")
	}
}
