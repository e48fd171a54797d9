package password

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func currentConfig() Config {
	return Config{
		Memory:      65536,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestHashAndVerify(t *testing.T) {
	hasher, err := NewHasher(currentConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	encoded, err := hasher.Hash(context.Background(), "correct-horse-battery")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=65536,t=3,p=2$") {
		t.Fatalf("unexpected PHC prefix: %s", encoded)
	}

	status, err := hasher.Verify(context.Background(), encoded, "correct-horse-battery")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if status != StatusValid {
		t.Fatalf("status = %v, want StatusValid", status)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	hasher, err := NewHasher(currentConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	encoded, err := hasher.Hash(context.Background(), "the-real-secret")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	status, err := hasher.Verify(context.Background(), encoded, "a-guess")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if status != StatusInvalid {
		t.Fatalf("status = %v, want StatusInvalid", status)
	}
}

func TestVerifyReportsStaleParameters(t *testing.T) {
	weak, err := NewHasher(Config{
		Memory:      32768,
		Time:        2,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewHasher(weak) error: %v", err)
	}

	encoded, err := weak.Hash(context.Background(), "long-lived-secret")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	current, err := NewHasher(currentConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	status, err := current.Verify(context.Background(), encoded, "long-lived-secret")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if status != StatusValidNeedsRehash {
		t.Fatalf("status = %v, want StatusValidNeedsRehash", status)
	}

	// The weak blob against its own parameters is simply valid.
	status, err = weak.Verify(context.Background(), encoded, "long-lived-secret")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if status != StatusValid {
		t.Fatalf("status = %v, want StatusValid", status)
	}
}

func TestVerifyMalformedBlob(t *testing.T) {
	hasher, err := NewHasher(currentConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	for _, encoded := range []string{
		"",
		"not-a-phc-blob",
		"$bcrypt$v=19$m=65536,t=3,p=2$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5",
		"$argon2id$v=18$m=65536,t=3,p=2$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5",
		"$argon2id$v=19$m=4,t=3,p=2$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5",
	} {
		if _, err := hasher.Verify(context.Background(), encoded, "whatever"); err == nil {
			t.Fatalf("expected error for blob %q", encoded)
		}
	}
}

func TestHashHonorsCancellation(t *testing.T) {
	hasher, err := NewHasher(currentConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	// Saturate every slot so the next call must wait, then cancel it.
	for i := 0; i < cap(hasher.slots); i++ {
		hasher.slots <- struct{}{}
	}
	defer func() {
		for i := 0; i < cap(hasher.slots); i++ {
			<-hasher.slots
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := hasher.Hash(ctx, "secret-value"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Hash with canceled ctx = %v, want context.Canceled", err)
	}
	if _, err := hasher.Verify(ctx, "$argon2id$v=19$m=65536,t=3,p=2$c2FsdHNhbHRzYWx0c2FsdA==$a2V5a2V5a2V5a2V5a2V5a2V5", "secret-value"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Verify with canceled ctx = %v, want context.Canceled", err)
	}
}

func TestNewHasherRejectsWeakConfig(t *testing.T) {
	cases := []Config{
		{Memory: 1024, Time: 3, Parallelism: 2, SaltLength: 16, KeyLength: 32},
		{Memory: 65536, Time: 0, Parallelism: 2, SaltLength: 16, KeyLength: 32},
		{Memory: 65536, Time: 3, Parallelism: 0, SaltLength: 16, KeyLength: 32},
		{Memory: 65536, Time: 3, Parallelism: 2, SaltLength: 8, KeyLength: 32},
		{Memory: 65536, Time: 3, Parallelism: 2, SaltLength: 16, KeyLength: 8},
	}
	for _, cfg := range cases {
		if _, err := NewHasher(cfg); err == nil {
			t.Fatalf("expected NewHasher to reject %+v", cfg)
		}
	}
}
