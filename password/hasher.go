package password

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID = "argon2id"

	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
)

// Status is the outcome of a verification. Exactly three states exist; the
// engine treats anything else as an internal error.
type Status int

const (
	// StatusInvalid means the secret does not match the stored blob.
	StatusInvalid Status = iota
	// StatusValid means the secret matches and the blob's parameters are
	// current.
	StatusValid
	// StatusValidNeedsRehash means the secret matches but the blob was
	// produced with weaker parameters and should be transparently upgraded.
	StatusValidNeedsRehash
)

// Config holds the argon2id cost parameters and the concurrency bound.
type Config struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	// MaxConcurrent caps how many argon2 computations run at once so that
	// hashing never monopolizes the scheduler under request load. Zero means
	// GOMAXPROCS.
	MaxConcurrent int
}

// Hasher derives and verifies argon2id password blobs in PHC string format.
// All methods are safe for concurrent use.
type Hasher struct {
	config Config
	slots  chan struct{}
}

// NewHasher validates the cost parameters and allocates the worker slots.
func NewHasher(cfg Config) (*Hasher, error) {
	if cfg.Memory < minMemoryKB {
		return nil, errors.New("password: memory must be >= 8192 KB")
	}
	if cfg.Time < minTimeCost {
		return nil, errors.New("password: time cost must be >= 1")
	}
	if cfg.Parallelism < minParallelism {
		return nil, errors.New("password: parallelism must be >= 1")
	}
	if cfg.SaltLength < minSaltLength {
		return nil, errors.New("password: salt length must be >= 16")
	}
	if cfg.KeyLength < minKeyLength {
		return nil, errors.New("password: key length must be >= 16")
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = runtime.GOMAXPROCS(0)
	}

	return &Hasher{
		config: cfg,
		slots:  make(chan struct{}, cfg.MaxConcurrent),
	}, nil
}

// Hash derives a fresh blob for the secret. It blocks while waiting for a
// worker slot and honors ctx cancellation during the wait.
func (h *Hasher) Hash(ctx context.Context, secret string) (string, error) {
	release, err := h.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey(
		[]byte(secret),
		salt,
		h.config.Time,
		h.config.Memory,
		h.config.Parallelism,
		h.config.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.config.Memory,
		h.config.Time,
		h.config.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the blob with its embedded parameters and compares in
// constant time. A non-nil error means the blob itself is unusable, not that
// the secret mismatched.
func (h *Hasher) Verify(ctx context.Context, encoded, secret string) (Status, error) {
	blob, err := parseBlob(encoded)
	if err != nil {
		return StatusInvalid, err
	}

	release, err := h.acquire(ctx)
	if err != nil {
		return StatusInvalid, err
	}
	defer release()

	computed := argon2.IDKey(
		[]byte(secret),
		blob.salt,
		blob.timeCost,
		blob.memoryKB,
		blob.lanes,
		uint32(len(blob.key)),
	)

	if subtle.ConstantTimeCompare(computed, blob.key) != 1 {
		return StatusInvalid, nil
	}
	if h.stale(blob) {
		return StatusValidNeedsRehash, nil
	}
	return StatusValid, nil
}

// stale reports whether the blob was derived with parameters weaker than the
// configured ones.
func (h *Hasher) stale(b *blob) bool {
	return h.config.Memory > b.memoryKB ||
		h.config.Time > b.timeCost ||
		h.config.Parallelism > b.lanes ||
		h.config.KeyLength != uint32(len(b.key))
}

func (h *Hasher) acquire(ctx context.Context) (func(), error) {
	select {
	case h.slots <- struct{}{}:
		return func() { <-h.slots }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type blob struct {
	memoryKB uint32
	timeCost uint32
	lanes    uint8
	salt     []byte
	key      []byte
}

// parseBlob decodes the PHC string form:
// $argon2id$v=19$m=65536,t=3,p=2$<salt b64>$<key b64>
func parseBlob(encoded string) (*blob, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("password: invalid PHC format")
	}
	if parts[1] != algorithmID {
		return nil, errors.New("password: unsupported algorithm")
	}

	version, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return nil, errors.New("password: missing argon2 version")
	}
	if v, err := strconv.Atoi(version); err != nil || v != argon2.Version {
		return nil, errors.New("password: unsupported argon2 version")
	}

	b := &blob{}
	if err := parseCosts(parts[3], b); err != nil {
		return nil, err
	}

	salt, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < int(minSaltLength) {
		return nil, errors.New("password: invalid salt")
	}
	key, err := base64.StdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, errors.New("password: invalid key")
	}

	b.salt = salt
	b.key = key
	return b, nil
}

func parseCosts(section string, b *blob) error {
	pairs := strings.Split(section, ",")
	if len(pairs) != 3 {
		return errors.New("password: invalid cost section")
	}

	var haveM, haveT, haveP bool
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return errors.New("password: invalid cost entry")
		}
		switch name {
		case "m":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || v < uint64(minMemoryKB) {
				return errors.New("password: invalid memory cost")
			}
			b.memoryKB = uint32(v)
			haveM = true
		case "t":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || v < uint64(minTimeCost) {
				return errors.New("password: invalid time cost")
			}
			b.timeCost = uint32(v)
			haveT = true
		case "p":
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil || v < uint64(minParallelism) {
				return errors.New("password: invalid parallelism")
			}
			b.lanes = uint8(v)
			haveP = true
		default:
			return errors.New("password: unknown cost parameter")
		}
	}

	if !haveM || !haveT || !haveP {
		return errors.New("password: missing cost parameter")
	}
	return nil
}
