package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var ErrHashing = errors.New("password hashing failed")

// Params are the argon2id work factors. DefaultParams matches the reference
// argon2 defaults (19 MiB, 2 passes, 1 lane).
type Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultParams = Params{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// Upper bounds applied when parsing stored hashes, so a tampered row cannot
// make Verify allocate unbounded memory.
const (
	maxMemory     = 1 << 20
	maxIterations = 64
	maxKeyLength  = 128
)

type Hasher struct {
	pepper string
	params Params
}

func NewHasher(pepper string, params Params) *Hasher {
	return &Hasher{pepper: pepper, params: params}
}

func (h *Hasher) sprinkle(password string) []byte {
	return []byte(h.pepper + password)
}

// Hash returns a PHC-formatted argon2id string:
//
//	$argon2id$v=19$m=19456,t=2,p=1$<salt>$<key>
func (h *Hasher) Hash(password string) (string, error) {
	if h.pepper == "" {
		return "", fmt.Errorf("%w: missing pepper", ErrHashing)
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashing, err)
	}

	key := argon2.IDKey(h.sprinkle(password), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory, h.params.Iterations, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether candidate matches the stored hash. Every failure
// (bad encoding, unsupported parameters, mismatch) is just false.
func (h *Hasher) Verify(encoded, candidate string) bool {
	if h.pepper == "" {
		return false
	}

	params, salt, key, err := decodeHash(encoded)
	if err != nil {
		return false
	}

	other := argon2.IDKey(h.sprinkle(candidate), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)
	return subtle.ConstantTimeCompare(key, other) == 1
}

func decodeHash(encoded string) (Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Params{}, nil, nil, errors.New("invalid hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return Params{}, nil, nil, err
	}
	if version != argon2.Version {
		return Params{}, nil, nil, errors.New("unsupported argon2 version")
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return Params{}, nil, nil, err
	}
	if p.Memory == 0 || p.Memory > maxMemory || p.Iterations == 0 || p.Iterations > maxIterations || p.Parallelism == 0 {
		return Params{}, nil, nil, errors.New("argon2 parameters out of range")
	}

	salt, err := base64.RawStdEncoding.Strict().DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return Params{}, nil, nil, errors.New("invalid salt")
	}
	key, err := base64.RawStdEncoding.Strict().DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > maxKeyLength {
		return Params{}, nil, nil, errors.New("invalid key")
	}

	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))
	return p, salt, key, nil
}
