package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argon2Variant = "argon2id"
	argon2Version = "v=19"

	minMemoryKiB  = 8 * 1024
	minSaltLength = 8
	minKeyLength  = 16
)

var (
	errInvalidHashFormat = errors.New("argon2: invalid encoded hash format")
	errInvalidConfig     = errors.New("argon2: invalid configuration")
)

// Argon2Config tunes the Argon2id key derivation.
type Argon2Config struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Config is the baseline parameter set for new hashes.
func DefaultArgon2Config() Argon2Config {
	return Argon2Config{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func validateArgon2Config(cfg Argon2Config) error {
	switch {
	case cfg.Memory < minMemoryKiB:
		return fmt.Errorf("%w: memory must be at least %d", errInvalidConfig, minMemoryKiB)
	case cfg.Iterations == 0:
		return fmt.Errorf("%w: iterations must be greater than zero", errInvalidConfig)
	case cfg.Parallelism == 0:
		return fmt.Errorf("%w: parallelism must be greater than zero", errInvalidConfig)
	case cfg.SaltLength < minSaltLength:
		return fmt.Errorf("%w: salt length must be at least %d bytes", errInvalidConfig, minSaltLength)
	case cfg.KeyLength < minKeyLength:
		return fmt.Errorf("%w: key length must be at least %d bytes", errInvalidConfig, minKeyLength)
	}
	return nil
}

// Argon2Hasher derives and verifies Argon2id password hashes. The encoded
// form embeds the parameters and salt, so hashes produced under older
// parameters stay verifiable after a tuning change.
type Argon2Hasher struct {
	cfg Argon2Config
}

// NewArgon2Hasher rejects parameter sets below the safety floor.
func NewArgon2Hasher(cfg Argon2Config) (*Argon2Hasher, error) {
	if err := validateArgon2Config(cfg); err != nil {
		return nil, err
	}
	return &Argon2Hasher{cfg: cfg}, nil
}

// Hash encodes as:
// argon2id$v=19$m=<memory>,t=<iterations>,p=<parallelism>$<salt>$<hash>
func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.cfg.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("argon2: generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt,
		h.cfg.Iterations, h.cfg.Memory, h.cfg.Parallelism, h.cfg.KeyLength)

	var b strings.Builder
	b.WriteString(argon2Variant)
	b.WriteByte('$')
	b.WriteString(argon2Version)
	b.WriteByte('$')
	fmt.Fprintf(&b, "m=%d,t=%d,p=%d", h.cfg.Memory, h.cfg.Iterations, h.cfg.Parallelism)
	b.WriteByte('$')
	b.WriteString(base64.RawStdEncoding.EncodeToString(salt))
	b.WriteByte('$')
	b.WriteString(base64.RawStdEncoding.EncodeToString(key))

	return b.String(), nil
}

// Verify recomputes the key under the parameters embedded in the encoded
// hash and compares digests in constant time.
func (h *Argon2Hasher) Verify(password, encoded string) (bool, error) {
	if password == "" || encoded == "" {
		return false, nil
	}

	params, salt, expected, err := decodeArgon2Hash(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), salt,
		params.Iterations, params.Memory, params.Parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

func decodeArgon2Hash(encoded string) (Argon2Config, []byte, []byte, error) {
	fail := func(err error) (Argon2Config, []byte, []byte, error) {
		return Argon2Config{}, nil, nil, err
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 5 {
		return fail(errInvalidHashFormat)
	}
	if parts[0] != argon2Variant {
		return fail(fmt.Errorf("argon2: unexpected variant %q", parts[0]))
	}
	if parts[1] != argon2Version {
		return fail(fmt.Errorf("argon2: unsupported version %q", parts[1]))
	}

	memory, iterations, parallelism, err := parseArgon2Params(parts[2])
	if err != nil {
		return fail(err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return fail(fmt.Errorf("argon2: decode salt: %w", err))
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fail(fmt.Errorf("argon2: decode hash: %w", err))
	}

	cfg := Argon2Config{
		Memory:      memory,
		Iterations:  iterations,
		Parallelism: parallelism,
		SaltLength:  uint32(len(salt)),
		KeyLength:   uint32(len(key)),
	}
	if err := validateArgon2Config(cfg); err != nil {
		return fail(err)
	}
	return cfg, salt, key, nil
}

func parseArgon2Params(segment string) (memory, iterations uint32, parallelism uint8, err error) {
	entries := strings.Split(segment, ",")
	if len(entries) != 3 {
		return 0, 0, 0, errInvalidHashFormat
	}

	parse := func(value string, bits int) (uint64, error) {
		v, perr := strconv.ParseUint(value, 10, bits)
		if perr != nil {
			return 0, fmt.Errorf("argon2: parse parameter: %w", perr)
		}
		return v, nil
	}

	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			return 0, 0, 0, errInvalidHashFormat
		}
		switch key {
		case "m":
			v, perr := parse(value, 32)
			if perr != nil {
				return 0, 0, 0, perr
			}
			memory = uint32(v)
		case "t":
			v, perr := parse(value, 32)
			if perr != nil {
				return 0, 0, 0, perr
			}
			iterations = uint32(v)
		case "p":
			v, perr := parse(value, 8)
			if perr != nil {
				return 0, 0, 0, perr
			}
			parallelism = uint8(v)
		default:
			return 0, 0, 0, errInvalidHashFormat
		}
	}
	return memory, iterations, parallelism, nil
}
