package password

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"unicode/utf8"
)

// MaxSecretBytes is bcrypt's input limit. Longer secrets are rejected rather than
// silently truncated.
const MaxSecretBytes = 72

const secretAlphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var (
	// ErrHashFault is returned when a hashing primitive fails or a stored hash is
	// unreadable. It never means "mismatch".
	ErrHashFault = errors.New("password hash fault")
	// ErrSecretTooLong is returned for secrets above [MaxSecretBytes].
	ErrSecretTooLong = errors.New("password exceeds 72 bytes")
	// ErrLengthPolicy is returned by [CheckLength].
	ErrLengthPolicy = errors.New("password length out of bounds")
	// ErrUnknownHashFormat is returned when no configured algorithm recognises a hash.
	ErrUnknownHashFormat = errors.New("unknown password hash format")
)

// Hasher is the contract shared by the algorithm implementations.
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(secret, hash string) (bool, error)
}

// Verifier hashes new credentials with bcrypt and verifies both bcrypt and legacy
// argon2id hashes.
type Verifier struct {
	primary *Bcrypt
	legacy  *Argon2
}

// NewVerifier builds a [Verifier]. legacy may be nil when no argon2id hashes exist.
func NewVerifier(primary *Bcrypt, legacy *Argon2) (*Verifier, error) {
	if primary == nil {
		return nil, errors.New("password: primary hasher is required")
	}
	return &Verifier{primary: primary, legacy: legacy}, nil
}

// Hash produces a storable hash of secret with the primary algorithm.
func (v *Verifier) Hash(secret string) (string, error) {
	return v.primary.Hash(secret)
}

// Verify checks secret against hash, selecting the algorithm by hash prefix.
// Any fault is returned as an error wrapping [ErrHashFault] and must be treated as
// "not verified" by callers.
func (v *Verifier) Verify(secret, hash string) (bool, error) {
	switch {
	case IsBcryptHash(hash):
		return v.primary.Verify(secret, hash)
	case IsArgon2Hash(hash) && v.legacy != nil:
		return v.legacy.Verify(secret, hash)
	default:
		return false, fmt.Errorf("%w: %w", ErrHashFault, ErrUnknownHashFormat)
	}
}

// NeedsUpgrade reports whether hash should be replaced with a fresh primary hash.
func (v *Verifier) NeedsUpgrade(hash string) (bool, error) {
	if IsBcryptHash(hash) {
		return v.primary.NeedsUpgrade(hash)
	}
	if IsArgon2Hash(hash) {
		return true, nil
	}
	return false, fmt.Errorf("%w: %w", ErrHashFault, ErrUnknownHashFormat)
}

// RandomSecret returns a uniformly random secret of length characters drawn from
// an alphabet without look-alike glyphs.
func RandomSecret(length int) (string, error) {
	if length <= 0 || length > MaxSecretBytes {
		return "", fmt.Errorf("random secret length must be in [1,%d]", MaxSecretBytes)
	}

	max := big.NewInt(int64(len(secretAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrHashFault, err)
		}
		out[i] = secretAlphabet[n.Int64()]
	}
	return string(out), nil
}

// CheckLength enforces character-count bounds on secret. A zero max disables the
// upper bound; the byte limit of bcrypt always applies.
func CheckLength(secret string, min, max int) error {
	n := utf8.RuneCountInString(secret)
	if n < min || (max > 0 && n > max) || len(secret) > MaxSecretBytes {
		return ErrLengthPolicy
	}
	return nil
}
