package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argon2Prefix          = "$argon2id$"
	minArgonMemoryKB      = 8 * 1024
	minArgonSaltLength    = 16
	argonParamCount       = 3
	argonEncodedPartCount = 6
)

// Argon2Params are the cost parameters embedded in an argon2id PHC string.
type Argon2Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Argon2 verifies legacy argon2id credentials. It can also produce hashes, which
// is only used to seed fixtures and migration tests.
type Argon2 struct {
	params Argon2Params
}

type argonHash struct {
	params Argon2Params
	salt   []byte
	sum    []byte
}

// NewArgon2 validates params and returns an [Argon2] verifier.
func NewArgon2(params Argon2Params) (*Argon2, error) {
	if params.Memory < minArgonMemoryKB {
		return nil, errors.New("argon2 memory must be >= 8192 KB")
	}
	if params.Time < 1 || params.Parallelism < 1 {
		return nil, errors.New("argon2 time and parallelism must be >= 1")
	}
	if params.SaltLength < minArgonSaltLength || params.KeyLength < 16 {
		return nil, errors.New("argon2 salt and key length must be >= 16")
	}
	return &Argon2{params: params}, nil
}

// Hash encodes secret as an argon2id PHC string.
func (a *Argon2) Hash(secret string) (string, error) {
	salt := make([]byte, a.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashFault, err)
	}

	sum := argon2.IDKey([]byte(secret), salt, a.params.Time, a.params.Memory, a.params.Parallelism, a.params.KeyLength)

	return fmt.Sprintf(
		"%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Prefix,
		argon2.Version,
		a.params.Memory,
		a.params.Time,
		a.params.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(sum),
	), nil
}

// Verify reports whether secret matches the argon2id encodedHash. A malformed
// hash is a fault, not a mismatch.
func (a *Argon2) Verify(secret, encodedHash string) (bool, error) {
	parsed, err := parseArgonHash(encodedHash)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrHashFault, err)
	}

	computed := argon2.IDKey(
		[]byte(secret),
		parsed.salt,
		parsed.params.Time,
		parsed.params.Memory,
		parsed.params.Parallelism,
		parsed.params.KeyLength,
	)
	return subtle.ConstantTimeCompare(computed, parsed.sum) == 1, nil
}

// IsArgon2Hash reports whether encodedHash carries the argon2id PHC prefix.
func IsArgon2Hash(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, argon2Prefix)
}

func parseArgonHash(encodedHash string) (*argonHash, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != argonEncodedPartCount || parts[0] != "" || parts[1] != "argon2id" {
		return nil, errors.New("invalid PHC format")
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	out := &argonHash{}
	pairs := strings.Split(parts[3], ",")
	if len(pairs) != argonParamCount {
		return nil, errors.New("invalid parameter format")
	}
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errors.New("invalid parameter entry")
		}
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || v == 0 {
			return nil, fmt.Errorf("invalid %s parameter", name)
		}
		switch name {
		case "m":
			if v < minArgonMemoryKB {
				return nil, errors.New("invalid memory parameter")
			}
			out.params.Memory = uint32(v)
		case "t":
			out.params.Time = uint32(v)
		case "p":
			if v > 255 {
				return nil, errors.New("invalid parallelism parameter")
			}
			out.params.Parallelism = uint8(v)
		default:
			return nil, errors.New("unsupported parameter")
		}
	}
	if out.params.Memory == 0 || out.params.Time == 0 || out.params.Parallelism == 0 {
		return nil, errors.New("missing parameters")
	}

	if out.salt, err = base64.StdEncoding.DecodeString(parts[4]); err != nil || len(out.salt) < minArgonSaltLength {
		return nil, errors.New("invalid salt")
	}
	if out.sum, err = base64.StdEncoding.DecodeString(parts[5]); err != nil || len(out.sum) == 0 {
		return nil, errors.New("invalid hash")
	}
	out.params.SaltLength = uint32(len(out.salt))
	out.params.KeyLength = uint32(len(out.sum))
	return out, nil
}
