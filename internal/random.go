package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"math/big"
)

// SessionID is a 128-bit random identifier.
type SessionID [16]byte

// NewSessionID draws a fresh identifier from crypto/rand.
func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

// ParseSessionID decodes the string form produced by [SessionID.String].
func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID

	raw, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil {
		return sid, err
	}
	if len(raw) != len(sid) {
		return sid, errors.New("invalid session id size")
	}

	copy(sid[:], raw)
	return sid, nil
}

// RandomIndex returns a uniformly distributed integer in [0, n).
func RandomIndex(n int) (int, error) {
	if n <= 0 {
		return 0, errors.New("random index bound must be positive")
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// DistinctIndices picks k distinct indices in [0, n) by drawing independently and
// rejecting collisions, so every unordered subset is equally likely.
func DistinctIndices(n, k int) ([]int, error) {
	if k <= 0 || k > n {
		return nil, errors.New("cannot draw distinct indices")
	}

	picked := make([]int, 0, k)
	for len(picked) < k {
		idx, err := RandomIndex(n)
		if err != nil {
			return nil, err
		}
		dup := false
		for _, p := range picked {
			if p == idx {
				dup = true
				break
			}
		}
		if !dup {
			picked = append(picked, idx)
		}
	}
	return picked, nil
}
