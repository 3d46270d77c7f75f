package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashClientValue fingerprints a client attribute such as an IP so it can be used
// in storage keys and audit metadata without persisting the raw value.
func HashClientValue(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:12])
}
