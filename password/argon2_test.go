package password

import (
	"errors"
	"strings"
	"testing"
)

func legacyParams() Argon2Params {
	return Argon2Params{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestArgon2HashAndVerify(t *testing.T) {
	hasher, err := NewArgon2(legacyParams())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	hash, err := hasher.Hash("legacy-secret")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := hasher.Verify("legacy-secret", hash)
	if err != nil || !ok {
		t.Fatalf("expected verification success, ok=%v err=%v", ok, err)
	}

	ok, err = hasher.Verify("other-secret", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch, ok=%v err=%v", ok, err)
	}
}

func TestArgon2RejectsWeakParams(t *testing.T) {
	p := legacyParams()
	p.Memory = 1024
	if _, err := NewArgon2(p); err == nil {
		t.Fatal("expected low memory to be rejected")
	}
}

func TestArgon2MalformedHashIsFault(t *testing.T) {
	hasher, err := NewArgon2(legacyParams())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	for _, bad := range []string{
		"$argon2id$v=19$m=8192,t=1$AAAA$BBBB",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$short$aGFzaA",
		"not-a-hash",
	} {
		ok, err := hasher.Verify("x", bad)
		if ok || !errors.Is(err, ErrHashFault) {
			t.Fatalf("expected hash fault for %q, ok=%v err=%v", bad, ok, err)
		}
	}
}
