package password

import "testing"

func TestHashAndVerify(t *testing.T) {
	h := NewBcrypt()

	hash, err := h.Hash("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cret" {
		t.Fatalf("hash must not equal the plaintext")
	}

	if !h.Verify("s3cret", hash) {
		t.Fatalf("expected matching credential to verify")
	}
	if h.Verify("wrong", hash) {
		t.Fatalf("expected non-matching credential to fail")
	}
}

func TestHashesAreSalted(t *testing.T) {
	h := NewBcrypt()

	a, err := h.Hash("same")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := h.Hash("same")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a == b {
		t.Fatalf("two hashes of the same input must differ")
	}
}
