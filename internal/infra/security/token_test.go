package security

import "testing"

func TestGenerateSecureToken(t *testing.T) {
	first, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}
	second, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}

	if first == second {
		t.Error("two generated tokens must differ")
	}
	// 32 bytes encode to 43 base64 characters without padding.
	if len(first) != 43 {
		t.Errorf("token length = %d, want 43", len(first))
	}

	if _, err := GenerateSecureToken(0); err == nil {
		t.Error("non-positive length must be rejected")
	}
}

func TestHashToken(t *testing.T) {
	digest := HashToken("opaque-value")
	if len(digest) != 64 {
		t.Errorf("digest length = %d, want 64 hex characters", len(digest))
	}
	if digest != HashToken("opaque-value") {
		t.Error("digest must be deterministic")
	}
	if digest == HashToken("other-value") {
		t.Error("different values must not collide")
	}
}
