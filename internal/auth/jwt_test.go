package auth

import (
	"testing"
	"time"
)

func TestJWTManagerRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret-key-32-bytes-long!!!", time.Hour)

	token, err := m.Generate("osaka-2025")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.TripID != "osaka-2025" {
		t.Errorf("TripID = %q, want osaka-2025", claims.TripID)
	}
}

func TestJWTManagerRejects(t *testing.T) {
	m := NewJWTManager("test-secret-key-32-bytes-long!!!", time.Hour)

	t.Run("garbage token", func(t *testing.T) {
		if _, err := m.Validate("not.a.token"); err == nil {
			t.Error("expected error for malformed token")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTManager("a-completely-different-secret!!!", time.Hour)
		token, _ := other.Generate("osaka-2025")
		if _, err := m.Validate(token); err == nil {
			t.Error("expected error for token signed with another secret")
		}
	})

	t.Run("expired token", func(t *testing.T) {
		short := NewJWTManager("test-secret-key-32-bytes-long!!!", -time.Minute)
		token, _ := short.Generate("osaka-2025")
		if _, err := short.Validate(token); err == nil {
			t.Error("expected error for expired token")
		}
	})
}

func TestTripKey(t *testing.T) {
	hash, err := HashTripKey("correct horse battery")
	if err != nil {
		t.Fatalf("HashTripKey failed: %v", err)
	}

	if err := VerifyTripKey(hash, "correct horse battery"); err != nil {
		t.Errorf("VerifyTripKey rejected the right key: %v", err)
	}
	if err := VerifyTripKey(hash, "wrong key entirely"); err == nil {
		t.Error("VerifyTripKey accepted a wrong key")
	}
	if _, err := HashTripKey("short"); err == nil {
		t.Error("expected weak-key error")
	}
}
