package auth

import (
	"strings"
	"testing"
	"time"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("super-secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected bcrypt hash, got %q", hash)
	}

	if err := CheckPassword(hash, "super-secret"); err != nil {
		t.Fatalf("correct password rejected: %v", err)
	}
	if err := CheckPassword(hash, "almost-super-secret"); err == nil {
		t.Fatal("wrong password accepted")
	}
}

func TestTokenRoundTripKeepsClaims(t *testing.T) {
	in := Claims{UserID: "u1", RoleID: "r1", RoleName: RoleHR, SessionID: "s1"}
	token, err := GenerateToken("test-secret", in, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	out, err := ParseToken("test-secret", token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if out.UserID != in.UserID || out.RoleID != in.RoleID || out.RoleName != in.RoleName || out.SessionID != in.SessionID {
		t.Fatalf("claims mismatch: %+v", out)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := GenerateToken("secret", Claims{UserID: "u1"}, -time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret", token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	token, err := GenerateToken("secret-a", Claims{UserID: "u1"}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret-b", token); err == nil {
		t.Fatal("expected signature mismatch to be rejected")
	}
}

func TestHashTokenStable(t *testing.T) {
	if HashToken("abc") != HashToken("abc") {
		t.Fatal("expected stable hash")
	}
	if HashToken("abc") == HashToken("abd") {
		t.Fatal("expected distinct hashes")
	}
	if len(HashToken("abc")) != 64 {
		t.Fatalf("expected hex sha-256 digest, got %q", HashToken("abc"))
	}
}
