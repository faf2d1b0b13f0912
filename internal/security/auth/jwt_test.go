package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestTokenRoundTrip verifies a minted token validates and carries its
// claims.
func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", "tourbook")

	token, err := tm.GenerateToken("u1", "ana@example.com", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := tm.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "ana@example.com" {
		t.Errorf("Unexpected claims: %+v", claims)
	}
}

// TestValidateRejectsWrongSecret verifies tokens from another secret fail.
func TestValidateRejectsWrongSecret(t *testing.T) {
	tm := NewTokenManager("secret-a", "tourbook")
	other := NewTokenManager("secret-b", "tourbook")

	token, err := tm.GenerateToken("u1", "", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatalf("Expected validation to fail with the wrong secret")
	}
}

// TestValidateRejectsExpired verifies expiry is enforced.
func TestValidateRejectsExpired(t *testing.T) {
	tm := NewTokenManager("test-secret", "tourbook")

	token, err := tm.GenerateToken("u1", "", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := tm.ValidateToken(token); err == nil {
		t.Fatalf("Expected expired token to fail validation")
	}
}

// TestExtractToken verifies header and cookie extraction and header
// precedence.
func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/user/documents", nil)
	if _, err := ExtractToken(r); err == nil {
		t.Errorf("Expected error with neither header nor cookie")
	}

	r = httptest.NewRequest("GET", "/api/user/documents", nil)
	r.AddCookie(&http.Cookie{Name: "jwt", Value: "cookie-token"})
	token, err := ExtractToken(r)
	if err != nil {
		t.Fatalf("ExtractToken from cookie failed: %v", err)
	}
	if token != "cookie-token" {
		t.Errorf("Expected cookie token, got %s", token)
	}

	r.Header.Set("Authorization", "Bearer header-token")
	token, err = ExtractToken(r)
	if err != nil {
		t.Fatalf("ExtractToken from header failed: %v", err)
	}
	if token != "header-token" {
		t.Errorf("Header must win over cookie, got %s", token)
	}

	r.Header.Set("Authorization", "Basic abc")
	if _, err := ExtractToken(r); err == nil {
		t.Errorf("Expected error for non-bearer authorization header")
	}
}
