package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	svc := NewJWTService("test-secret-key")

	token, err := svc.GenerateToken("user:default/alice", "Alice")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}

	if claims.UserEntityRef != "user:default/alice" {
		t.Errorf("expected user:default/alice, got '%s'", claims.UserEntityRef)
	}
	if claims.Name != "Alice" {
		t.Errorf("expected name 'Alice', got '%s'", claims.Name)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	svc := NewJWTService("test-secret-key")

	token, err := svc.GenerateTokenWithTTL("user:default/alice", "", -1*time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := svc.ValidateToken(token); err == nil {
		t.Fatal("expected error for expired token, got nil")
	}
}

func TestValidateInvalidToken(t *testing.T) {
	svc := NewJWTService("test-secret-key")

	if _, err := svc.ValidateToken("not-a-valid-token"); err == nil {
		t.Fatal("expected error for invalid token, got nil")
	}

	otherSvc := NewJWTService("different-secret-key")
	token, err := otherSvc.GenerateToken("user:default/alice", "")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := svc.ValidateToken(token); err == nil {
		t.Fatal("expected error for token signed with different key, got nil")
	}
}

func TestValidateTokenWithoutSubject(t *testing.T) {
	svc := NewJWTService("test-secret-key")

	token, err := svc.GenerateToken("", "nobody")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := svc.ValidateToken(token); err == nil {
		t.Fatal("expected error for token without subject")
	}
}

// TestJWTAlgorithmConfusionNone verifies that tokens with alg:none are rejected.
func TestJWTAlgorithmConfusionNone(t *testing.T) {
	svc := NewJWTService("test-secret-key")

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"user:default/admin","exp":9999999999}`))
	fakeToken := header + "." + payload + "."

	if _, err := svc.ValidateToken(fakeToken); err == nil {
		t.Fatal("SECURITY: accepted token with alg:none - algorithm confusion vulnerability")
	}
}

// TestJWTAlgorithmConfusionES256 verifies that tokens signed with a different
// algorithm family are rejected even if they are valid JWTs.
func TestJWTAlgorithmConfusionES256(t *testing.T) {
	svc := NewJWTService("test-secret-key")

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate EC key: %v", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"sub": "user:default/admin",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tokenStr, err := token.SignedString(ecKey)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := svc.ValidateToken(tokenStr); err == nil {
		t.Fatal("SECURITY: accepted token signed with ES256 when expecting HMAC")
	}
}

// TestJWTTokenTampering verifies that modifying claims in a signed token
// causes validation to fail.
func TestJWTTokenTampering(t *testing.T) {
	svc := NewJWTService("test-secret-key")

	token, err := svc.GenerateToken("user:default/alice", "")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatal("expected 3 JWT parts")
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	payload["sub"] = "user:default/admin"

	tamperedPayload, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	tamperedToken := parts[0] + "." + base64.RawURLEncoding.EncodeToString(tamperedPayload) + "." + parts[2]

	if _, err := svc.ValidateToken(tamperedToken); err == nil {
		t.Fatal("SECURITY: accepted tampered token - signature verification is broken")
	}
}

func TestUserEntityRefDefaultsToGuest(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if got := UserEntityRef(req.Context()); got != GuestUserRef {
		t.Errorf("expected guest, got %q", got)
	}

	ctx := ContextWithClaims(req.Context(), &Claims{UserEntityRef: "user:default/alice"})
	if got := UserEntityRef(ctx); got != "user:default/alice" {
		t.Errorf("expected alice, got %q", got)
	}
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/session?token=from-query", nil)
	if got := TokenFromRequest(req); got != "from-query" {
		t.Errorf("expected query token, got %q", got)
	}

	req.Header.Set("Authorization", "Bearer from-header")
	if got := TokenFromRequest(req); got != "from-header" {
		t.Errorf("expected header token, got %q", got)
	}

	req.Header.Set("Authorization", "Basic abc")
	if got := TokenFromRequest(req); got != "" {
		t.Errorf("expected no token for basic auth, got %q", got)
	}
}
