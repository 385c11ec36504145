package auth_test

import (
	"testing"
	"time"

	"github.com/RohitSadavarti/vanita.lunch.home/internal/auth"
	"github.com/google/uuid"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"
	adminID := uuid.New()
	mobile := "9876543210"

	token, expiresAt, err := auth.GenerateToken(secret, adminID, mobile, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if d := time.Until(expiresAt); d < 59*time.Minute || d > time.Hour {
		t.Errorf("expires at: got %v from now, want ~1h", d)
	}

	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if claims.AdminID != adminID {
		t.Errorf("admin ID: got %v, want %v", claims.AdminID, adminID)
	}
	if claims.Mobile != mobile {
		t.Errorf("mobile: got %v, want %v", claims.Mobile, mobile)
	}
}

func TestValidateTokenWithWrongSecret(t *testing.T) {
	token, _, err := auth.GenerateToken("secret-a", uuid.New(), "9876543210", time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	_, err = auth.ValidateToken("secret-b", token)
	if err == nil {
		t.Fatal("expected error validating with wrong secret")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	token, _, err := auth.GenerateToken("secret", uuid.New(), "9876543210", -time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	_, err = auth.ValidateToken("secret", token)
	if err == nil {
		t.Fatal("expected error validating expired token")
	}
}

func TestValidateTokenWithoutAdmin(t *testing.T) {
	token, _, err := auth.GenerateToken("secret", uuid.Nil, "", time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	_, err = auth.ValidateToken("secret", token)
	if err == nil {
		t.Fatal("expected error for token without admin identity")
	}
}

func TestValidateTokenWithInvalidString(t *testing.T) {
	_, err := auth.ValidateToken("secret", "not-a-jwt")
	if err == nil {
		t.Fatal("expected error validating invalid token string")
	}
}
