package auth

import (
	"context"
	"testing"
	"time"

	"github.com/aurora-bank/aurora_bank/internal/config"
	"github.com/aurora-bank/aurora_bank/internal/identity"
)

func testConfig() config.Config {
	return config.Config{
		JWTSecret:       "access-secret",
		RefreshSecret:   "refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	}
}

func TestLoginIssuesVerifiableTokens(t *testing.T) {
	repo := identity.NewMemoryRepository()
	svc := NewService(testConfig(), repo)
	user := identity.User{ID: "user-1", Email: "alice@example.com", Role: identity.RoleAdmin}

	pair, err := svc.Login(user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.ExpiresIn <= 0 {
		t.Fatalf("expected positive expiry, got %d", pair.ExpiresIn)
	}

	claims, err := ParseToken(pair.AccessToken, "access-secret")
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims["sub"] != "user-1" || claims["role"] != identity.RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	// Access and refresh tokens use distinct secrets.
	if _, err := ParseToken(pair.AccessToken, "refresh-secret"); err == nil {
		t.Fatal("access token verified with refresh secret")
	}
	if _, err := ParseToken(pair.RefreshToken, "refresh-secret"); err != nil {
		t.Fatalf("parse refresh token: %v", err)
	}
}

func TestRefresh(t *testing.T) {
	repo := identity.NewMemoryRepository()
	svc := NewService(testConfig(), repo)
	ctx := context.Background()

	user := identity.User{ID: "user-1", Email: "alice@example.com", Role: identity.RoleUser}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	pair, err := svc.Login(user)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	access, expiresIn, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if expiresIn <= 0 {
		t.Fatalf("expected positive expiry, got %d", expiresIn)
	}
	claims, err := ParseToken(access, "access-secret")
	if err != nil {
		t.Fatalf("parse refreshed token: %v", err)
	}
	if claims["sub"] != "user-1" {
		t.Fatalf("unexpected subject: %v", claims["sub"])
	}

	if _, _, err := svc.Refresh(ctx, pair.AccessToken); err == nil {
		t.Fatal("access token accepted as refresh token")
	}
	if _, _, err := svc.Refresh(ctx, "garbage"); err == nil {
		t.Fatal("malformed token accepted")
	}
}

func TestRefreshUnknownUser(t *testing.T) {
	repo := identity.NewMemoryRepository()
	svc := NewService(testConfig(), repo)

	pair, err := svc.Login(identity.User{ID: "ghost", Email: "ghost@example.com", Role: identity.RoleUser})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, _, err := svc.Refresh(context.Background(), pair.RefreshToken); err == nil {
		t.Fatal("refresh succeeded for deleted user")
	}
}
