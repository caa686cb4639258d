package quota

import (
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestTokenSaveLoadRoundtrip(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "test_token.json")

	original := &oauth2.Token{
		AccessToken:  "original-access-token",
		RefreshToken: "test-refresh-token",
		Expiry:       time.Now().Add(-time.Hour), // Expired token
	}

	if err := saveToken(tokenFile, original); err != nil {
		t.Fatalf("Failed to save token: %v", err)
	}

	loaded, err := tokenFromFile(tokenFile)
	if err != nil {
		t.Fatalf("Failed to load saved token: %v", err)
	}
	if loaded.RefreshToken != original.RefreshToken {
		t.Errorf("Refresh token mismatch: got %s, want %s", loaded.RefreshToken, original.RefreshToken)
	}
	if loaded.AccessToken != original.AccessToken {
		t.Errorf("Access token mismatch: got %s, want %s", loaded.AccessToken, original.AccessToken)
	}
}

func TestOAuthCredential(t *testing.T) {
	t.Run("MissingTokenFile", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "nope.json")
		if _, err := OAuthCredential("oauth", "id", "secret", missing); err == nil {
			t.Error("expected error when token file does not exist")
		}
	})

	t.Run("ExpiredWithoutRefreshToken", func(t *testing.T) {
		tokenFile := filepath.Join(t.TempDir(), "token.json")
		dead := &oauth2.Token{
			AccessToken: "stale",
			Expiry:      time.Now().Add(-time.Hour),
		}
		if err := saveToken(tokenFile, dead); err != nil {
			t.Fatalf("Failed to save token: %v", err)
		}

		if _, err := OAuthCredential("oauth", "id", "secret", tokenFile); err == nil {
			t.Error("expected error for an unrefreshable expired token")
		}
	})

	t.Run("ValidRefreshToken", func(t *testing.T) {
		tokenFile := filepath.Join(t.TempDir(), "token.json")
		usable := &oauth2.Token{
			AccessToken:  "stale",
			RefreshToken: "refresh-me",
			Expiry:       time.Now().Add(-time.Hour),
		}
		if err := saveToken(tokenFile, usable); err != nil {
			t.Fatalf("Failed to save token: %v", err)
		}

		cred, err := OAuthCredential("oauth", "id", "secret", tokenFile)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cred.IsOAuth() {
			t.Error("credential should report as OAuth-backed")
		}
		if cred.ID != "oauth" {
			t.Errorf("unexpected credential id %q", cred.ID)
		}
	})
}
