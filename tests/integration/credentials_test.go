//go:build integration

package integration

import (
	"context"
	"net/http"
	"strings"
	"testing"
)

func TestSaveKeysCreatesThenUpdates(t *testing.T) {
	env := SetupTestEnv(t)

	resp, body := PostJSON(t, env, "/api/v1/settings/keys", map[string]string{
		"platform":      "twitter",
		"client_id":     "client-abc",
		"client_secret": "super-secret",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, body)
	}
	if msg, _ := body["message"].(string); !strings.Contains(msg, "Saved new") {
		t.Fatalf("expected creation message, got %v", body)
	}

	resp, body = PostJSON(t, env, "/api/v1/settings/keys", map[string]string{
		"platform":      "twitter",
		"client_id":     "client-abc",
		"client_secret": "rotated-secret",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, body)
	}
	if msg, _ := body["message"].(string); !strings.Contains(msg, "Updated") {
		t.Fatalf("expected update message, got %v", body)
	}

	// Secret survives encryption round trip.
	var stored string
	err := env.Pool.QueryRow(context.Background(),
		`SELECT encrypted_secret FROM social_credentials WHERE platform = 'twitter'`).Scan(&stored)
	if err != nil {
		t.Fatalf("reading stored secret: %v", err)
	}
	if stored == "rotated-secret" {
		t.Fatal("secret must not be stored in plaintext")
	}
}

func TestSaveKeysValidation(t *testing.T) {
	env := SetupTestEnv(t)

	resp, _ := PostJSON(t, env, "/api/v1/settings/keys", map[string]string{
		"platform": "twitter",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing fields, got %d", resp.StatusCode)
	}
}
