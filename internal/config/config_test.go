package config

import (
	"strings"
	"testing"
)

const testSecret = "Abc123!xyz-long-enough-secret-key-42"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CREATORDESK_SESSION_SECRET", testSecret)
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerAddr() != "localhost:8080" {
		t.Errorf("ServerAddr() = %q; want localhost:8080", cfg.ServerAddr())
	}
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false; want true by default")
	}
	if cfg.APIBaseURL != "http://localhost:5000" {
		t.Errorf("APIBaseURL = %q; want http://localhost:5000", cfg.APIBaseURL)
	}
	if cfg.UseRedisCache() {
		t.Error("UseRedisCache() = true; want false without CREATORDESK_REDIS_URL")
	}
}

func TestLoadRequiresSessionSecret(t *testing.T) {
	t.Setenv("CREATORDESK_SESSION_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() succeeded with empty session secret")
	}
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("CREATORDESK_SESSION_SECRET", "too-short")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() succeeded with short session secret")
	}
	if !strings.Contains(err.Error(), "at least") {
		t.Errorf("error = %v; want length complaint", err)
	}
}

func TestLoadRejectsKnownWeakSecret(t *testing.T) {
	t.Setenv("CREATORDESK_SESSION_SECRET", "change-me-to-32-byte-secret-key!")

	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted a known default secret")
	}
}

func TestLoadRejectsInvalidAPIBaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CREATORDESK_API_BASE_URL", "not a url")

	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted an invalid upstream base URL")
	}
}

func TestLoadTrimsAPIBaseURLSlash(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CREATORDESK_API_BASE_URL", "https://api.example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIBaseURL != "https://api.example.com" {
		t.Errorf("APIBaseURL = %q; want trailing slash trimmed", cfg.APIBaseURL)
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	tests := []struct {
		secret string
		want   bool
	}{
		{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false},
		{"abcABC123!def456ghiJKL789mno-pqr", true},
		{"abc123def456ghi789jkl012mno345pq", false},
		{testSecret, true},
	}

	for _, tt := range tests {
		if got := hasMinimumEntropy(tt.secret); got != tt.want {
			t.Errorf("hasMinimumEntropy(%q) = %v; want %v", tt.secret, got, tt.want)
		}
	}
}
