package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deploymenttheory/go-gtm-composer/internal/gtmerr"
)

func TestInitializeDefaults(t *testing.T) {
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if Instance.LogFormat != "human" {
		t.Errorf("Expected default log format human, got %q", Instance.LogFormat)
	}
	if Instance.GTM.WorkspacePrefix != "AutoGen" {
		t.Errorf("Expected default workspace prefix AutoGen, got %q", Instance.GTM.WorkspacePrefix)
	}
	if Instance.GTM.BaseURL != "https://tagmanager.googleapis.com/tagmanager/v2" {
		t.Errorf("Unexpected default base URL %q", Instance.GTM.BaseURL)
	}
	if Instance.Client.MaxRetries != 3 {
		t.Errorf("Expected 3 retries, got %d", Instance.Client.MaxRetries)
	}
	if Instance.Client.RetryDelay != 5*time.Second {
		t.Errorf("Expected 5s retry delay, got %v", Instance.Client.RetryDelay)
	}
	if Instance.Client.RequestsPerMinute != 15 {
		t.Errorf("Expected 15 requests per minute, got %d", Instance.Client.RequestsPerMinute)
	}
	if Instance.Serve.Addr != ":8080" {
		t.Errorf("Expected default serve addr :8080, got %q", Instance.Serve.Addr)
	}
}

func TestValidateCredentials(t *testing.T) {
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	original := Instance.GTM.ServiceAccountFile
	defer func() { Instance.GTM.ServiceAccountFile = original }()

	Instance.GTM.ServiceAccountFile = ""
	if err := ValidateCredentials(); !errors.Is(err, gtmerr.ErrConfigInvalid) {
		t.Errorf("Expected ErrConfigInvalid for empty path, got %v", err)
	}

	Instance.GTM.ServiceAccountFile = filepath.Join(t.TempDir(), "missing.json")
	if err := ValidateCredentials(); !errors.Is(err, gtmerr.ErrConfigInvalid) {
		t.Errorf("Expected ErrConfigInvalid for missing file, got %v", err)
	}

	keyFile := filepath.Join(t.TempDir(), "service_account.json")
	if err := os.WriteFile(keyFile, []byte(`{"type": "service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	Instance.GTM.ServiceAccountFile = keyFile
	if err := ValidateCredentials(); err != nil {
		t.Errorf("Expected valid credentials, got %v", err)
	}
}
