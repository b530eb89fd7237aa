// cliparse/cliparse_test.go
package cliparse

import (
	"os"
	"testing"
	"time"
)

func TestParseFlags_EnvVars(t *testing.T) {
	// Set env vars
	os.Setenv("PORT", "9000")
	os.Setenv("DATABASE_URL", "postgres://test")
	os.Setenv("DATABASE_TYPE", "postgres")
	os.Setenv("TOKEN_SECRET", "test-secret")
	os.Setenv("SWEEP_INTERVAL", "15m")
	defer os.Clearenv()

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "postgres" {
		t.Errorf("expected postgres, got %s", cfg.DatabaseType)
	}
	if cfg.SweepInterval != 15*time.Minute {
		t.Errorf("expected 15m sweep interval, got %s", cfg.SweepInterval)
	}
	if cfg.WorkerInterval != 30*time.Second {
		t.Errorf("expected default worker interval, got %s", cfg.WorkerInterval)
	}
	if cfg.BaseURL != "http://localhost:9000" {
		t.Errorf("unexpected default base url %s", cfg.BaseURL)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	os.Setenv("PORT", "9000")
	defer os.Clearenv()

	cfg, err := ParseFlags([]string{"-p", "8080", "-d", "file:test.db", "-token-secret", "s1", "-tz", "Europe/Athens", "-base-url", "https://hoa.example.com/"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("expected sqlite default, got %s", cfg.DatabaseType)
	}
	if cfg.BaseURL != "https://hoa.example.com" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.BaseURL)
	}
	if cfg.Location().String() != "Europe/Athens" {
		t.Errorf("expected Europe/Athens, got %s", cfg.Location())
	}
}

func TestParseFlags_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"missing database url", map[string]string{"TOKEN_SECRET": "s"}, nil},
		{"missing token secret", map[string]string{"DATABASE_URL": "x"}, nil},
		{"bad database type", map[string]string{"DATABASE_URL": "x", "TOKEN_SECRET": "s"}, []string{"-t", "mysql"}},
		{"bad timezone", map[string]string{"DATABASE_URL": "x", "TOKEN_SECRET": "s"}, []string{"-tz", "Mars/Olympus"}},
		{"bad sweep interval", map[string]string{"DATABASE_URL": "x", "TOKEN_SECRET": "s", "SWEEP_INTERVAL": "soon"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.env {
				os.Setenv(k, v)
			}
			defer os.Clearenv()

			if _, err := ParseFlags(tt.args); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
