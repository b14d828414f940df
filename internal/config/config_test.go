package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear environment
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.LineAPIBaseURL != "https://api.line.me" {
		t.Errorf("LineAPIBaseURL = %q, want default", cfg.LineAPIBaseURL)
	}
	if cfg.SessionTTLRaw != "10m" {
		t.Errorf("SessionTTLRaw = %q, want %q", cfg.SessionTTLRaw, "10m")
	}
	if cfg.RegistryTimeoutRaw != "3s" {
		t.Errorf("RegistryTimeoutRaw = %q, want %q", cfg.RegistryTimeoutRaw, "3s")
	}
	if cfg.LinkCodeBcryptCost != 10 {
		t.Errorf("LinkCodeBcryptCost = %d, want 10", cfg.LinkCodeBcryptCost)
	}
	if cfg.TelemetryKafkaTopic != "busbot-telemetry" {
		t.Errorf("TelemetryKafkaTopic = %q, want default", cfg.TelemetryKafkaTopic)
	}
	if cfg.KafkaGroupID != "busbot-telemetry-worker" {
		t.Errorf("KafkaGroupID = %q, want default", cfg.KafkaGroupID)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("LINE_CHANNEL_SECRET", "channel-secret")
	os.Setenv("SESSION_TTL", "30m")
	os.Setenv("LINK_CODE_BCRYPT_COST", "12")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.LineChannelSecret != "channel-secret" {
		t.Errorf("LineChannelSecret = %q, want %q", cfg.LineChannelSecret, "channel-secret")
	}
	if cfg.SessionTTLRaw != "30m" {
		t.Errorf("SessionTTLRaw = %q, want %q", cfg.SessionTTLRaw, "30m")
	}
	if cfg.LinkCodeBcryptCost != 12 {
		t.Errorf("LinkCodeBcryptCost = %d, want 12", cfg.LinkCodeBcryptCost)
	}
}

func TestLoad_InvalidBcryptCost(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("LINK_CODE_BCRYPT_COST", "99")

	if _, err := Load(); err == nil {
		t.Fatal("Load with LINK_CODE_BCRYPT_COST=99 should return error")
	}
}

func TestSessionTTL(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want time.Duration
	}{
		{"valid", "30m", 30 * time.Minute},
		{"seconds", "90s", 90 * time.Second},
		{"empty", "", 10 * time.Minute},
		{"invalid", "soon", 10 * time.Minute},
		{"negative", "-5m", 10 * time.Minute},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{SessionTTLRaw: tc.raw}
			if got := cfg.SessionTTL(); got != tc.want {
				t.Errorf("SessionTTL() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRegistryTimeout(t *testing.T) {
	cfg := &Config{RegistryTimeoutRaw: "5s"}
	if got := cfg.RegistryTimeout(); got != 5*time.Second {
		t.Errorf("RegistryTimeout() = %v, want 5s", got)
	}
	cfg = &Config{RegistryTimeoutRaw: "bogus"}
	if got := cfg.RegistryTimeout(); got != 3*time.Second {
		t.Errorf("RegistryTimeout() = %v, want 3s fallback", got)
	}
}

func TestTelemetryKafkaBrokersList(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"single", "localhost:9092", []string{"localhost:9092"}},
		{"multiple", "a:9092, b:9092", []string{"a:9092", "b:9092"}},
		{"trailing comma", "a:9092,", []string{"a:9092"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{TelemetryKafkaBrokers: tc.raw}
			got := cfg.TelemetryKafkaBrokersList()
			if len(got) != len(tc.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tc.want))
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("broker[%d] = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}
