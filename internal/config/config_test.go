package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		AI: AIConfig{
			Provider:    "gemini",
			Model:       "gemini-2.0-flash",
			Timeout:     30 * time.Second,
			MaxRetries:  2,
			Temperature: 0.2,
		},
		Match: MatchConfig{DefaultLimit: 10},
		Server: ServerConfig{
			Host: "localhost",
			Port: "8080",
			TLS:  TLSConfig{Mode: "disabled"},
		},
		App: AppConfig{
			LogLevel:         "info",
			DefaultFormat:    "json",
			SupportedFormats: []string{"json", "text", "markdown"},
		},
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		require.NoError(t, validConfig().Validate())
	})

	t.Run("missing API key is allowed", func(t *testing.T) {
		cfg := validConfig()
		cfg.AI.APIKey = ""
		assert.NoError(t, cfg.Validate())
		assert.False(t, cfg.ModelScoringEnabled())
	})

	t.Run("missing port fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Port = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-positive timeout fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.AI.Timeout = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-positive default limit fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.Match.DefaultLimit = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown default format fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.App.DefaultFormat = "xml"
		assert.Error(t, cfg.Validate())
	})
}

func TestGetMatchConfigFallbacks(t *testing.T) {
	cfg := validConfig()
	cfg.AI.APIKey = "global-key"
	cfg.AI.UseSystemPrompts = true

	match := cfg.GetMatchConfig()

	assert.Equal(t, "gemini", match.Provider)
	assert.Equal(t, "gemini-2.0-flash", match.Model)
	assert.Equal(t, "global-key", match.APIKey)
	require.NotNil(t, match.Timeout)
	assert.Equal(t, 30*time.Second, *match.Timeout)
	require.NotNil(t, match.MaxRetries)
	assert.Equal(t, 2, *match.MaxRetries)
	require.NotNil(t, match.Temperature)
	assert.InDelta(t, 0.2, float64(*match.Temperature), 1e-6)
	require.NotNil(t, match.UseSystemPrompts)
	assert.True(t, *match.UseSystemPrompts)
}

func TestGetMatchConfigOperationOverrides(t *testing.T) {
	cfg := validConfig()
	cfg.AI.APIKey = "global-key"
	opTimeout := 10 * time.Second
	cfg.AI.Match = OperationAIConfig{
		Model:   "gemini-2.5-pro",
		APIKey:  "match-key",
		Timeout: &opTimeout,
	}

	match := cfg.GetMatchConfig()

	assert.Equal(t, "gemini-2.5-pro", match.Model)
	assert.Equal(t, "match-key", match.APIKey)
	assert.Equal(t, opTimeout, *match.Timeout)
	// Unset fields still fall back to globals.
	assert.Equal(t, "gemini", match.Provider)
}

func TestModelScoringEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.AI.APIKey = "key"
	assert.True(t, cfg.ModelScoringEnabled())

	cfg.Match.FallbackOnly = true
	assert.False(t, cfg.ModelScoringEnabled())
}

func TestValidateTLSConfig(t *testing.T) {
	tests := []struct {
		name    string
		tls     TLSConfig
		wantErr bool
	}{
		{"disabled mode", TLSConfig{Mode: "disabled"}, false},
		{"server mode with files", TLSConfig{Mode: "server", CertFile: "cert.pem", KeyFile: "key.pem"}, false},
		{"server mode missing key", TLSConfig{Mode: "server", CertFile: "cert.pem"}, true},
		{"mutual mode complete", TLSConfig{Mode: "mutual", CertFile: "cert.pem", KeyFile: "key.pem", CAFile: "ca.pem", ClientAuthPolicy: "require"}, false},
		{"mutual mode missing CA", TLSConfig{Mode: "mutual", CertFile: "cert.pem", KeyFile: "key.pem"}, true},
		{"mutual mode bad policy", TLSConfig{Mode: "mutual", CertFile: "cert.pem", KeyFile: "key.pem", CAFile: "ca.pem", ClientAuthPolicy: "never"}, true},
		{"unknown mode", TLSConfig{Mode: "both"}, true},
		{"bad min version", TLSConfig{Mode: "server", CertFile: "cert.pem", KeyFile: "key.pem", MinVersion: "1.0"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Server.TLS = tt.tls
			err := cfg.ValidateTLSConfig()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
