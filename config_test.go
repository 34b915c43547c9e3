package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Seednode/joker/internal/engine"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRules(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadRulesDefaults(t *testing.T) {
	rules, err := loadRules("")
	require.NoError(t, err)

	if diff := cmp.Diff(engine.DefaultRules(), rules); diff != "" {
		t.Errorf("default rules differ (-want +got):\n%s", diff)
	}
}

func TestLoadRulesOverlay(t *testing.T) {
	path := writeRules(t, "rules.yaml", `
max_log_entries: 50
durations:
  red_light: 45s
quotas:
  "5":
    goose: 3
    duck: 2
`)

	rules, err := loadRules(path)
	require.NoError(t, err)

	defaults := engine.DefaultRules()
	assert.Equal(t, 50, rules.MaxLogEntries)
	assert.Equal(t, 45*time.Second, rules.Durations.RedLight)
	assert.Equal(t, defaults.Durations.Meeting, rules.Durations.Meeting)
	assert.Equal(t, map[engine.Role]int{engine.RoleGoose: 3, engine.RoleDuck: 2}, rules.Quotas[5])
	assert.Equal(t, defaults.Quotas[6], rules.Quotas[6])
	assert.Equal(t, defaults.InitialOxygen, rules.InitialOxygen)
}

func TestLoadRulesRejectsBadQuota(t *testing.T) {
	path := writeRules(t, "rules.json", `{"quotas": {"5": {"goose": 1}}}`)

	_, err := loadRules(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrRoleTable)
}

func TestLoadRulesMissingFile(t *testing.T) {
	_, err := loadRules(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{port: 8080, rateLimit: 4, rateBurst: 5}
	}

	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{name: "defaults", modify: func(*Config) {}, ok: true},
		{name: "port too low", modify: func(c *Config) { c.port = 0 }},
		{name: "port too high", modify: func(c *Config) { c.port = 70000 }},
		{name: "cert without key", modify: func(c *Config) { c.tlsCert = "cert.pem" }},
		{name: "zero rate", modify: func(c *Config) { c.rateLimit = 0 }},
		{name: "zero burst", modify: func(c *Config) { c.rateBurst = 0 }},
		{name: "missing rules file", modify: func(c *Config) { c.rulesFile = "/nonexistent/rules.yaml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)

			err := cfg.validate()
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, engine.DefaultRules().MinPlayers, cfg.rules.MinPlayers)
				return
			}
			assert.Error(t, err)
		})
	}
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("JOKER_PORT", "9090")
	t.Setenv("JOKER_RATE_LIMIT", "2.5")
	t.Setenv("JOKER_SESSION_TIMEOUT", "5m")

	cfg := &Config{}
	_ = newCmd(cfg)

	assert.Equal(t, 9090, cfg.port)
	assert.InDelta(t, 2.5, cfg.rateLimit, 0.0001)
	assert.Equal(t, 5*time.Minute, cfg.sessionTimeout)
	assert.Equal(t, 5, cfg.rateBurst)
}

func TestScheme(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, "http", cfg.scheme())

	cfg.tlsCert, cfg.tlsKey = "cert.pem", "key.pem"
	assert.Equal(t, "https", cfg.scheme())
}
