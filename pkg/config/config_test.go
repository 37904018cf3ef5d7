package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zotbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func env(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 15*time.Second, cfg.Connector.Timeout)
	assert.Equal(t, 120*time.Second, cfg.Connector.AttachmentTimeout)
	assert.Equal(t, RendererHTTP, cfg.Snapshot.Renderer)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
translation:
  url: http://translate.internal:1969
connector:
  attachment_timeout: 5m
  validate_pdf: true
snapshot:
  renderer: browser
  wait_until: networkidle
tools:
  denied: ["export_*"]
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://translate.internal:1969", cfg.Translation.URL)
	assert.Equal(t, 15*time.Second, cfg.Translation.Timeout, "unset fields keep defaults")
	assert.Equal(t, 5*time.Minute, cfg.Connector.AttachmentTimeout)
	assert.True(t, cfg.Connector.ValidatePDF)
	assert.Equal(t, RendererBrowser, cfg.Snapshot.Renderer)
	assert.Equal(t, []string{"export_*"}, cfg.Tools.Denied)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, path, cfg.ConfigFilePath)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = Load(writeConfig(t, "connector: [not, a, map]"))
	assert.ErrorContains(t, err, "failed to parse config file")

	_, err = Load(writeConfig(t, "snapshot:\n  renderer: carrier-pigeon\n"))
	assert.ErrorContains(t, err, "invalid snapshot.renderer")
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyEnv(env(map[string]string{
		EnvTranslationURL:         "http://ts:1969",
		EnvTranslationTimeoutMS:   "2500",
		EnvConnectorURL:           "http://zotero:23119",
		EnvRequestTimeoutMS:       "30000",
		EnvConnectorAPIVersion:    "2",
		EnvConnectorClientVersion: "my-agent",
		EnvLocalAPIKey:            "local-key",
		EnvWebAPIKey:              "web-key",
		EnvWebAPIURL:              "  ",
	}))
	require.NoError(t, err)

	assert.Equal(t, "http://ts:1969", cfg.Translation.URL)
	assert.Equal(t, 2500*time.Millisecond, cfg.Translation.Timeout)
	assert.Equal(t, "http://zotero:23119", cfg.Connector.URL)
	assert.Equal(t, 30*time.Second, cfg.Connector.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Local.Timeout)
	assert.Equal(t, 120*time.Second, cfg.Connector.AttachmentTimeout)
	assert.Equal(t, 2, cfg.Connector.APIVersion)
	assert.Equal(t, "my-agent", cfg.Connector.ClientVersion)
	assert.Equal(t, "local-key", cfg.Local.APIKey)
	assert.Equal(t, "web-key", cfg.Web.APIKey)
	assert.Equal(t, "https://api.zotero.org", cfg.Web.URL, "blank values are ignored")
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{name: "timeout not a number", vars: map[string]string{EnvTranslationTimeoutMS: "soon"}},
		{name: "negative timeout", vars: map[string]string{EnvRequestTimeoutMS: "-5"}},
		{name: "api version", vars: map[string]string{EnvConnectorAPIVersion: "three"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, DefaultConfig().ApplyEnv(env(tt.vars)))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "bad scheme", mutate: func(c *Config) { c.Connector.URL = "ftp://x" }, wantErr: "connector.url"},
		{name: "no host", mutate: func(c *Config) { c.Web.URL = "https://" }, wantErr: "web.url"},
		{name: "zero timeout", mutate: func(c *Config) { c.Translation.Timeout = 0 }, wantErr: "translation.timeout"},
		{name: "api version", mutate: func(c *Config) { c.Connector.APIVersion = 0 }, wantErr: "api_version"},
		{name: "wait until", mutate: func(c *Config) { c.Snapshot.WaitUntil = "forever" }, wantErr: "wait_until"},
		{name: "bad glob", mutate: func(c *Config) { c.Tools.Allowed = []string{"translate_[web"} }, wantErr: "invalid tool pattern"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: "invalid logging level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestValidateDefaultsLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = ""
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.Logging.Level)
}
