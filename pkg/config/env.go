package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LookupFunc reports an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Environment variables understood by ApplyEnv. The names match the ones
// the Zotero translation-server tooling already uses.
const (
	EnvTranslationURL         = "TRANSLATION_SERVER_URL"
	EnvTranslationTimeoutMS   = "TRANSLATION_SERVER_TIMEOUT_MS"
	EnvConnectorURL           = "ZOTERO_CONNECTOR_URL"
	EnvRequestTimeoutMS       = "ZOTERO_REQUEST_TIMEOUT_MS"
	EnvConnectorAPIVersion    = "ZOTERO_CONNECTOR_API_VERSION"
	EnvConnectorClientVersion = "ZOTERO_CONNECTOR_CLIENT_VERSION"
	EnvLocalAPIURL            = "ZOTERO_LOCAL_API_URL"
	EnvLocalAPIKey            = "ZOTERO_LOCAL_API_KEY"
	EnvWebAPIURL              = "ZOTERO_WEB_API_URL"
	EnvWebAPIKey              = "ZOTERO_API_KEY"
)

// ApplyEnv overrides fields from the environment. Empty values are ignored.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	millis := func(key string, dst ...*time.Duration) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		ms, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || ms <= 0 {
			return fmt.Errorf("%s: expected a positive number of milliseconds, got %q", key, v)
		}
		for _, d := range dst {
			*d = time.Duration(ms) * time.Millisecond
		}
		return nil
	}

	str(EnvTranslationURL, &c.Translation.URL)
	if err := millis(EnvTranslationTimeoutMS, &c.Translation.Timeout); err != nil {
		return err
	}

	str(EnvConnectorURL, &c.Connector.URL)
	if err := millis(EnvRequestTimeoutMS, &c.Connector.Timeout, &c.Local.Timeout, &c.Web.Timeout); err != nil {
		return err
	}
	if v, ok := lookup(EnvConnectorAPIVersion); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvConnectorAPIVersion, err)
		}
		c.Connector.APIVersion = n
	}
	str(EnvConnectorClientVersion, &c.Connector.ClientVersion)

	str(EnvLocalAPIURL, &c.Local.URL)
	str(EnvLocalAPIKey, &c.Local.APIKey)
	str(EnvWebAPIURL, &c.Web.URL)
	str(EnvWebAPIKey, &c.Web.APIKey)
	return nil
}
