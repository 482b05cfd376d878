package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
app:
  name: ratedesk-test
backend:
  base_url: https://backend.example.com
database:
  path: /tmp/ratedesk-test.db
`

func TestLoadMinimal(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "ratedesk-test", cfg.App.Name)
	assert.Equal(t, "https://backend.example.com", cfg.Backend.BaseURL)

	// Defaults applied.
	assert.Equal(t, 15, cfg.Backend.TimeoutSeconds)
	assert.Equal(t, 6, cfg.Calendar.RestDay())
	assert.Equal(t, "Asia/Tehran", cfg.Calendar.Timezone)
	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	// No keys configured, so auth resolves to off.
	assert.False(t, cfg.API.Auth.AuthEnabled())
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, "exports", cfg.Exports.Path)
	assert.Equal(t, 20, cfg.Worker.BatchSize)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "backend: [not a map"))
	assert.Error(t, err)
}

func TestValidateBackendRequired(t *testing.T) {
	_, err := Load(writeConfig(t, `
database:
  path: /tmp/x.db
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}

func TestValidateDatabaseRequired(t *testing.T) {
	_, err := Load(writeConfig(t, `
backend:
  base_url: https://backend.example.com
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database path")
}

func TestValidateTelegramToken(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
telegram:
  enabled: true
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot_token")
}

func TestValidateWorkerCredentials(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
worker:
  enabled: true
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials_file")
}

func TestEnvExpansion(t *testing.T) {
	t.Setenv("RATEDESK_TEST_TOKEN", "secret-token")

	cfg, err := Load(writeConfig(t, `
backend:
  base_url: https://backend.example.com
  api_token: ${RATEDESK_TEST_TOKEN}
database:
  path: /tmp/x.db
`))
	require.NoError(t, err)
	assert.Equal(t, "secret-token", cfg.Backend.APIToken)
}

func TestAPIKeysParsed(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
api:
  enabled: true
  auth:
    api_keys:
      - key: k1
        extra: e1
        name: frontdesk
        permissions: ["calendar:write"]
`))
	require.NoError(t, err)
	require.Len(t, cfg.API.Auth.APIKeys, 1)
	assert.Equal(t, "frontdesk", cfg.API.Auth.APIKeys[0].Name)
	assert.True(t, cfg.API.HTTP.Enabled)
	// Keys present and no explicit setting: auth is on.
	assert.True(t, cfg.API.Auth.AuthEnabled())
}

func TestAuthCanBeDisabled(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
api:
  auth:
    enabled: false
    api_keys:
      - key: k1
        extra: e1
`))
	require.NoError(t, err)
	assert.False(t, cfg.API.Auth.AuthEnabled())
}

func TestRestWeekdaySaturday(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
calendar:
  rest_weekday: 0
  rest_day_name: Shabbat
`))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Calendar.RestDay())

	_, err = Load(writeConfig(t, minimalConfig+`
calendar:
  rest_weekday: 9
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rest_weekday")
}
