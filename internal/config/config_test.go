package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "api:\n  publication_id: pub_1\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pub_1", cfg.API.PublicationID)
	assert.Equal(t, "https://api.beehiiv.com/v2", cfg.API.BaseURL)
	assert.Equal(t, 3, cfg.API.Retry.MaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 1, cfg.Sync.StoreRetries)
	assert.Equal(t, 10*time.Second, cfg.Sync.StoreTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Nil(t, cfg.Parser.Denylist)
	assert.False(t, cfg.RabbitMQ.Disabled)
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_NEWSLETTER_KEY", "secret")
	path := writeConfig(t, `
api:
  publication_id: pub_2
  api_key: ${TEST_NEWSLETTER_KEY}
sync:
  interval: 1m
  store_retries: 2
parser:
  denylist: ["rodapé", "apresentado por"]
  summary_length: 120
rabbitmq:
  disabled: true
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.API.APIKey)
	assert.Equal(t, time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 2, cfg.Sync.StoreRetries)
	assert.Equal(t, []string{"rodapé", "apresentado por"}, cfg.Parser.Denylist)
	assert.Equal(t, 120, cfg.Parser.SummaryLength)
	assert.True(t, cfg.RabbitMQ.Disabled)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_MissingPublication(t *testing.T) {
	path := writeConfig(t, "log_level: info\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "publication_id")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config file")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "news", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=news sslmode=disable", d.DSN())
}

func TestParserConfig_Options(t *testing.T) {
	p := ParserConfig{
		ContentBreakClass:      "divider",
		Denylist:               []string{"patrocinado"},
		SummaryLength:          80,
		OwnDomains:             []string{"news.example.com"},
		FallbackPlaceholders:   []string{"manchete"},
		FallbackWrapperPhrases: []string{"resumo do dia"},
	}

	opts := p.Options()

	assert.Equal(t, "divider", opts.ContentBreakClass)
	assert.Equal(t, []string{"patrocinado"}, opts.Denylist)
	assert.Equal(t, 80, opts.SummaryLength)
	assert.Equal(t, []string{"news.example.com"}, opts.OwnDomains)
	assert.Nil(t, opts.MessagingDomains)
	assert.Equal(t, []string{"manchete"}, opts.FallbackPlaceholders)
	assert.Equal(t, []string{"resumo do dia"}, opts.FallbackWrapperPhrases)
}

func TestLoad_StoreRetriesZeroDisablesRetries(t *testing.T) {
	path := writeConfig(t, "api:\n  publication_id: pub_1\nsync:\n  store_retries: 0\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Sync.StoreRetries)
}

func TestLoad_FallbackPhrases(t *testing.T) {
	path := writeConfig(t, `
api:
  publication_id: pub_1
parser:
  fallback_placeholders: ["manchete"]
  fallback_wrapper_phrases: ["resumo do dia", "giro por"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"manchete"}, cfg.Parser.FallbackPlaceholders)
	assert.Equal(t, []string{"resumo do dia", "giro por"}, cfg.Parser.Options().FallbackWrapperPhrases)
}
