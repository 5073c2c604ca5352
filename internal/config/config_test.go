package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: 9090
app:
  debug: true
openai:
  apiKey: sk-file
  model: gpt-3.5-turbo-instruct
  maxPromptSize: 4096
database:
  driver: Postgres
  host: db
  user: scanner
  password: "p@ss"
  name: findings
minio:
  endpoint: minio:9000
  bucketName: gpt-payloads
auth:
  apiKeys:
    acme: key-1
`

func TestLoad(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.App.Debug)
	assert.Equal(t, "OpenAI", cfg.App.Provider)
	assert.Equal(t, "sk-file", cfg.OpenAI.APIKey)
	assert.Equal(t, 4096, cfg.OpenAI.MaxPromptSize)
	assert.Equal(t, 60*time.Second, cfg.OpenAITimeout())
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.True(t, cfg.MinioEnabled())
	assert.Equal(t, map[string]string{"acme": "key-1"}, cfg.Auth.APIKeys)
	assert.Equal(t, "postgres://scanner:p%40ss@db:5432/findings?sslmode=disable", cfg.PostgresDSN())
}

func TestParse_EnvOverridesAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.OpenAI.APIKey)
}

func TestParse_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Parse([]byte(`{}`))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, 2048, cfg.OpenAI.MaxPromptSize)
	assert.Empty(t, cfg.Database.Driver)
	assert.False(t, cfg.MinioEnabled())
	assert.Equal(t, 60, cfg.RateLimit.Capacity)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("database:\n  driver: mongo\n"))
	assert.ErrorContains(t, err, "unsupported database driver")

	_, err = Parse([]byte("openai:\n  baseURL: '::nope'\n"))
	assert.ErrorContains(t, err, "invalid openai.baseURL")

	_, err = Parse([]byte("server: [oops"))
	assert.ErrorContains(t, err, "parse config")
}

func TestMySQLDSN(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := Parse([]byte("database:\n  driver: mysql\n  host: db\n  user: u\n  password: p\n  name: n\n"))
	require.NoError(t, err)
	assert.Equal(t, "u:p@tcp(db:3306)/n?parseTime=true&charset=utf8mb4&loc=UTC", cfg.MySQLDSN())
}

func TestParse_SQLiteDefaultPath(t *testing.T) {
	cfg, err := Parse([]byte("database:\n  driver: SQLite\n"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "burpgpt.db", cfg.Database.Path)
	assert.Zero(t, cfg.Database.Port)
}
