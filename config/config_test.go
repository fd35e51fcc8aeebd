package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("CONFIG_PATH", path)
}

func TestLoadConfig(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":8080"
mongo:
  uri: "mongodb://localhost:27017"
  database: "qna_test"
redis:
  addr: "localhost:6379"
  db: 2
session:
  graceDelay: "10s"
  storeTimeout: "2s"
logging:
  env: "prod"
  backend: "zap"
  debug: true
`)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "qna_test", cfg.Mongo.Database)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "prod", cfg.Logging.Env)
	assert.Equal(t, "zap", cfg.Logging.Backend)
	assert.True(t, cfg.Logging.Debug)
	assert.Equal(t, 10*time.Second, cfg.GraceDelay())
	assert.Equal(t, 2*time.Second, cfg.StoreTimeout())
}

func TestLoadConfigDefaults(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":8080"
mongo:
  uri: "mongodb://localhost:27017"
redis:
  addr: "localhost:6379"
`)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "qna", cfg.Mongo.Database)
	assert.Equal(t, "qna-service", cfg.Logging.Service)
	assert.Equal(t, "dev", cfg.Logging.Env)
	assert.Equal(t, "v0.1.0", cfg.Logging.Version)
	assert.Equal(t, "std", cfg.Logging.Backend)
	assert.Equal(t, 5*time.Second, cfg.GraceDelay())
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout())
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing http addr",
			body: "mongo:\n  uri: \"mongodb://localhost\"\nredis:\n  addr: \"localhost:6379\"\n",
			want: "http.addr is required",
		},
		{
			name: "missing mongo uri",
			body: "http:\n  addr: \":8080\"\nredis:\n  addr: \"localhost:6379\"\n",
			want: "mongo.uri is required",
		},
		{
			name: "missing redis addr",
			body: "http:\n  addr: \":8080\"\nmongo:\n  uri: \"mongodb://localhost\"\n",
			want: "redis.addr is required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			writeConfig(t, tc.body)
			_, err := LoadConfig()
			require.Error(t, err)
			assert.EqualError(t, err, tc.want)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestDurationFallbackOnGarbage(t *testing.T) {
	cfg := &Config{Session: Session{GraceDelay: "soon", StoreTimeout: "-3s"}}

	assert.Equal(t, 5*time.Second, cfg.GraceDelay())
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout())
}
