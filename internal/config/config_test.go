package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pkmn.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseClientFlagsDefaults(t *testing.T) {
	p, err := ParseClientFlags([]string{"get", "pokemon", "1"}, io.Discard)
	require.NoError(t, err)

	require.Equal(t, Default().API, p.Config.API)
	require.Equal(t, "none", p.Config.Cache.Backend)
	require.Equal(t, []string{"get", "pokemon", "1"}, p.Args)
}

func TestParseClientFlagsPrecedence(t *testing.T) {
	path := writeFile(t, `
api:
  baseURL: http://file.example
  timeout: 3s
  concurrency: 2
cache:
  backend: memory
  ttl: 5m
log:
  level: debug
`)
	t.Setenv("PKMN_API_TIMEOUT", "7s")

	p, err := ParseClientFlags([]string{"-config", path, "-api.concurrency=8", "kinds"}, io.Discard)
	require.NoError(t, err)

	cfg := p.Config
	require.Equal(t, "http://file.example", cfg.API.BaseURL)
	require.Equal(t, 7*time.Second, cfg.API.Timeout, "env beats file")
	require.Equal(t, 8, cfg.API.Concurrency, "flag beats file")
	require.Equal(t, "memory", cfg.Cache.Backend)
	require.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "/api/v1/", cfg.API.Root, "absent keys keep defaults")
	require.Equal(t, []string{"kinds"}, p.Args)
}

func TestParseClientFlagsConfigFromEnv(t *testing.T) {
	path := writeFile(t, "api:\n  baseURL: http://env-file.example\n")
	t.Setenv("PKMN_CONFIG", path)

	p, err := ParseClientFlags(nil, io.Discard)
	require.NoError(t, err)
	require.Equal(t, "http://env-file.example", p.Config.API.BaseURL)
}

func TestParseClientFlagsValidation(t *testing.T) {
	cases := map[string][]string{
		"bad url":          {"-api.base", "not a url"},
		"bad root":         {"-api.root", "api/v1"},
		"zero timeout":     {"-api.timeout", "0s"},
		"bad backend":      {"-cache.backend", "disk"},
		"redis needs addr": {"-cache.backend", "redis"},
		"rps needs burst":  {"-api.rps", "5"},
		"bad log level":    {"-log.level", "loud"},
		"bad log format":   {"-log.format", "xml"},
		"high concurrency": {"-api.concurrency", "1000"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseClientFlags(args, io.Discard)
			require.Error(t, err)
		})
	}
}

func TestParseClientFlagsRedis(t *testing.T) {
	t.Setenv("PKMN_REDIS_PASSWORD", "secret")

	p, err := ParseClientFlags([]string{"-cache.backend", "Redis", "-redis.addr", "localhost:6379"}, io.Discard)
	require.NoError(t, err)
	require.Equal(t, "redis", p.Config.Cache.Backend)
	require.Equal(t, "localhost:6379", p.Config.Cache.RedisAddr)
	require.Equal(t, "secret", p.Config.Cache.RedisPassword)
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "api:\n  baseUrl: http://typo.example\n")

	cfg := Default()
	require.Error(t, LoadFile(path, &cfg))

	_, err := ParseClientFlags([]string{"--config=" + path}, io.Discard)
	require.Error(t, err)
}

func TestLoadFileEmpty(t *testing.T) {
	cfg := Default()
	require.NoError(t, LoadFile(writeFile(t, ""), &cfg))
	require.Equal(t, Default(), cfg)

	require.Error(t, LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), &cfg))
}

func TestParseFakeAPIFlags(t *testing.T) {
	p, err := ParseFakeAPIFlags([]string{"-listen", "127.0.0.1:9999", "-cors.origins", "http://a.example, ,http://b.example"}, io.Discard)
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:9999", p.Config.FakeAPI.ListenAddr)
	require.Equal(t, []string{"http://a.example", "http://b.example"}, p.Config.FakeAPI.AllowedOrigins)

	_, err = ParseFakeAPIFlags([]string{"-listen", "nowhere"}, io.Discard)
	require.Error(t, err)
}

func TestConfigPath(t *testing.T) {
	require.Equal(t, "a.yaml", configPath([]string{"-config", "a.yaml", "get"}))
	require.Equal(t, "b.yaml", configPath([]string{"--config=b.yaml"}))
	require.Equal(t, "", configPath([]string{"get", "-config", "c.yaml"}))
}
