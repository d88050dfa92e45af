package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API     APIConfig     `yaml:"api"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`
	FakeAPI FakeAPIConfig `yaml:"fakeapi"`
}

type APIConfig struct {
	BaseURL        string        `yaml:"baseURL" validate:"required,url"`
	Root           string        `yaml:"root" validate:"required,startswith=/"`
	Timeout        time.Duration `yaml:"timeout" validate:"gt=0"`
	RateLimitRPS   float64       `yaml:"rateLimitRPS" validate:"gte=0"`
	RateLimitBurst int           `yaml:"rateLimitBurst" validate:"gte=0"`
	Concurrency    int           `yaml:"concurrency" validate:"gte=1,lte=64"`
}

type CacheConfig struct {
	Backend       string        `yaml:"backend" validate:"oneof=none memory redis"` // none|memory|redis
	Size          int           `yaml:"size" validate:"gte=1"`
	TTL           time.Duration `yaml:"ttl" validate:"gte=0"`
	RedisAddr     string        `yaml:"redisAddr" validate:"required_if=Backend redis"`
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDB" validate:"gte=0,lte=15"`
	RedisPrefix   string        `yaml:"redisPrefix"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"` // debug|info|warn|error
	Format string `yaml:"format" validate:"oneof=json text"`                     // json|text
}

type FakeAPIConfig struct {
	ListenAddr     string        `yaml:"listenAddr" validate:"required,hostname_port"`
	ReadTimeout    time.Duration `yaml:"readTimeout" validate:"gt=0"`
	WriteTimeout   time.Duration `yaml:"writeTimeout" validate:"gt=0"`
	IdleTimeout    time.Duration `yaml:"idleTimeout" validate:"gt=0"`
	RateLimitRPS   float64       `yaml:"rateLimitRPS" validate:"gte=0"`
	RateLimitBurst int           `yaml:"rateLimitBurst" validate:"gte=0"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
}

func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:        "https://pokeapi.co",
			Root:           "/api/v1/",
			Timeout:        10 * time.Second,
			RateLimitRPS:   0,
			RateLimitBurst: 0,
			Concurrency:    4,
		},
		Cache: CacheConfig{
			Backend:     "none",
			Size:        512,
			TTL:         time.Hour,
			RedisAddr:   "",
			RedisDB:     0,
			RedisPrefix: "pkmn:",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		FakeAPI: FakeAPIConfig{
			ListenAddr:     "127.0.0.1:8000",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			IdleTimeout:    60 * time.Second,
			RateLimitRPS:   20,
			RateLimitBurst: 40,
			AllowedOrigins: []string{},
		},
	}
}

type Parsed struct {
	Config Config
	// Args holds what is left after the flags: the subcommand and its operands.
	Args []string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseClientFlags resolves the CLI configuration. Precedence is flag, then
// PKMN_* environment variable, then the YAML file named by -config or
// PKMN_CONFIG, then Default.
func ParseClientFlags(args []string, out io.Writer) (Parsed, error) {
	cfg, err := loadBase(args)
	if err != nil {
		return Parsed{}, err
	}

	fs := flag.NewFlagSet("pkmn", flag.ContinueOnError)
	fs.SetOutput(out)

	var (
		_ = fs.String("config", envOr("PKMN_CONFIG", ""), "Path to a YAML config file")

		baseURL     = fs.String("api.base", envOr("PKMN_API_BASE", cfg.API.BaseURL), "Upstream base URL")
		root        = fs.String("api.root", envOr("PKMN_API_ROOT", cfg.API.Root), "Upstream API root path")
		timeout     = fs.Duration("api.timeout", envOrDuration("PKMN_API_TIMEOUT", cfg.API.Timeout), "HTTP request timeout")
		rps         = fs.Float64("api.rps", envOrFloat("PKMN_API_RPS", cfg.API.RateLimitRPS), "Client-side request rate limit (0 disables)")
		burst       = fs.Int("api.burst", envOrInt("PKMN_API_BURST", cfg.API.RateLimitBurst), "Client-side rate limit burst")
		concurrency = fs.Int("api.concurrency", envOrInt("PKMN_API_CONCURRENCY", cfg.API.Concurrency), "Maximum requests in flight for multi-ref lookups")

		cacheBackend = fs.String("cache.backend", envOr("PKMN_CACHE_BACKEND", cfg.Cache.Backend), "Response cache: none|memory|redis")
		cacheSize    = fs.Int("cache.size", envOrInt("PKMN_CACHE_SIZE", cfg.Cache.Size), "Memory cache entries")
		cacheTTL     = fs.Duration("cache.ttl", envOrDuration("PKMN_CACHE_TTL", cfg.Cache.TTL), "Cache entry TTL (0 keeps entries)")
		redisAddr    = fs.String("redis.addr", envOr("PKMN_REDIS_ADDR", cfg.Cache.RedisAddr), "Redis address (host:port) for cache.backend=redis")
		redisDB      = fs.Int("redis.db", envOrInt("PKMN_REDIS_DB", cfg.Cache.RedisDB), "Redis database number")
		redisPrefix  = fs.String("redis.prefix", envOr("PKMN_REDIS_PREFIX", cfg.Cache.RedisPrefix), "Redis key prefix")

		logLevel  = fs.String("log.level", envOr("PKMN_LOG_LEVEL", cfg.Log.Level), "Log level: debug|info|warn|error")
		logFormat = fs.String("log.format", envOr("PKMN_LOG_FORMAT", cfg.Log.Format), "Log format: json|text")
	)

	if err := fs.Parse(args); err != nil {
		return Parsed{}, err
	}

	cfg.API.BaseURL = strings.TrimSpace(*baseURL)
	cfg.API.Root = strings.TrimSpace(*root)
	cfg.API.Timeout = *timeout
	cfg.API.RateLimitRPS = *rps
	cfg.API.RateLimitBurst = *burst
	cfg.API.Concurrency = *concurrency

	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(*cacheBackend))
	cfg.Cache.Size = *cacheSize
	cfg.Cache.TTL = *cacheTTL
	cfg.Cache.RedisAddr = strings.TrimSpace(*redisAddr)
	cfg.Cache.RedisDB = *redisDB
	cfg.Cache.RedisPrefix = *redisPrefix
	if pw := os.Getenv("PKMN_REDIS_PASSWORD"); pw != "" {
		cfg.Cache.RedisPassword = pw
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(*logLevel))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(*logFormat))

	if err := validateSections(cfg.API, cfg.Cache, cfg.Log); err != nil {
		return Parsed{}, err
	}
	if cfg.API.RateLimitRPS > 0 && cfg.API.RateLimitBurst == 0 {
		return Parsed{}, errors.New("api.burst must be > 0 when api.rps is set")
	}

	return Parsed{Config: cfg, Args: fs.Args()}, nil
}

// ParseFakeAPIFlags resolves the fake upstream server configuration with the
// same precedence as ParseClientFlags.
func ParseFakeAPIFlags(args []string, out io.Writer) (Parsed, error) {
	cfg, err := loadBase(args)
	if err != nil {
		return Parsed{}, err
	}

	fs := flag.NewFlagSet("pkmn-fakeapi", flag.ContinueOnError)
	fs.SetOutput(out)

	var (
		_ = fs.String("config", envOr("PKMN_CONFIG", ""), "Path to a YAML config file")

		listen  = fs.String("listen", envOr("PKMN_FAKEAPI_LISTEN", cfg.FakeAPI.ListenAddr), "Listen address (ip:port)")
		rps     = fs.Float64("rps", envOrFloat("PKMN_FAKEAPI_RPS", cfg.FakeAPI.RateLimitRPS), "Per-client request rate limit (0 disables)")
		burst   = fs.Int("burst", envOrInt("PKMN_FAKEAPI_BURST", cfg.FakeAPI.RateLimitBurst), "Per-client rate limit burst")
		origins = fs.String("cors.origins", envOr("PKMN_FAKEAPI_ORIGINS", strings.Join(cfg.FakeAPI.AllowedOrigins, ",")), "Comma-separated allowed CORS origins")

		logLevel  = fs.String("log.level", envOr("PKMN_LOG_LEVEL", cfg.Log.Level), "Log level: debug|info|warn|error")
		logFormat = fs.String("log.format", envOr("PKMN_LOG_FORMAT", cfg.Log.Format), "Log format: json|text")
	)

	if err := fs.Parse(args); err != nil {
		return Parsed{}, err
	}

	cfg.FakeAPI.ListenAddr = strings.TrimSpace(*listen)
	cfg.FakeAPI.RateLimitRPS = *rps
	cfg.FakeAPI.RateLimitBurst = *burst
	cfg.FakeAPI.AllowedOrigins = splitCSV(*origins)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(*logLevel))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(*logFormat))

	if err := validateSections(cfg.FakeAPI, cfg.Log); err != nil {
		return Parsed{}, err
	}

	return Parsed{Config: cfg, Args: fs.Args()}, nil
}

// LoadFile overlays the YAML document at path onto cfg. Keys absent from the
// file keep their current value.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func loadBase(args []string) (Config, error) {
	cfg := Default()
	path := configPath(args)
	if path == "" {
		return cfg, nil
	}
	if err := LoadFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// configPath finds -config ahead of the real parse, so file values can
// become flag defaults.
func configPath(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" || !strings.HasPrefix(a, "-") {
			break
		}
		name := strings.TrimLeft(a, "-")
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return strings.TrimSpace(v)
		}
		if name == "config" && i+1 < len(args) {
			return strings.TrimSpace(args[i+1])
		}
	}
	return envOr("PKMN_CONFIG", "")
}

func validateSections(sections ...any) error {
	var msgs []string
	for _, s := range sections {
		err := validate.Struct(s)
		if err == nil {
			continue
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Namespace(), describe(fe)))
		}
	}
	if len(msgs) > 0 {
		return errors.New("invalid config: " + strings.Join(msgs, "; "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "url":
		return fmt.Sprintf("invalid URL %q", fe.Value())
	case "oneof":
		return fmt.Sprintf("%q is not one of [%s]", fe.Value(), fe.Param())
	case "startswith":
		return "must start with " + fe.Param()
	case "hostname_port":
		return fmt.Sprintf("invalid host:port %q", fe.Value())
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	default:
		return "invalid value"
	}
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envOrInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envOrDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(s string) []string {
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		t := strings.TrimSpace(r)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
