package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkmn-dev/pkmn/internal/config"
	"github.com/pkmn-dev/pkmn/internal/logging"
	"github.com/pkmn-dev/pkmn/pkg/pkmn"
	"github.com/pkmn-dev/pkmn/pkg/pkmncache"
	"github.com/pkmn-dev/pkmn/pkg/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func usage(w io.Writer) {
	fmt.Fprint(w, `pkmn: Pokemon data API client

Usage:
  pkmn [flags] get <kind> <ref> [ref...]
  pkmn [flags] get <resource_uri>
  pkmn [flags] resource <resource_uri>
  pkmn [flags] query <kind/ref>
  pkmn kinds
  pkmn version

Kinds: pokemon, game, pokedex, type, move, ability, egg, description, sprite.
Refs are numeric ids or names. Resources print as JSON on stdout.

Run "pkmn -h" for flags. Every flag also reads a PKMN_* environment
variable and a YAML file given by -config.
`)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	parsed, err := config.ParseClientFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		usage(stderr)
		return 2
	}
	if err != nil {
		return fail(stderr, err)
	}
	cfg := parsed.Config
	rest := parsed.Args
	if len(rest) < 1 {
		usage(stderr)
		return 2
	}

	log := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	}, stderr)

	switch rest[0] {
	case "version":
		runVersion(stdout)
		return 0
	case "kinds":
		for _, k := range pkmn.Kinds() {
			fmt.Fprintln(stdout, k)
		}
		return 0
	case "get", "resource", "query":
	default:
		usage(stderr)
		return 2
	}

	if len(rest) < 2 {
		usage(stderr)
		return 2
	}

	client, closeFn, err := newClient(ctx, cfg, log)
	if err != nil {
		return fail(stderr, err)
	}
	defer closeFn()

	var out any
	switch rest[0] {
	case "get":
		out, err = runGet(ctx, client, rest[1:])
	case "resource":
		out, err = client.Resource(ctx, rest[1])
	case "query":
		out, err = client.End(ctx, rest[1])
	}
	if err != nil {
		return fail(stderr, err)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fail(stderr, err)
	}
	return 0
}

func runGet(ctx context.Context, client *pkmn.Client, args []string) (any, error) {
	kind := pkmn.Kind(strings.ToLower(strings.TrimSpace(args[0])))
	switch len(args) {
	case 1:
		return client.Get(ctx, kind, "")
	case 2:
		return client.Get(ctx, kind, pkmn.Ref(args[1]))
	default:
		refs := make([]pkmn.Ref, 0, len(args)-1)
		for _, a := range args[1:] {
			refs = append(refs, pkmn.Ref(a))
		}
		return client.GetMany(ctx, kind, refs...)
	}
}

func newClient(ctx context.Context, cfg config.Config, log *slog.Logger) (*pkmn.Client, func(), error) {
	opts := []pkmn.Option{
		pkmn.WithBaseURL(cfg.API.BaseURL),
		pkmn.WithAPIRoot(cfg.API.Root),
		pkmn.WithTimeout(cfg.API.Timeout),
		pkmn.WithUserAgent(version.UserAgent("pkmn-cli")),
		pkmn.WithLogger(log),
		pkmn.WithConcurrency(cfg.API.Concurrency),
	}
	if cfg.API.RateLimitRPS > 0 {
		opts = append(opts, pkmn.WithRateLimit(cfg.API.RateLimitRPS, cfg.API.RateLimitBurst))
	}

	closeFn := func() {}
	switch cfg.Cache.Backend {
	case "memory":
		opts = append(opts, pkmn.WithCache(pkmncache.NewMemory(cfg.Cache.Size, cfg.Cache.TTL)))
	case "redis":
		rdb, err := pkmncache.DialRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		closeFn = func() { _ = rdb.Close() }
		opts = append(opts, pkmn.WithCache(pkmncache.NewRedis(rdb, cfg.Cache.RedisPrefix, cfg.Cache.TTL, log)))
	}

	client, err := pkmn.New(opts...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	log.Debug("client ready", "base", client.BaseURL(), "cache", cfg.Cache.Backend)
	return client, closeFn, nil
}

func runVersion(w io.Writer) {
	v := version.Get()
	fmt.Fprintf(w, "pkmn\nVersion: %s\nCommit:  %s\nGo:      %s\nTarget:  %s\n",
		v.Version, v.Commit, v.GoVersion, v.Platform)
}

func fail(w io.Writer, err error) int {
	_, _ = io.WriteString(w, "pkmn error: "+err.Error()+"\n")
	return 1
}
