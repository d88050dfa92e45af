package pkmn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pkmn-dev/pkmn/pkg/version"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Upstream defaults used when no WithBaseURL or WithAPIRoot option is given.
const (
	DefaultBaseURL = "https://pokeapi.co"
	DefaultAPIRoot = "/api/v1/"

	defaultTimeout     = 10 * time.Second
	defaultConcurrency = 4
	maxBodyBytes       = 8 << 20
)

var segmentRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Cache holds raw response bodies. Implementations must be safe for
// concurrent use; a failed lookup is reported as a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
}

// Client fetches v1 resources from the upstream API. It is safe for
// concurrent use.
type Client struct {
	baseURL     string
	apiRoot     string
	http        *http.Client
	timeout     time.Duration
	userAgent   string
	log         *slog.Logger
	limiter     *rate.Limiter
	cache       Cache
	registerer  prometheus.Registerer
	metrics     *metrics
	concurrency int
}

// New builds a Client, applying opts over the defaults.
func New(opts ...Option) (*Client, error) {
	cl := &Client{
		baseURL:     DefaultBaseURL,
		apiRoot:     DefaultAPIRoot,
		timeout:     defaultTimeout,
		userAgent:   version.UserAgent("pkmn-go"),
		log:         slog.New(slog.DiscardHandler),
		concurrency: defaultConcurrency,
	}
	for _, o := range opts {
		o(cl)
	}

	cl.baseURL = strings.TrimRight(strings.TrimSpace(cl.baseURL), "/")
	if cl.baseURL == "" {
		return nil, errors.New("baseURL must not be empty")
	}
	u, err := url.Parse(cl.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid baseURL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid baseURL scheme %q", u.Scheme)
	}

	cl.apiRoot = "/" + strings.Trim(strings.TrimSpace(cl.apiRoot), "/") + "/"
	if cl.apiRoot == "//" {
		return nil, errors.New("apiRoot must not be empty")
	}

	if cl.http == nil {
		cl.http = &http.Client{Timeout: cl.timeout}
	}
	if cl.registerer != nil {
		m, err := newMetrics(cl.registerer)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		cl.metrics = m
	}
	return cl, nil
}

// BaseURL returns the upstream host the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// End runs a raw query such as "pokemon/1" or "/api/v1/description/4/".
func (c *Client) End(ctx context.Context, query string) (Resource, error) {
	q, kind, err := c.normalize(query)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	return c.fetch(ctx, kind, q)
}

// Get fetches one resource of kind. A resource URI may be passed as kind
// with an empty ref, in which case Get behaves like Resource.
func (c *Client) Get(ctx context.Context, kind Kind, ref Ref) (Resource, error) {
	ref = ref.normalized()
	if ref == "" {
		if c.isResourceURI(string(kind)) {
			return c.Resource(ctx, string(kind))
		}
		return nil, &QueryError{Query: string(kind), Err: ErrTooFewArguments}
	}
	return c.End(ctx, string(kind)+"/"+string(ref)+"/")
}

// GetMany fetches several resources of one kind concurrently. Results keep
// the order of refs; the first failure fails the whole call.
func (c *Client) GetMany(ctx context.Context, kind Kind, refs ...Ref) ([]Resource, error) {
	if len(refs) == 0 {
		return nil, &QueryError{Query: string(kind), Err: ErrTooFewArguments}
	}

	index := make(map[Ref]int, len(refs))
	unique := make([]Ref, 0, len(refs))
	for _, r := range refs {
		r = r.normalized()
		if _, ok := index[r]; !ok {
			index[r] = len(unique)
			unique = append(unique, r)
		}
	}

	fetched := make([]Resource, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, r := range unique {
		g.Go(func() error {
			res, err := c.Get(gctx, kind, r)
			if err != nil {
				return err
			}
			fetched[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Resource, len(refs))
	seen := make([]bool, len(unique))
	for i, r := range refs {
		j := index[r.normalized()]
		if seen[j] {
			out[i] = fetched[j].Clone()
			continue
		}
		seen[j] = true
		out[i] = fetched[j]
	}
	return out, nil
}

// Resource fetches by resource_uri. Absolute URLs on the client's host are accepted.
func (c *Client) Resource(ctx context.Context, uri string) (Resource, error) {
	u := strings.TrimSpace(uri)
	u = strings.TrimPrefix(u, c.baseURL)
	if !strings.HasPrefix(u, c.apiRoot) {
		return nil, &QueryError{Query: uri, Err: ErrMalformedQuery}
	}
	return c.End(ctx, u)
}

// Follow fetches the resource linked from the nested object res[field].
func (c *Client) Follow(ctx context.Context, res Resource, field string) (Resource, error) {
	obj, ok := res.Object(field)
	if !ok || obj.URI() == "" {
		return nil, fmt.Errorf("follow %q: %w", field, ErrNoLink)
	}
	return c.Resource(ctx, obj.URI())
}

func (c *Client) Pokemon(ctx context.Context, ref Ref) (Resource, error) {
	return c.Get(ctx, KindPokemon, ref)
}

func (c *Client) Game(ctx context.Context, ref Ref) (Resource, error) {
	return c.Get(ctx, KindGame, ref)
}

func (c *Client) Pokedex(ctx context.Context, ref Ref) (Resource, error) {
	return c.Get(ctx, KindPokedex, ref)
}

func (c *Client) Type(ctx context.Context, ref Ref) (Resource, error) {
	return c.Get(ctx, KindType, ref)
}

func (c *Client) Move(ctx context.Context, ref Ref) (Resource, error) {
	return c.Get(ctx, KindMove, ref)
}

func (c *Client) Ability(ctx context.Context, ref Ref) (Resource, error) {
	return c.Get(ctx, KindAbility, ref)
}

func (c *Client) Egg(ctx context.Context, ref Ref) (Resource, error) {
	return c.Get(ctx, KindEgg, ref)
}

func (c *Client) Description(ctx context.Context, ref Ref) (Resource, error) {
	return c.Get(ctx, KindDescription, ref)
}

func (c *Client) Sprite(ctx context.Context, ref Ref) (Resource, error) {
	return c.Get(ctx, KindSprite, ref)
}

func (c *Client) isResourceURI(s string) bool {
	return strings.HasPrefix(strings.TrimPrefix(strings.TrimSpace(s), c.baseURL), c.apiRoot)
}

// normalize turns a query into "kind/ref/" with a lowercased ref and returns
// the kind segment. The result doubles as the cache key.
func (c *Client) normalize(query string) (string, string, error) {
	q := strings.TrimSpace(query)
	q = strings.TrimPrefix(q, c.apiRoot)
	q = strings.TrimSuffix(q, "/")

	parts := strings.Split(q, "/")
	if len(parts) != 2 {
		return "", "", ErrMalformedQuery
	}
	for _, p := range parts {
		if !segmentRe.MatchString(p) {
			return "", "", ErrMalformedQuery
		}
	}
	ref := strings.ToLower(parts[1])
	return parts[0] + "/" + ref + "/", parts[0], nil
}

func (c *Client) fetch(ctx context.Context, kind, query string) (Resource, error) {
	if c.cache != nil {
		if body, ok := c.cache.Get(ctx, query); ok {
			if res, err := decodeResource(body); err == nil {
				c.metrics.cached(kind)
				c.log.Debug("cache hit", "query", query)
				return res, nil
			}
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	body, err := c.getBody(ctx, c.apiRoot+query)
	if err != nil {
		outcome := outcomeError
		if errors.Is(err, ErrNotFound) {
			outcome = outcomeNotFound
		}
		c.metrics.observe(kind, outcome, time.Since(start))
		c.log.Warn("request failed", "query", query, "err", err)
		return nil, err
	}

	res, err := decodeResource(body)
	if err != nil {
		c.metrics.observe(kind, outcomeError, time.Since(start))
		return nil, fmt.Errorf("decode %s: %w", query, err)
	}
	c.metrics.observe(kind, outcomeOK, time.Since(start))
	c.log.Debug("request done", "query", query, "bytes", len(body), "took", time.Since(start))

	if c.cache != nil {
		c.cache.Set(ctx, query, body)
	}
	return res, nil
}

func (c *Client) getBody(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Method: http.MethodGet, Path: path, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("read %s: response too large", path)
	}
	return body, nil
}
