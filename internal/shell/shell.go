// Package shell keeps an offline copy of the static assets the web UI needs
// to load: a fixed list fetched on install, plus any same-origin or whitelisted
// response seen afterwards. Caches are named by version; activating a new
// version drops every other one.
package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aircraft_logger/internal/database"
)

// Store persists cached assets. database.ShellCacheRepository satisfies it.
type Store interface {
	Put(ctx context.Context, asset *database.CachedAsset) error
	PutAll(ctx context.Context, assets []*database.CachedAsset) error
	Match(ctx context.Context, cacheName, url string) (*database.CachedAsset, bool, error)
	Names(ctx context.Context) ([]string, error)
	DeleteCache(ctx context.Context, cacheName string) error
}

// Response is a fetched or cached asset
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Network fetches a resource the cache does not have
type Network interface {
	Fetch(ctx context.Context, method, rawURL string) (*Response, error)
}

// NetworkFunc adapts a function to Network
type NetworkFunc func(ctx context.Context, method, rawURL string) (*Response, error)

func (f NetworkFunc) Fetch(ctx context.Context, method, rawURL string) (*Response, error) {
	return f(ctx, method, rawURL)
}

// Config describes one cache version
type Config struct {
	Version   string   // cache name, e.g. "aircraft-logger-cache-v1"
	Origin    string   // base URL the app is served from
	URLs      []string // pre-fetched on install; relative URLs resolve against Origin
	Whitelist []string // URL prefixes of cross-origin resources that may be cached
}

// Cache is the asset cache shell
type Cache struct {
	version   string
	origin    *url.URL
	urls      []string
	whitelist []string
	store     Store
	network   Network
	now       func() time.Time
}

func New(cfg Config, store Store, network Network) (*Cache, error) {
	if cfg.Version == "" {
		return nil, errors.New("shell cache version is required")
	}
	origin, err := url.Parse(cfg.Origin)
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("invalid shell origin %q", cfg.Origin)
	}

	return &Cache{
		version:   cfg.Version,
		origin:    origin,
		urls:      append([]string(nil), cfg.URLs...),
		whitelist: append([]string(nil), cfg.Whitelist...),
		store:     store,
		network:   network,
		now:       time.Now,
	}, nil
}

func (c *Cache) Version() string { return c.version }

// Install fetches every shell URL and stores all of them in the current
// version's cache. If any fetch fails nothing is stored.
func (c *Cache) Install(ctx context.Context) error {
	assets := make([]*database.CachedAsset, 0, len(c.urls))
	for _, raw := range c.urls {
		abs, err := c.resolve(raw)
		if err != nil {
			return fmt.Errorf("failed to resolve shell url %s: %w", raw, err)
		}

		resp, err := c.network.Fetch(ctx, http.MethodGet, abs)
		if err != nil {
			return fmt.Errorf("failed to fetch shell url %s: %w", raw, err)
		}
		if resp.Status != http.StatusOK {
			return fmt.Errorf("failed to fetch shell url %s: status %d", raw, resp.Status)
		}

		assets = append(assets, c.asset(c.key(raw), resp))
	}

	if err := c.store.PutAll(ctx, assets); err != nil {
		return fmt.Errorf("failed to store shell assets: %w", err)
	}

	slog.Info("Shell cache installed", "version", c.version, "assets", len(assets))
	return nil
}

// Fetch serves a GET from the cache when present. Otherwise it asks network
// and, for a 200 GET that is same-origin or whitelisted, stores a copy. The
// boolean reports a cache hit. Network errors are returned to the caller.
func (c *Cache) Fetch(ctx context.Context, method, rawURL string, network Network) (*Response, bool, error) {
	key := c.key(rawURL)

	if method == http.MethodGet {
		asset, ok, err := c.store.Match(ctx, c.version, key)
		if err != nil {
			slog.Error("Shell cache lookup failed", "url", rawURL, "error", err)
		} else if ok {
			return &Response{Status: asset.Status, ContentType: asset.ContentType, Body: asset.Body}, true, nil
		}
	}

	resp, err := network.Fetch(ctx, method, rawURL)
	if err != nil {
		slog.Error("Fetch failed", "url", rawURL, "error", err)
		return nil, false, err
	}

	if resp.Status == http.StatusOK && method == http.MethodGet && c.Cacheable(rawURL) {
		if err := c.store.Put(ctx, c.asset(key, resp)); err != nil {
			slog.Error("Failed to cache response", "url", rawURL, "error", err)
		}
	}

	return resp, false, nil
}

// Activate deletes every cache that is not the current version and returns their names
func (c *Cache) Activate(ctx context.Context) ([]string, error) {
	names, err := c.store.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list shell caches: %w", err)
	}

	var deleted []string
	for _, name := range names {
		if name == c.version {
			continue
		}
		if err := c.store.DeleteCache(ctx, name); err != nil {
			return deleted, fmt.Errorf("failed to delete shell cache %s: %w", name, err)
		}
		deleted = append(deleted, name)
	}

	if len(deleted) > 0 {
		slog.Info("Deleted stale shell caches", "version", c.version, "deleted", deleted)
	}
	return deleted, nil
}

// Cacheable reports whether responses for rawURL may be stored
func (c *Cache) Cacheable(rawURL string) bool {
	return c.SameOrigin(rawURL) || c.Whitelisted(rawURL)
}

// SameOrigin reports whether rawURL is relative or shares the app's scheme and host
func (c *Cache) SameOrigin(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if !u.IsAbs() {
		return u.Host == ""
	}
	return strings.EqualFold(u.Scheme, c.origin.Scheme) && strings.EqualFold(u.Host, c.origin.Host)
}

// Whitelisted reports whether rawURL starts with a whitelisted prefix
func (c *Cache) Whitelisted(rawURL string) bool {
	for _, prefix := range c.whitelist {
		if prefix != "" && strings.HasPrefix(rawURL, prefix) {
			return true
		}
	}
	return false
}

// key stores same-origin assets by path and query so relative and absolute
// spellings of the same URL share one entry
func (c *Cache) key(rawURL string) string {
	if !c.SameOrigin(rawURL) {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	key := u.EscapedPath()
	if key == "" {
		key = "/"
	}
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return key
}

func (c *Cache) resolve(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	return c.origin.ResolveReference(u).String(), nil
}

func (c *Cache) asset(key string, resp *Response) *database.CachedAsset {
	return &database.CachedAsset{
		CacheName:   c.version,
		URL:         key,
		Status:      resp.Status,
		ContentType: resp.ContentType,
		Body:        resp.Body,
		StoredAt:    c.now(),
	}
}
