package links

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/milk9111/mosaic/storage"
)

// CacheKey is the storage key holding every cached preview, keyed by URL.
const CacheKey = "link-previews"

// Config tunes the service.
type Config struct {
	Attempts    int
	RetryDelay  time.Duration
	CacheTTL    time.Duration
	Concurrency int
}

func DefaultConfig() Config {
	return Config{
		Attempts:    3,
		RetryDelay:  500 * time.Millisecond,
		CacheTTL:    7 * 24 * time.Hour,
		Concurrency: 4,
	}
}

// domainFallbacks is the static text shown when every provider failed.
var domainFallbacks = map[string]string{
	"github.com":        "Source code on GitHub",
	"gitlab.com":        "Source code on GitLab",
	"youtube.com":       "Video on YouTube",
	"youtu.be":          "Video on YouTube",
	"vimeo.com":         "Video on Vimeo",
	"twitter.com":       "Post on X",
	"x.com":             "Post on X",
	"wikipedia.org":     "Article on Wikipedia",
	"reddit.com":        "Discussion on Reddit",
	"instagram.com":     "Post on Instagram",
	"flickr.com":        "Photos on Flickr",
	"stackoverflow.com": "Question on Stack Overflow",
}

// Fallback builds the static preview for rawURL from its domain.
func Fallback(rawURL string) Preview {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	}
	desc := "Link to " + host
	for domain, text := range domainFallbacks {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			desc = text
			break
		}
	}
	return Preview{URL: rawURL, Title: host, Description: desc, Provider: "fallback"}
}

// Service fetches previews through an ordered provider list, with retries
// and a storage-backed cache.
type Service struct {
	providers []Provider
	cache     *storage.Storage
	cfg       Config
	now       func() time.Time
	logger    *log.Logger
}

func NewService(providers []Provider, cache *storage.Storage, cfg Config, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{providers: providers, cache: cache, cfg: cfg, now: time.Now, logger: logger}
}

// Lookup fetches one preview, trying each provider in order. It never fails:
// when every provider gives up the domain fallback is returned.
func (s *Service) Lookup(ctx context.Context, rawURL string) Preview {
	for _, p := range s.providers {
		var pv Preview
		err := Retry(ctx, s.cfg.Attempts, s.cfg.RetryDelay, func() error {
			var err error
			pv, err = p.Fetch(ctx, rawURL)
			return err
		})
		if err == nil {
			pv.Timestamp = s.now().UnixMilli()
			return pv
		}
		s.logger.Debug("preview provider failed", "provider", p.Name(), "url", rawURL, "err", err)
		if ctx.Err() != nil {
			break
		}
	}
	return Fallback(rawURL)
}

// PreviewAll returns one preview per URL, in order. Cached previews younger
// than the TTL are reused; the rest are fetched concurrently and the
// successful ones cached. Must be called from the goroutine owning cache.
func (s *Service) PreviewAll(ctx context.Context, urls []string) []Preview {
	cached := s.loadCache()
	out := make([]Preview, len(urls))
	cutoff := s.now().Add(-s.cfg.CacheTTL).UnixMilli()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.cfg.Concurrency))
	for i, u := range urls {
		if pv, ok := cached[u]; ok && pv.Timestamp >= cutoff {
			out[i] = pv
			continue
		}
		g.Go(func() error {
			out[i] = s.Lookup(gctx, u)
			return nil
		})
	}
	_ = g.Wait()

	dirty := false
	for _, pv := range out {
		if pv.Provider == "fallback" {
			continue
		}
		if old, ok := cached[pv.URL]; !ok || old.Timestamp != pv.Timestamp {
			cached[pv.URL] = pv
			dirty = true
		}
	}
	if dirty && s.cache != nil {
		s.cache.Set(CacheKey, cached)
	}
	return out
}

func (s *Service) loadCache() map[string]Preview {
	m := make(map[string]Preview)
	if s.cache != nil {
		s.cache.Decode(CacheKey, &m)
	}
	if m == nil {
		m = make(map[string]Preview)
	}
	return m
}
