package tile

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// maxImageBytes caps a single download.
const maxImageBytes = 64 << 20

// Fetcher returns the raw bytes of an image by filename.
type Fetcher func(ctx context.Context, name string) ([]byte, error)

// DirFetcher reads images relative to dir.
func DirFetcher(dir string) Fetcher {
	return func(_ context.Context, name string) ([]byte, error) {
		return os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
	}
}

// HTTPFetcher downloads images relative to base.
func HTTPFetcher(client *http.Client, base *url.URL) Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, name string) ([]byte, error) {
		u := *base
		u.Path = path.Join(path.Dir(base.Path), name)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("tile: fetch %s: status %d", name, resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	}
}

// Result is one finished load.
type Result struct {
	Filename string
	Decoded  Decoded
	Err      error
}

// Loader decodes images one after another on a background goroutine. Results
// are collected with Drain from the game loop.
type Loader struct {
	fetch  Fetcher
	delay  time.Duration
	logger *log.Logger

	mu      sync.Mutex
	results chan Result
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewLoader(fetch Fetcher, delay time.Duration, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Default()
	}
	if delay < 0 {
		delay = 0
	}
	return &Loader{fetch: fetch, delay: delay, logger: logger}
}

// Start begins loading names in order, abandoning any batch in flight.
func (l *Loader) Start(ctx context.Context, names []string) {
	l.Stop()

	ctx, cancel := context.WithCancel(ctx)
	results := make(chan Result, len(names))

	l.mu.Lock()
	l.results = results
	l.cancel = cancel
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer close(results)
		for i, name := range names {
			if i > 0 && l.delay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(l.delay):
				}
			}
			if ctx.Err() != nil {
				return
			}
			results <- l.load(ctx, name)
		}
	}()
}

func (l *Loader) load(ctx context.Context, name string) Result {
	data, err := l.fetch(ctx, name)
	if err != nil {
		l.logger.Warn("image fetch failed", "file", name, "err", err)
		return Result{Filename: name, Err: err}
	}
	d, err := Decode(data)
	if err != nil {
		l.logger.Warn("image decode failed", "file", name, "err", err)
		return Result{Filename: name, Err: err}
	}
	return Result{Filename: name, Decoded: d}
}

// Drain returns every result that is ready without blocking.
func (l *Loader) Drain() []Result {
	l.mu.Lock()
	results := l.results
	l.mu.Unlock()
	if results == nil {
		return nil
	}
	var out []Result
	for {
		select {
		case r, ok := <-results:
			if !ok {
				return out
			}
			out = append(out, r)
		default:
			return out
		}
	}
}

// Wait blocks until the current batch has finished.
func (l *Loader) Wait() { l.wg.Wait() }

// Stop cancels the current batch and waits for its goroutine.
func (l *Loader) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.results = nil
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	l.wg.Wait()
}
