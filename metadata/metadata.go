// Package metadata reads and writes the image metadata document: a JSON array
// of [filename, [width, height]] pairs.
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultDocument is the document name the generator writes and the viewer
// reads by default.
const DefaultDocument = "image_widths_heights.json"

// DefaultTimeout bounds how long the viewer waits for the document.
const DefaultTimeout = 10 * time.Second

var (
	ErrMissing   = errors.New("metadata: document missing")
	ErrMalformed = errors.New("metadata: document malformed")
)

// Record is one image and its natural pixel size.
type Record struct {
	Filename string
	Width    int
	Height   int
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.Filename, [2]int{r.Width, r.Height}})
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("want [filename, [width, height]], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &r.Filename); err != nil {
		return fmt.Errorf("filename: %w", err)
	}
	var dims []float64
	if err := json.Unmarshal(pair[1], &dims); err != nil {
		return fmt.Errorf("dimensions: %w", err)
	}
	if len(dims) != 2 {
		return fmt.Errorf("want [width, height], got %d numbers", len(dims))
	}
	// A fractional or out-of-range dimension leaves the size at zero so the
	// record is skipped as invalid rather than failing the document.
	r.Width, r.Height = 0, 0
	if w, ok := dimension(dims[0]); ok {
		if h, ok := dimension(dims[1]); ok {
			r.Width, r.Height = w, h
		}
	}
	return nil
}

func dimension(v float64) (int, bool) {
	if v != math.Trunc(v) || v < 1 || v > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}

// Valid reports whether the record names a file and has a positive size.
func (r Record) Valid() bool {
	return r.Filename != "" && r.Width > 0 && r.Height > 0
}

// Parse decodes a document. A document that is not an array of pairs is
// ErrMalformed. Pairs with an empty name or a non-positive size are skipped,
// as are repeats of a filename already seen.
func Parse(data []byte, logger *log.Logger) ([]Record, error) {
	if logger == nil {
		logger = log.Default()
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformed)
	}
	var raw []Record
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	seen := make(map[string]bool, len(raw))
	out := make([]Record, 0, len(raw))
	for _, r := range raw {
		if !r.Valid() {
			logger.Warn("skipping invalid metadata record", "file", r.Filename, "width", r.Width, "height", r.Height)
			continue
		}
		if seen[r.Filename] {
			logger.Warn("skipping duplicate metadata record", "file", r.Filename)
			continue
		}
		seen[r.Filename] = true
		out = append(out, r)
	}
	return out, nil
}

// IsURL reports whether location is an http(s) URL rather than a path.
func IsURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Fetch reads the document at location, a file path or an http(s) URL, and
// parses it. The context bounds the whole read.
func Fetch(ctx context.Context, location string, client *http.Client, logger *log.Logger) ([]Record, error) {
	data, err := read(ctx, location, client)
	if err != nil {
		return nil, err
	}
	return Parse(data, logger)
}

func read(ctx context.Context, location string, client *http.Client) ([]byte, error) {
	if !IsURL(location) {
		type result struct {
			data []byte
			err  error
		}
		done := make(chan result, 1)
		go func() {
			data, err := os.ReadFile(location)
			done <- result{data, err}
		}()
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("metadata: read %s: %w", location, ctx.Err())
		case r := <-done:
			if errors.Is(r.err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrMissing, location)
			}
			if r.err != nil {
				return nil, fmt.Errorf("metadata: read %s: %w", location, r.err)
			}
			return r.data, nil
		}
	}

	if _, err := url.Parse(location); err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metadata: fetch %s: %w", location, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrMissing, location)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("metadata: fetch %s: status %d", location, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("metadata: fetch %s: %w", location, err)
	}
	return data, nil
}
