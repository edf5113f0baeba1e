package links

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ErrNoPreview is returned by a provider that answered but had nothing
// usable for the URL.
var ErrNoPreview = errors.New("links: no preview")

const maxBodyBytes = 2 << 20

// Preview is the card shown for one URL. Timestamp is unix milliseconds of
// when it was fetched.
type Preview struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Provider    string `json:"provider"`
	Timestamp   int64  `json:"timestamp"`
}

// Provider looks up a preview for a URL.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, rawURL string) (Preview, error)
}

func get(ctx context.Context, client *http.Client, rawURL, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", "mosaic-link-preview/1.0")
	resp, err := client.Do(req)
	if err != nil {
		return nil, &RetryableError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &RetryableError{Err: fmt.Errorf("links: %s: status %d", rawURL, resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("links: %s: status %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// HTMLProvider reads the page itself and takes its Open Graph, Twitter card
// or plain <title>/<meta name="description"> tags.
type HTMLProvider struct {
	Client *http.Client
}

func (HTMLProvider) Name() string { return "html" }

func (p HTMLProvider) Fetch(ctx context.Context, rawURL string) (Preview, error) {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	body, err := get(ctx, client, rawURL, "text/html")
	if err != nil {
		return Preview{}, err
	}
	meta, err := parseMeta(bytes.NewReader(body))
	if err != nil {
		return Preview{}, fmt.Errorf("links: parse %s: %w", rawURL, err)
	}

	pv := Preview{
		URL:         rawURL,
		Title:       first(meta["og:title"], meta["twitter:title"], meta["title"]),
		Description: first(meta["og:description"], meta["twitter:description"], meta["description"]),
		Image:       first(meta["og:image"], meta["twitter:image"]),
		Provider:    p.Name(),
	}
	if pv.Title == "" {
		return Preview{}, ErrNoPreview
	}
	return pv, nil
}

// parseMeta collects <title> text and <meta> name/property contents. The
// first value for each key wins. Parsing stops at <body>.
func parseMeta(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)
	z := html.NewTokenizer(r)
	inTitle := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return out, nil
			}
			return out, z.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "body":
				return out, nil
			case "title":
				inTitle = true
			case "meta":
				var key, content string
				for _, a := range tok.Attr {
					switch strings.ToLower(a.Key) {
					case "property", "name":
						key = strings.ToLower(a.Val)
					case "content":
						content = a.Val
					}
				}
				if key != "" && content != "" {
					if _, ok := out[key]; !ok {
						out[key] = strings.TrimSpace(content)
					}
				}
			}
		case html.TextToken:
			if inTitle {
				if _, ok := out["title"]; !ok {
					out["title"] = strings.TrimSpace(string(z.Text()))
				}
			}
		case html.EndTagToken:
			if tok := z.Token(); tok.Data == "title" {
				inTitle = false
			}
		}
	}
}

// JSONProvider queries a link-metadata API whose response looks like
// {"status":"success","data":{"title":..,"description":..,"image":{"url":..}}}.
// Endpoint gets the target URL appended, query-escaped.
type JSONProvider struct {
	Endpoint string
	Client   *http.Client
}

func (JSONProvider) Name() string { return "api" }

type apiResponse struct {
	Status string `json:"status"`
	Data   struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Image       struct {
			URL string `json:"url"`
		} `json:"image"`
	} `json:"data"`
}

func (p JSONProvider) Fetch(ctx context.Context, rawURL string) (Preview, error) {
	if p.Endpoint == "" {
		return Preview{}, fmt.Errorf("links: api provider has no endpoint")
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	body, err := get(ctx, client, p.Endpoint+url.QueryEscape(rawURL), "application/json")
	if err != nil {
		return Preview{}, err
	}
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Preview{}, fmt.Errorf("links: decode api response: %w", err)
	}
	if resp.Status != "" && resp.Status != "success" {
		return Preview{}, ErrNoPreview
	}
	if resp.Data.Title == "" {
		return Preview{}, ErrNoPreview
	}
	return Preview{
		URL:         rawURL,
		Title:       resp.Data.Title,
		Description: resp.Data.Description,
		Image:       resp.Data.Image.URL,
		Provider:    p.Name(),
	}, nil
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
