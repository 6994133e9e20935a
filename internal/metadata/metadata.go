// Package metadata fetches best-effort public metadata for a clip URL.
// Fetching never fails outward: any internal failure produces a per-platform
// fallback record instead of an error.
package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/clipvault/clipvault/internal/database"
)

// Result is the extracted metadata for a URL.
type Result struct {
	Title       string
	Description string
	Creator     string
	Thumbnail   string
	Tags        []string
	Topic       string // always TopicUncategorized; enrichment assigns the real one
	Summary     string
	Platform    string
	DebugInfo   string // verbatim raw extraction, for troubleshooting
}

// DetectPlatform classifies a URL by host.
func DetectPlatform(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return database.PlatformUnknown
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))

	switch {
	case strings.HasSuffix(host, "tiktok.com"),
		strings.HasSuffix(host, "youtube.com"),
		strings.HasSuffix(host, "youtu.be"),
		strings.HasSuffix(host, "vimeo.com"):
		return database.PlatformVideo
	case strings.HasSuffix(host, "instagram.com"),
		strings.HasSuffix(host, "pinterest.com"):
		return database.PlatformPhoto
	}
	return database.PlatformUnknown
}

// oembedEndpoint returns the public oEmbed endpoint for a URL, or "" when the
// host has none.
func oembedEndpoint(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))

	switch {
	case strings.HasSuffix(host, "tiktok.com"):
		return "https://www.tiktok.com/oembed?url=" + url.QueryEscape(rawURL)
	case strings.HasSuffix(host, "youtube.com"), strings.HasSuffix(host, "youtu.be"):
		return "https://www.youtube.com/oembed?format=json&url=" + url.QueryEscape(rawURL)
	}
	return ""
}

// Fetcher fetches metadata over HTTP.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher creates a metadata fetcher.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if userAgent == "" {
		userAgent = "clipvault/1.0 (personal clip library)"
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent: userAgent,
	}
}

// FetchMetadata extracts metadata for a URL: oEmbed when the platform has a
// public endpoint, an HTML fetch with readability extraction otherwise, and a
// per-platform fallback record when everything fails.
func (f *Fetcher) FetchMetadata(rawURL string) Result {
	platform := DetectPlatform(rawURL)

	if endpoint := oembedEndpoint(rawURL); endpoint != "" {
		if result, err := f.fetchOEmbed(endpoint, platform); err == nil {
			return result
		} else {
			log.Printf("oembed fetch failed for %s: %v", rawURL, err)
		}
	}

	if result, err := f.fetchPage(rawURL, platform); err == nil {
		return result
	} else {
		log.Printf("page fetch failed for %s: %v", rawURL, err)
		return fallback(platform, err)
	}
}

func (f *Fetcher) fetchOEmbed(endpoint, platform string) (Result, error) {
	body, err := f.get(endpoint)
	if err != nil {
		return Result{}, err
	}

	var oe struct {
		Title        string `json:"title"`
		AuthorName   string `json:"author_name"`
		ThumbnailURL string `json:"thumbnail_url"`
	}
	if err := json.Unmarshal(body, &oe); err != nil {
		return Result{}, fmt.Errorf("decoding oembed: %w", err)
	}
	if oe.Title == "" {
		return Result{}, fmt.Errorf("oembed response missing title")
	}

	return Result{
		Title:     oe.Title,
		Creator:   oe.AuthorName,
		Thumbnail: oe.ThumbnailURL,
		Topic:     database.TopicUncategorized,
		Platform:  platform,
		DebugInfo: string(body),
	}, nil
}

func (f *Fetcher) fetchPage(rawURL, platform string) (Result, error) {
	body, err := f.get(rawURL)
	if err != nil {
		return Result{}, err
	}

	parsedURL, _ := url.Parse(rawURL)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return Result{}, fmt.Errorf("extracting page content: %w", err)
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		return Result{}, fmt.Errorf("no extractable title")
	}

	return Result{
		Title:       title,
		Description: strings.TrimSpace(article.Excerpt),
		Creator:     strings.TrimSpace(article.Byline),
		Thumbnail:   article.Image,
		Topic:       database.TopicUncategorized,
		Platform:    platform,
	}, nil
}

func (f *Fetcher) get(rawURL string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// fallback is the best-effort record when nothing could be extracted.
func fallback(platform string, cause error) Result {
	return Result{
		Title:     database.FallbackTitle(platform),
		Topic:     database.TopicUncategorized,
		Platform:  platform,
		DebugInfo: fmt.Sprintf(`{"error": %q}`, cause.Error()),
	}
}
