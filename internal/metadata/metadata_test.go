package metadata

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clipvault/clipvault/internal/database"
)

func TestDetectPlatform(t *testing.T) {
	cases := map[string]string{
		"https://www.tiktok.com/@user/video/123":    database.PlatformVideo,
		"https://youtube.com/shorts/abc":            database.PlatformVideo,
		"https://youtu.be/abc":                      database.PlatformVideo,
		"https://vimeo.com/123":                     database.PlatformVideo,
		"https://www.instagram.com/reel/abc/":       database.PlatformPhoto,
		"https://pinterest.com/pin/123":             database.PlatformPhoto,
		"https://example.com/some/page":             database.PlatformUnknown,
		"://bad url":                                database.PlatformUnknown,
	}
	for url, want := range cases {
		if got := DetectPlatform(url); got != want {
			t.Errorf("DetectPlatform(%q) = %q, want %q", url, got, want)
		}
	}
}

func TestOEmbedEndpoint(t *testing.T) {
	if got := oembedEndpoint("https://www.tiktok.com/@user/video/123"); !strings.HasPrefix(got, "https://www.tiktok.com/oembed?url=") {
		t.Errorf("unexpected tiktok endpoint: %q", got)
	}
	if got := oembedEndpoint("https://youtu.be/abc"); !strings.HasPrefix(got, "https://www.youtube.com/oembed?") {
		t.Errorf("unexpected youtube endpoint: %q", got)
	}
	if got := oembedEndpoint("https://example.com/page"); got != "" {
		t.Errorf("expected no endpoint for generic host, got %q", got)
	}
}

func TestFetchMetadataFromHTMLPage(t *testing.T) {
	page := `<!DOCTYPE html>
<html>
<head>
  <title>Amazing Pasta Clip</title>
  <meta name="description" content="A short clip about making carbonara at home.">
</head>
<body>
  <article>
    <h1>Amazing Pasta Clip</h1>
    <p>This is a short video showing how to make a quick carbonara with only five
    ingredients. The creator walks through every step of the process, from boiling
    the pasta to mixing the sauce off the heat so the eggs do not scramble.</p>
  </article>
</body>
</html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, "")
	result := f.FetchMetadata(srv.URL + "/clip")

	if result.Title != "Amazing Pasta Clip" {
		t.Errorf("expected extracted title, got %q", result.Title)
	}
	if result.Topic != database.TopicUncategorized {
		t.Errorf("expected Uncategorized topic, got %q", result.Topic)
	}
	if result.Platform != database.PlatformUnknown {
		t.Errorf("expected unknown platform for test server, got %q", result.Platform)
	}
}

func TestFetchMetadataFallbackOnHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, "")
	result := f.FetchMetadata(srv.URL + "/clip")

	if result.Title != database.FallbackTitle(database.PlatformUnknown) {
		t.Errorf("expected fallback title, got %q", result.Title)
	}
	if result.Topic != database.TopicUncategorized {
		t.Errorf("expected Uncategorized topic, got %q", result.Topic)
	}
	if !strings.Contains(result.DebugInfo, "500") {
		t.Errorf("expected debug info to record the failure, got %q", result.DebugInfo)
	}
}

func TestFetchMetadataFallbackOnUnreachableHost(t *testing.T) {
	f := NewFetcher(500*time.Millisecond, "")
	result := f.FetchMetadata("http://127.0.0.1:1/clip")

	if result.Title != database.FallbackTitle(database.PlatformUnknown) {
		t.Errorf("expected fallback title, got %q", result.Title)
	}
	if result.DebugInfo == "" {
		t.Error("expected debug info to record the failure")
	}
}
