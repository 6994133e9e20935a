package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/clipvault/clipvault/internal/database"
	"github.com/clipvault/clipvault/internal/metadata"
)

// mockProvider implements llm.Provider for testing.
type mockProvider struct {
	response string
	err      error
}

func (m *mockProvider) Generate(_ context.Context, _ string) (string, error) {
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

func testMeta() metadata.Result {
	return metadata.Result{
		Title:    "Five minute carbonara",
		Creator:  "chefanna",
		Platform: database.PlatformVideo,
		Topic:    database.TopicUncategorized,
	}
}

func TestEnrichContent(t *testing.T) {
	resp, _ := json.Marshal(map[string]any{
		"tags":             []string{"pasta", "cooking", "quick"},
		"topic":            "Recipes",
		"summary":          "A fast carbonara recipe.",
		"suggested_title":  "Five Minute Carbonara",
		"engagement_score": 12000,
	})

	e := NewEnricher(&mockProvider{response: string(resp)})
	patch, err := e.EnrichContent(context.Background(), "https://example.com/clip", testMeta())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(patch.Tags) != 3 || patch.Tags[0] != "pasta" {
		t.Errorf("unexpected tags: %v", patch.Tags)
	}
	if patch.Topic != "Recipes" {
		t.Errorf("expected topic Recipes, got %q", patch.Topic)
	}
	if patch.Engagement != 12000 {
		t.Errorf("expected engagement 12000, got %d", patch.Engagement)
	}
	if patch.SuggestedTitle != "Five Minute Carbonara" {
		t.Errorf("unexpected suggested title %q", patch.SuggestedTitle)
	}
}

func TestEnrichContentCapsTags(t *testing.T) {
	resp := `{"tags": ["a","b","c","d","e","f","g","h"], "topic": "Tech", "summary": ""}`

	e := NewEnricher(&mockProvider{response: resp})
	patch, err := e.EnrichContent(context.Background(), "https://example.com/clip", testMeta())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patch.Tags) != maxTags {
		t.Errorf("expected %d tags, got %d", maxTags, len(patch.Tags))
	}
}

func TestEnrichContentDefaultsMissingTopic(t *testing.T) {
	resp := `{"tags": ["clip"], "summary": "Something."}`

	e := NewEnricher(&mockProvider{response: resp})
	patch, err := e.EnrichContent(context.Background(), "https://example.com/clip", testMeta())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if patch.Topic != database.TopicUncategorized {
		t.Errorf("expected Uncategorized fallback, got %q", patch.Topic)
	}
}

func TestEnrichContentClampsNegativeScore(t *testing.T) {
	resp := `{"topic": "Tech", "engagement_score": -5}`

	e := NewEnricher(&mockProvider{response: resp})
	patch, err := e.EnrichContent(context.Background(), "https://example.com/clip", testMeta())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if patch.Engagement != 0 {
		t.Errorf("expected score clamped to 0, got %d", patch.Engagement)
	}
}

func TestEnrichContentUnparseable(t *testing.T) {
	e := NewEnricher(&mockProvider{response: "looks like a cooking video"})
	if _, err := e.EnrichContent(context.Background(), "https://example.com/clip", testMeta()); err == nil {
		t.Error("expected error for unparseable response")
	}
}

func TestEnrichContentProviderFailure(t *testing.T) {
	e := NewEnricher(&mockProvider{err: fmt.Errorf("timeout")})
	if _, err := e.EnrichContent(context.Background(), "https://example.com/clip", testMeta()); err == nil {
		t.Error("expected error when provider fails")
	}
}
