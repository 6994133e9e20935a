// Package enrich classifies and tags a captured clip using an LLM.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/clipvault/clipvault/internal/database"
	"github.com/clipvault/clipvault/internal/llm"
	"github.com/clipvault/clipvault/internal/metadata"
)

const enrichPrompt = `You are organizing a personal library of saved short-form clips (reels, shorts, posts).

Classify this clip from its public metadata.

URL: %s
Platform: %s
Title: %s
Creator: %s
Description: %s

Respond with ONLY this JSON:
{
    "tags": ["3-6 short lowercase tags"],
    "topic": "one broad topic, e.g. Finance, Fitness, Food, Tech, Travel, Fashion, or something more specific",
    "summary": "one or two sentences describing the clip",
    "suggested_title": "a concise human title, only if the given title is missing or generic",
    "engagement_score": 0
}

engagement_score: likes or views if the metadata mentions any, otherwise 0.`

// maxTags caps how many tags a single enrichment may add.
const maxTags = 6

// Enricher runs LLM enrichment for captured items.
type Enricher struct {
	provider llm.Provider
}

// NewEnricher creates an enricher.
func NewEnricher(provider llm.Provider) *Enricher {
	return &Enricher{provider: provider}
}

// EnrichContent classifies a clip. It may fail; the caller keeps the item
// usable and clears its enriching flag.
func (e *Enricher) EnrichContent(ctx context.Context, url string, meta metadata.Result) (*database.EnrichmentPatch, error) {
	if e.provider == nil {
		return nil, fmt.Errorf("no LLM provider available")
	}

	prompt := fmt.Sprintf(enrichPrompt, url, meta.Platform, meta.Title, meta.Creator, clip(meta.Description, 2000))
	response, err := e.provider.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generating enrichment: %w", err)
	}

	parsed := llm.ParseJSONResponse(response)
	if parsed == nil {
		return nil, fmt.Errorf("unparseable enrichment response")
	}

	tags := llm.GetStrings(parsed, "tags")
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}

	topic := strings.TrimSpace(llm.GetString(parsed, "topic", ""))
	if topic == "" {
		topic = database.TopicUncategorized
	}

	score := llm.GetInt(parsed, "engagement_score", 0)
	if score < 0 {
		score = 0
	}

	return &database.EnrichmentPatch{
		Tags:           tags,
		Topic:          topic,
		Summary:        strings.TrimSpace(llm.GetString(parsed, "summary", "")),
		SuggestedTitle: strings.TrimSpace(llm.GetString(parsed, "suggested_title", "")),
		Engagement:     int64(score),
	}, nil
}

func clip(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
