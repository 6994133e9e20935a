// Package intent derives a structured search intent from a free-text query
// using an LLM.
package intent

import (
	"context"
	"fmt"

	"github.com/clipvault/clipvault/internal/llm"
	"github.com/clipvault/clipvault/internal/search"
)

const intentPrompt = `You are interpreting a search query over a personal library of saved short-form clips (reels, shorts, posts).

Extract the searcher's intent from the query.

Query: %q

Respond with ONLY this JSON:
{
    "keywords": ["word or phrase likely to appear in matching items"],
    "topics": ["broad topic the searcher means, e.g. Finance, Food, Tech"],
    "sort_by": "recent" | "oldest" | "engagement" | "last_saved",
    "limit": 0
}

sort_by: "engagement" when the query asks for most liked/popular, "last_saved" for the last thing saved, "oldest" for the earliest, otherwise "recent".
limit: a positive number only when the query asks for a specific count ("last 3", "top 5"); 0 otherwise.`

// Extractor turns queries into search intents via an LLM provider.
type Extractor struct {
	provider llm.Provider
}

// NewExtractor creates an intent extractor.
func NewExtractor(provider llm.Provider) *Extractor {
	return &Extractor{provider: provider}
}

// ExtractIntent derives an intent from a query. A malformed response is an
// extraction failure; the caller treats it as "no intent". Individually
// invalid fields are dropped rather than failing the whole extraction.
func (x *Extractor) ExtractIntent(ctx context.Context, query string) (*search.Intent, error) {
	if x.provider == nil {
		return nil, fmt.Errorf("no LLM provider available")
	}

	response, err := x.provider.Generate(ctx, fmt.Sprintf(intentPrompt, query))
	if err != nil {
		return nil, fmt.Errorf("generating intent: %w", err)
	}

	parsed := llm.ParseJSONResponse(response)
	if parsed == nil {
		return nil, fmt.Errorf("unparseable intent response")
	}

	result := &search.Intent{
		Keywords: llm.GetStrings(parsed, "keywords"),
		Topics:   llm.GetStrings(parsed, "topics"),
	}

	switch mode := search.SortMode(llm.GetString(parsed, "sort_by", "")); mode {
	case search.SortRecent, search.SortOldest, search.SortEngagement, search.SortLastSaved:
		result.SortBy = mode
	}

	if limit := llm.GetInt(parsed, "limit", 0); limit > 0 {
		result.Limit = limit
	}

	return result, nil
}
