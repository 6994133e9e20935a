// Package search turns a free-text query plus an LLM-inferred intent into a
// deterministic filter -> rank -> limit pipeline over saved items.
package search

import (
	"sort"
	"strings"

	"github.com/clipvault/clipvault/internal/database"
	"github.com/clipvault/clipvault/internal/taxonomy"
)

// SortMode selects the ranking order.
type SortMode string

const (
	SortRecent     SortMode = "recent"     // dateAdded descending (default)
	SortOldest     SortMode = "oldest"     // dateAdded ascending
	SortEngagement SortMode = "engagement" // engagement descending, newest first on ties
	SortLastSaved  SortMode = "last_saved" // sequence number descending
)

// Intent is the structured interpretation of a query, produced by the LLM
// collaborator. A nil *Intent is the expected degraded mode: exact-match
// filtering only, default sort, no limit.
type Intent struct {
	Keywords []string
	Topics   []string
	SortBy   SortMode // empty means unset
	Limit    int      // <= 0 means unbounded
}

// SortMode resolves the effective sort mode; absent or unknown modes default
// to recency-descending.
func (in *Intent) SortMode() SortMode {
	if in == nil {
		return SortRecent
	}
	switch in.SortBy {
	case SortRecent, SortOldest, SortEngagement, SortLastSaved:
		return in.SortBy
	}
	return SortRecent
}

// ResultLimit resolves the effective limit; 0 means unbounded.
func (in *Intent) ResultLimit() int {
	if in == nil || in.Limit <= 0 {
		return 0
	}
	return in.Limit
}

// Tokenize splits a query into lower-cased whitespace-separated tokens.
func Tokenize(query string) []string {
	return strings.Fields(strings.ToLower(strings.TrimSpace(query)))
}

// Filter returns the order-preserving subsequence of items matching the
// active category and the query. The category filter matches the normalized
// topic or any normalized tag. The text filter requires every query token to
// appear in the item's haystack; when that fails and an intent is available,
// intent keywords and topics act as a semantic fallback.
func Filter(items []database.Item, category, query string, intent *Intent) []database.Item {
	out := items
	if category != "" && !strings.EqualFold(category, taxonomy.CategoryAll) {
		out = filterCategory(out, category)
	}
	if tokens := Tokenize(query); len(tokens) > 0 {
		out = filterText(out, tokens, intent)
	}
	return out
}

func filterCategory(items []database.Item, category string) []database.Item {
	var kept []database.Item
	for _, item := range items {
		if matchesCategory(item, category) {
			kept = append(kept, item)
		}
	}
	return kept
}

func matchesCategory(item database.Item, category string) bool {
	if strings.EqualFold(taxonomy.Normalize(item.Topic), category) {
		return true
	}
	for _, tag := range item.Tags {
		if strings.EqualFold(taxonomy.Normalize(tag), category) {
			return true
		}
	}
	return false
}

func filterText(items []database.Item, tokens []string, intent *Intent) []database.Item {
	var kept []database.Item
	for _, item := range items {
		hay := haystack(item)
		if matchesAllTokens(hay, tokens) {
			kept = append(kept, item)
			continue
		}
		if intent != nil && matchesIntent(item, hay, intent) {
			kept = append(kept, item)
		}
	}
	return kept
}

// haystack is the lower-cased searchable text of an item: title, topic,
// summary, creator and tags, space-joined.
func haystack(item database.Item) string {
	parts := append([]string{item.Title, item.Topic, item.Summary, item.Creator}, item.Tags...)
	return strings.ToLower(strings.Join(parts, " "))
}

func matchesAllTokens(hay string, tokens []string) bool {
	for _, token := range tokens {
		if !strings.Contains(hay, token) {
			return false
		}
	}
	return true
}

func matchesIntent(item database.Item, hay string, intent *Intent) bool {
	for _, kw := range intent.Keywords {
		if kw != "" && strings.Contains(hay, strings.ToLower(kw)) {
			return true
		}
	}
	itemTopic := taxonomy.Normalize(item.Topic)
	for _, topic := range intent.Topics {
		normalized := taxonomy.Normalize(topic)
		if normalized == "" {
			continue
		}
		if strings.Contains(strings.ToLower(itemTopic), strings.ToLower(normalized)) {
			return true
		}
		if normalized == itemTopic {
			return true
		}
	}
	return false
}

// Rank returns a new slice sorted by the given mode. The chronological modes
// are a single sort. Engagement and save-order ranking run a second
// stabilization pass that re-sorts on the primary key with a
// newest-first tie-break, so ties always resolve deterministically.
func Rank(items []database.Item, mode SortMode) []database.Item {
	ranked := make([]database.Item, len(items))
	copy(ranked, items)

	switch mode {
	case SortOldest:
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].DateAdded < ranked[j].DateAdded
		})
	case SortEngagement:
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Engagement > ranked[j].Engagement
		})
		stabilize(ranked, func(it database.Item) int64 { return it.Engagement })
	case SortLastSaved:
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Seq > ranked[j].Seq
		})
		stabilize(ranked, func(it database.Item) int64 { return it.Seq })
	default:
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].DateAdded > ranked[j].DateAdded
		})
	}
	return ranked
}

// stabilize re-sorts on the primary key descending, breaking ties by
// dateAdded descending.
func stabilize(items []database.Item, key func(database.Item) int64) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := key(items[i]), key(items[j])
		if a != b {
			return a > b
		}
		return items[i].DateAdded > items[j].DateAdded
	})
}

// Limit truncates to the first n items when n is positive.
func Limit(items []database.Item, n int) []database.Item {
	if n > 0 && n < len(items) {
		return items[:n]
	}
	return items
}

// Run composes the three stages: filter, rank by the intent's resolved sort
// mode, then apply the intent's limit. Pure: no stage performs I/O.
func Run(items []database.Item, category, query string, intent *Intent) []database.Item {
	filtered := Filter(items, category, query, intent)
	ranked := Rank(filtered, intent.SortMode())
	return Limit(ranked, intent.ResultLimit())
}
