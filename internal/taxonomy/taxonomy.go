// Package taxonomy maps free-form topic strings onto a small set of canonical
// categories via substring triggers.
package taxonomy

import "strings"

// CategoryAll is the active-category sentinel meaning "no category filter".
const CategoryAll = "all"

// GeneralLabel is shown for items whose topic is still a placeholder.
const GeneralLabel = "General"

// Category is one canonical topic label with its trigger substrings.
type Category struct {
	ID       string
	Label    string
	triggers []string
}

// categories is evaluated top to bottom; the first category with a matching
// trigger wins. Order is part of the contract.
var categories = []Category{
	{ID: "finance", Label: "Finance", triggers: []string{"finance", "invest", "money", "trading"}},
	{ID: "fitness", Label: "Fitness", triggers: []string{"gym", "workout", "fitness", "exercise"}},
	{ID: "food", Label: "Food", triggers: []string{"recipe", "cooking", "food", "baking", "meal"}},
	{ID: "tech", Label: "Tech", triggers: []string{"tech", "software", "programming", "ai", "coding"}},
	{ID: "travel", Label: "Travel", triggers: []string{"travel", "vacation", "trip", "place"}},
	{ID: "fashion", Label: "Fashion", triggers: []string{"fashion", "style", "outfit"}},
}

// Categories returns the canonical category table in evaluation order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Normalize maps a free-form topic to its canonical category label. Trigger
// matching is substring containment, not whole-word: "Crypto Trading"
// normalizes to "Finance". Topics matching no category are returned
// title-cased (first rune upper, rest lower). Idempotent.
func Normalize(topic string) string {
	lowered := strings.ToLower(strings.TrimSpace(topic))
	for _, cat := range categories {
		for _, trigger := range cat.triggers {
			if strings.Contains(lowered, trigger) {
				return cat.Label
			}
		}
	}
	return capitalize(lowered)
}

// DisplayCategory is the category shown for an item: "General" while
// enrichment is pending (the topic is still a placeholder), the normalized
// topic otherwise.
func DisplayCategory(topic string, enriching bool) string {
	if enriching {
		return GeneralLabel
	}
	return Normalize(topic)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
