package search

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/clipvault/clipvault/internal/database"
	"github.com/clipvault/clipvault/internal/taxonomy"
)

// DefaultDebounce is the quiet period after the last query change before
// intent extraction is scheduled.
const DefaultDebounce = 600 * time.Millisecond

// minIntentQueryLen is the trimmed query length at or below which intent is
// cleared instead of derived.
const minIntentQueryLen = 3

// Extractor derives a structured intent from a free-text query. It may fail;
// failure means "no intent", never an error state visible to filtering.
type Extractor interface {
	ExtractIntent(ctx context.Context, query string) (*Intent, error)
}

// Engine owns the current item collection, query text, active category and
// intent, and recomputes the visible result set from them. Query changes
// trigger a debounced intent extraction; only the most recent extraction may
// take effect, so a stale completion never overwrites a fresher query's state.
type Engine struct {
	extractor Extractor
	debounce  time.Duration

	mu       sync.Mutex
	items    []database.Item
	query    string
	category string
	intent   *Intent
	timer    *time.Timer
	gen      uint64
}

// NewEngine creates an engine. A nil extractor disables intent derivation
// (exact-match search only). A non-positive debounce uses DefaultDebounce.
func NewEngine(extractor Extractor, debounce time.Duration) *Engine {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Engine{
		extractor: extractor,
		debounce:  debounce,
		category:  taxonomy.CategoryAll,
	}
}

// SetItems replaces the item collection wholesale.
func (e *Engine) SetItems(items []database.Item) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = items
}

// SetCategory changes the active category filter.
func (e *Engine) SetCategory(category string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if category == "" {
		category = taxonomy.CategoryAll
	}
	e.category = category
}

// SetQuery changes the query text. Short queries clear the intent
// immediately; longer ones schedule a debounced extraction, cancelling any
// pending one.
func (e *Engine) SetQuery(query string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.query = query
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}

	if len(strings.TrimSpace(query)) <= minIntentQueryLen {
		e.intent = nil
		return
	}
	if e.extractor == nil {
		return
	}

	gen := e.gen
	e.timer = time.AfterFunc(e.debounce, func() {
		e.deriveIntent(gen, query)
	})
}

func (e *Engine) deriveIntent(gen uint64, query string) {
	intent, err := e.extractor.ExtractIntent(context.Background(), query)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		// A newer query superseded this extraction; drop the result.
		return
	}
	if err != nil {
		log.Printf("intent extraction failed: %v", err)
		e.intent = nil
		return
	}
	e.intent = intent
}

// Intent returns the current intent, or nil when none is available.
func (e *Engine) Intent() *Intent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.intent
}

// Results recomputes the visible result set from the current inputs.
func (e *Engine) Results() []database.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Run(e.items, e.category, e.query, e.intent)
}

// Search is the one-shot path for explicit submissions (CLI, form posts):
// it derives intent synchronously, bypassing the debounce, and returns the
// results. A pending debounced extraction is invalidated first.
func (e *Engine) Search(ctx context.Context, query string) []database.Item {
	e.mu.Lock()
	e.query = query
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.mu.Unlock()

	var intent *Intent
	if e.extractor != nil && len(strings.TrimSpace(query)) > minIntentQueryLen {
		derived, err := e.extractor.ExtractIntent(ctx, query)
		if err != nil {
			log.Printf("intent extraction failed: %v", err)
		} else {
			intent = derived
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.intent = intent
	return Run(e.items, e.category, e.query, e.intent)
}
