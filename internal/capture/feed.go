package capture

import (
	"context"
	"fmt"
	"log"

	"github.com/mmcdole/gofeed"
)

const defaultMaxPerFeed = 20

// ImportResult holds the results of a feed import.
type ImportResult struct {
	Found    int
	Captured int
	Skipped  int
	Failed   int
}

// ImportFeed captures clip links from an RSS/Atom feed (e.g. a creator's
// channel feed). URLs already in the library are skipped.
func (c *Capturer) ImportFeed(ctx context.Context, feedURL string, maxItems int) (*ImportResult, error) {
	if maxItems <= 0 {
		maxItems = defaultMaxPerFeed
	}

	feed, err := gofeed.NewParser().ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	result := &ImportResult{}
	for _, entry := range feed.Items {
		if result.Captured >= maxItems {
			break
		}

		link := entry.Link
		if link == "" {
			link = entry.GUID
		}
		if link == "" {
			continue
		}
		result.Found++

		existing, err := c.db.GetItemByURL(link)
		if err != nil {
			return result, err
		}
		if existing != nil {
			result.Skipped++
			continue
		}

		if _, err := c.Capture(ctx, link); err != nil {
			log.Printf("failed to capture %s: %v", link, err)
			result.Failed++
			continue
		}
		result.Captured++
	}

	log.Printf("feed import complete: %d captured, %d skipped, %d failed",
		result.Captured, result.Skipped, result.Failed)
	return result, nil
}
