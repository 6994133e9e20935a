// Package capture runs the two-phase save pipeline: metadata fetch (blocking)
// then LLM enrichment (fire-and-forget).
package capture

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clipvault/clipvault/internal/database"
	"github.com/clipvault/clipvault/internal/metadata"
)

// MetadataFetcher fetches public metadata for a URL. It never fails outward.
type MetadataFetcher interface {
	FetchMetadata(url string) metadata.Result
}

// Enricher classifies a captured clip. It may fail.
type Enricher interface {
	EnrichContent(ctx context.Context, url string, meta metadata.Result) (*database.EnrichmentPatch, error)
}

// Capturer saves clip URLs into the database.
type Capturer struct {
	db       *database.DB
	fetcher  MetadataFetcher
	enricher Enricher
	wg       sync.WaitGroup
}

// NewCapturer creates a capturer. A nil enricher disables phase 2: items are
// saved with fetched metadata only.
func NewCapturer(db *database.DB, fetcher MetadataFetcher, enricher Enricher) *Capturer {
	return &Capturer{db: db, fetcher: fetcher, enricher: enricher}
}

// Capture saves a URL. Phase 1 (metadata fetch) blocks and the item is
// persisted with a fresh sequence number before Capture returns. Phase 2
// (enrichment) runs in the background; its failure clears the enriching flag
// without discarding the item.
func (c *Capturer) Capture(ctx context.Context, url string) (*database.Item, error) {
	meta := c.fetcher.FetchMetadata(url)

	item := &database.Item{
		ID:          uuid.NewString(),
		URL:         url,
		Title:       meta.Title,
		Description: meta.Description,
		Thumbnail:   meta.Thumbnail,
		Creator:     meta.Creator,
		Platform:    meta.Platform,
		Tags:        meta.Tags,
		Topic:       meta.Topic,
		Summary:     meta.Summary,
		DateAdded:   time.Now().UnixMilli(),
		Seq:         database.UnassignedSeq,
		DebugInfo:   meta.DebugInfo,
		IsEnriching: c.enricher != nil,
	}
	if item.Title == "" {
		item.Title = database.TitleCapturing
	}
	if item.Topic == "" {
		item.Topic = database.TopicUncategorized
	}

	if err := c.db.SaveItem(item); err != nil {
		return nil, err
	}

	if c.enricher != nil {
		c.wg.Add(1)
		go c.enrichItem(item.ID, url, meta)
	}
	return item, nil
}

func (c *Capturer) enrichItem(id, url string, meta metadata.Result) {
	defer c.wg.Done()

	patch, err := c.enricher.EnrichContent(context.Background(), url, meta)
	if err != nil {
		log.Printf("enrichment failed for %s: %v", url, err)
		if err := c.db.ClearEnriching(id); err != nil {
			log.Printf("clearing enriching flag for %s: %v", id, err)
		}
		return
	}

	if err := c.db.ApplyEnrichment(id, *patch); err != nil {
		log.Printf("applying enrichment for %s: %v", id, err)
	}
}

// Wait blocks until all in-flight enrichments finish. Callers that exit after
// capturing (the CLI) use it to let phase 2 complete.
func (c *Capturer) Wait() {
	c.wg.Wait()
}
