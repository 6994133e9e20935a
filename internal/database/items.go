package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// SaveItem inserts or updates an item. An item with an unassigned sequence
// number receives max(existing)+1; the assigned value is written back to the
// item. Items with an assigned sequence number are upserted by ID.
func (db *DB) SaveItem(item *Item) error {
	item.Tags = dedupeTags(item.Tags)
	tags, err := json.Marshal(item.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	if item.Seq == UnassignedSeq {
		// The subselect runs inside the INSERT, so two concurrent first saves
		// still get distinct, increasing sequence numbers.
		_, err := db.conn.Exec(
			`INSERT INTO items (id, url, title, description, thumbnail, creator, platform,
			tags, topic, summary, date_added, seq, engagement, debug_info, is_enriching)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM items), ?, ?, ?)`,
			item.ID, item.URL, item.Title, item.Description, item.Thumbnail,
			item.Creator, item.Platform, string(tags), item.Topic, item.Summary,
			item.DateAdded, item.Engagement, item.DebugInfo, boolToInt(item.IsEnriching),
		)
		if err != nil {
			return fmt.Errorf("inserting item: %w", err)
		}
		return db.conn.QueryRow("SELECT seq FROM items WHERE id = ?", item.ID).Scan(&item.Seq)
	}

	_, err = db.conn.Exec(
		`INSERT INTO items (id, url, title, description, thumbnail, creator, platform,
		tags, topic, summary, date_added, seq, engagement, debug_info, is_enriching)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		url = excluded.url, title = excluded.title, description = excluded.description,
		thumbnail = excluded.thumbnail, creator = excluded.creator, platform = excluded.platform,
		tags = excluded.tags, topic = excluded.topic, summary = excluded.summary,
		engagement = excluded.engagement, debug_info = excluded.debug_info,
		is_enriching = excluded.is_enriching`,
		item.ID, item.URL, item.Title, item.Description, item.Thumbnail,
		item.Creator, item.Platform, string(tags), item.Topic, item.Summary,
		item.DateAdded, item.Seq, item.Engagement, item.DebugInfo, boolToInt(item.IsEnriching),
	)
	if err != nil {
		return fmt.Errorf("upserting item: %w", err)
	}
	return nil
}

// GetAllItems returns every saved item. Callers re-sort, so order here is
// just save order for predictable listings.
func (db *DB) GetAllItems() ([]Item, error) {
	rows, err := db.conn.Query(selectItemColumns + " FROM items ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

// GetItem returns a single item by ID, or nil if not found.
func (db *DB) GetItem(id string) (*Item, error) {
	row := db.conn.QueryRow(selectItemColumns+" FROM items WHERE id = ?", id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetItemByURL returns the first item saved for a URL, or nil if none exists.
func (db *DB) GetItemByURL(url string) (*Item, error) {
	row := db.conn.QueryRow(selectItemColumns+" FROM items WHERE url = ? ORDER BY seq LIMIT 1", url)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes an item by ID.
func (db *DB) DeleteItem(id string) error {
	_, err := db.conn.Exec("DELETE FROM items WHERE id = ?", id)
	return err
}

// ApplyEnrichment merges an enrichment result into an item:
// tags become the set union (existing order first, new tags appended), topic
// and summary are replaced, engagement is replaced only when the patch carries
// a non-zero value, the title is replaced only when the current title is a
// placeholder and the patch suggests one, and the enriching flag is cleared.
func (db *DB) ApplyEnrichment(id string, patch EnrichmentPatch) error {
	item, err := db.GetItem(id)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("item %s not found", id)
	}

	item.Tags = dedupeTags(append(item.Tags, patch.Tags...))
	item.Topic = patch.Topic
	item.Summary = patch.Summary
	if patch.Engagement != 0 {
		item.Engagement = patch.Engagement
	}
	if patch.SuggestedTitle != "" && IsPlaceholderTitle(item.Title) {
		item.Title = patch.SuggestedTitle
	}
	item.IsEnriching = false

	return db.SaveItem(item)
}

// ClearEnriching marks an item's enrichment as no longer pending, keeping
// whatever metadata it already has.
func (db *DB) ClearEnriching(id string) error {
	_, err := db.conn.Exec("UPDATE items SET is_enriching = 0 WHERE id = ?", id)
	return err
}

// GetStats returns aggregate statistics.
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{Platforms: make(map[string]int)}

	if err := db.conn.QueryRow("SELECT COUNT(*) FROM items").Scan(&stats.TotalItems); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM items WHERE is_enriching = 1").Scan(&stats.Enriching); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query("SELECT platform, COUNT(*) FROM items GROUP BY platform")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var platform string
		var count int
		if err := rows.Scan(&platform, &count); err != nil {
			return nil, err
		}
		stats.Platforms[platform] = count
	}
	return stats, rows.Err()
}

const selectItemColumns = `SELECT id, url, title, description, thumbnail, creator,
	platform, tags, topic, summary, date_added, seq, engagement, debug_info, is_enriching`

func scanItems(rows *sql.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		var it Item
		var tags string
		var debugInfo sql.NullString
		var enriching int
		if err := rows.Scan(&it.ID, &it.URL, &it.Title, &it.Description, &it.Thumbnail,
			&it.Creator, &it.Platform, &tags, &it.Topic, &it.Summary,
			&it.DateAdded, &it.Seq, &it.Engagement, &debugInfo, &enriching); err != nil {
			return nil, err
		}
		it.Tags = decodeTags(tags)
		it.DebugInfo = debugInfo.String
		it.IsEnriching = enriching != 0
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanItem(row *sql.Row) (*Item, error) {
	var it Item
	var tags string
	var debugInfo sql.NullString
	var enriching int
	if err := row.Scan(&it.ID, &it.URL, &it.Title, &it.Description, &it.Thumbnail,
		&it.Creator, &it.Platform, &tags, &it.Topic, &it.Summary,
		&it.DateAdded, &it.Seq, &it.Engagement, &debugInfo, &enriching); err != nil {
		return nil, err
	}
	it.Tags = decodeTags(tags)
	it.DebugInfo = debugInfo.String
	it.IsEnriching = enriching != 0
	return &it, nil
}

func decodeTags(raw string) []string {
	var tags []string
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil
	}
	return tags
}

// dedupeTags removes duplicate tags, keeping first-occurrence order.
func dedupeTags(tags []string) []string {
	if len(tags) == 0 {
		return tags
	}
	seen := make(map[string]bool, len(tags))
	out := tags[:0:0]
	for _, tag := range tags {
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
