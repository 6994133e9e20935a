package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clipvault/clipvault/internal/capture"
	"github.com/clipvault/clipvault/internal/database"
	"github.com/clipvault/clipvault/internal/metadata"
	"github.com/clipvault/clipvault/internal/search"
)

type staticFetcher struct{}

func (staticFetcher) FetchMetadata(_ string) metadata.Result {
	return metadata.Result{Title: "A clip", Topic: database.TopicUncategorized}
}

func newTestServer(t *testing.T) (*Server, *database.DB) {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	engine := search.NewEngine(nil, 0)
	capturer := capture.NewCapturer(db, staticFetcher{}, nil)

	s, err := New(db, engine, capturer)
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}
	return s, db
}

func seedItem(t *testing.T, db *database.DB, id, title, topic string) {
	t.Helper()
	err := db.SaveItem(&database.Item{
		ID:    id,
		URL:   "https://example.com/" + id,
		Title: title,
		Topic: topic,
		Seq:   database.UnassignedSeq,
	})
	if err != nil {
		t.Fatalf("seeding item: %v", err)
	}
}

func TestIndexPage(t *testing.T) {
	s, db := newTestServer(t)
	seedItem(t, db, "a", "Carbonara in five minutes", "Food")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Carbonara in five minutes") {
		t.Error("expected item title on index page")
	}
}

func TestIndexUnknownPath(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	s, db := newTestServer(t)
	seedItem(t, db, "a", "Carbonara in five minutes", "Food")
	seedItem(t, db, "b", "Budget travel hacks", "Travel")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=carbonara", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}

	var items []itemJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(items) != 1 || items[0].ID != "a" {
		t.Errorf("expected only the carbonara item, got %v", items)
	}
	if items[0].Category != "Food" {
		t.Errorf("expected category Food, got %q", items[0].Category)
	}
}

func TestSearchEndpointCategoryFilter(t *testing.T) {
	s, db := newTestServer(t)
	seedItem(t, db, "a", "Carbonara in five minutes", "Food")
	seedItem(t, db, "b", "Budget travel hacks", "Travel")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?category=Travel", nil))

	var items []itemJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(items) != 1 || items[0].ID != "b" {
		t.Errorf("expected only the travel item, got %v", items)
	}
}

func TestCaptureEndpoint(t *testing.T) {
	s, db := newTestServer(t)

	form := url.Values{"url": {"https://example.com/clip"}}
	req := httptest.NewRequest(http.MethodPost, "/capture", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}

	stored, err := db.GetItemByURL("https://example.com/clip")
	if err != nil {
		t.Fatalf("reading item back: %v", err)
	}
	if stored == nil {
		t.Fatal("expected captured item in database")
	}
	if stored.Title != "A clip" {
		t.Errorf("expected fetched title, got %q", stored.Title)
	}
}

func TestCaptureEndpointRejectsGet(t *testing.T) {
	s, db := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/capture", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	items, _ := db.GetAllItems()
	if len(items) != 0 {
		t.Error("GET must not capture anything")
	}
}

func TestDeleteEndpoint(t *testing.T) {
	s, db := newTestServer(t)
	seedItem(t, db, "a", "Carbonara in five minutes", "Food")

	form := url.Values{"id": {"a"}}
	req := httptest.NewRequest(http.MethodPost, "/delete", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	stored, _ := db.GetItem("a")
	if stored != nil {
		t.Error("expected item deleted")
	}
}

func TestEnrichingItemShowsGeneralCategory(t *testing.T) {
	s, db := newTestServer(t)
	err := db.SaveItem(&database.Item{
		ID:          "a",
		URL:         "https://example.com/a",
		Title:       database.TitleCapturing,
		Topic:       database.TopicUncategorized,
		Seq:         database.UnassignedSeq,
		IsEnriching: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search", nil))

	var items []itemJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Category != "General" {
		t.Errorf("expected General while enriching, got %q", items[0].Category)
	}
}
