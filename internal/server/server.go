package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/clipvault/clipvault/internal/capture"
	"github.com/clipvault/clipvault/internal/database"
	"github.com/clipvault/clipvault/internal/search"
	"github.com/clipvault/clipvault/internal/taxonomy"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Server is the HTTP server for browsing and searching the clip library.
type Server struct {
	db       *database.DB
	engine   *search.Engine
	capturer *capture.Capturer
	pages    map[string]*template.Template
	mux      *http.ServeMux
}

// New creates a new Server.
func New(db *database.DB, engine *search.Engine, capturer *capture.Capturer) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"category": taxonomy.DisplayCategory,
		"dateAdded": func(millis int64) string {
			return time.UnixMilli(millis).Format("Jan 2, 2006")
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page template gets its own clone of the base, so every page can
	// carry its own {{define "content"}}.
	pageNames := []string{"index.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{db: db, engine: engine, capturer: capturer, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/api/search", s.handleSearch)
	s.mux.HandleFunc("/capture", s.handleCapture)
	s.mux.HandleFunc("/delete", s.handleDelete)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	items, err := s.db.GetAllItems()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, "index.html", map[string]any{
		"Items":      search.Rank(items, search.SortRecent),
		"Categories": taxonomy.Categories(),
	})
}

// handleSearch is the live search endpoint. The UI calls it on every
// keystroke; intent derivation is debounced inside the engine, so results
// refine on a later request once the intent arrives.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	items, err := s.db.GetAllItems()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.engine.SetItems(items)
	s.engine.SetCategory(r.URL.Query().Get("category"))
	s.engine.SetQuery(r.URL.Query().Get("q"))

	writeJSON(w, itemsToJSON(s.engine.Results()))
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	url := strings.TrimSpace(r.FormValue("url"))
	if url != "" {
		if _, err := s.capturer.Capture(r.Context(), url); err != nil {
			log.Printf("capture failed for %s: %v", url, err)
		}
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if id := r.FormValue("id"); id != "" {
		if err := s.db.DeleteItem(id); err != nil {
			log.Printf("delete failed for %s: %v", id, err)
		}
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

type itemJSON struct {
	ID          string   `json:"id"`
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Creator     string   `json:"creator,omitempty"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	Platform    string   `json:"platform"`
	Tags        []string `json:"tags,omitempty"`
	Category    string   `json:"category"`
	Summary     string   `json:"summary,omitempty"`
	DateAdded   int64    `json:"dateAdded"`
	Engagement  int64    `json:"engagement"`
	IsEnriching bool     `json:"isEnriching,omitempty"`
}

func itemsToJSON(items []database.Item) []itemJSON {
	out := make([]itemJSON, 0, len(items))
	for _, it := range items {
		out = append(out, itemJSON{
			ID:          it.ID,
			URL:         it.URL,
			Title:       it.Title,
			Creator:     it.Creator,
			Thumbnail:   it.Thumbnail,
			Platform:    it.Platform,
			Tags:        it.Tags,
			Category:    taxonomy.DisplayCategory(it.Topic, it.IsEnriching),
			Summary:     it.Summary,
			DateAdded:   it.DateAdded,
			Engagement:  it.Engagement,
			IsEnriching: it.IsEnriching,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}

func (s *Server) render(w http.ResponseWriter, page string, data map[string]any) {
	tmpl, ok := s.pages[page]
	if !ok {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		log.Printf("rendering %s: %v", page, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	buf.WriteTo(w)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}

// Serve starts the HTTP server on the given port.
func Serve(db *database.DB, engine *search.Engine, capturer *capture.Capturer, port int) error {
	s, err := New(db, engine, capturer)
	if err != nil {
		return err
	}
	return http.ListenAndServe(fmt.Sprintf(":%d", port), s.Handler())
}
