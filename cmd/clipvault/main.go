package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/clipvault/clipvault/internal/capture"
	"github.com/clipvault/clipvault/internal/config"
	"github.com/clipvault/clipvault/internal/database"
	"github.com/clipvault/clipvault/internal/enrich"
	"github.com/clipvault/clipvault/internal/intent"
	"github.com/clipvault/clipvault/internal/llm"
	"github.com/clipvault/clipvault/internal/metadata"
	"github.com/clipvault/clipvault/internal/search"
	"github.com/clipvault/clipvault/internal/server"
	"github.com/clipvault/clipvault/internal/taxonomy"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "clipvault",
	Short:   "Save and search short-form clips",
	Long:    "ClipVault captures links to short-form clips, enriches them with an LLM, and searches them with natural language.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// API keys may live in a local .env
		_ = godotenv.Load()

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("clipvault", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/clipvault/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the LLM provider, then save your first clip with 'clipvault add <url>'.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show library and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Library:")
		fmt.Printf("  Saved clips: %d\n", stats.TotalItems)
		fmt.Printf("  Enrichment pending: %d\n", stats.Enriching)

		if len(stats.Platforms) > 0 {
			fmt.Println("\nBy platform:")
			platforms := make([]string, 0, len(stats.Platforms))
			for p := range stats.Platforms {
				platforms = append(platforms, p)
			}
			sort.Strings(platforms)
			for _, p := range platforms {
				fmt.Printf("  %s: %d\n", p, stats.Platforms[p])
			}
		}

		items, err := db.GetAllItems()
		if err != nil {
			return err
		}
		counts := make(map[string]int)
		for _, it := range items {
			counts[taxonomy.DisplayCategory(it.Topic, it.IsEnriching)]++
		}
		if len(counts) > 0 {
			fmt.Println("\nBy category:")
			categories := make([]string, 0, len(counts))
			for c := range counts {
				categories = append(categories, c)
			}
			sort.Strings(categories)
			for _, c := range categories {
				fmt.Printf("  %s: %d\n", c, counts[c])
			}
		}
		return nil
	},
}

// --- add command ---

var skipEnrich bool

var addCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Capture a clip URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		capturer := newCapturer(db)
		item, err := capturer.Capture(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("capturing %s: %w", args[0], err)
		}

		fmt.Printf("Saved: %s\n", item.Title)
		if item.IsEnriching {
			fmt.Println("Enriching with LLM...")
			capturer.Wait()
			if enriched, err := db.GetItem(item.ID); err == nil && enriched != nil {
				fmt.Printf("  Topic: %s\n", taxonomy.Normalize(enriched.Topic))
				if len(enriched.Tags) > 0 {
					fmt.Printf("  Tags: %v\n", enriched.Tags)
				}
			}
		}
		return nil
	},
}

func init() {
	addCmd.Flags().BoolVar(&skipEnrich, "no-enrich", false, "Skip LLM enrichment")
}

// --- import command ---

var importMax int

var importCmd = &cobra.Command{
	Use:   "import <feed-url>",
	Short: "Import clip links from an RSS/Atom feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		capturer := newCapturer(db)
		maxItems := importMax
		if maxItems <= 0 {
			maxItems = cfg.Capture.MaxPerFeed
		}

		result, err := capturer.ImportFeed(cmd.Context(), args[0], maxItems)
		if err != nil {
			return err
		}
		capturer.Wait()

		fmt.Println("Import complete:")
		fmt.Printf("  Captured: %d\n", result.Captured)
		fmt.Printf("  Already saved: %d\n", result.Skipped)
		fmt.Printf("  Failed: %d\n", result.Failed)
		return nil
	},
}

func init() {
	importCmd.Flags().IntVar(&importMax, "max", 0, "Maximum entries to capture (default from config)")
}

// --- list command ---

var (
	listCategory string
	listSort     string
	listLimit    int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved clips",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := db.GetAllItems()
		if err != nil {
			return err
		}

		opts := &search.Intent{SortBy: search.SortMode(listSort), Limit: listLimit}
		results := search.Limit(
			search.Rank(search.Filter(items, listCategory, "", nil), opts.SortMode()),
			opts.ResultLimit(),
		)

		printItems(results)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listCategory, "category", taxonomy.CategoryAll, "Filter by category (finance, fitness, food, tech, travel, fashion)")
	listCmd.Flags().StringVar(&listSort, "sort", "recent", "Sort order: recent, oldest, engagement, last_saved")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum results (0 = all)")
}

// --- search command ---

var searchCategory string

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search clips with natural language",
	Long:  "Search combines exact word matching with LLM-inferred intent: try 'most liked recipes' or 'last finance reel'.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := db.GetAllItems()
		if err != nil {
			return err
		}

		engine := newEngine()
		engine.SetItems(items)
		engine.SetCategory(searchCategory)
		results := engine.Search(cmd.Context(), args[0])

		if len(results) == 0 {
			fmt.Println("No clips match.")
			return nil
		}
		printItems(results)
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchCategory, "category", taxonomy.CategoryAll, "Restrict to a category")
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List canonical categories",
	Run: func(cmd *cobra.Command, args []string) {
		for _, cat := range taxonomy.Categories() {
			fmt.Printf("  %-10s %s\n", cat.ID, cat.Label)
		}
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a saved clip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		item, err := db.GetItem(args[0])
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("clip %s not found", args[0])
		}

		if err := db.DeleteItem(item.ID); err != nil {
			return err
		}
		fmt.Printf("Removed: %s\n", item.Title)
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, newEngine(), newCapturer(db), port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

// --- helpers ---

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "clipvault.db")
	return database.Open(dbPath)
}

func newProvider() llm.Provider {
	return llm.CreateProvider(llm.Options{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		OllamaURL:   cfg.LLM.OllamaURL,
		OpenAIModel: cfg.LLM.OpenAIModel,
		APIKeyEnv:   cfg.LLM.APIKeyEnv,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
}

func newCapturer(db *database.DB) *capture.Capturer {
	fetcher := metadata.NewFetcher(
		time.Duration(cfg.Capture.TimeoutSeconds)*time.Second,
		cfg.Capture.UserAgent,
	)

	var enricher capture.Enricher
	if !skipEnrich {
		if provider := newProvider(); provider != nil {
			enricher = enrich.NewEnricher(provider)
		}
	}
	return capture.NewCapturer(db, fetcher, enricher)
}

func newEngine() *search.Engine {
	var extractor search.Extractor
	if provider := newProvider(); provider != nil {
		extractor = intent.NewExtractor(provider)
	}
	return search.NewEngine(extractor, time.Duration(cfg.Search.DebounceMS)*time.Millisecond)
}

func printItems(items []database.Item) {
	for _, it := range items {
		enriching := ""
		if it.IsEnriching {
			enriching = " (enriching...)"
		}
		fmt.Printf("[%s] %s%s\n", taxonomy.DisplayCategory(it.Topic, it.IsEnriching), it.Title, enriching)
		fmt.Printf("    %s\n", it.URL)
		if it.Creator != "" {
			fmt.Printf("    by %s\n", it.Creator)
		}
		if len(it.Tags) > 0 {
			fmt.Printf("    tags: %v\n", it.Tags)
		}
		fmt.Printf("    saved %s  id %s\n", time.UnixMilli(it.DateAdded).Format("2006-01-02"), it.ID)
	}
}
