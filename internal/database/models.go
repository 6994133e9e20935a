package database

// Platform identifies where a clip was published.
const (
	PlatformVideo   = "video"
	PlatformPhoto   = "photo"
	PlatformUnknown = "unknown"
)

// TitleCapturing is the title an item carries while its metadata is being fetched.
const TitleCapturing = "Capturing..."

// TopicUncategorized marks an item whose topic has not been enriched yet.
const TopicUncategorized = "Uncategorized"

// UnassignedSeq is the sequence number of an item that has never been saved.
// SaveItem resolves it to max(existing)+1.
const UnassignedSeq = -1

// fallbackTitles are the best-effort titles the metadata fetcher produces when
// it cannot extract anything. They count as placeholders for enrichment: an
// enrichment patch may replace them with a suggested title.
var fallbackTitles = map[string]bool{
	TitleCapturing: true,
	"Video clip":   true,
	"Photo post":   true,
	"Saved link":   true,
}

// IsPlaceholderTitle reports whether a title was machine-generated rather than
// extracted from the content.
func IsPlaceholderTitle(title string) bool {
	return fallbackTitles[title]
}

// FallbackTitle returns the placeholder title for a platform, used when
// metadata extraction comes up empty.
func FallbackTitle(platform string) string {
	switch platform {
	case PlatformVideo:
		return "Video clip"
	case PlatformPhoto:
		return "Photo post"
	default:
		return "Saved link"
	}
}

// Item is one captured piece of content.
type Item struct {
	ID          string
	URL         string
	Title       string
	Description string
	Thumbnail   string
	Creator     string
	Platform    string
	Tags        []string
	Topic       string
	Summary     string
	DateAdded   int64 // epoch milliseconds, set once at creation
	Seq         int64 // save order, unique, UnassignedSeq until first save
	Engagement  int64
	DebugInfo   string
	IsEnriching bool
}

// EnrichmentPatch carries the fields an enrichment run may update on an item.
type EnrichmentPatch struct {
	Tags           []string
	Topic          string
	Summary        string
	SuggestedTitle string
	Engagement     int64
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalItems int
	Enriching  int
	Platforms  map[string]int
}
