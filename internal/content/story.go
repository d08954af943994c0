// Package content provides the chapter sources the reader plays from: a
// SQLite story catalog and single books opened from disk.
package content

import (
	"errors"
	"fmt"
	"time"

	"github.com/metcalfc/narr/internal/palette"
)

// ErrNotFound is returned when a story, chapter or category does not exist.
var ErrNotFound = errors.New("not found")

// DefaultCover is the bundled image shown for stories without cover art.
const DefaultCover = palette.Asset("romance-cover.png")

// Story is a catalog entry.
type Story struct {
	ID           string
	Title        string
	Author       string
	Description  string
	CoverURL     string
	Views        int64
	Likes        int64
	Rating       float64
	Status       string
	Trending     bool
	Featured     bool
	CreatedAt    time.Time
	ChapterCount int
}

// Cover returns the image source used to theme the reader.
func (s Story) Cover() palette.Source {
	if s.CoverURL == "" {
		return DefaultCover
	}
	return palette.Remote{URI: s.CoverURL}
}

// Chapter is one chapter of a story. OrderIndex is 0-based.
type Chapter struct {
	ID         string
	StoryID    string
	Title      string
	OrderIndex int
	Content    string
}

// Category groups stories. Top-level categories have an empty ParentID.
type Category struct {
	ID          string
	Name        string
	Slug        string
	Description string
	ImageURL    string
	ParentID    string
	OrderIndex  int
	Active      bool
	CreatedAt   time.Time

	// Set by queries that join the parent row.
	ParentName string
	ParentSlug string

	// Set by CategoryTree.
	Subcategories []Category
}

// FormatCount renders a view or like count as 950, 1.2K or 3.4M.
func FormatCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}
