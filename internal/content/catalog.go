package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"

	"github.com/metcalfc/narr/internal/logging"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

const (
	listLimit     = 20
	trendingLimit = 10
	featuredLimit = 5
	arrivalsLimit = 10
	searchLimit   = 10
	genreLimit    = 10
)

// Catalog is the SQLite story catalog. It is safe for concurrent use.
type Catalog struct {
	db *sql.DB
}

// OpenCatalog opens (creating if needed) the catalog at path.
func OpenCatalog(path string) (*Catalog, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	c := &Catalog{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return c, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS stories (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		cover_url TEXT NOT NULL DEFAULT '',
		views INTEGER NOT NULL DEFAULT 0,
		likes INTEGER NOT NULL DEFAULT 0,
		rating REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'ongoing',
		is_trending INTEGER NOT NULL DEFAULT 0,
		is_featured INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_stories_created ON stories(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_stories_views ON stories(views DESC);

	CREATE TABLE IF NOT EXISTS chapters (
		id TEXT PRIMARY KEY,
		story_id TEXT NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
		title TEXT NOT NULL DEFAULT '',
		order_index INTEGER NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		UNIQUE(story_id, order_index)
	);

	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		parent_id TEXT REFERENCES categories(id),
		order_index INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS story_categories (
		story_id TEXT NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
		category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
		PRIMARY KEY (story_id, category_id)
	);
	`
	_, err := c.db.Exec(schema)
	return err
}

const storyColumns = `
	s.id, s.title, s.author, s.description, s.cover_url, s.views, s.likes,
	s.rating, s.status, s.is_trending, s.is_featured, s.created_at,
	(SELECT COUNT(*) FROM chapters ch WHERE ch.story_id = s.id)`

func (c *Catalog) queryStories(ctx context.Context, query string, args ...any) ([]Story, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stories: %w", err)
	}
	defer rows.Close()

	var stories []Story
	for rows.Next() {
		var s Story
		if err := rows.Scan(
			&s.ID, &s.Title, &s.Author, &s.Description, &s.CoverURL, &s.Views, &s.Likes,
			&s.Rating, &s.Status, &s.Trending, &s.Featured, &s.CreatedAt,
			&s.ChapterCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan story: %w", err)
		}
		stories = append(stories, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return stories, nil
}

// Stories returns the most recently added stories.
func (c *Catalog) Stories(ctx context.Context) ([]Story, error) {
	return c.queryStories(ctx, `SELECT `+storyColumns+` FROM stories s
		ORDER BY s.created_at DESC LIMIT ?`, listLimit)
}

// Trending returns trending stories, most viewed first.
func (c *Catalog) Trending(ctx context.Context) ([]Story, error) {
	return c.queryStories(ctx, `SELECT `+storyColumns+` FROM stories s
		WHERE s.is_trending = 1 ORDER BY s.views DESC LIMIT ?`, trendingLimit)
}

// Featured returns featured stories.
func (c *Catalog) Featured(ctx context.Context) ([]Story, error) {
	return c.queryStories(ctx, `SELECT `+storyColumns+` FROM stories s
		WHERE s.is_featured = 1 ORDER BY s.created_at DESC LIMIT ?`, featuredLimit)
}

// NewArrivals returns the newest stories.
func (c *Catalog) NewArrivals(ctx context.Context) ([]Story, error) {
	return c.queryStories(ctx, `SELECT `+storyColumns+` FROM stories s
		ORDER BY s.created_at DESC LIMIT ?`, arrivalsLimit)
}

// ByCategory returns the stories tagged with a category id.
func (c *Catalog) ByCategory(ctx context.Context, categoryID string) ([]Story, error) {
	return c.queryStories(ctx, `SELECT `+storyColumns+` FROM stories s
		JOIN story_categories sc ON sc.story_id = s.id
		WHERE sc.category_id = ? ORDER BY s.created_at DESC`, categoryID)
}

// ByCategorySlug returns up to limit stories in the category with slug.
// An unknown slug yields no stories.
func (c *Catalog) ByCategorySlug(ctx context.Context, slug string, limit int) ([]Story, error) {
	if limit <= 0 {
		limit = genreLimit
	}
	return c.queryStories(ctx, `SELECT `+storyColumns+` FROM stories s
		JOIN story_categories sc ON sc.story_id = s.id
		JOIN categories cat ON cat.id = sc.category_id
		WHERE cat.slug = ? ORDER BY s.created_at DESC LIMIT ?`, slug, limit)
}

// Story returns one story with its chapters in reading order.
func (c *Catalog) Story(ctx context.Context, id string) (Story, []Chapter, error) {
	stories, err := c.queryStories(ctx, `SELECT `+storyColumns+` FROM stories s WHERE s.id = ?`, id)
	if err != nil {
		return Story{}, nil, err
	}
	if len(stories) == 0 {
		return Story{}, nil, fmt.Errorf("story %s: %w", id, ErrNotFound)
	}
	chapters, err := c.Chapters(ctx, id)
	if err != nil {
		return Story{}, nil, err
	}
	return stories[0], chapters, nil
}

// Chapters returns a story's chapters ordered by OrderIndex.
func (c *Catalog) Chapters(ctx context.Context, storyID string) ([]Chapter, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, story_id, title, order_index, content
		FROM chapters WHERE story_id = ? ORDER BY order_index`, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chapters: %w", err)
	}
	defer rows.Close()

	var chapters []Chapter
	for rows.Next() {
		var ch Chapter
		if err := rows.Scan(&ch.ID, &ch.StoryID, &ch.Title, &ch.OrderIndex, &ch.Content); err != nil {
			return nil, fmt.Errorf("failed to scan chapter: %w", err)
		}
		chapters = append(chapters, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return chapters, nil
}

// ChapterText returns the text of the chapter at 0-based position n.
func (c *Catalog) ChapterText(ctx context.Context, storyID string, n int) (string, error) {
	var text string
	err := c.db.QueryRowContext(ctx, `
		SELECT content FROM chapters WHERE story_id = ?
		ORDER BY order_index LIMIT 1 OFFSET ?`, storyID, n).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("story %s chapter %d: %w", storyID, n, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load chapter: %w", err)
	}
	return text, nil
}

// ChapterCount returns how many chapters a story has.
func (c *Catalog) ChapterCount(ctx context.Context, storyID string) (int, error) {
	var exists, count int
	err := c.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM stories WHERE id = ?),
			(SELECT COUNT(*) FROM chapters WHERE story_id = ?)`, storyID, storyID).Scan(&exists, &count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chapters: %w", err)
	}
	if exists == 0 {
		return 0, fmt.Errorf("story %s: %w", storyID, ErrNotFound)
	}
	return count, nil
}

// Search finds stories by title. Titles containing the query come first,
// followed by looser fuzzy matches; each group is ranked by match quality.
func (c *Catalog) Search(ctx context.Context, query string) ([]Story, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	exact, err := c.queryStories(ctx, `SELECT `+storyColumns+` FROM stories s
		WHERE s.title LIKE ? ESCAPE '\' ORDER BY s.created_at DESC`, "%"+escapeLike(query)+"%")
	if err != nil {
		return nil, err
	}
	results := rank(query, exact)
	if len(results) >= searchLimit {
		return results[:searchLimit], nil
	}

	all, err := c.queryStories(ctx, `SELECT `+storyColumns+` FROM stories s ORDER BY s.created_at DESC`)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(results))
	for _, s := range results {
		seen[s.ID] = true
	}
	var rest []Story
	for _, s := range all {
		if !seen[s.ID] {
			rest = append(rest, s)
		}
	}
	results = append(results, rank(query, rest)...)
	if len(results) > searchLimit {
		results = results[:searchLimit]
	}
	logging.Debug("Catalog search", "query", query, "substring", len(exact), "results", len(results))
	return results, nil
}

type storyTitles []Story

func (s storyTitles) String(i int) string { return s[i].Title }
func (s storyTitles) Len() int            { return len(s) }

// rank keeps the stories whose titles fuzzy-match query, best first.
func rank(query string, stories []Story) []Story {
	matches := fuzzy.FindFrom(query, storyTitles(stories))
	out := make([]Story, 0, len(matches))
	for _, m := range matches {
		out = append(out, stories[m.Index])
	}
	return out
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// AddStory inserts a story and returns it with its generated ID and
// creation time filled in when they were empty.
func (c *Catalog) AddStory(ctx context.Context, s Story) (Story, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.Status == "" {
		s.Status = "ongoing"
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO stories (id, title, author, description, cover_url, views, likes, rating, status, is_trending, is_featured, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Title, s.Author, s.Description, s.CoverURL, s.Views, s.Likes, s.Rating,
		s.Status, s.Trending, s.Featured, s.CreatedAt)
	if err != nil {
		return Story{}, fmt.Errorf("failed to add story: %w", err)
	}
	return s, nil
}

// AddChapters appends chapters to a story in one transaction. OrderIndex
// values are assigned after the story's existing chapters.
func (c *Catalog) AddChapters(ctx context.Context, storyID string, chapters []Chapter) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback is safe to call even after commit - it's a no-op
	defer tx.Rollback()

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(order_index) + 1, 0) FROM chapters WHERE story_id = ?`, storyID).Scan(&next); err != nil {
		return fmt.Errorf("failed to find next chapter index: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chapters (id, story_id, title, order_index, content)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, ch := range chapters {
		id := ch.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx, id, storyID, ch.Title, next+i, ch.Content); err != nil {
			return fmt.Errorf("failed to add chapter %q: %w", ch.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RecordView increments a story's view count.
func (c *Catalog) RecordView(ctx context.Context, storyID string) error {
	res, err := c.db.ExecContext(ctx, `UPDATE stories SET views = views + 1 WHERE id = ?`, storyID)
	if err != nil {
		return fmt.Errorf("failed to record view: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("story %s: %w", storyID, ErrNotFound)
	}
	return nil
}
