package content

import (
	"context"
	"fmt"

	"github.com/metcalfc/narr/internal/reader"
)

// BookSource serves the chapters of a book opened from disk. Its only
// story ID is the book's content hash.
type BookSource struct {
	id   string
	book *reader.Book
}

// NewBookSource wraps book under id.
func NewBookSource(id string, book *reader.Book) *BookSource {
	return &BookSource{id: id, book: book}
}

// ID returns the story ID the source answers to.
func (b *BookSource) ID() string { return b.id }

// Book returns the wrapped book.
func (b *BookSource) Book() *reader.Book { return b.book }

func (b *BookSource) check(storyID string) error {
	if storyID != b.id {
		return fmt.Errorf("story %s: %w", storyID, ErrNotFound)
	}
	return nil
}

func (b *BookSource) ChapterCount(ctx context.Context, storyID string) (int, error) {
	if err := b.check(storyID); err != nil {
		return 0, err
	}
	return b.book.ChapterCount(), nil
}

func (b *BookSource) ChapterText(ctx context.Context, storyID string, n int) (string, error) {
	if err := b.check(storyID); err != nil {
		return "", err
	}
	if n < 0 || n >= len(b.book.Chapters) {
		return "", fmt.Errorf("story %s chapter %d: %w", storyID, n, ErrNotFound)
	}
	return b.book.Chapters[n].Text, nil
}

// ImportBook copies a book into the catalog as a new story and files it
// under the given category IDs.
func (c *Catalog) ImportBook(ctx context.Context, book *reader.Book, coverURL string, categoryIDs ...string) (Story, error) {
	story, err := c.AddStory(ctx, Story{
		Title:    book.Title,
		Author:   book.Author,
		CoverURL: coverURL,
		Status:   "completed",
	})
	if err != nil {
		return Story{}, err
	}

	chapters := make([]Chapter, 0, len(book.Chapters))
	for _, ch := range book.Chapters {
		chapters = append(chapters, Chapter{Title: ch.Title, Content: ch.Text})
	}
	if err := c.AddChapters(ctx, story.ID, chapters); err != nil {
		return Story{}, err
	}
	for _, id := range categoryIDs {
		if err := c.Tag(ctx, story.ID, id); err != nil {
			return Story{}, err
		}
	}
	story.ChapterCount = len(chapters)
	return story, nil
}
