// Package reader provides the narrated reading engine: sentence
// segmentation, the playback sequencer that feeds sentences to a speech
// engine, and extraction of chapter text from book files.
package reader

import (
	"path/filepath"
	"strings"
)

// Chapter is the extracted text of one chapter of a book.
type Chapter struct {
	Title string
	Text  string
}

// Book is a locally stored story split into chapters.
type Book struct {
	Title    string
	Author   string
	Path     string
	Chapters []Chapter
}

// ChapterCount returns the number of chapters.
func (b *Book) ChapterCount() int {
	return len(b.Chapters)
}

// ChapterTitle returns the title of chapter i, or "" if out of range.
func (b *Book) ChapterTitle(i int) string {
	if i >= 0 && i < len(b.Chapters) {
		return b.Chapters[i].Title
	}
	return ""
}

// WordCount returns the number of words across all chapters.
func (b *Book) WordCount() int {
	n := 0
	for _, ch := range b.Chapters {
		n += len(strings.Fields(ch.Text))
	}
	return n
}

// SingleChapterBook wraps plain text as a one-chapter book.
func SingleChapterBook(title, text string) *Book {
	return &Book{
		Title:    title,
		Chapters: []Chapter{{Title: title, Text: text}},
	}
}

// titleFromPath derives a readable title from a file name.
func titleFromPath(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	if base == "" {
		return "Document"
	}
	return base
}

// dropEmptyChapters removes chapters without any words.
func dropEmptyChapters(chapters []Chapter) []Chapter {
	out := chapters[:0]
	for _, ch := range chapters {
		if strings.TrimSpace(ch.Text) != "" {
			out = append(out, ch)
		}
	}
	return out
}
