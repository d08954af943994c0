package reader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format defines a book file format that can be split into chapters.
type Format interface {
	Name() string
	Extensions() []string
	Extract(filename string) (*Book, error)
}

var registry []Format

// Register adds a format reader to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

// FormatFor returns the registered format for filename, if any.
func FormatFor(filename string) (Format, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range registry {
		for _, e := range f.Extensions() {
			if ext == e {
				return f, true
			}
		}
	}
	return nil, false
}

// OpenBook extracts a book from a file, using a registered format or a
// single plain-text chapter as the fallback.
func OpenBook(filename string) (*Book, error) {
	var book *Book
	if f, ok := FormatFor(filename); ok {
		b, err := f.Extract(filename)
		if err != nil {
			return nil, err
		}
		book = b
	} else {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
		book = SingleChapterBook(titleFromPath(filename), string(data))
	}

	book.Path = filename
	if book.Title == "" {
		book.Title = titleFromPath(filename)
	}
	book.Chapters = dropEmptyChapters(book.Chapters)
	if len(book.Chapters) == 0 {
		return nil, fmt.Errorf("no text found in %s", filename)
	}
	return book, nil
}

// SupportedFormats returns registered format names with their extensions.
func SupportedFormats() []string {
	var out []string
	for _, f := range registry {
		out = append(out, f.Name()+" ("+strings.Join(f.Extensions(), ", ")+")")
	}
	return out
}
