package reader

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenBook(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("plain text", func(t *testing.T) {
		content := "Hello world this is a test."
		path := filepath.Join(tmpDir, "short_story.txt")
		os.WriteFile(path, []byte(content), 0644)

		book, err := OpenBook(path)
		if err != nil {
			t.Fatalf("OpenBook: %v", err)
		}
		if book.Title != "short story" {
			t.Errorf("Title = %q, want %q", book.Title, "short story")
		}
		if book.ChapterCount() != 1 {
			t.Fatalf("ChapterCount() = %d, want 1", book.ChapterCount())
		}
		if got := book.Chapters[0].Text; got != content {
			t.Errorf("got %q, want %q", got, content)
		}
		if book.Path != path {
			t.Errorf("Path = %q, want %q", book.Path, path)
		}
	})

	t.Run("markdown", func(t *testing.T) {
		path := filepath.Join(tmpDir, "test.md")
		os.WriteFile(path, []byte("# One\nFirst.\n# Two\nSecond."), 0644)

		book, err := OpenBook(path)
		if err != nil {
			t.Fatalf("OpenBook: %v", err)
		}
		if book.ChapterCount() != 2 {
			t.Errorf("ChapterCount() = %d, want 2", book.ChapterCount())
		}
		if book.ChapterTitle(1) != "Two" {
			t.Errorf("ChapterTitle(1) = %q, want Two", book.ChapterTitle(1))
		}
		if book.ChapterTitle(5) != "" {
			t.Errorf("ChapterTitle(5) = %q, want empty", book.ChapterTitle(5))
		}
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(tmpDir, "empty.txt")
		os.WriteFile(path, []byte("  \n "), 0644)

		if _, err := OpenBook(path); err == nil {
			t.Error("expected error for empty file")
		}
	})

	t.Run("nonexistent file", func(t *testing.T) {
		_, err := OpenBook(filepath.Join(tmpDir, "nonexistent.txt"))
		if err == nil {
			t.Error("expected error")
		}
	})
}

func TestBookWordCount(t *testing.T) {
	book := &Book{Chapters: []Chapter{{Text: "one two"}, {Text: "three"}}}
	if got := book.WordCount(); got != 3 {
		t.Errorf("WordCount() = %d, want 3", got)
	}
}

func TestEPUBFormat(t *testing.T) {
	f := &EPUBFormat{}
	if f.Name() != "EPUB" {
		t.Errorf("Name() = %q, want EPUB", f.Name())
	}
	if exts := f.Extensions(); len(exts) != 1 || exts[0] != ".epub" {
		t.Errorf("Extensions() = %v, want [.epub]", exts)
	}
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"book.epub", "EPUB"},
		{"BOOK.EPUB", "EPUB"},
		{"notes.md", "Markdown"},
		{"notes.markdown", "Markdown"},
		{"plain.txt", ""},
	}
	for _, tt := range tests {
		f, ok := FormatFor(tt.filename)
		got := ""
		if ok {
			got = f.Name()
		}
		if got != tt.want {
			t.Errorf("FormatFor(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestSupportedFormats(t *testing.T) {
	formats := SupportedFormats()
	if len(formats) == 0 {
		t.Error("no formats registered")
	}
	for _, f := range formats {
		if f == "EPUB (.epub)" {
			return
		}
	}
	t.Errorf("EPUB not registered: %v", formats)
}
