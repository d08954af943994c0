package reader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMarkdownExtractChapters(t *testing.T) {
	tmpDir := t.TempDir()
	mdFile := filepath.Join(tmpDir, "test.md")

	content := `# Chapter 1
First chapter content with some words.

# Chapter 2
Second chapter has more content here.

### A scene break
It continues with *emphasis* and __bold__ text.

# Chapter 3
Third and final chapter.
`
	if err := os.WriteFile(mdFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	f := &MarkdownFormat{}
	book, err := f.Extract(mdFile)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	expectedTitles := []string{"Chapter 1", "Chapter 2", "Chapter 3"}
	if len(book.Chapters) != len(expectedTitles) {
		t.Fatalf("Expected %d chapters, got %d", len(expectedTitles), len(book.Chapters))
	}
	for i, ch := range book.Chapters {
		if ch.Title != expectedTitles[i] {
			t.Errorf("Chapter %d: expected title %q, got %q", i, expectedTitles[i], ch.Title)
		}
	}

	second := book.Chapters[1].Text
	if !strings.Contains(second, "A scene break") {
		t.Errorf("h3 header should stay in chapter text: %q", second)
	}
	if strings.ContainsAny(second, "*_") {
		t.Errorf("emphasis markers should be stripped: %q", second)
	}
	if strings.HasPrefix(book.Chapters[0].Text, "#") {
		t.Errorf("chapter text should not include its header: %q", book.Chapters[0].Text)
	}
}

func TestMarkdownPreface(t *testing.T) {
	tmpDir := t.TempDir()
	mdFile := filepath.Join(tmpDir, "preface.md")

	content := "Some words before any header.\n\n## Part One\nThe story.\n"
	if err := os.WriteFile(mdFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	book, err := (&MarkdownFormat{}).Extract(mdFile)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(book.Chapters) != 2 {
		t.Fatalf("Expected 2 chapters, got %d", len(book.Chapters))
	}
	if book.Chapters[0].Title != "Preface" || book.Chapters[1].Title != "Part One" {
		t.Errorf("unexpected titles %q, %q", book.Chapters[0].Title, book.Chapters[1].Title)
	}
}

func TestMarkdownNoHeaders(t *testing.T) {
	tmpDir := t.TempDir()
	mdFile := filepath.Join(tmpDir, "plain.md")

	content := `This is just plain text.
No headers at all.
Just paragraphs.
`
	if err := os.WriteFile(mdFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	book, err := (&MarkdownFormat{}).Extract(mdFile)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	// Should have created a default chapter
	if len(book.Chapters) != 1 {
		t.Fatalf("Expected 1 default chapter, got %d", len(book.Chapters))
	}
	if book.Chapters[0].Title != "Document" {
		t.Errorf("Expected default title 'Document', got %q", book.Chapters[0].Title)
	}
	if got := len(Segment(book.Chapters[0].Text)); got != 3 {
		t.Errorf("Expected 3 sentences, got %d", got)
	}
}
