package reader

import (
	"bufio"
	"os"
	"regexp"
	"strings"
)

// MarkdownFormat implements Format for Markdown files. Top-level and
// second-level headers start new chapters.
type MarkdownFormat struct{}

func init() {
	Register(&MarkdownFormat{})
}

func (f *MarkdownFormat) Name() string         { return "Markdown" }
func (f *MarkdownFormat) Extensions() []string { return []string{".md", ".markdown"} }

// headerRegex matches markdown headers (# to ######)
var headerRegex = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// emphasisRegex matches inline emphasis markers that should not be spoken.
var emphasisRegex = regexp.MustCompile(`[*_]{1,3}([^*_]+)[*_]{1,3}`)

// Extract splits a Markdown file into chapters at h1/h2 headers. Deeper
// headers stay in the chapter text as ordinary lines.
func (f *MarkdownFormat) Extract(filename string) (*Book, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var (
		chapters []Chapter
		current  *Chapter
		body     strings.Builder
		headers  bool
	)

	flush := func() {
		if current != nil {
			current.Text = strings.TrimSpace(body.String())
			chapters = append(chapters, *current)
		} else if strings.TrimSpace(body.String()) != "" {
			// Text before the first header becomes a preface.
			title := "Preface"
			if !headers {
				title = "Document"
			}
			chapters = append(chapters, Chapter{Title: title, Text: strings.TrimSpace(body.String())})
		}
		body.Reset()
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if match := headerRegex.FindStringSubmatch(line); match != nil {
			title := strings.TrimSpace(match[2])
			if len(match[1]) <= 2 {
				headers = true
				flush()
				current = &Chapter{Title: title}
				continue
			}
			line = title
		}

		body.WriteString(emphasisRegex.ReplaceAllString(line, "$1"))
		body.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	// If no chapters found, create a single chapter with all content
	if len(chapters) == 0 {
		chapters = append(chapters, Chapter{Title: "Document"})
	}
	return &Book{Chapters: chapters}, nil
}
