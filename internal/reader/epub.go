package reader

import (
	"fmt"
	"io"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// EPUBFormat implements Format for EPUB files.
type EPUBFormat struct{}

func init() {
	Register(&EPUBFormat{})
}

func (f *EPUBFormat) Name() string         { return "EPUB" }
func (f *EPUBFormat) Extensions() []string { return []string{".epub"} }

// Extract reads the spine in order, one chapter per spine item with text.
// Chapter titles come from the NCX table of contents when available.
func (f *EPUBFormat) Extract(filename string) (*Book, error) {
	rc, err := epub.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return nil, fmt.Errorf("no rootfiles found in epub")
	}

	book := rc.Rootfiles[0]
	titles := bookTOC(book)

	out := &Book{
		Title:  strings.TrimSpace(book.Title),
		Author: strings.TrimSpace(book.Creator),
	}

	for i, ref := range book.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		r, err := ref.Item.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			continue
		}

		text := extractTextFromHTML(string(data))
		if strings.TrimSpace(text) == "" {
			continue
		}

		title := fmt.Sprintf("Section %d", i+1)
		if t, ok := titles.lookup(ref.Item.HREF); ok {
			title = t
		}

		out.Chapters = append(out.Chapters, Chapter{Title: title, Text: text})
	}

	return out, nil
}

// blockElements end a paragraph in extracted text.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Section: true, atom.Tr: true,
}

// extractTextFromHTML returns the visible text of an XHTML document with
// block elements separated by blank lines.
func extractTextFromHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return ""
	}

	var out strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style || n.DataAtom == atom.Head) {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				if out.Len() > 0 && !strings.HasSuffix(out.String(), "\n") {
					out.WriteString(" ")
				}
				out.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.DataAtom] && out.Len() > 0 && !strings.HasSuffix(out.String(), "\n\n") {
			out.WriteString("\n\n")
		}
	}
	walk(doc)
	return strings.TrimSpace(out.String())
}
