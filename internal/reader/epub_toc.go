package reader

import (
	"encoding/xml"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
)

const ncxMediaType = "application/x-dtbncx+xml"

type ncxDoc struct {
	Points []ncxPoint `xml:"navMap>navPoint"`
}

type ncxPoint struct {
	Label    string     `xml:"navLabel>text"`
	Content  ncxContent `xml:"content"`
	Children []ncxPoint `xml:"navPoint"`
}

type ncxContent struct {
	Src string `xml:"src,attr"`
}

// tocTitles maps spine hrefs to table of contents labels. The first label
// seen for a document wins, so a chapter keeps its own title rather than
// that of a nested scene.
type tocTitles map[string]string

func (t tocTitles) add(key, title string) {
	if key == "" || title == "" {
		return
	}
	if _, ok := t[key]; !ok {
		t[key] = title
	}
}

// lookup finds the label for href, trying the full href, then its base name.
func (t tocTitles) lookup(href string) (string, bool) {
	if title, ok := t[href]; ok {
		return title, true
	}
	title, ok := t[path.Base(href)]
	return title, ok
}

func parseNCXTitles(data []byte) tocTitles {
	titles := make(tocTitles)
	var doc ncxDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return titles
	}

	var walk func([]ncxPoint)
	walk = func(points []ncxPoint) {
		for _, p := range points {
			title := strings.TrimSpace(p.Label)
			src := p.Content.Src
			file, _, _ := strings.Cut(src, "#")

			titles.add(src, title)
			titles.add(file, title)
			titles.add(path.Base(file), title)
			walk(p.Children)
		}
	}
	walk(doc.Points)
	return titles
}

// bookTOC reads the NCX listed in the manifest. A book without one yields
// an empty table.
func bookTOC(book *epub.Rootfile) tocTitles {
	data, err := readNCX(book)
	if err != nil {
		return tocTitles{}
	}
	return parseNCXTitles(data)
}

func readNCX(book *epub.Rootfile) ([]byte, error) {
	for i := range book.Manifest.Items {
		item := &book.Manifest.Items[i]
		if item.MediaType != ncxMediaType && !strings.HasSuffix(strings.ToLower(item.HREF), ".ncx") {
			continue
		}
		r, err := item.Open()
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	}
	return nil, errors.New("no NCX table of contents in epub")
}
