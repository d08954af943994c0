package reader

import (
	"strings"
	"unicode"
)

// Sentence is one speakable, highlightable unit of chapter text.
type Sentence struct {
	Index int
	Text  string
}

// Segment splits chapter text into sentences.
//
// Whitespace (including paragraph breaks) is collapsed to single spaces.
// A sentence ends after one or more of '.', '!' or '?', optionally
// followed by one closing quote, when whitespace or the end of the text
// comes next. No sentence ends inside an open double quotation, and a
// closing quote followed by a lowercase word ("Stop!" she said) keeps
// the dialogue tag in the same sentence.
//
// Abbreviations are not special-cased: "Mr. Smith" splits after "Mr.".
func Segment(text string) []Sentence {
	clean := strings.Join(strings.Fields(text), " ")
	if clean == "" {
		return nil
	}

	runes := []rune(clean)
	paired := pairedQuotes(runes)

	var out []Sentence
	emit := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, Sentence{Index: len(out), Text: s})
		}
	}

	start := 0
	inQuote := false
	hasContent := false

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if paired[i] {
			switch r {
			case '"':
				inQuote = !inQuote
			case '“':
				inQuote = true
			case '”':
				inQuote = false
			}
		}

		if !isTerminal(r) {
			if !unicode.IsSpace(r) && !isQuote(r) {
				hasContent = true
			}
			continue
		}

		// Consume the whole run of terminal marks.
		end := i
		for end+1 < len(runes) && isTerminal(runes[end+1]) {
			end++
		}

		closedQuote := false
		if end+1 < len(runes) && isQuote(runes[end+1]) {
			end++
			closedQuote = true
			if paired[end] {
				switch runes[end] {
				case '"':
					inQuote = !inQuote
				case '”':
					inQuote = false
				}
			}
		}
		i = end

		atEnd := end+1 == len(runes)
		if !atEnd && runes[end+1] != ' ' {
			continue
		}
		if !hasContent || inQuote {
			continue
		}
		if closedQuote && !atEnd && startsLower(runes[end+2:]) {
			continue
		}

		emit(string(runes[start : end+1]))
		start = end + 1
		hasContent = false
	}

	if start < len(runes) {
		emit(string(runes[start:]))
	}
	return out
}

// SentenceTexts returns just the text of each sentence.
func SentenceTexts(sentences []Sentence) []string {
	out := make([]string, len(sentences))
	for i, s := range sentences {
		out[i] = s.Text
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isQuote(r rune) bool {
	switch r {
	case '"', '\'', '’', '”':
		return true
	}
	return false
}

func startsLower(rest []rune) bool {
	for _, r := range rest {
		if unicode.IsSpace(r) {
			continue
		}
		return unicode.IsLower(r)
	}
	return false
}

// pairedQuotes marks the double quotes that take part in quotation
// tracking. An odd trailing straight quote and an opening curly quote
// with no closing partner are treated as literal characters.
func pairedQuotes(runes []rune) []bool {
	paired := make([]bool, len(runes))

	var straight []int
	lastClose := -1
	for i, r := range runes {
		switch r {
		case '"':
			straight = append(straight, i)
		case '”':
			lastClose = i
		}
	}
	if len(straight)%2 == 1 {
		straight = straight[:len(straight)-1]
	}
	for _, i := range straight {
		paired[i] = true
	}

	open := false
	for i, r := range runes {
		switch r {
		case '“':
			if i < lastClose {
				paired[i] = true
				open = true
			}
		case '”':
			if open {
				paired[i] = true
				open = false
			}
		}
	}
	return paired
}
