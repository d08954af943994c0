package reader

import (
	"strings"
	"testing"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "two sentences",
			input:    "Hello world. How are you?",
			expected: []string{"Hello world.", "How are you?"},
		},
		{
			name:     "dialogue tag stays with quote",
			input:    `"Stop!" she shouted.`,
			expected: []string{`"Stop!" she shouted.`},
		},
		{
			name:     "single quoted dialogue tag",
			input:    `'Run!' he whispered. Nobody moved.`,
			expected: []string{`'Run!' he whispered.`, "Nobody moved."},
		},
		{
			name:     "no split inside open quotation",
			input:    `"Wait. Listen to me." He turned away.`,
			expected: []string{`"Wait. Listen to me."`, "He turned away."},
		},
		{
			name:     "curly quotes",
			input:    "“Go. Now!” she said. The door slammed.",
			expected: []string{"“Go. Now!” she said.", "The door slammed."},
		},
		{
			name:     "unpaired quote is literal",
			input:    `He said "hi. Then left.`,
			expected: []string{`He said "hi.`, "Then left."},
		},
		{
			name:     "repeated terminal marks",
			input:    "What?! No way... Fine.",
			expected: []string{"What?!", "No way...", "Fine."},
		},
		{
			name:     "newlines collapse",
			input:    "First line.\n\nSecond   paragraph\tcontinues here.",
			expected: []string{"First line.", "Second paragraph continues here."},
		},
		{
			name:     "run-on text",
			input:    "no punctuation at all",
			expected: []string{"no punctuation at all"},
		},
		{
			name:     "trailing fragment kept",
			input:    "Done. and then",
			expected: []string{"Done.", "and then"},
		},
		{
			name:     "punctuation only",
			input:    "?!",
			expected: []string{"?!"},
		},
		{
			name:     "period inside number",
			input:    "It cost 3.50 dollars. Cheap.",
			expected: []string{"It cost 3.50 dollars.", "Cheap."},
		},
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "whitespace only",
			input:    " \n\t ",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SentenceTexts(Segment(tt.input))
			if len(got) != len(tt.expected) {
				t.Fatalf("Segment(%q) = %q, want %q", tt.input, got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("Segment(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.expected[i])
				}
			}
		})
	}
}

// Abbreviations are a known heuristic limitation, not an invariant.
func TestSegmentAbbreviationLimitation(t *testing.T) {
	got := SentenceTexts(Segment("Mr. Smith went home."))
	want := []string{"Mr.", "Smith went home."}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Segment() = %q, want %q", got, want)
	}
}

func TestSegmentIndices(t *testing.T) {
	sentences := Segment("One. Two. Three.")
	for i, s := range sentences {
		if s.Index != i {
			t.Errorf("sentence %d has index %d", i, s.Index)
		}
	}
}

func TestSegmentReconstructsText(t *testing.T) {
	inputs := []string{
		"Hello world. How are you?",
		`"Stop!" she shouted. Then, quietly: "Please." Silence.`,
		"A long\nparagraph. With breaks!\n\nAnd more? Yes.",
		"Trailing words without a stop",
		"... leading dots. Ok.",
	}
	for _, input := range inputs {
		normalized := strings.Join(strings.Fields(input), " ")
		joined := strings.Join(SentenceTexts(Segment(input)), " ")
		if joined != normalized {
			t.Errorf("joined sentences = %q, want %q", joined, normalized)
		}
	}
}

func TestSegmentDeterministic(t *testing.T) {
	text := strings.Repeat(`She said "yes." He laughed! `, 20)
	a := SentenceTexts(Segment(text))
	b := SentenceTexts(Segment(text))
	if strings.Join(a, "|") != strings.Join(b, "|") {
		t.Error("Segment() is not deterministic")
	}
}

func BenchmarkSegment(b *testing.B) {
	text := strings.Repeat(`"Hello there!" she said. This is a test sentence with words. `, 200)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Segment(text)
	}
}
