//go:build !gui

package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metcalfc/narr/internal/content"
	"github.com/metcalfc/narr/internal/palette"
	"github.com/metcalfc/narr/internal/reader"
	"github.com/metcalfc/narr/internal/speech"
	"github.com/metcalfc/narr/internal/state"
)

// recordingEngine remembers what it was asked to say and never calls back
// on its own; tests deliver completions as messages.
type recordingEngine struct {
	spoken []speech.Utterance
	stops  int
}

func (e *recordingEngine) Speak(u speech.Utterance, done speech.Callback) error {
	e.spoken = append(e.spoken, u)
	return nil
}

func (e *recordingEngine) Stop() { e.stops++ }

func (e *recordingEngine) last() speech.Utterance {
	return e.spoken[len(e.spoken)-1]
}

func testSession(t *testing.T, chapters ...string) (*session, *recordingEngine) {
	t.Helper()
	store, err := state.NewStoreAt(t.TempDir())
	require.NoError(t, err)

	book := &reader.Book{Title: "Test Book"}
	for i, text := range chapters {
		book.Chapters = append(book.Chapters, reader.Chapter{Title: string(rune('A' + i)), Text: text})
	}
	eng := &recordingEngine{}
	sess := &session{engine: eng, store: store, settings: state.DefaultSettings(), persist: true}
	sess.useBook("book", book)
	return sess, eng
}

func press(m *model, k string) tea.Cmd {
	var msg tea.KeyMsg
	switch k {
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		msg = tea.KeyMsg{Type: tea.KeyLeft}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	_, cmd := m.Update(msg)
	return cmd
}

func finish(m *model, eng *recordingEngine) {
	m.Update(speechMsg{u: eng.last()})
}

func TestModelPlaysThroughChapters(t *testing.T) {
	sess, eng := testSession(t, "One. Two.", "Three.")
	m, err := newModel(context.Background(), sess)
	require.NoError(t, err)

	m.Update(startMsg{})
	require.Len(t, eng.spoken, 1)
	assert.Equal(t, "One.", eng.last().Text)

	finish(m, eng)
	assert.Equal(t, "Two.", eng.last().Text)

	finish(m, eng)
	assert.Equal(t, "Three.", eng.last().Text)
	assert.Equal(t, 1, m.seq.Cursor().Chapter)
	pos, ok := sess.store.Position("book")
	assert.True(t, ok)
	assert.Equal(t, state.Position{Chapter: 1}, pos)

	finish(m, eng)
	assert.True(t, m.finished)
	assert.False(t, m.seq.Cursor().Playing)
	assert.Contains(t, m.View(), "[THE END]")
}

func TestModelPauseIgnoresStaleCompletion(t *testing.T) {
	sess, eng := testSession(t, "One. Two. Three.")
	m, err := newModel(context.Background(), sess)
	require.NoError(t, err)

	m.Update(startMsg{})
	stale := eng.last()
	press(m, " ")
	assert.False(t, m.seq.Cursor().Playing)

	m.Update(speechMsg{u: stale})
	assert.Len(t, eng.spoken, 1, "stale completion must not dispatch")
	assert.Equal(t, 0, m.seq.Cursor().Sentence)
	assert.Contains(t, m.View(), "[PAUSED]")

	press(m, " ")
	assert.Len(t, eng.spoken, 2)
	assert.Equal(t, "One.", eng.last().Text)
}

func TestModelStepAndReplay(t *testing.T) {
	sess, eng := testSession(t, "One. Two. Three.")
	m, err := newModel(context.Background(), sess)
	require.NoError(t, err)

	press(m, "right")
	press(m, "right")
	assert.Equal(t, 2, m.seq.Cursor().Sentence)
	assert.Empty(t, eng.spoken, "stepping does not speak")

	press(m, "left")
	press(m, "enter")
	require.Len(t, eng.spoken, 1)
	assert.Equal(t, "Two.", eng.last().Text)
}

func TestModelSpeedIsSaved(t *testing.T) {
	sess, eng := testSession(t, "One. Two.")
	m, err := newModel(context.Background(), sess)
	require.NoError(t, err)

	press(m, "s")
	assert.Equal(t, 1.2, m.seq.Speed())
	assert.Equal(t, 1.2, sess.store.Settings().Speed)

	m.Update(startMsg{})
	assert.Equal(t, 1.2, eng.last().Rate)
}

func TestModelSettingsKeys(t *testing.T) {
	sess, _ := testSession(t, "Para one line.\n\nPara two line.")
	m, err := newModel(context.Background(), sess)
	require.NoError(t, err)

	press(m, "m")
	assert.Equal(t, state.Classic, m.settings.Mode)
	assert.Equal(t, state.Classic, sess.store.Settings().Mode)
	assert.Contains(t, m.View(), "Para two line.")

	press(m, "t")
	assert.Equal(t, state.Light, sess.store.Settings().Theme)

	press(m, "o")
	assert.Equal(t, state.Horizontal, sess.store.Settings().Scroll)
}

func TestModelEngineError(t *testing.T) {
	sess, eng := testSession(t, "One. Two.")
	m, err := newModel(context.Background(), sess)
	require.NoError(t, err)

	m.Update(startMsg{})
	m.Update(speechMsg{u: eng.last(), err: errors.New("device busy")})
	assert.False(t, m.seq.Cursor().Playing)
	assert.Contains(t, m.status, "Speech stopped")
	assert.Contains(t, m.status, "device busy")
	assert.Len(t, eng.spoken, 1)
}

func TestModelChapterKeys(t *testing.T) {
	sess, _ := testSession(t, "One.", "Two.")
	m, err := newModel(context.Background(), sess)
	require.NoError(t, err)

	press(m, "n")
	assert.Equal(t, 1, m.seq.Cursor().Chapter)
	press(m, "n")
	assert.Equal(t, 1, m.seq.Cursor().Chapter)
	assert.Contains(t, m.status, "No more chapters")
	press(m, "p")
	assert.Equal(t, 0, m.seq.Cursor().Chapter)
}

func TestModelQuitSavesPosition(t *testing.T) {
	sess, eng := testSession(t, "One. Two. Three.")
	m, err := newModel(context.Background(), sess)
	require.NoError(t, err)

	m.Update(startMsg{})
	finish(m, eng)
	cmd := press(m, "q")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Positive(t, eng.stops)

	pos, ok := sess.store.Position("book")
	require.True(t, ok)
	assert.Equal(t, state.Position{Chapter: 0, Sentence: 1}, pos)
}

func TestModelRestoresPosition(t *testing.T) {
	sess, _ := testSession(t, "One.", "Two. Three. Four.")
	sess.start = state.Position{Chapter: 1, Sentence: 2}
	m, err := newModel(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, 1, m.seq.Cursor().Chapter)
	assert.Equal(t, 2, m.seq.Cursor().Sentence)

	sess.start = state.Position{Chapter: 9, Sentence: 2}
	m, err = newModel(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, 0, m.seq.Cursor().Chapter, "missing chapter falls back to the first")
}

func TestModelRestart(t *testing.T) {
	sess, _ := testSession(t, "One.", "Two.")
	require.NoError(t, sess.store.SetPosition("book", state.Position{Chapter: 1}))
	sess.start = state.Position{Chapter: 1}
	m, err := newModel(context.Background(), sess)
	require.NoError(t, err)

	press(m, "r")
	assert.Equal(t, 0, m.seq.Cursor().Chapter)
	_, ok := sess.store.Position("book")
	assert.False(t, ok)
}

func TestModelPalette(t *testing.T) {
	sess, _ := testSession(t, "One.")
	m, err := newModel(context.Background(), sess)
	require.NoError(t, err)
	assert.False(t, m.paletteReady)

	p := palette.Palette{Primary: "#6a1515", Secondary: "#8a2020", Background: "#0d0606", Accent: "#f53d3d"}
	m.Update(paletteMsg(p))
	assert.True(t, m.paletteReady)
	assert.Equal(t, p, m.palette)

	// No extractor configured falls back without touching the network.
	msg := extractPalette(context.Background(), nil, content.DefaultCover)()
	assert.Equal(t, paletteMsg(palette.Fallback), msg)
}

func TestRenderImmersive(t *testing.T) {
	sentences := reader.Segment("First one. Second one. Third one.")
	st := newStyles(palette.Fallback, state.DefaultSettings())

	out, line := renderImmersive(sentences, 1, 40, st)
	assert.Equal(t, 2, line)
	for _, s := range sentences {
		assert.Contains(t, out, s.Text)
	}

	_, line = renderImmersive(sentences, -1, 40, st)
	assert.Equal(t, -1, line)
}

func TestRenderClassic(t *testing.T) {
	out := renderClassic("First  para\ncontinues.\n\n\n\nSecond para.", 40, newStyles(palette.Fallback, state.DefaultSettings()).page)
	assert.Contains(t, out, "First para continues.")
	assert.Contains(t, out, "Second para.")
	assert.Equal(t, 2, strings.Count(out, "\n\n")+1)
}
