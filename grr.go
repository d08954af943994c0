//go:build gui

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/color"
	"io"
	"os"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/metcalfc/narr/internal/logging"
	"github.com/metcalfc/narr/internal/palette"
	"github.com/metcalfc/narr/internal/reader"
	"github.com/metcalfc/narr/internal/speech"
	"github.com/metcalfc/narr/internal/state"
)

// paletteTheme colors the default fyne theme with a cover palette.
type paletteTheme struct {
	pal      palette.Palette
	page     state.ThemeColors
	classic  bool
	fontSize float32
}

func hexColor(hex string, fallback color.Color) color.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		return fallback
	}
	return c
}

func (t *paletteTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground:
		if t.classic {
			return hexColor(t.page.Background, color.Black)
		}
		return hexColor(t.pal.Background, color.Black)
	case theme.ColorNameForeground:
		if t.classic {
			return hexColor(t.page.Text, color.White)
		}
		return color.White
	case theme.ColorNamePrimary, theme.ColorNameFocus:
		return hexColor(t.pal.Accent, color.White)
	case theme.ColorNameButton, theme.ColorNameHeaderBackground:
		return hexColor(t.pal.Primary, color.Black)
	case theme.ColorNameSeparator, theme.ColorNameInputBorder:
		if t.classic {
			return hexColor(t.page.Border, color.Gray{Y: 80})
		}
		return hexColor(t.pal.Secondary, color.Gray{Y: 80})
	}
	return theme.DefaultTheme().Color(name, theme.VariantDark)
}

func (t *paletteTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *paletteTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *paletteTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNameText {
		return t.fontSize
	}
	return theme.DefaultTheme().Size(name)
}

type gui struct {
	ctx      context.Context
	app      fyne.App
	win      fyne.Window
	sess     *session
	seq      *reader.Sequencer
	settings state.Settings
	theme    *paletteTheme

	header   *widget.Label
	status   *widget.Label
	prev     *widget.Label
	current  *widget.Label
	next     *widget.Label
	page     *widget.Label
	pageView *container.Scroll
	stage    *fyne.Container
	backdrop *canvas.Rectangle

	message  string
	finished bool
}

func newGUI(ctx context.Context, a fyne.App, sess *session) (*gui, error) {
	g := &gui{
		ctx:      ctx,
		app:      a,
		sess:     sess,
		settings: sess.settings.Normalize(),
	}
	g.theme = &paletteTheme{
		pal:      palette.Fallback,
		page:     g.settings.Theme.Colors(),
		classic:  g.settings.Mode == state.Classic,
		fontSize: float32(g.settings.FontSize),
	}
	a.Settings().SetTheme(g.theme)

	notify := func(u speech.Utterance, err error) {
		fyne.Do(func() { g.handleSpeech(u, err) })
	}
	g.seq = reader.NewSequencer(sess.source, sess.engine, sess.storyID, notify)
	g.seq.SetSpeed(g.settings.Speed)

	if err := g.seq.LoadChapter(ctx, sess.start.Chapter); err != nil {
		if !errors.Is(err, reader.ErrOutOfRange) || sess.start.Chapter == 0 {
			return nil, err
		}
		if err := g.seq.LoadChapter(ctx, 0); err != nil {
			return nil, err
		}
	} else {
		g.seq.Restore(sess.start.Sentence)
	}

	g.win = a.NewWindow("narr - " + sess.title)
	g.build()
	return g, nil
}

func (g *gui) build() {
	g.header = widget.NewLabel("")
	g.header.Alignment = fyne.TextAlignCenter
	g.header.TextStyle.Bold = true
	g.status = widget.NewLabel("")
	g.status.Alignment = fyne.TextAlignCenter

	newLine := func(importance widget.Importance) *widget.Label {
		l := widget.NewLabel("")
		l.Wrapping = fyne.TextWrapWord
		l.Alignment = fyne.TextAlignCenter
		l.Importance = importance
		return l
	}
	g.prev = newLine(widget.LowImportance)
	g.current = newLine(widget.HighImportance)
	g.current.TextStyle.Bold = true
	g.next = newLine(widget.LowImportance)

	g.page = widget.NewLabel("")
	g.page.Wrapping = fyne.TextWrapWord
	g.pageView = container.NewVScroll(g.page)

	controls := widget.NewLabel("SPACE: play/pause  ←/→: sentence  ENTER: speak here  N/P: chapter  S: speed  M: mode  T: theme  +/-: font  F: fullscreen  Q: quit")
	controls.Alignment = fyne.TextAlignCenter
	controls.Wrapping = fyne.TextWrapWord

	g.backdrop = canvas.NewRectangle(hexColor(g.theme.pal.Background, color.Black))
	g.stage = container.NewStack()

	g.win.SetContent(container.NewStack(
		g.backdrop,
		container.NewBorder(
			container.NewVBox(g.header, g.status),
			controls,
			nil, nil,
			g.stage,
		),
	))
	g.win.Resize(fyne.NewSize(900, 640))

	g.win.Canvas().SetOnTypedKey(g.onKey)
	g.win.Canvas().SetOnTypedRune(g.onRune)
	g.win.SetOnClosed(g.shutdown)
	g.update()
}

func (g *gui) applyPalette(p palette.Palette) {
	g.theme.pal = p
	g.refreshTheme()
}

func (g *gui) refreshTheme() {
	g.theme.page = g.settings.Theme.Colors()
	g.theme.classic = g.settings.Mode == state.Classic
	g.theme.fontSize = float32(g.settings.FontSize)
	g.app.Settings().SetTheme(g.theme)
	g.backdrop.FillColor = g.theme.Color(theme.ColorNameBackground, theme.VariantDark)
	g.backdrop.Refresh()
	g.update()
}

func (g *gui) handleSpeech(u speech.Utterance, err error) {
	outcome, err := g.seq.Handle(g.ctx, u, err)
	g.report(err)
	switch outcome {
	case reader.Stale:
		return
	case reader.Finished:
		g.finished = true
	case reader.NextChapter:
		g.sess.savePosition(g.seq.Cursor())
	}
	g.update()
}

func (g *gui) report(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, reader.ErrOutOfRange) {
		g.message = "No more chapters in that direction."
	} else {
		g.message = err.Error()
	}
	logging.Error("Playback error", "story", g.sess.storyID, "error", err)
}

func (g *gui) update() {
	cur := g.seq.Cursor()
	sentences := g.seq.Sentences()

	title := g.sess.title
	if g.sess.author != "" {
		title += " by " + g.sess.author
	}
	g.header.SetText(title + " · " + g.sess.chapterTitle(cur.Chapter))

	badge := ""
	switch {
	case g.finished:
		badge = " [THE END]"
	case !cur.Playing:
		badge = " [PAUSED]"
	}
	status := fmt.Sprintf("Sentence %d/%d | Chapter %d/%d | %.1fx | Font: %d%s",
		min(cur.Sentence+1, len(sentences)), len(sentences),
		cur.Chapter+1, len(g.sess.chapters), cur.Speed, g.settings.FontSize, badge)
	if g.message != "" {
		status += "  " + g.message
	}
	g.status.SetText(status)

	if g.settings.Mode == state.Classic {
		g.page.SetText(classicText(g.seq.Text()))
		g.stage.Objects = []fyne.CanvasObject{g.pageView}
		g.stage.Refresh()
		return
	}

	text := func(i int) string {
		if i >= 0 && i < len(sentences) && !cur.Exhausted {
			return sentences[i].Text
		}
		return ""
	}
	g.prev.SetText(text(cur.Sentence - 1))
	g.current.SetText(text(cur.Sentence))
	g.next.SetText(text(cur.Sentence + 1))
	g.stage.Objects = []fyne.CanvasObject{container.NewCenter(container.NewVBox(g.prev, g.current, g.next))}
	g.stage.Refresh()
}

// classicText rewraps chapter text into single-line paragraphs.
func classicText(text string) string {
	var paras []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if p = strings.Join(strings.Fields(p), " "); p != "" {
			paras = append(paras, p)
		}
	}
	return strings.Join(paras, "\n\n")
}

func (g *gui) saveSettings(s state.Settings) {
	g.settings = g.sess.saveSettings(s)
	g.refreshTheme()
}

func (g *gui) onKey(key *fyne.KeyEvent) {
	switch key.Name {
	case fyne.KeySpace:
		g.message = ""
		g.finished = false
		g.report(g.seq.Toggle())
	case fyne.KeyLeft:
		g.seq.StepBackward()
	case fyne.KeyRight:
		g.seq.StepForward()
	case fyne.KeyReturn, fyne.KeyEnter:
		g.message = ""
		g.finished = false
		g.report(g.seq.Seek(g.seq.Cursor().Sentence))
	case fyne.KeyPageDown:
		g.report(g.seq.NextChapter(g.ctx))
	case fyne.KeyPageUp:
		g.report(g.seq.PrevChapter(g.ctx))
	case fyne.KeyF:
		g.win.SetFullScreen(!g.win.FullScreen())
		return
	case fyne.KeyQ, fyne.KeyEscape:
		g.win.Close()
		return
	default:
		return
	}
	g.update()
}

func (g *gui) onRune(r rune) {
	switch r {
	case 'n', 'N':
		g.report(g.seq.NextChapter(g.ctx))
	case 'p', 'P':
		g.report(g.seq.PrevChapter(g.ctx))
	case 's', 'S':
		s := g.settings
		s.Speed = g.seq.ChangeSpeed()
		g.saveSettings(s)
		return
	case 'm', 'M':
		g.saveSettings(g.settings.ToggleMode())
		return
	case 't', 'T':
		g.saveSettings(g.settings.NextTheme())
		return
	case 'o', 'O':
		g.saveSettings(g.settings.ToggleScroll())
		return
	case '+', '=':
		g.saveSettings(g.settings.LargerFont())
		return
	case '-':
		g.saveSettings(g.settings.SmallerFont())
		return
	case 'r', 'R':
		g.finished = false
		if err := g.seq.LoadChapter(g.ctx, 0); err != nil {
			g.report(err)
		} else {
			g.sess.clearPosition()
		}
	default:
		return
	}
	g.update()
}

func (g *gui) shutdown() {
	g.seq.Pause()
	g.sess.savePosition(g.seq.Cursor())
}

func main() {
	opts, err := parseFlags("grr", os.Args[1:], func(fs *flag.FlagSet) {
		fmt.Fprintf(os.Stderr, "Grr - Narrated Story Reader (desktop)\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  grr [options] [file]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  grr book.epub                 Read a book aloud\n")
		fmt.Fprintf(os.Stderr, "  grr --story <id>              Read a library story\n")
		fmt.Fprintf(os.Stderr, "  cat file.txt | grr            Read from stdin\n")
	})
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if opts.showVersion {
		fmt.Printf("grr %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if handled, err := runLibraryCommand(ctx, opts, os.Stdout); handled {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	var stdin io.Reader
	if opts.file == "" && opts.story == "" {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			stdin = os.Stdin
		}
	}

	sess, err := newSession(ctx, opts, stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer sess.Close()

	a := app.New()
	g, err := newGUI(ctx, a, sess)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	go func() {
		p := sess.extractor.Extract(ctx, sess.cover)
		fyne.Do(func() { g.applyPalette(p) })
	}()

	g.win.ShowAndRun()
	sess.engine.Stop()
}
