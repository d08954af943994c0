//go:build !gui

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/metcalfc/narr/internal/logging"
	"github.com/metcalfc/narr/internal/palette"
	"github.com/metcalfc/narr/internal/reader"
	"github.com/metcalfc/narr/internal/speech"
	"github.com/metcalfc/narr/internal/state"
)

type keyMap struct {
	Toggle      key.Binding
	Next        key.Binding
	Prev        key.Binding
	Replay      key.Binding
	NextChapter key.Binding
	PrevChapter key.Binding
	Speed       key.Binding
	Mode        key.Binding
	Theme       key.Binding
	Scroll      key.Binding
	ScrollUp    key.Binding
	ScrollDown  key.Binding
	Restart     key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Prev, k.Next, k.Speed, k.Mode, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Replay, k.Prev, k.Next},
		{k.PrevChapter, k.NextChapter, k.Restart},
		{k.Speed, k.Mode, k.Theme, k.Scroll},
		{k.ScrollUp, k.ScrollDown, k.Help, k.Quit},
	}
}

var keys = keyMap{
	Toggle:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
	Next:        key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "next sentence")),
	Prev:        key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "prev sentence")),
	Replay:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "speak from here")),
	NextChapter: key.NewBinding(key.WithKeys("n", "pgdown"), key.WithHelp("n", "next chapter")),
	PrevChapter: key.NewBinding(key.WithKeys("p", "pgup"), key.WithHelp("p", "prev chapter")),
	Speed:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "speed")),
	Mode:        key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "immersive/classic")),
	Theme:       key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
	Scroll:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "scroll direction")),
	ScrollUp:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "scroll up")),
	ScrollDown:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "scroll down")),
	Restart:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
	Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	Quit:        key.NewBinding(key.WithKeys("q", "Q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type styles struct {
	frame    lipgloss.Style
	title    lipgloss.Style
	status   lipgloss.Style
	current  lipgloss.Style
	other    lipgloss.Style
	page     lipgloss.Style
	paused   lipgloss.Style
	errorMsg lipgloss.Style
	complete lipgloss.Style
}

func newStyles(p palette.Palette, s state.Settings) styles {
	page := s.Theme.Colors()
	return styles{
		frame: lipgloss.NewStyle().
			Background(lipgloss.Color(p.Background)),
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color(p.Primary)).
			Padding(0, 1),
		status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1),
		current: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(p.Accent)),
		other: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9A9A9A")),
		page: lipgloss.NewStyle().
			Foreground(lipgloss.Color(page.Text)).
			Background(lipgloss.Color(page.Background)),
		paused: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true),
		errorMsg: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")),
		complete: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Accent)).
			Bold(true),
	}
}

// speechMsg carries an engine callback onto the event loop.
type speechMsg struct {
	u   speech.Utterance
	err error
}

type paletteMsg palette.Palette

type startMsg struct{}

type model struct {
	ctx    context.Context
	sess   *session
	seq    *reader.Sequencer
	events chan speechMsg

	palette      palette.Palette
	paletteReady bool
	settings     state.Settings
	styles       styles

	help     help.Model
	spinner  spinner.Model
	viewport viewport.Model

	status   string
	finished bool
	quitting bool
	width    int
	height   int
}

func newModel(ctx context.Context, sess *session) (*model, error) {
	events := make(chan speechMsg, 8)
	notify := func(u speech.Utterance, err error) {
		events <- speechMsg{u: u, err: err}
	}

	m := &model{
		ctx:      ctx,
		sess:     sess,
		events:   events,
		palette:  palette.Fallback,
		settings: sess.settings.Normalize(),
		help:     help.New(),
		width:    80,
		height:   24,
	}
	m.seq = reader.NewSequencer(sess.source, sess.engine, sess.storyID, notify)
	m.seq.SetSpeed(m.settings.Speed)
	m.styles = newStyles(m.palette, m.settings)

	s := spinner.New()
	s.Spinner = spinner.Dot
	m.spinner = s
	m.viewport = viewport.New(m.width, m.bodyHeight())

	if err := m.seq.LoadChapter(ctx, sess.start.Chapter); err != nil {
		if !errors.Is(err, reader.ErrOutOfRange) || sess.start.Chapter == 0 {
			return nil, err
		}
		logging.Warn("Saved chapter no longer exists", "chapter", sess.start.Chapter, "error", err)
		if err := m.seq.LoadChapter(ctx, 0); err != nil {
			return nil, err
		}
	} else {
		m.seq.Restore(sess.start.Sentence)
	}
	m.refresh()
	return m, nil
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		extractPalette(m.ctx, m.sess.extractor, m.sess.cover),
		listenForSpeech(m.events),
		func() tea.Msg { return startMsg{} },
	)
}

func extractPalette(ctx context.Context, e *palette.Extractor, src palette.Source) tea.Cmd {
	return func() tea.Msg {
		if e == nil {
			return paletteMsg(palette.Fallback)
		}
		return paletteMsg(e.Extract(ctx, src))
	}
}

func listenForSpeech(events <-chan speechMsg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case startMsg:
		m.report(m.seq.Play())
		m.refresh()
		return m, nil

	case speechMsg:
		outcome, err := m.seq.Handle(m.ctx, msg.u, msg.err)
		m.report(err)
		switch outcome {
		case reader.Finished:
			m.finished = true
			logging.Info("Story finished", "story", m.sess.storyID)
		case reader.NextChapter:
			m.sess.savePosition(m.seq.Cursor())
		}
		if outcome != reader.Stale {
			m.refresh()
		}
		return m, listenForSpeech(m.events)

	case paletteMsg:
		m.palette = palette.Palette(msg)
		m.paletteReady = true
		m.styles = newStyles(m.palette, m.settings)
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.paletteReady {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = m.bodyHeight()
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.seq.Pause()
		m.sess.savePosition(m.seq.Cursor())
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Toggle):
		m.status = ""
		m.finished = false
		m.report(m.seq.Toggle())

	case key.Matches(msg, keys.Next):
		m.seq.StepForward()

	case key.Matches(msg, keys.Prev):
		m.seq.StepBackward()

	case key.Matches(msg, keys.Replay):
		m.status = ""
		m.finished = false
		m.report(m.seq.Seek(m.seq.Cursor().Sentence))

	case key.Matches(msg, keys.NextChapter):
		m.report(m.seq.NextChapter(m.ctx))

	case key.Matches(msg, keys.PrevChapter):
		m.report(m.seq.PrevChapter(m.ctx))

	case key.Matches(msg, keys.Restart):
		m.finished = false
		if m.report(m.seq.LoadChapter(m.ctx, 0)) == nil {
			m.sess.clearPosition()
		}

	case key.Matches(msg, keys.Speed):
		m.settings.Speed = m.seq.ChangeSpeed()
		m.settings = m.sess.saveSettings(m.settings)

	case key.Matches(msg, keys.Mode):
		m.settings = m.sess.saveSettings(m.settings.ToggleMode())

	case key.Matches(msg, keys.Theme):
		m.settings = m.sess.saveSettings(m.settings.NextTheme())
		m.styles = newStyles(m.palette, m.settings)

	case key.Matches(msg, keys.Scroll):
		m.settings = m.sess.saveSettings(m.settings.ToggleScroll())

	case key.Matches(msg, keys.ScrollUp):
		m.scroll(-1)
		return m, nil

	case key.Matches(msg, keys.ScrollDown):
		m.scroll(1)
		return m, nil

	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.viewport.Height = m.bodyHeight()
	}

	m.refresh()
	return m, nil
}

// report shows err in the status line and logs it. It returns err.
func (m *model) report(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, reader.ErrSpeech):
		m.status = "Speech stopped: " + err.Error()
	case errors.Is(err, reader.ErrOutOfRange):
		m.status = "No more chapters in that direction."
	default:
		m.status = err.Error()
	}
	logging.Error("Playback error", "story", m.sess.storyID, "error", err)
	return err
}

// scroll moves the classic page by a line, or by a screen when the
// scroll direction is horizontal.
func (m *model) scroll(dir int) {
	step := 1
	if m.settings.Scroll == state.Horizontal {
		step = max(m.viewport.Height, 1)
	}
	m.viewport.SetYOffset(m.viewport.YOffset + dir*step)
}

func (m *model) bodyHeight() int {
	// title, status, help and a blank separator
	reserved := 4
	if m.help.ShowAll {
		reserved += 3
	}
	return max(m.height-reserved, 1)
}

// refresh re-renders the chapter into the viewport.
func (m *model) refresh() {
	width := max(m.width-4, 10)
	sentences := m.seq.Sentences()

	if m.settings.Mode == state.Classic {
		offset := m.viewport.YOffset
		m.viewport.SetContent(renderClassic(m.seq.Text(), width, m.styles.page))
		m.viewport.SetYOffset(offset)
		return
	}

	cur := m.seq.Cursor()
	active := cur.Sentence
	if cur.Exhausted {
		active = -1
	}
	body, line := renderImmersive(sentences, active, width, m.styles)
	m.viewport.SetContent(body)
	if line >= 0 {
		m.viewport.SetYOffset(max(line-m.viewport.Height/3, 0))
	}
}

// renderImmersive lays out one sentence per block, highlighting active.
// It returns the text and the first line of the active sentence, or -1.
func renderImmersive(sentences []reader.Sentence, active, width int, st styles) (string, int) {
	var sb strings.Builder
	line := -1
	rows := 0
	wrap := lipgloss.NewStyle().Width(width)
	for i, s := range sentences {
		style := st.other
		if i == active {
			style = st.current
			line = rows
		}
		block := style.Render(wrap.Render(s.Text))
		sb.WriteString(block)
		sb.WriteString("\n\n")
		rows += lipgloss.Height(block) + 1
	}
	return sb.String(), line
}

// renderClassic shows the chapter as wrapped paragraphs.
func renderClassic(text string, width int, page lipgloss.Style) string {
	var paras []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			paras = append(paras, page.Width(width).Render(p))
		}
	}
	return strings.Join(paras, "\n\n")
}

func (m *model) View() string {
	if m.quitting {
		if m.finished {
			return m.styles.complete.Render("\n  Story complete!\n")
		}
		return ""
	}

	cur := m.seq.Cursor()
	title := m.sess.title
	if m.sess.author != "" {
		title += " by " + m.sess.author
	}
	header := m.styles.title.Render(title + " · " + m.sess.chapterTitle(cur.Chapter))
	if !m.paletteReady {
		header += " " + m.spinner.View()
	}

	total := len(m.seq.Sentences())
	n := min(cur.Sentence+1, total)
	badge := ""
	switch {
	case m.finished:
		badge = m.styles.complete.Render(" [THE END]")
	case !cur.Playing:
		badge = m.styles.paused.Render(" [PAUSED]")
	}
	status := m.styles.status.Render(fmt.Sprintf("Sentence %d/%d | Chapter %d/%d | %.1fx | %s%s",
		n, total, cur.Chapter+1, len(m.sess.chapters), cur.Speed, m.settings.Mode, badge))
	if m.status != "" {
		status += " " + m.styles.errorMsg.Render(m.status)
	}

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n")
	sb.WriteString(status)
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(m.help.View(keys))

	return m.styles.frame.Width(m.width).Height(m.height).Render(sb.String())
}

func usage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, "Narr - Narrated Story Reader\n\n")
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  narr [options] [file]\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  narr book.epub                    Read a book aloud\n")
	fmt.Fprintf(os.Stderr, "  narr --speed 1.5 notes.md         Read faster\n")
	fmt.Fprintf(os.Stderr, "  narr --cover art.jpg story.txt    Theme the reader from a cover image\n")
	fmt.Fprintf(os.Stderr, "  cat file.txt | narr               Read from stdin\n")
	fmt.Fprintf(os.Stderr, "  narr --import book.epub           Add a book to the library\n")
	fmt.Fprintf(os.Stderr, "  narr --list                       List library stories\n")
	fmt.Fprintf(os.Stderr, "  narr --story <id>                 Read a library story\n")
	fmt.Fprintf(os.Stderr, "\nControls:\n")
	fmt.Fprintf(os.Stderr, "  SPACE    Play/pause\n")
	fmt.Fprintf(os.Stderr, "  ←/→      Previous/next sentence\n")
	fmt.Fprintf(os.Stderr, "  ENTER    Speak from the highlighted sentence\n")
	fmt.Fprintf(os.Stderr, "  N/P      Next/previous chapter\n")
	fmt.Fprintf(os.Stderr, "  S        Cycle speed\n")
	fmt.Fprintf(os.Stderr, "  M        Immersive/classic mode\n")
	fmt.Fprintf(os.Stderr, "  Q        Quit\n")
}

func main() {
	opts, err := parseFlags("narr", os.Args[1:], usage)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if opts.showVersion {
		fmt.Printf("narr %s (commit: %s, built: %s)\n", version, commit, date)
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
		if opts.file == "" && opts.story == "" {
			fmt.Fprintln(os.Stderr, "Try: narr -h")
		}
		os.Exit(1)
	}
	defer sess.Close()

	m, err := newModel(ctx, sess)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		sess.engine.Stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	sess.engine.Stop()
}
