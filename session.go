package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/metcalfc/narr/internal/config"
	"github.com/metcalfc/narr/internal/content"
	"github.com/metcalfc/narr/internal/logging"
	"github.com/metcalfc/narr/internal/palette"
	"github.com/metcalfc/narr/internal/reader"
	"github.com/metcalfc/narr/internal/speech"
	"github.com/metcalfc/narr/internal/state"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// stdinStory is the story ID used for piped text. Its position is not saved.
const stdinStory = "stdin"

type options struct {
	wpm         int
	speed       float64
	configPath  string
	fresh       bool
	cover       string
	story       string
	chapter     int
	importFile  string
	category    string
	list        bool
	search      string
	showVersion bool
	file        string
}

func newFlagSet(name string, opts *options) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.IntVar(&opts.wpm, "w", 0, "Base speaking pace in words per minute (default from config)")
	fs.Float64Var(&opts.speed, "speed", 0, "Playback speed multiplier (0.8, 1.0, 1.2, 1.5, 2.0)")
	fs.StringVar(&opts.configPath, "config", "", "Path to config file")
	fs.BoolVar(&opts.fresh, "fresh", false, "Ignore saved reading position")
	fs.StringVar(&opts.cover, "cover", "", "Cover image URI used to theme the reader")
	fs.StringVar(&opts.story, "story", "", "Read a story from the library by ID")
	fs.IntVar(&opts.chapter, "chapter", 0, "Chapter to start at, 1-based (default: saved position)")
	fs.StringVar(&opts.importFile, "import", "", "Import a book file into the library")
	fs.StringVar(&opts.category, "category", "", "Category slug for --import or --list")
	fs.BoolVar(&opts.list, "list", false, "List library stories")
	fs.StringVar(&opts.search, "search", "", "Search library stories by title")
	fs.BoolVar(&opts.showVersion, "v", false, "Show version information")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")
	return fs
}

func parseFlags(name string, args []string, usage func(fs *flag.FlagSet)) (options, error) {
	var opts options
	fs := newFlagSet(name, &opts)
	if usage != nil {
		fs.Usage = func() { usage(fs) }
	}
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		opts.file = fs.Arg(0)
	}
	if opts.file != "" && opts.story != "" {
		return opts, errors.New("give either a file or --story, not both")
	}
	if opts.chapter < 0 {
		return opts, fmt.Errorf("--chapter must be 1 or more, got %d", opts.chapter)
	}
	return opts, nil
}

// session is everything a reader front end needs to start playing.
type session struct {
	cfg       config.Config
	store     *state.Store
	settings  state.Settings
	catalog   *content.Catalog
	source    reader.ChapterSource
	engine    speech.Engine
	extractor *palette.Extractor

	storyID  string
	title    string
	author   string
	chapters []string
	cover    palette.Source
	start    state.Position
	persist  bool
}

func (s *session) Close() {
	if s.catalog != nil {
		s.catalog.Close()
	}
	logging.Close()
}

// chapterTitle returns a display title for chapter n.
func (s *session) chapterTitle(n int) string {
	if n >= 0 && n < len(s.chapters) && s.chapters[n] != "" {
		return s.chapters[n]
	}
	return fmt.Sprintf("Chapter %d", n+1)
}

// savePosition records where reading stopped.
func (s *session) savePosition(c reader.Cursor) {
	if !s.persist || s.store == nil {
		return
	}
	pos := state.Position{Chapter: c.Chapter, Sentence: c.Sentence}
	if c.Exhausted {
		pos.Sentence = 0
	}
	if err := s.store.SetPosition(s.storyID, pos); err != nil {
		logging.Warn("Failed to save position", "story", s.storyID, "error", err)
	}
}

// clearPosition forgets the saved position, as after a restart.
func (s *session) clearPosition() {
	if !s.persist || s.store == nil {
		return
	}
	if err := s.store.Clear(s.storyID); err != nil {
		logging.Warn("Failed to clear position", "story", s.storyID, "error", err)
	}
}

// saveSettings persists settings, keeping the stored speed in sync.
func (s *session) saveSettings(settings state.Settings) state.Settings {
	if s.store == nil {
		return settings.Normalize()
	}
	saved, err := s.store.SaveSettings(settings)
	if err != nil {
		logging.Warn("Failed to save settings", "error", err)
	}
	s.settings = saved
	return saved
}

func loadConfig(opts options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if opts.wpm > 0 {
		cfg.Speech.BaseWPM = opts.wpm
	}
	return cfg, nil
}

// newSession prepares the story to read. stdin is consulted only when no
// file or story was named.
func newSession(ctx context.Context, opts options, stdin io.Reader) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if err := logging.Init(cfg.Log.Dir, cfg.Log.Level); err != nil {
		return nil, err
	}
	logging.Info("narr started", "version", version)

	s := &session{cfg: cfg}
	if err := s.open(ctx, opts, stdin); err != nil {
		s.Close()
		return nil, err
	}

	store, err := state.NewStore()
	if err != nil {
		logging.Warn("Reading state unavailable", "error", err)
	} else {
		s.store = store
		s.settings = store.Settings()
	}
	if s.store == nil {
		s.settings = state.DefaultSettings()
	}
	if opts.speed > 0 {
		s.settings.Speed = opts.speed
	}

	if s.persist && s.store != nil && !opts.fresh {
		if pos, ok := s.store.Position(s.storyID); ok {
			s.start = pos
		}
	}
	if opts.chapter > 0 {
		s.start = state.Position{Chapter: opts.chapter - 1}
	}

	engine, err := speech.New(speech.Config{
		Engine:  cfg.Speech.Engine,
		Command: cfg.Speech.Command,
		Voice:   cfg.Speech.Voice,
		BaseWPM: cfg.Speech.BaseWPM,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.engine = engine

	s.extractor = palette.NewExtractor(palette.NewHTTPLoader(palette.LoaderConfig{
		UserAgent:         cfg.Palette.UserAgent,
		RequestsPerSecond: cfg.Palette.RequestsPerSecond,
		Timeout:           cfg.Palette.Timeout.Duration,
	}), nil)

	if opts.cover != "" {
		s.cover = palette.URI(coverURI(opts.cover))
	}
	return s, nil
}

func (s *session) open(ctx context.Context, opts options, stdin io.Reader) error {
	switch {
	case opts.story != "":
		catalog, err := content.OpenCatalog(s.cfg.Library.Database)
		if err != nil {
			return err
		}
		s.catalog = catalog
		story, chapters, err := catalog.Story(ctx, opts.story)
		if err != nil {
			return err
		}
		if err := catalog.RecordView(ctx, story.ID); err != nil {
			logging.Warn("Failed to record view", "story", story.ID, "error", err)
		}
		s.source = catalog
		s.storyID = story.ID
		s.title = story.Title
		s.author = story.Author
		s.cover = story.Cover()
		s.persist = true
		for _, ch := range chapters {
			s.chapters = append(s.chapters, ch.Title)
		}

	case opts.file != "":
		book, err := reader.OpenBook(opts.file)
		if err != nil {
			return fmt.Errorf("failed to read file '%s': %w", opts.file, err)
		}
		hash, err := state.ComputeHash(opts.file)
		if err != nil {
			return err
		}
		s.useBook(hash, book)
		s.persist = true

	default:
		if stdin == nil {
			return errors.New("no input provided. Provide a file, --story, or pipe text to stdin")
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("failed reading stdin: %w", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return errors.New("no text to read")
		}
		s.useBook(stdinStory, reader.SingleChapterBook("stdin", string(data)))
	}
	return nil
}

func (s *session) useBook(id string, book *reader.Book) {
	s.source = content.NewBookSource(id, book)
	s.storyID = id
	s.title = book.Title
	s.author = book.Author
	s.cover = content.DefaultCover
	for i := range book.Chapters {
		s.chapters = append(s.chapters, book.ChapterTitle(i))
	}
}

// coverURI turns a local path into a file:// URI and leaves URIs alone.
func coverURI(s string) string {
	if strings.Contains(s, "://") {
		return s
	}
	if abs, err := filepath.Abs(s); err == nil {
		s = abs
	}
	return "file://" + filepath.ToSlash(s)
}

// runLibraryCommand handles the non-interactive library flags. It reports
// whether one was given.
func runLibraryCommand(ctx context.Context, opts options, out io.Writer) (bool, error) {
	if opts.importFile == "" && !opts.list && opts.search == "" {
		return false, nil
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return true, err
	}
	catalog, err := content.OpenCatalog(cfg.Library.Database)
	if err != nil {
		return true, err
	}
	defer catalog.Close()

	switch {
	case opts.importFile != "":
		book, err := reader.OpenBook(opts.importFile)
		if err != nil {
			return true, fmt.Errorf("failed to read file '%s': %w", opts.importFile, err)
		}
		var categories []string
		if opts.category != "" {
			cat, err := catalog.CategoryBySlug(ctx, opts.category)
			if err != nil {
				return true, err
			}
			categories = append(categories, cat.ID)
		}
		cover := ""
		if opts.cover != "" {
			cover = coverURI(opts.cover)
		}
		story, err := catalog.ImportBook(ctx, book, cover, categories...)
		if err != nil {
			return true, err
		}
		fmt.Fprintf(out, "Imported %q (%d chapters) as %s\n", story.Title, story.ChapterCount, story.ID)
		return true, nil

	case opts.search != "":
		stories, err := catalog.Search(ctx, opts.search)
		if err != nil {
			return true, err
		}
		printStories(out, stories)
		return true, nil

	default:
		var stories []content.Story
		if opts.category != "" {
			stories, err = catalog.ByCategorySlug(ctx, opts.category, 0)
		} else {
			stories, err = catalog.Stories(ctx)
		}
		if err != nil {
			return true, err
		}
		printStories(out, stories)
		return true, nil
	}
}

func printStories(out io.Writer, stories []content.Story) {
	if len(stories) == 0 {
		fmt.Fprintln(out, "No stories found.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tCHAPTERS\tVIEWS")
	for _, s := range stories {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.ID, s.Title, s.Author, s.ChapterCount, content.FormatCount(s.Views))
	}
	tw.Flush()
}
