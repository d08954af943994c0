package reader

import (
	"context"
	"errors"
	"fmt"

	"github.com/metcalfc/narr/internal/speech"
)

var (
	// ErrOutOfRange is returned when seeking to a sentence or chapter that
	// does not exist.
	ErrOutOfRange = errors.New("index out of range")
	// ErrNoSentences is returned when seeking within an empty chapter.
	ErrNoSentences = errors.New("chapter has no sentences")
	// ErrSpeech wraps failures reported by the speech engine.
	ErrSpeech = errors.New("speech failed")
	// ErrNoChapter is returned by operations that need a loaded chapter.
	ErrNoChapter = errors.New("no chapter loaded")
)

// Speeds are the playback multipliers cycled by ChangeSpeed.
var Speeds = []float64{0.8, 1.0, 1.2, 1.5, 2.0}

// DefaultSpeed is the initial playback multiplier.
const DefaultSpeed = 1.0

// ChapterSource supplies chapter text for one story.
type ChapterSource interface {
	ChapterText(ctx context.Context, storyID string, chapter int) (string, error)
	ChapterCount(ctx context.Context, storyID string) (int, error)
}

// Outcome describes what a speech-engine event did to playback.
type Outcome int

const (
	// Stale means the event belonged to a cancelled utterance and was ignored.
	Stale Outcome = iota
	// Continued means the next sentence was dispatched.
	Continued
	// NextChapter means the chapter ran out and the following one started.
	NextChapter
	// Finished means the last sentence of the last chapter was spoken.
	Finished
	// Halted means playback stopped because of an engine error.
	Halted
)

func (o Outcome) String() string {
	switch o {
	case Stale:
		return "stale"
	case Continued:
		return "continued"
	case NextChapter:
		return "next-chapter"
	case Finished:
		return "finished"
	case Halted:
		return "halted"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// position is either a sentence index or the exhausted marker.
type position struct {
	index     int
	exhausted bool
}

// Cursor is a snapshot of playback state.
type Cursor struct {
	Chapter   int
	Sentence  int
	Exhausted bool
	Playing   bool
	Speed     float64
}

// Sequencer walks the sentences of a story's chapters and hands them to a
// speech engine one at a time.
//
// A Sequencer is not safe for concurrent use. Drive it from one
// goroutine and forward engine callbacks to HandleUtteranceComplete and
// HandleUtteranceError on that goroutine.
type Sequencer struct {
	source  ChapterSource
	engine  speech.Engine
	storyID string
	notify  speech.Callback

	chapter   int
	loaded    bool
	text      string
	sentences []Sentence
	pos       position
	playing   bool
	speed     float64

	token    speech.Token
	inFlight bool
}

// NewSequencer creates a sequencer for storyID. notify receives the speech
// engine callbacks; it is typically a function that posts the result back
// to the event loop owning the sequencer.
func NewSequencer(source ChapterSource, engine speech.Engine, storyID string, notify speech.Callback) *Sequencer {
	return &Sequencer{
		source:  source,
		engine:  engine,
		storyID: storyID,
		notify:  notify,
		speed:   DefaultSpeed,
	}
}

// StoryID returns the story being read.
func (s *Sequencer) StoryID() string { return s.storyID }

// LoadChapter fetches and segments a chapter, resetting the cursor to its
// first sentence in the idle state. On failure the current state is kept.
func (s *Sequencer) LoadChapter(ctx context.Context, chapter int) error {
	count, err := s.source.ChapterCount(ctx, s.storyID)
	if err != nil {
		return fmt.Errorf("failed to count chapters: %w", err)
	}
	if chapter < 0 || chapter >= count {
		return fmt.Errorf("chapter %d of %d: %w", chapter, count, ErrOutOfRange)
	}
	text, err := s.source.ChapterText(ctx, s.storyID, chapter)
	if err != nil {
		return fmt.Errorf("failed to load chapter %d: %w", chapter, err)
	}
	s.Open(chapter, text)
	return nil
}

// Open installs already-fetched chapter text. Any in-flight utterance is
// cancelled and playback is left idle at the first sentence.
func (s *Sequencer) Open(chapter int, text string) {
	s.cancel()
	s.chapter = chapter
	s.loaded = true
	s.text = text
	s.sentences = Segment(text)
	s.pos = position{index: 0, exhausted: len(s.sentences) == 0}
	s.playing = false
}

// Play starts speaking from the current sentence. An empty or exhausted
// chapter leaves playback idle.
func (s *Sequencer) Play() error {
	if !s.loaded || s.pos.exhausted {
		s.playing = false
		return nil
	}
	s.playing = true
	return s.dispatch()
}

// Pause stops speech immediately without moving the cursor.
func (s *Sequencer) Pause() {
	s.cancel()
	s.playing = false
}

// Toggle switches between Play and Pause.
func (s *Sequencer) Toggle() error {
	if s.playing {
		s.Pause()
		return nil
	}
	return s.Play()
}

// Seek jumps to a sentence and always resumes speaking from it.
func (s *Sequencer) Seek(index int) error {
	if !s.loaded {
		return ErrNoChapter
	}
	if len(s.sentences) == 0 {
		return ErrNoSentences
	}
	if index < 0 || index >= len(s.sentences) {
		return fmt.Errorf("sentence %d of %d: %w", index, len(s.sentences), ErrOutOfRange)
	}
	s.cancel()
	s.pos = position{index: index}
	s.playing = true
	return s.dispatch()
}

// StepForward moves the cursor to the next sentence. Audio already in
// flight is not interrupted, so the spoken and highlighted sentence can
// differ until the current utterance finishes.
func (s *Sequencer) StepForward() {
	s.step(1)
}

// StepBackward moves the cursor to the previous sentence. See StepForward.
func (s *Sequencer) StepBackward() {
	s.step(-1)
}

func (s *Sequencer) step(delta int) {
	if len(s.sentences) == 0 {
		return
	}
	idx := s.pos.index
	if s.pos.exhausted {
		idx = len(s.sentences)
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx > len(s.sentences)-1 {
		idx = len(s.sentences) - 1
	}
	s.pos = position{index: idx}
}

// ChangeSpeed advances to the next multiplier in Speeds, wrapping around.
// The new speed applies from the next dispatched sentence.
func (s *Sequencer) ChangeSpeed() float64 {
	next := 0
	for i, v := range Speeds {
		if v == s.speed {
			next = (i + 1) % len(Speeds)
			break
		}
	}
	s.speed = Speeds[next]
	return s.speed
}

// SetSpeed sets the playback multiplier, for example from saved settings.
func (s *Sequencer) SetSpeed(v float64) {
	if v > 0 {
		s.speed = v
	}
}

// Speed returns the current playback multiplier.
func (s *Sequencer) Speed() float64 { return s.speed }

// HandleUtteranceComplete advances playback after the engine finished the
// utterance identified by token. Events for cancelled utterances, or that
// arrive while idle, are ignored.
func (s *Sequencer) HandleUtteranceComplete(ctx context.Context, token speech.Token) (Outcome, error) {
	if !s.current(token) {
		return Stale, nil
	}
	s.inFlight = false

	if s.pos.index+1 < len(s.sentences) {
		s.pos.index++
		return Continued, s.dispatch()
	}

	s.pos = position{index: len(s.sentences), exhausted: true}

	count, err := s.source.ChapterCount(ctx, s.storyID)
	if err != nil {
		s.playing = false
		return Halted, fmt.Errorf("failed to count chapters: %w", err)
	}
	// Chapters without sentences are skipped.
	for next := s.chapter + 1; next < count; next++ {
		if err := s.LoadChapter(ctx, next); err != nil {
			s.playing = false
			return Halted, err
		}
		if len(s.sentences) == 0 {
			continue
		}
		if err := s.Play(); err != nil {
			return Halted, err
		}
		return NextChapter, nil
	}
	s.playing = false
	return Finished, nil
}

// HandleUtteranceError stops playback after an engine failure. The
// sentence is not retried. Stale errors are ignored.
func (s *Sequencer) HandleUtteranceError(token speech.Token, cause error) (Outcome, error) {
	if !s.current(token) {
		return Stale, nil
	}
	s.inFlight = false
	s.playing = false
	return Halted, fmt.Errorf("%w: %w", ErrSpeech, cause)
}

// Handle routes an engine callback result to the matching handler.
func (s *Sequencer) Handle(ctx context.Context, u speech.Utterance, err error) (Outcome, error) {
	if err != nil {
		return s.HandleUtteranceError(u.Token, err)
	}
	return s.HandleUtteranceComplete(ctx, u.Token)
}

// NextChapter loads the following chapter, keeping the play state.
func (s *Sequencer) NextChapter(ctx context.Context) error {
	return s.jumpChapter(ctx, s.chapter+1)
}

// PrevChapter loads the preceding chapter, keeping the play state.
func (s *Sequencer) PrevChapter(ctx context.Context) error {
	return s.jumpChapter(ctx, s.chapter-1)
}

func (s *Sequencer) jumpChapter(ctx context.Context, chapter int) error {
	wasPlaying := s.playing
	if err := s.LoadChapter(ctx, chapter); err != nil {
		return err
	}
	if wasPlaying {
		return s.Play()
	}
	return nil
}

// Restore positions the cursor at a saved sentence without speaking.
func (s *Sequencer) Restore(index int) {
	if len(s.sentences) == 0 {
		return
	}
	if index < 0 {
		index = 0
	}
	if index >= len(s.sentences) {
		index = len(s.sentences) - 1
	}
	s.pos = position{index: index}
}

// Cursor returns a snapshot of the playback state.
func (s *Sequencer) Cursor() Cursor {
	return Cursor{
		Chapter:   s.chapter,
		Sentence:  s.pos.index,
		Exhausted: s.pos.exhausted,
		Playing:   s.playing,
		Speed:     s.speed,
	}
}

// Sentences returns the segmented sentences of the loaded chapter.
func (s *Sequencer) Sentences() []Sentence { return s.sentences }

// Text returns the raw text of the loaded chapter.
func (s *Sequencer) Text() string { return s.text }

// Current returns the sentence under the cursor.
func (s *Sequencer) Current() (Sentence, bool) {
	if s.pos.exhausted || s.pos.index >= len(s.sentences) {
		return Sentence{}, false
	}
	return s.sentences[s.pos.index], true
}

// Token returns the token of the most recently dispatched utterance.
func (s *Sequencer) Token() speech.Token { return s.token }

func (s *Sequencer) current(token speech.Token) bool {
	return s.playing && s.inFlight && token == s.token
}

func (s *Sequencer) dispatch() error {
	sentence, ok := s.Current()
	if !ok {
		s.playing = false
		return nil
	}
	s.token++
	s.inFlight = true
	u := speech.Utterance{Text: sentence.Text, Rate: s.speed, Token: s.token}
	if err := s.engine.Speak(u, s.notify); err != nil {
		s.inFlight = false
		s.playing = false
		return fmt.Errorf("%w: %w", ErrSpeech, err)
	}
	return nil
}

// cancel stops the engine and invalidates the outstanding token.
func (s *Sequencer) cancel() {
	if s.engine != nil {
		s.engine.Stop()
	}
	s.token++
	s.inFlight = false
}
