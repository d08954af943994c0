// Package speech provides text-to-speech engines for narrated reading.
//
// An Engine speaks one utterance at a time. Completion and failure are
// reported through the callback passed to Speak, on the engine's own
// goroutine; callers are expected to forward the result to whatever
// goroutine owns their playback state. Stop cancels the in-flight
// utterance and suppresses its callback.
package speech

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/metcalfc/narr/internal/logging"
)

// Token identifies one dispatched utterance. Playback state uses it to
// discard callbacks that arrive after the utterance was cancelled.
type Token uint64

// Utterance is a unit of text handed to an engine.
type Utterance struct {
	Text  string
	Rate  float64 // speed multiplier, 1.0 is the engine's normal pace
	Token Token
}

// Callback receives the outcome of an utterance. err is nil when the
// utterance finished normally.
type Callback func(u Utterance, err error)

// Engine is a text-to-speech backend.
type Engine interface {
	Speak(u Utterance, done Callback) error
	Stop()
}

// Config selects and tunes an engine.
type Config struct {
	Engine  string // "paced" or "command"
	Command string // executable for the command engine, empty for auto-detect
	Voice   string
	BaseWPM int
}

// DefaultBaseWPM is the speaking pace at rate 1.0.
const DefaultBaseWPM = 180

var knownCommands = []string{"espeak-ng", "espeak", "say"}

// New builds the engine described by cfg. When a command engine is
// requested but no speech executable is available, it falls back to a
// paced engine so reading still advances.
func New(cfg Config) (Engine, error) {
	wpm := cfg.BaseWPM
	if wpm <= 0 {
		wpm = DefaultBaseWPM
	}

	switch strings.ToLower(cfg.Engine) {
	case "", "paced", "silent":
		return NewPaced(wpm), nil
	case "command":
		name := cfg.Command
		if name == "" {
			name = detectCommand()
		}
		if name == "" {
			logging.Warn("No speech command found, using paced engine", "tried", strings.Join(knownCommands, ","))
			return NewPaced(wpm), nil
		}
		if _, err := exec.LookPath(name); err != nil {
			return nil, fmt.Errorf("speech command %q not found: %w", name, err)
		}
		return NewCommand(name, cfg.Voice, wpm), nil
	default:
		return nil, fmt.Errorf("unknown speech engine %q", cfg.Engine)
	}
}

func detectCommand() string {
	for _, name := range knownCommands {
		if _, err := exec.LookPath(name); err == nil {
			return name
		}
	}
	return ""
}

// wordsPerMinute scales the base pace by a rate multiplier.
func wordsPerMinute(base int, rate float64) int {
	if rate <= 0 {
		rate = 1
	}
	wpm := int(float64(base)*rate + 0.5)
	if wpm < 1 {
		wpm = 1
	}
	return wpm
}
