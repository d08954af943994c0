package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/metcalfc/narr/internal/logging"
)

// Command speaks through an external synthesizer such as espeak-ng or
// macOS say. Each utterance runs one process; Stop kills it.
type Command struct {
	name  string
	voice string
	wpm   int

	mu     sync.Mutex
	cancel context.CancelFunc
	seq    uint64
}

// NewCommand creates an engine that runs the named executable.
func NewCommand(name, voice string, wpm int) *Command {
	if wpm <= 0 {
		wpm = DefaultBaseWPM
	}
	return &Command{name: name, voice: voice, wpm: wpm}
}

// Args returns the command-line arguments used for an utterance.
func (c *Command) Args(u Utterance) []string {
	wpm := strconv.Itoa(wordsPerMinute(c.wpm, u.Rate))
	switch filepath.Base(c.name) {
	case "say":
		args := []string{"-r", wpm}
		if c.voice != "" {
			args = append(args, "-v", c.voice)
		}
		return append(args, "--", u.Text)
	default:
		// espeak and espeak-ng share flags
		args := []string{"-s", wpm}
		if c.voice != "" {
			args = append(args, "-v", c.voice)
		}
		return append(args, "--", u.Text)
	}
}

// Speak starts the synthesizer for u. The callback runs when the process
// exits, unless the utterance was stopped first.
func (c *Command) Speak(u Utterance, done Callback) error {
	c.mu.Lock()
	c.stopLocked()
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	cmd := exec.CommandContext(ctx, c.name, c.Args(u)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start %s: %w", c.name, err)
	}

	go func() {
		err := cmd.Wait()

		// Stop bumps seq, so a stopped utterance is never current.
		c.mu.Lock()
		current := seq == c.seq
		if current {
			c.cancel = nil
		}
		c.mu.Unlock()
		cancel()

		if !current {
			return
		}
		if err != nil {
			msg := strings.TrimSpace(stderr.String())
			logging.Warn("Speech command failed", "command", c.name, "error", err, "stderr", msg)
			if msg != "" {
				err = fmt.Errorf("%s: %w: %s", c.name, err, msg)
			} else {
				err = fmt.Errorf("%s: %w", c.name, err)
			}
		}
		if done != nil {
			done(u, err)
		}
	}()
	return nil
}

// Stop kills the running synthesizer, if any.
func (c *Command) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Command) stopLocked() {
	c.seq++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
