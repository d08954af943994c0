package speech

import (
	"strings"
	"sync"
	"time"
)

// minUtterance keeps very short sentences on screen long enough to read.
const minUtterance = 400 * time.Millisecond

// Paced is a silent engine that "speaks" for as long as the text would
// take at the configured words per minute. It is used when no speech
// synthesizer is installed and in tests.
type Paced struct {
	wpm int

	mu    sync.Mutex
	timer *time.Timer
	seq   uint64
}

// NewPaced creates a paced engine running at wpm words per minute.
func NewPaced(wpm int) *Paced {
	if wpm <= 0 {
		wpm = DefaultBaseWPM
	}
	return &Paced{wpm: wpm}
}

// Duration returns how long text takes at the given rate.
func (p *Paced) Duration(text string, rate float64) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}
	perWord := time.Duration(60.0/float64(wordsPerMinute(p.wpm, rate))*1000) * time.Millisecond
	d := time.Duration(words) * perWord
	if d < minUtterance {
		d = minUtterance
	}
	return d
}

// Speak starts a timer that reports completion after the utterance's
// duration. Any utterance already in flight is cancelled.
func (p *Paced) Speak(u Utterance, done Callback) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	p.seq++
	seq := p.seq
	p.timer = time.AfterFunc(p.Duration(u.Text, u.Rate), func() {
		p.mu.Lock()
		current := seq == p.seq
		if current {
			p.timer = nil
		}
		p.mu.Unlock()
		if current && done != nil {
			done(u, nil)
		}
	})
	return nil
}

// Stop cancels the in-flight utterance without invoking its callback.
func (p *Paced) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Paced) stopLocked() {
	p.seq++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
