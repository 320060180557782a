// Package ingest reads user-selected files into the outgoing request
// context. Audio and text selection are independent paths sharing no
// state; the last write wins per field.
package ingest

import (
	"sync"
	"time"

	"github.com/mkadlec/voicebox/internal/payload"
)

const (
	// DefaultMinTextFileBytes is the threshold below which a text file
	// triggers the too-small warning. Short reference texts produce
	// noticeably worse synthesis, so the UI nudges users toward more.
	DefaultMinTextFileBytes = 200 * 1024

	// DefaultWarningTTL is how long the non-fatal size warning stays
	// visible before auto-clearing.
	DefaultWarningTTL = 5 * time.Second
)

// Snapshot is the composed last-write-wins view consumed at submission.
type Snapshot struct {
	Text        string
	TextName    string
	TextWarning string
	Audio       []byte
	AudioName   string
	AudioMime   string
}

// Adapter collects file-derived inputs. Safe for concurrent use.
type Adapter struct {
	minTextBytes int
	warningTTL   time.Duration

	mu       sync.Mutex
	text     string
	textName string
	warning  string
	warnGen  int

	audio     []byte
	audioName string
	audioMime string
}

// Option adjusts Adapter construction.
type Option func(*Adapter)

// WithMinTextFileBytes overrides the warning threshold.
func WithMinTextFileBytes(n int) Option {
	return func(a *Adapter) { a.minTextBytes = n }
}

// WithWarningTTL overrides how long the size warning stays visible.
func WithWarningTTL(d time.Duration) Option {
	return func(a *Adapter) { a.warningTTL = d }
}

func NewAdapter(opts ...Option) *Adapter {
	a := &Adapter{
		minTextBytes: DefaultMinTextFileBytes,
		warningTTL:   DefaultWarningTTL,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// LoadAudio replaces the current audio source with the selected file.
// It supersedes any capture-derived recording but leaves text state
// untouched.
func (a *Adapter) LoadAudio(name, mime string, data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.audio = append([]byte(nil), data...)
	a.audioName = name
	a.audioMime = mime
}

// LoadText replaces the text content with the file's decoded contents.
// Files under the minimum size threshold set a non-fatal warning that
// auto-clears after a fixed delay.
func (a *Adapter) LoadText(name string, data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.text = payload.DecodeText(data)
	a.textName = name
	a.warnGen++
	if len(data) < a.minTextBytes {
		a.warning = "reference text is quite small; synthesis quality may suffer"
		gen := a.warnGen
		time.AfterFunc(a.warningTTL, func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			if a.warnGen == gen {
				a.warning = ""
			}
		})
	} else {
		a.warning = ""
	}
}

// SetText replaces the text field with typed input, clearing the
// file-derived name.
func (a *Adapter) SetText(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.text = text
	a.textName = ""
}

// Warning returns the current non-fatal warning, if any.
func (a *Adapter) Warning() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.warning
}

// Snapshot returns the composed request context.
func (a *Adapter) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		Text:        a.text,
		TextName:    a.textName,
		TextWarning: a.warning,
		Audio:       append([]byte(nil), a.audio...),
		AudioName:   a.audioName,
		AudioMime:   a.audioMime,
	}
}
