// Package synth drives the synthesis request lifecycle: compose, submit,
// await, and map the response into a playable and downloadable resource.
// At most one request is in flight per controller; a second submission
// is rejected, never queued.
package synth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkadlec/voicebox/internal/audio"
	"github.com/mkadlec/voicebox/internal/backend"
	"github.com/mkadlec/voicebox/internal/observability"
	"github.com/mkadlec/voicebox/internal/payload"
)

// Speed bounds accepted by the backend slider.
const (
	SpeedMin = 0.7
	SpeedMax = 1.3
)

var (
	// ErrEmptyInput rejects blank text before any network call.
	ErrEmptyInput = errors.New("text must not be empty")

	// ErrBusy rejects a submission while another is in flight.
	ErrBusy = errors.New("a synthesis request is already in flight")

	// ErrInvalidSpeed rejects speeds outside [0.7, 1.3].
	ErrInvalidSpeed = errors.New("speed must be between 0.7 and 1.3")

	// ErrMissingAudio means the backend response omitted usable audio.
	ErrMissingAudio = errors.New("backend response is missing audio")
)

// TransportError is a network or backend failure. Its message carries
// the backend-supplied detail when present.
type TransportError struct {
	Err    error
	Detail string
}

func (e *TransportError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return "synthesis request failed"
}

func (e *TransportError) Unwrap() error { return e.Err }

// Request is one immutable synthesis submission, built fresh from the
// current UI state.
type Request struct {
	Text          string
	Language      string
	Speed         float64
	VoiceSampleID string
}

// Result is the decoded outcome of a successful submission. Each new
// result supersedes the previous one.
type Result struct {
	AudioBytes []byte
	DataURI    string
	Response   backend.ChatResponse
	CreatedAt  time.Time
}

// API is the slice of the backend client the controller needs.
type API interface {
	Chat(ctx context.Context, req backend.ChatRequest) (backend.ChatResponse, error)
}

// Controller enforces the single in-flight invariant and holds the
// latest result and error for display. metrics may be nil.
type Controller struct {
	api     API
	metrics *observability.Metrics
	now     func() time.Time

	mu       sync.Mutex
	inFlight bool
	last     *Result
	lastErr  error
}

func NewController(api API, metrics *observability.Metrics) *Controller {
	return &Controller{
		api:     api,
		metrics: metrics,
		now:     time.Now,
	}
}

// Submit runs one synthesis request to completion or failure. The
// previous result and error are cleared when the submission is accepted,
// not when it finishes, so stale state never lingers during flight.
func (c *Controller) Submit(ctx context.Context, req Request) (*Result, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	if strings.TrimSpace(req.Text) == "" {
		c.lastErr = ErrEmptyInput
		c.mu.Unlock()
		return nil, ErrEmptyInput
	}
	if req.Speed < SpeedMin || req.Speed > SpeedMax {
		c.lastErr = ErrInvalidSpeed
		c.mu.Unlock()
		return nil, ErrInvalidSpeed
	}
	c.inFlight = true
	c.last = nil
	c.lastErr = nil
	c.mu.Unlock()

	started := c.now()
	res, err := c.api.Chat(ctx, backend.ChatRequest{
		Text:          req.Text,
		Language:      req.Language,
		Speed:         req.Speed,
		VoiceSampleID: req.VoiceSampleID,
	})
	if c.metrics != nil {
		c.metrics.ObserveSynthesisLatency(c.now().Sub(started))
	}

	result, err := c.finish(res, err)

	c.mu.Lock()
	c.inFlight = false
	c.last = result
	c.lastErr = err
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Controller) finish(res backend.ChatResponse, err error) (*Result, error) {
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			return nil, &TransportError{Err: err, Detail: apiErr.Detail}
		}
		return nil, &TransportError{Err: err}
	}
	if strings.TrimSpace(res.WAVBase64) == "" {
		return nil, ErrMissingAudio
	}
	wav, err := payload.Decode(res.WAVBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingAudio, err)
	}

	uri := payload.WAVDataURI(wav)
	if !audio.IsWAV(wav) {
		// The backend contract says WAV; tolerate other containers but
		// stop claiming audio/wav in the playable reference.
		uri = payload.AudioDataURI("application/octet-stream", wav)
	}
	return &Result{
		AudioBytes: wav,
		DataURI:    uri,
		Response:   res,
		CreatedAt:  c.now(),
	}, nil
}

// Busy reports whether a submission is currently in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Last returns the latest result and error state for display.
func (c *Controller) Last() (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.lastErr
}

// DownloadName derives a downloadable filename from the selected voice
// (or a default label) plus a collision-resistant timestamp component.
func DownloadName(voiceName string, now time.Time) string {
	base := sanitizeLabel(voiceName)
	if base == "" {
		base = "speech"
	}
	return fmt.Sprintf("%s_%d_%s.wav", base, now.UnixMilli(), uuid.NewString()[:8])
}

func sanitizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
