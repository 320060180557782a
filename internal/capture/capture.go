// Package capture owns the microphone recording lifecycle. A Recorder
// holds at most one active session, appends emitted audio fragments in
// arrival order, and always releases the device on stop or teardown.
package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkadlec/voicebox/internal/observability"
	"github.com/mkadlec/voicebox/internal/payload"
)

type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateStopped   State = "stopped"
)

var (
	// ErrAccessDenied means the user refused microphone access. The
	// recorder stays Idle and the user may retry.
	ErrAccessDenied = errors.New("microphone access denied")

	// ErrAlreadyRecording rejects a second Start while a session is active.
	ErrAlreadyRecording = errors.New("a recording is already active")

	// ErrNotRecording rejects Stop without an active session.
	ErrNotRecording = errors.New("no active recording")
)

// Stream is one opened capture pipeline. Chunks delivers audio fragments
// in emission order and is closed by Close.
type Stream interface {
	Chunks() <-chan []byte
	MimeType() string
	Close() error
}

// Device abstracts the microphone. Open blocks on the permission prompt
// and returns ErrAccessDenied when the user refuses.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Recording is a finalized capture: all fragments concatenated in
// arrival order, tagged with the negotiated format.
type Recording struct {
	SessionID string
	Bytes     []byte
	MimeType  string
	Duration  time.Duration
}

// PreviewURI returns a playable data-URI handle for the recording.
func (r *Recording) PreviewURI() string {
	return payload.AudioDataURI(r.MimeType, r.Bytes)
}

// Recorder is the capture state machine. All methods are safe for
// concurrent use.
type Recorder struct {
	device  Device
	metrics *observability.Metrics
	now     func() time.Time

	mu        sync.Mutex
	state     State
	sessionID string
	startedAt time.Time
	mimeType  string
	chunks    [][]byte
	stream    Stream
	done      chan struct{}
	last      *Recording
}

// NewRecorder creates an idle recorder for the given device. metrics may
// be nil.
func NewRecorder(device Device, metrics *observability.Metrics) *Recorder {
	return &Recorder{
		device:  device,
		metrics: metrics,
		now:     time.Now,
		state:   StateIdle,
	}
}

// Start opens the device and begins a new session. It rejects a second
// start while one is active and discards any unconsumed stopped result.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state == StateRecording {
		r.mu.Unlock()
		r.event("rejected_busy")
		return ErrAlreadyRecording
	}
	if r.last != nil {
		r.last = nil
		r.event("discarded")
	}
	// Reserve the session before the permission prompt so a concurrent
	// Start is rejected rather than opening a second stream.
	r.state = StateRecording
	r.mu.Unlock()

	stream, err := r.device.Open(ctx)
	if err != nil {
		r.mu.Lock()
		r.state = StateIdle
		r.mu.Unlock()
		if errors.Is(err, ErrAccessDenied) {
			r.event("denied")
		} else {
			r.event("open_failed")
		}
		return err
	}

	r.mu.Lock()
	r.sessionID = uuid.NewString()
	r.startedAt = r.now()
	r.mimeType = stream.MimeType()
	r.chunks = nil
	r.stream = stream
	r.done = make(chan struct{})
	done := r.done
	r.mu.Unlock()

	// Consume until the stream closes so buffered fragments emitted
	// around Stop are still flushed, in order.
	go func() {
		defer close(done)
		for chunk := range stream.Chunks() {
			c := make([]byte, len(chunk))
			copy(c, chunk)
			r.mu.Lock()
			r.chunks = append(r.chunks, c)
			r.mu.Unlock()
		}
	}()

	r.event("started")
	return nil
}

// Stop finalizes the active session. The device is released before the
// method returns, regardless of how the caller uses the result.
func (r *Recorder) Stop() (*Recording, error) {
	r.mu.Lock()
	if r.state != StateRecording || r.stream == nil {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}
	stream := r.stream
	done := r.done
	r.stream = nil
	r.mu.Unlock()

	// Release the hardware first; the consumer drains whatever the
	// stream already emitted once the chunk channel closes.
	_ = stream.Close()
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, c := range r.chunks {
		total += len(c)
	}
	buf := make([]byte, 0, total)
	for _, c := range r.chunks {
		buf = append(buf, c...)
	}

	rec := &Recording{
		SessionID: r.sessionID,
		Bytes:     buf,
		MimeType:  r.mimeType,
		Duration:  r.now().Sub(r.startedAt),
	}
	r.state = StateStopped
	r.chunks = nil
	r.last = rec

	r.event("stopped")
	return rec, nil
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Elapsed reports how long the active session has been recording, or the
// duration of the stopped result. Feedback only; not used for correctness.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case StateRecording:
		return r.now().Sub(r.startedAt)
	case StateStopped:
		if r.last != nil {
			return r.last.Duration
		}
	}
	return 0
}

// ElapsedSeconds is Elapsed truncated to whole seconds, matching the
// once-per-second counter shown while recording.
func (r *Recorder) ElapsedSeconds() int {
	return int(r.Elapsed() / time.Second)
}

// Last returns the unconsumed stopped recording, if any.
func (r *Recorder) Last() *Recording {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Take returns the stopped recording and marks it consumed.
func (r *Recorder) Take() *Recording {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.last
	r.last = nil
	return rec
}

// Close tears the recorder down, releasing the device if still held.
func (r *Recorder) Close() error {
	r.mu.Lock()
	stream := r.stream
	done := r.done
	r.stream = nil
	if r.state == StateRecording {
		r.state = StateIdle
	}
	r.mu.Unlock()

	if stream != nil {
		_ = stream.Close()
		<-done
		r.event("stopped")
	}
	return nil
}

func (r *Recorder) event(name string) {
	if r.metrics != nil {
		r.metrics.CaptureEvents.WithLabelValues(name).Inc()
	}
}
