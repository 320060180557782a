package capture

import (
	"context"
	"sync"
)

// MockDevice is a scripted microphone for tests and demos. Each Open
// returns a stream whose fragments are pushed by the test via Emit.
type MockDevice struct {
	// DenyAccess makes Open fail with ErrAccessDenied.
	DenyAccess bool
	// Mime tags streams opened from this device. Defaults to
	// "audio/webm;codecs=opus", the usual browser negotiation result.
	Mime string

	mu     sync.Mutex
	stream *MockStream
	opens  int
}

// Open implements Device.
func (d *MockDevice) Open(ctx context.Context) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	if d.DenyAccess {
		return nil, ErrAccessDenied
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mime := d.Mime
	if mime == "" {
		mime = "audio/webm;codecs=opus"
	}
	d.stream = &MockStream{
		mime: mime,
		ch:   make(chan []byte, 64),
	}
	return d.stream, nil
}

// Opens reports how many times the device was opened.
func (d *MockDevice) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// Current returns the most recently opened stream.
func (d *MockDevice) Current() *MockStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stream
}

// MockStream is the stream side of MockDevice.
type MockStream struct {
	mime string
	ch   chan []byte

	mu     sync.Mutex
	closed bool
}

// Emit delivers one data fragment, as the browser's dataavailable
// callback would. Emitting after close is a no-op.
func (s *MockStream) Emit(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.ch <- b
}

// Chunks implements Stream.
func (s *MockStream) Chunks() <-chan []byte { return s.ch }

// MimeType implements Stream.
func (s *MockStream) MimeType() string { return s.mime }

// Close implements Stream and reports whether the device was released.
func (s *MockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.ch)
	return nil
}

// Closed reports whether the hardware resource was released.
func (s *MockStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
