// Package voicesamples manages named reference-voice entries against
// the backend. The backend owns the data; the local list is a cache
// that is only ever replaced by a fresh fetch after a confirmed write,
// never patched optimistically.
package voicesamples

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mkadlec/voicebox/internal/backend"
	"github.com/mkadlec/voicebox/internal/observability"
)

var (
	// ErrEmptyName rejects an upload without a name, before any call.
	ErrEmptyName = errors.New("sample name must not be empty")

	// ErrMissingAudio rejects an upload without audio, before any call.
	ErrMissingAudio = errors.New("sample audio must not be empty")

	// ErrNotConfirmed means the user declined the delete confirmation.
	ErrNotConfirmed = errors.New("delete was not confirmed")

	// ErrDeleteInProgress rejects a duplicate delete of the same id
	// while one is running. Deletes of different ids are independent.
	ErrDeleteInProgress = errors.New("delete already in progress for this sample")
)

// API is the slice of the backend client the manager needs.
type API interface {
	ListVoiceSamples(ctx context.Context) ([]backend.VoiceSample, error)
	UploadVoiceSample(ctx context.Context, name, audioBase64 string) error
	DeleteVoiceSample(ctx context.Context, id string) error
}

// Manager drives the selection list consumed by the synthesis
// controller. metrics may be nil.
type Manager struct {
	api     API
	metrics *observability.Metrics
	confirm func(backend.VoiceSample) bool

	mu       sync.Mutex
	samples  []backend.VoiceSample
	deleting map[string]struct{}
}

// Option adjusts Manager construction.
type Option func(*Manager)

// WithConfirm installs the user-confirmation hook required before a
// destructive delete is issued. Without a hook the caller is trusted to
// have confirmed already.
func WithConfirm(confirm func(backend.VoiceSample) bool) Option {
	return func(m *Manager) { m.confirm = confirm }
}

func NewManager(api API, metrics *observability.Metrics, opts ...Option) *Manager {
	m := &Manager{
		api:      api,
		metrics:  metrics,
		deleting: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// List fetches the authoritative sample list and replaces the cache.
func (m *Manager) List(ctx context.Context) ([]backend.VoiceSample, error) {
	samples, err := m.api.ListVoiceSamples(ctx)
	if err != nil {
		m.op("list", "error")
		return nil, err
	}
	m.mu.Lock()
	m.samples = samples
	m.mu.Unlock()
	m.op("list", "ok")
	return m.Samples(), nil
}

// Samples returns a copy of the cached list.
func (m *Manager) Samples() []backend.VoiceSample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]backend.VoiceSample(nil), m.samples...)
}

// Upload stores a named sample, then re-fetches the list so the visible
// state is the backend's truth.
func (m *Manager) Upload(ctx context.Context, name, audioBase64 string) error {
	if strings.TrimSpace(name) == "" {
		m.op("upload", "precondition")
		return ErrEmptyName
	}
	if strings.TrimSpace(audioBase64) == "" {
		m.op("upload", "precondition")
		return ErrMissingAudio
	}

	if err := m.api.UploadVoiceSample(ctx, name, audioBase64); err != nil {
		m.op("upload", "error")
		return err
	}
	m.op("upload", "ok")

	if _, err := m.List(ctx); err != nil {
		return fmt.Errorf("sample stored but list refresh failed: %w", err)
	}
	return nil
}

// Delete removes a sample after explicit confirmation, then re-fetches
// the list. A delete in progress blocks only the same id.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	if _, busy := m.deleting[id]; busy {
		m.mu.Unlock()
		return ErrDeleteInProgress
	}
	sample := backend.VoiceSample{ID: id}
	for _, s := range m.samples {
		if s.ID == id {
			sample = s
			break
		}
	}
	m.deleting[id] = struct{}{}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.deleting, id)
		m.mu.Unlock()
	}()

	if m.confirm != nil && !m.confirm(sample) {
		m.op("delete", "declined")
		return ErrNotConfirmed
	}

	if err := m.api.DeleteVoiceSample(ctx, id); err != nil {
		m.op("delete", "error")
		return err
	}
	m.op("delete", "ok")

	if _, err := m.List(ctx); err != nil {
		return fmt.Errorf("sample deleted but list refresh failed: %w", err)
	}
	return nil
}

// Deleting reports whether a delete for id is currently running, so the
// UI can disable only that row's control.
func (m *Manager) Deleting(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, busy := m.deleting[id]
	return busy
}

func (m *Manager) op(op, outcome string) {
	if m.metrics != nil {
		m.metrics.SampleOps.WithLabelValues(op, outcome).Inc()
	}
}
