// Package app wires the capture, ingestion, synthesis and sample
// controllers into one demo session. The studio owns the composition
// rule for audio input: the most recent ingestion, microphone or file,
// wins at submission time.
package app

import (
	"context"
	"net/http"

	"github.com/mkadlec/voicebox/internal/backend"
	"github.com/mkadlec/voicebox/internal/capture"
	"github.com/mkadlec/voicebox/internal/ingest"
	"github.com/mkadlec/voicebox/internal/observability"
	"github.com/mkadlec/voicebox/internal/payload"
	"github.com/mkadlec/voicebox/internal/synth"
	"github.com/mkadlec/voicebox/internal/voicesamples"
)

// Studio is one user-facing demo session.
type Studio struct {
	Recorder *capture.Recorder
	Files    *ingest.Adapter
	Synth    *synth.Controller
	Samples  *voicesamples.Manager
}

// Options configures a Studio.
type Options struct {
	BackendURL string
	Device     capture.Device
	HTTPClient *http.Client
	Metrics    *observability.Metrics
	Confirm    func(backend.VoiceSample) bool
	Ingest     []ingest.Option
}

// New builds a studio against the given backend.
func New(opts Options) *Studio {
	client := backend.NewClient(opts.BackendURL, opts.HTTPClient)
	var managerOpts []voicesamples.Option
	if opts.Confirm != nil {
		managerOpts = append(managerOpts, voicesamples.WithConfirm(opts.Confirm))
	}
	return &Studio{
		Recorder: capture.NewRecorder(opts.Device, opts.Metrics),
		Files:    ingest.NewAdapter(opts.Ingest...),
		Synth:    synth.NewController(client, opts.Metrics),
		Samples:  voicesamples.NewManager(client, opts.Metrics, managerOpts...),
	}
}

// StartRecording begins a microphone session.
func (s *Studio) StartRecording(ctx context.Context) error {
	return s.Recorder.Start(ctx)
}

// StopRecording finalizes the session and moves the result into the
// audio slot, superseding any previously selected audio file.
func (s *Studio) StopRecording() (*capture.Recording, error) {
	rec, err := s.Recorder.Stop()
	if err != nil {
		return nil, err
	}
	s.Recorder.Take()
	s.Files.LoadAudio("microphone-recording", rec.MimeType, rec.Bytes)
	return rec, nil
}

// Speak submits the current text with the given settings.
func (s *Studio) Speak(ctx context.Context, language string, speed float64, voiceSampleID string) (*synth.Result, error) {
	return s.Synth.Submit(ctx, synth.Request{
		Text:          s.Files.Snapshot().Text,
		Language:      language,
		Speed:         speed,
		VoiceSampleID: voiceSampleID,
	})
}

// UploadSample stores the current audio slot as a named reference
// voice. With no audio ingested the manager rejects the upload before
// any call is made.
func (s *Studio) UploadSample(ctx context.Context, name string) error {
	return s.Samples.Upload(ctx, name, payload.Encode(s.Files.Snapshot().Audio))
}

// Close releases held resources, the microphone included.
func (s *Studio) Close() error {
	return s.Recorder.Close()
}
