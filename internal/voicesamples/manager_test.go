package voicesamples

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mkadlec/voicebox/internal/backend"
	"github.com/mkadlec/voicebox/internal/payload"
)

// fakeStore mimics the backend's sample storage: uploads assign ids,
// list returns the current server truth.
type fakeStore struct {
	mu          sync.Mutex
	nextID      int
	samples     []backend.VoiceSample
	listCalls   int
	uploadCalls int
	deleteCalls int
	uploadErr   error
	deleteErr   error

	deleteStarted chan string
	deleteRelease chan struct{}
}

func (f *fakeStore) ListVoiceSamples(ctx context.Context) ([]backend.VoiceSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return append([]backend.VoiceSample(nil), f.samples...), nil
}

func (f *fakeStore) UploadVoiceSample(ctx context.Context, name, audioBase64 string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadCalls++
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.nextID++
	f.samples = append(f.samples, backend.VoiceSample{
		ID:        fmt.Sprintf("id-%d", f.nextID),
		Name:      name,
		CreatedAt: "2026-08-26T10:00:00",
		FileSize:  int64(len(audioBase64)),
	})
	return nil
}

func (f *fakeStore) DeleteVoiceSample(ctx context.Context, id string) error {
	if f.deleteStarted != nil {
		f.deleteStarted <- id
		<-f.deleteRelease
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	kept := f.samples[:0]
	for _, s := range f.samples {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	f.samples = kept
	return nil
}

func TestUploadPreconditions(t *testing.T) {
	store := &fakeStore{}
	m := NewManager(store, nil)

	if err := m.Upload(context.Background(), "", "YWJj"); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("Upload with empty name error = %v, want ErrEmptyName", err)
	}
	if err := m.Upload(context.Background(), "Alice", ""); !errors.Is(err, ErrMissingAudio) {
		t.Fatalf("Upload without audio error = %v, want ErrMissingAudio", err)
	}
	if store.uploadCalls != 0 {
		t.Fatalf("precondition failures issued %d upload calls, want 0", store.uploadCalls)
	}
}

func TestUploadThenDeleteRoundTrip(t *testing.T) {
	store := &fakeStore{}
	m := NewManager(store, nil)

	silence := payload.Encode(make([]byte, 36))
	if err := m.Upload(context.Background(), "Alice", silence); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	samples := m.Samples()
	if len(samples) != 1 || samples[0].Name != "Alice" {
		t.Fatalf("Samples() after upload = %+v, want one entry named Alice", samples)
	}

	if err := m.Delete(context.Background(), samples[0].ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got := m.Samples(); len(got) != 0 {
		t.Fatalf("Samples() after delete = %+v, want empty", got)
	}
}

func TestWritesRefetchInsteadOfPatching(t *testing.T) {
	store := &fakeStore{}
	m := NewManager(store, nil)

	before := store.listCalls
	if err := m.Upload(context.Background(), "Alice", "YWJj"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if store.listCalls != before+1 {
		t.Fatalf("upload triggered %d list fetches, want exactly 1", store.listCalls-before)
	}

	// The cache reflects whatever the server returns, not what was sent:
	// mutate server state behind the manager's back and delete.
	store.mu.Lock()
	store.samples = append(store.samples, backend.VoiceSample{ID: "ghost", Name: "Ghost"})
	store.mu.Unlock()

	id := m.Samples()[0].ID
	if err := m.Delete(context.Background(), id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	got := m.Samples()
	if len(got) != 1 || got[0].ID != "ghost" {
		t.Fatalf("cache not re-fetched from server truth: %+v", got)
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	store := &fakeStore{}
	var asked backend.VoiceSample
	m := NewManager(store, nil, WithConfirm(func(s backend.VoiceSample) bool {
		asked = s
		return false
	}))

	if err := m.Upload(context.Background(), "Alice", "YWJj"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	id := m.Samples()[0].ID

	if err := m.Delete(context.Background(), id); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("declined Delete() error = %v, want ErrNotConfirmed", err)
	}
	if asked.Name != "Alice" {
		t.Fatalf("confirmation hook saw %+v, want the Alice sample", asked)
	}
	if store.deleteCalls != 0 {
		t.Fatalf("declined confirmation still issued the delete call")
	}
}

func TestConcurrentDeletesOfDifferentIDs(t *testing.T) {
	store := &fakeStore{
		deleteStarted: make(chan string, 2),
		deleteRelease: make(chan struct{}),
	}
	m := NewManager(store, nil)

	for _, name := range []string{"Alice", "Bob"} {
		if err := m.Upload(context.Background(), name, "YWJj"); err != nil {
			t.Fatalf("Upload(%s) error = %v", name, err)
		}
	}
	ids := []string{m.Samples()[0].ID, m.Samples()[1].ID}

	errs := make(chan error, 2)
	go func() { errs <- m.Delete(context.Background(), ids[0]) }()

	select {
	case <-store.deleteStarted:
	case <-time.After(2 * time.Second):
		t.Fatalf("first delete never reached the backend")
	}
	if !m.Deleting(ids[0]) {
		t.Fatalf("Deleting(%q) = false during in-flight delete", ids[0])
	}
	if m.Deleting(ids[1]) {
		t.Fatalf("unrelated row reported as deleting")
	}

	// Same id is blocked, a different id proceeds.
	if err := m.Delete(context.Background(), ids[0]); !errors.Is(err, ErrDeleteInProgress) {
		t.Fatalf("duplicate Delete() error = %v, want ErrDeleteInProgress", err)
	}
	go func() { errs <- m.Delete(context.Background(), ids[1]) }()
	select {
	case <-store.deleteStarted:
	case <-time.After(2 * time.Second):
		t.Fatalf("independent delete was blocked by an unrelated id")
	}

	close(store.deleteRelease)
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
	}
	if got := m.Samples(); len(got) != 0 {
		t.Fatalf("Samples() after deletes = %+v, want empty", got)
	}
}
