package testsupport

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"reelvault/internal/catalog"
	"reelvault/internal/services"
	"reelvault/internal/vault"
)

// FakeArchiver records duplication requests and hands out sequential message
// ids in a fixed vault chat.
type FakeArchiver struct {
	mu      sync.Mutex
	chatID  int64
	next    int64
	err     error
	sources []vault.Source
}

// NewFakeArchiver returns an archiver whose first copy lands at (chatID, firstMessageID).
func NewFakeArchiver(chatID, firstMessageID int64) *FakeArchiver {
	return &FakeArchiver{chatID: chatID, next: firstMessageID}
}

// DuplicateToArchive implements vault.Archiver.
func (f *FakeArchiver) DuplicateToArchive(ctx context.Context, src vault.Source) (catalog.ArchiveLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources = append(f.sources, src)
	if err := ctx.Err(); err != nil {
		return catalog.ArchiveLocation{}, services.Wrap(services.ErrArchiveUnavailable, "fake", "duplicate", "", err)
	}
	if f.err != nil {
		return catalog.ArchiveLocation{}, services.Wrap(services.ErrArchiveUnavailable, "fake", "duplicate", "", f.err)
	}
	loc := catalog.ArchiveLocation{ChatID: f.chatID, MessageID: f.next}
	f.next++
	return loc, nil
}

// SetError makes subsequent duplications fail with err (nil restores success).
func (f *FakeArchiver) SetError(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// Calls returns how many duplications were requested.
func (f *FakeArchiver) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sources)
}

// Sources returns a copy of every duplication request.
func (f *FakeArchiver) Sources() []vault.Source {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]vault.Source(nil), f.sources...)
}

// FakeFetcher serves every handle except the ones marked invalid.
type FakeFetcher struct {
	mu      sync.Mutex
	invalid map[string]bool
	err     error
	calls   int
}

// NewFakeFetcher returns a fetcher that accepts every handle.
func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{invalid: make(map[string]bool)}
}

// Invalidate makes the provider reject handle.
func (f *FakeFetcher) Invalidate(handle string) {
	f.mu.Lock()
	f.invalid[handle] = true
	f.mu.Unlock()
}

// SetError makes every fetch fail with err (nil restores success).
func (f *FakeFetcher) SetError(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// Calls returns how many fetches were attempted.
func (f *FakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// FetchByHandle implements vault.Fetcher.
func (f *FakeFetcher) FetchByHandle(_ context.Context, handle string) (*vault.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.invalid[handle] {
		return nil, services.Wrap(services.ErrHandleInvalid, "fake", "fetch", fmt.Sprintf("handle %s rejected", handle), nil)
	}
	return &vault.Content{Handle: handle, FilePath: "videos/" + handle + ".mp4", Size: 1024}, nil
}

// Eventually polls cond until it holds or timeout elapses.
func Eventually(t testing.TB, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
