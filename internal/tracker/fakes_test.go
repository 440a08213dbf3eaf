package tracker

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/committracker/internal/storage"
)

// fakeSource serves a canned newest-first commit history.
type fakeSource struct {
	mu            sync.Mutex
	history       []Commit // newest first
	files         map[string][]string
	defaultBranch string

	headErr  error
	listErr  error
	filesErr error

	listCalls int
}

func newFakeSource(shas ...string) *fakeSource {
	f := &fakeSource{
		files:         make(map[string][]string),
		defaultBranch: "main",
	}
	f.setHistory(shas...)
	return f
}

func (f *fakeSource) setHistory(shas ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = nil
	for _, sha := range shas {
		f.history = append(f.history, Commit{SHA: sha, Message: "commit " + sha})
	}
}

func (f *fakeSource) HeadCommitSHA(ctx context.Context, owner, repo, branch string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.headErr != nil {
		return "", f.headErr
	}
	if len(f.history) == 0 {
		return "", fmt.Errorf("%w: no commits", ErrNotFound)
	}
	return f.history[0].SHA, nil
}

func (f *fakeSource) ListCommits(ctx context.Context, owner, repo, branch string, limit int) ([]Commit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	n := len(f.history)
	if limit < n {
		n = limit
	}
	out := make([]Commit, n)
	copy(out, f.history[:n])
	return out, nil
}

func (f *fakeSource) CommitFiles(ctx context.Context, owner, repo, sha string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.filesErr != nil {
		return nil, f.filesErr
	}
	files := f.files[sha]
	if files == nil {
		files = []string{}
	}
	return files, nil
}

func (f *fakeSource) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.defaultBranch, nil
}

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu   sync.Mutex
	subs map[int64]storage.Subscription

	listErr error
	getErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{subs: make(map[int64]storage.Subscription)}
}

func (s *fakeStore) ListAll() ([]storage.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]storage.Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	return out, nil
}

func (s *fakeStore) Get(chatID int64) (*storage.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	sub, ok := s.subs[chatID]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (s *fakeStore) Upsert(sub storage.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.subs[sub.ChatID]; ok && sub.WatermarkSHA == "" {
		sub.WatermarkSHA = existing.WatermarkSHA
	}
	s.subs[sub.ChatID] = sub
	return nil
}

func (s *fakeStore) Remove(chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subs[chatID]
	delete(s.subs, chatID)
	return ok, nil
}

func (s *fakeStore) AdvanceWatermark(chatID int64, sha string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[chatID]
	if !ok {
		return nil
	}
	sub.WatermarkSHA = sha
	s.subs[chatID] = sub
	return nil
}

func (s *fakeStore) watermark(chatID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs[chatID].WatermarkSHA
}

// fakeTransport records deliveries and can fail after a set number of
// successful sends.
type fakeTransport struct {
	mu        sync.Mutex
	delivered []string
	targets   []Target
	failAfter int // -1 means never fail
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{failAfter: -1}
}

func (t *fakeTransport) Deliver(target Target, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failAfter >= 0 && len(t.delivered) >= t.failAfter {
		return fmt.Errorf("%w: flood control", ErrDeliveryFailed)
	}
	t.delivered = append(t.delivered, text)
	t.targets = append(t.targets, target)
	return nil
}

func (t *fakeTransport) sent() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.delivered))
	copy(out, t.delivered)
	return out
}

// testFormat renders just the SHA, keeping assertions readable.
func testFormat(c Commit, owner, repo, branchDisplay string) string {
	return c.SHA
}
