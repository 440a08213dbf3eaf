// Package tracker implements the subscription state machine and the
// incremental commit-delivery engine: delta resolution against a
// per-chat watermark, per-subscription poll scheduling, and the
// lifecycle that keeps poll jobs in sync with the subscription store.
package tracker

import (
	"context"
	"time"

	"github.com/user/committracker/internal/storage"
)

// Commit is one commit as returned by the source-control API,
// newest-first in listings.
type Commit struct {
	SHA        string
	Message    string
	AuthoredAt time.Time // in the commit's recorded timezone
	Files      []string  // modified file paths, populated for delta commits
}

// Source is the source-control read API the tracker polls.
type Source interface {
	// HeadCommitSHA resolves the current head of a branch. An empty
	// branch means the repository default branch.
	HeadCommitSHA(ctx context.Context, owner, repo, branch string) (string, error)
	// ListCommits returns up to limit commits, newest first. The
	// returned commits need not have Files populated.
	ListCommits(ctx context.Context, owner, repo, branch string, limit int) ([]Commit, error)
	// CommitFiles returns the modified file paths of one commit.
	CommitFiles(ctx context.Context, owner, repo, sha string) ([]string, error)
	// DefaultBranch returns the repository's current default branch name.
	DefaultBranch(ctx context.Context, owner, repo string) (string, error)
}

// Store is the durable subscription store.
type Store interface {
	ListAll() ([]storage.Subscription, error)
	Get(chatID int64) (*storage.Subscription, error)
	Upsert(sub storage.Subscription) error
	Remove(chatID int64) (bool, error)
	AdvanceWatermark(chatID int64, sha string) error
}

// Target identifies where notifications for a subscription are delivered.
type Target struct {
	ChatID   int64
	ThreadID int64 // 0 when the chat has no topic threads
}

// Transport delivers formatted notification text to a target.
type Transport interface {
	Deliver(target Target, text string) error
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(target Target, text string) error

// Deliver calls f.
func (f TransportFunc) Deliver(target Target, text string) error {
	return f(target, text)
}

// Formatter renders one commit into recipient-facing text.
type Formatter func(c Commit, owner, repo, branchDisplay string) string
