package tracker

import (
	"context"
	"fmt"

	"github.com/user/committracker/internal/storage"
	"github.com/user/committracker/pkg/logger"
)

// Controller creates and destroys subscriptions and keeps poll jobs in
// sync with the store.
type Controller struct {
	store  Store
	source Source
	sched  *Scheduler
}

// NewController creates a subscription lifecycle controller.
func NewController(store Store, source Source, sched *Scheduler) *Controller {
	return &Controller{store: store, source: source, sched: sched}
}

// Subscribe registers (or replaces) the subscription for a chat. The
// watermark is seeded with the branch's current head so only future
// commits are reported. When head resolution fails nothing is stored
// and no job is created; the caller reports the failure and the user
// restarts onboarding.
func (c *Controller) Subscribe(ctx context.Context, chatID int64, owner, repo, branch string, threadID int64) error {
	head, err := c.source.HeadCommitSHA(ctx, owner, repo, branch)
	if err != nil {
		return err
	}

	sub := storage.Subscription{
		ChatID:       chatID,
		RepoOwner:    owner,
		RepoName:     repo,
		BranchName:   storage.NullBranch(branch),
		WatermarkSHA: head,
		ThreadID:     storage.NullThread(threadID),
	}
	if err := c.store.Upsert(sub); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	c.sched.Ensure(chatID)

	logger.Info().
		Int64("chat_id", chatID).
		Str("repo", owner+"/"+repo).
		Str("branch", branch).
		Str("watermark", head).
		Msg("Subscription created")
	return nil
}

// Unsubscribe cancels the chat's poll job and removes its record.
// Idempotent; the return value reports whether a subscription existed.
func (c *Controller) Unsubscribe(chatID int64) (bool, error) {
	c.sched.Cancel(chatID)

	removed, err := c.store.Remove(chatID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if removed {
		logger.Info().Int64("chat_id", chatID).Msg("Subscription removed")
	}
	return removed, nil
}

// Reconcile re-derives active poll jobs from the full store contents.
// Called once at startup; the store is the single source of truth for
// what should be polled.
func (c *Controller) Reconcile() error {
	return c.sched.Reconcile()
}
