package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/user/committracker/pkg/logger"
)

// Scheduler owns one recurring poll job per active subscription. The
// jobs map is the single authoritative record of which chats have a
// timer; the subscription store decides which chats should have one.
type Scheduler struct {
	store     Store
	resolver  *Resolver
	source    Source
	transport Transport
	format    Formatter

	interval     time.Duration
	initialDelay time.Duration

	mu   sync.Mutex
	jobs map[int64]*job
	wg   sync.WaitGroup
}

// job is the handle for one subscription's poll goroutine.
type job struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a poll scheduler. The first cycle of each job
// runs after initialDelay, subsequent cycles every interval.
func NewScheduler(store Store, resolver *Resolver, source Source, transport Transport, format Formatter, interval, initialDelay time.Duration) *Scheduler {
	return &Scheduler{
		store:        store,
		resolver:     resolver,
		source:       source,
		transport:    transport,
		format:       format,
		interval:     interval,
		initialDelay: initialDelay,
		jobs:         make(map[int64]*job),
	}
}

// Ensure guarantees exactly one poll job for a chat. An existing job is
// cancelled and waited for before the replacement starts, so two cycles
// for the same chat can never overlap.
func (s *Scheduler) Ensure(chatID int64) {
	for {
		s.mu.Lock()
		old := s.jobs[chatID]
		if old == nil {
			ctx, cancel := context.WithCancel(context.Background())
			j := &job{cancel: cancel, done: make(chan struct{})}
			s.jobs[chatID] = j
			s.wg.Add(1)
			go s.run(ctx, chatID, j)
			s.mu.Unlock()

			logger.Debug().Int64("chat_id", chatID).Msg("Poll job ensured")
			return
		}
		delete(s.jobs, chatID)
		s.mu.Unlock()

		old.cancel()
		<-old.done
	}
}

// Cancel stops the poll job for a chat, if any, and waits for it to
// finish. Idempotent.
func (s *Scheduler) Cancel(chatID int64) {
	s.mu.Lock()
	j := s.jobs[chatID]
	delete(s.jobs, chatID)
	s.mu.Unlock()

	if j != nil {
		j.cancel()
		<-j.done
	}
}

// Reconcile derives the active job set from the full store contents:
// every stored subscription gets a job, jobs without a record are
// cancelled. Called at startup so polling resumes across restarts.
func (s *Scheduler) Reconcile() error {
	subs, err := s.store.ListAll()
	if err != nil {
		// Fail soft: keep whatever jobs exist rather than tearing the
		// world down over a read glitch.
		logger.Error().Err(err).Msg("Subscription store unreadable, skipping reconcile")
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	want := make(map[int64]bool, len(subs))
	for _, sub := range subs {
		want[sub.ChatID] = true
	}

	s.mu.Lock()
	var orphaned []int64
	for chatID := range s.jobs {
		if !want[chatID] {
			orphaned = append(orphaned, chatID)
		}
	}
	s.mu.Unlock()

	for _, chatID := range orphaned {
		s.Cancel(chatID)
	}
	for _, sub := range subs {
		s.Ensure(sub.ChatID)
	}

	logger.Info().Int("count", len(subs)).Msg("Poll jobs reconciled from store")
	return nil
}

// Stop cancels every poll job and waits for all of them to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	jobs := s.jobs
	s.jobs = make(map[int64]*job)
	s.mu.Unlock()

	for _, j := range jobs {
		j.cancel()
	}
	s.wg.Wait()
	logger.Info().Msg("Poll scheduler stopped")
}

// ActiveJobs returns the number of running poll jobs.
func (s *Scheduler) ActiveJobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// run is the per-subscription poll loop.
func (s *Scheduler) run(ctx context.Context, chatID int64, j *job) {
	defer s.wg.Done()
	defer close(j.done)
	defer func() {
		// Drop our own handle unless a replacement already took over.
		s.mu.Lock()
		if s.jobs[chatID] == j {
			delete(s.jobs, chatID)
		}
		s.mu.Unlock()
	}()

	timer := time.NewTimer(s.initialDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	if !s.runCycle(ctx, chatID) {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.runCycle(ctx, chatID) {
				return
			}
		}
	}
}

// runCycle executes one poll cycle for a chat: fresh store read, delta
// resolution, chronological delivery, watermark advance. Every failure
// is contained within this cycle; the cycle after it starts from the
// stored watermark again. Returns false when the job should end.
func (s *Scheduler) runCycle(ctx context.Context, chatID int64) bool {
	sub, err := s.store.Get(chatID)
	if err != nil {
		logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Subscription store unreadable, skipping cycle")
		return true
	}
	if sub == nil {
		// Unsubscribed behind our back; the store is authoritative.
		logger.Debug().Int64("chat_id", chatID).Msg("Subscription gone, ending poll job")
		return false
	}

	repoLabel := sub.RepoOwner + "/" + sub.RepoName

	delta, err := s.resolver.Resolve(ctx, sub.RepoOwner, sub.RepoName, sub.Branch(), sub.WatermarkSHA)
	if err != nil {
		s.logResolveFailure(err, chatID, repoLabel)
		return true
	}
	if len(delta) == 0 {
		return true
	}

	// The default branch name is resolved per cycle, never cached, so a
	// repository's default-branch change is picked up automatically.
	branchDisplay := sub.Branch()
	if branchDisplay == "" {
		branchDisplay, err = s.source.DefaultBranch(ctx, sub.RepoOwner, sub.RepoName)
		if err != nil {
			s.logResolveFailure(err, chatID, repoLabel)
			return true
		}
	}

	target := Target{ChatID: sub.ChatID, ThreadID: sub.Thread()}

	// Deliver oldest first: recipients see history in chronological
	// order. The resolver returns newest first.
	for i := len(delta) - 1; i >= 0; i-- {
		text := s.format(delta[i], sub.RepoOwner, sub.RepoName, branchDisplay)
		if err := s.transport.Deliver(target, text); err != nil {
			logger.Error().Err(err).
				Int64("chat_id", chatID).
				Str("repo", repoLabel).
				Str("sha", delta[i].SHA).
				Msg("Delivery failed, watermark not advanced")
			return true
		}
	}

	// The whole batch went out; advance to the newest delivered commit
	// in one atomic write.
	if err := s.store.AdvanceWatermark(chatID, delta[0].SHA); err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to advance watermark")
		return true
	}

	logger.Info().
		Int64("chat_id", chatID).
		Str("repo", repoLabel).
		Int("commits", len(delta)).
		Str("watermark", delta[0].SHA).
		Msg("Delivered new commits")
	return true
}

// logResolveFailure logs a delta-resolution failure at a level matching
// its class. Polling failures are never surfaced to the user.
func (s *Scheduler) logResolveFailure(err error, chatID int64, repo string) {
	switch {
	case errors.Is(err, ErrNotFound):
		logger.Warn().Int64("chat_id", chatID).Str("repo", repo).Msg("Repository or branch not found, skipping cycle")
	case errors.Is(err, context.Canceled):
		// Job cancelled mid-cycle, nothing to report.
	default:
		logger.Debug().Err(err).Int64("chat_id", chatID).Str("repo", repo).Msg("Delta resolution failed, will retry next tick")
	}
}
