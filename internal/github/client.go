// Package github adapts the GitHub API to the tracker's Source contract.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/user/committracker/internal/tracker"
)

// requestsPerSecond bounds our own call rate so a large subscription set
// cannot burn the API quota between GitHub's own rate-limit windows.
const requestsPerSecond = 5

// Client wraps the GitHub API client.
type Client struct {
	client  *github.Client
	limiter *rate.Limiter
}

// NewClient creates a new GitHub API client.
// If token is empty, an unauthenticated client is created (with lower rate limits).
func NewClient(token string) *Client {
	var client *github.Client

	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc := oauth2.NewClient(context.Background(), ts)
		client = github.NewClient(tc)
	} else {
		client = github.NewClient(nil)
	}

	return &Client{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// HeadCommitSHA resolves the current head commit of a branch. An empty
// branch means the repository default branch.
func (c *Client) HeadCommitSHA(ctx context.Context, owner, repo, branch string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	opts := &github.CommitsListOptions{
		SHA:         branch,
		ListOptions: github.ListOptions{PerPage: 1},
	}
	commits, _, err := c.client.Repositories.ListCommits(ctx, owner, repo, opts)
	if err != nil {
		return "", classify(err)
	}
	if len(commits) == 0 || commits[0].GetSHA() == "" {
		return "", fmt.Errorf("%w: %s/%s has no commits on %q", tracker.ErrNotFound, owner, repo, branch)
	}
	return commits[0].GetSHA(), nil
}

// ListCommits returns up to limit commits newest first, without
// modified-file lists (the list endpoint does not carry them).
func (c *Client) ListCommits(ctx context.Context, owner, repo, branch string, limit int) ([]tracker.Commit, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	opts := &github.CommitsListOptions{
		SHA:         branch,
		ListOptions: github.ListOptions{PerPage: limit},
	}
	commits, _, err := c.client.Repositories.ListCommits(ctx, owner, repo, opts)
	if err != nil {
		return nil, classify(err)
	}

	result := make([]tracker.Commit, 0, len(commits))
	for _, rc := range commits {
		result = append(result, tracker.Commit{
			SHA:        rc.GetSHA(),
			Message:    rc.GetCommit().GetMessage(),
			AuthoredAt: rc.GetCommit().GetAuthor().GetDate().Time,
		})
	}
	return result, nil
}

// CommitFiles returns the modified file paths of one commit.
func (c *Client) CommitFiles(ctx context.Context, owner, repo, sha string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	rc, _, err := c.client.Repositories.GetCommit(ctx, owner, repo, sha, nil)
	if err != nil {
		return nil, classify(err)
	}

	files := make([]string, 0, len(rc.Files))
	for _, f := range rc.Files {
		files = append(files, f.GetFilename())
	}
	return files, nil
}

// DefaultBranch returns the repository's current default branch name.
func (c *Client) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	r, _, err := c.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return "", classify(err)
	}
	return r.GetDefaultBranch(), nil
}

// RateLimits returns the current API rate limit status.
func (c *Client) RateLimits(ctx context.Context) (*github.RateLimits, error) {
	limits, _, err := c.client.RateLimit.Get(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return limits, nil
}

// classify maps GitHub API failures onto the tracker error taxonomy.
func classify(err error) error {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: %v", tracker.ErrTransient, err)
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		// 409 is GitHub's answer for an empty repository.
		case http.StatusNotFound, http.StatusConflict:
			return fmt.Errorf("%w: %v", tracker.ErrNotFound, err)
		}
	}

	return fmt.Errorf("%w: %v", tracker.ErrTransient, err)
}
