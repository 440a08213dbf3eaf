// Package storage provides database operations and data models.
package storage

import (
	"database/sql"
	"time"
)

// Subscription represents one tracked (repository, branch) pair for a chat.
// There is at most one subscription per chat_id.
type Subscription struct {
	ID           int64          `db:"id"`
	ChatID       int64          `db:"chat_id"`
	RepoOwner    string         `db:"repo_owner"`
	RepoName     string         `db:"repo_name"`
	BranchName   sql.NullString `db:"branch_name"` // NULL means the repository default branch
	WatermarkSHA string         `db:"watermark_sha"`
	ThreadID     sql.NullInt64  `db:"thread_id"` // Telegram topic thread, NULL for plain chats
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// Branch returns the tracked branch name, or "" when the subscription
// follows the repository default branch.
func (s *Subscription) Branch() string {
	if s.BranchName.Valid {
		return s.BranchName.String
	}
	return ""
}

// Thread returns the Telegram thread id, or 0 when the chat has no topics.
func (s *Subscription) Thread() int64 {
	if s.ThreadID.Valid {
		return s.ThreadID.Int64
	}
	return 0
}

// NullBranch wraps a branch name for storage; "" maps to NULL.
func NullBranch(branch string) sql.NullString {
	return sql.NullString{String: branch, Valid: branch != ""}
}

// NullThread wraps a thread id for storage; 0 maps to NULL.
func NullThread(threadID int64) sql.NullInt64 {
	return sql.NullInt64{Int64: threadID, Valid: threadID != 0}
}
