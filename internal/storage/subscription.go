package storage

import (
	"database/sql"
	"errors"
)

// SubscriptionStore handles subscription-related database operations.
type SubscriptionStore struct {
	db *Database
}

// NewSubscriptionStore creates a new subscription store.
func NewSubscriptionStore(db *Database) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// ListAll returns every stored subscription.
func (s *SubscriptionStore) ListAll() ([]Subscription, error) {
	var subs []Subscription
	query := `SELECT * FROM subscriptions ORDER BY chat_id`
	err := s.db.Select(&subs, query)
	return subs, err
}

// Get returns the subscription for a chat, or nil if none exists.
func (s *SubscriptionStore) Get(chatID int64) (*Subscription, error) {
	var sub Subscription
	query := `SELECT * FROM subscriptions WHERE chat_id = ?`
	err := s.db.Get(&sub, query, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Upsert inserts a subscription, or replaces the onboarding-supplied
// fields of an existing one. The stored watermark is preserved when the
// incoming subscription carries an empty watermark, so re-running
// onboarding does not lose delivery progress unless a fresh head was
// resolved.
func (s *SubscriptionStore) Upsert(sub Subscription) error {
	query := `
		INSERT INTO subscriptions (chat_id, repo_owner, repo_name, branch_name, watermark_sha, thread_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			repo_owner = excluded.repo_owner,
			repo_name = excluded.repo_name,
			branch_name = excluded.branch_name,
			thread_id = excluded.thread_id,
			watermark_sha = CASE
				WHEN excluded.watermark_sha = '' THEN subscriptions.watermark_sha
				ELSE excluded.watermark_sha
			END,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := s.db.Exec(query,
		sub.ChatID, sub.RepoOwner, sub.RepoName, sub.BranchName, sub.WatermarkSHA, sub.ThreadID)
	return err
}

// Remove deletes the subscription for a chat. Removing an absent chat is
// a no-op; the return value reports whether a record was deleted.
func (s *SubscriptionStore) Remove(chatID int64) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM subscriptions WHERE chat_id = ?`, chatID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// AdvanceWatermark atomically updates the watermark for one chat.
// A missing chat is a no-op.
func (s *SubscriptionStore) AdvanceWatermark(chatID int64, sha string) error {
	query := `UPDATE subscriptions SET watermark_sha = ?, updated_at = CURRENT_TIMESTAMP WHERE chat_id = ?`
	_, err := s.db.Exec(query, sha, chatID)
	return err
}

// Count returns the number of stored subscriptions.
func (s *SubscriptionStore) Count() (int, error) {
	var count int
	err := s.db.Get(&count, `SELECT COUNT(*) FROM subscriptions`)
	return count, err
}
