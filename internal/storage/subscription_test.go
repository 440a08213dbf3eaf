package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SubscriptionStore {
	t.Helper()
	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSubscriptionStore(db)
}

func testSub(chatID int64) Subscription {
	return Subscription{
		ChatID:       chatID,
		RepoOwner:    "octocat",
		RepoName:     "Hello-World",
		WatermarkSHA: "AAA",
	}
}

func TestUpsertAndGet(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Upsert(testSub(42)))

	sub, err := store.Get(42)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, int64(42), sub.ChatID)
	assert.Equal(t, "octocat", sub.RepoOwner)
	assert.Equal(t, "Hello-World", sub.RepoName)
	assert.Equal(t, "AAA", sub.WatermarkSHA)
	assert.False(t, sub.BranchName.Valid)
	assert.False(t, sub.ThreadID.Valid)
}

func TestGetMissingReturnsNil(t *testing.T) {
	store := newTestStore(t)

	sub, err := store.Get(42)
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestUpsertNeverDuplicates(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Upsert(testSub(42)))

	second := testSub(42)
	second.RepoName = "Spoon-Knife"
	second.BranchName = NullBranch("develop")
	second.WatermarkSHA = "BBB"
	require.NoError(t, store.Upsert(second))

	subs, err := store.ListAll()
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Spoon-Knife", subs[0].RepoName)
	assert.Equal(t, "develop", subs[0].Branch())
	assert.Equal(t, "BBB", subs[0].WatermarkSHA)
}

func TestUpsertPreservesWatermarkWhenEmpty(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Upsert(testSub(42)))

	// Re-running onboarding without a freshly resolved head keeps the
	// delivery progress.
	update := testSub(42)
	update.RepoName = "Spoon-Knife"
	update.WatermarkSHA = ""
	require.NoError(t, store.Upsert(update))

	sub, err := store.Get(42)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "Spoon-Knife", sub.RepoName)
	assert.Equal(t, "AAA", sub.WatermarkSHA)
}

func TestUpsertInsertWithEmptyWatermark(t *testing.T) {
	store := newTestStore(t)

	sub := testSub(42)
	sub.WatermarkSHA = ""
	require.NoError(t, store.Upsert(sub))

	got, err := store.Get(42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "", got.WatermarkSHA, "empty watermark means nothing reported yet")
}

func TestRemoveIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Upsert(testSub(42)))

	removed, err := store.Remove(42)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Remove(42)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = store.Remove(999)
	require.NoError(t, err)
	assert.False(t, removed)

	subs, err := store.ListAll()
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestAdvanceWatermark(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Upsert(testSub(42)))
	require.NoError(t, store.AdvanceWatermark(42, "CCC"))

	sub, err := store.Get(42)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "CCC", sub.WatermarkSHA)
}

func TestAdvanceWatermarkMissingChatIsNoop(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.AdvanceWatermark(42, "CCC"))

	subs, err := store.ListAll()
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestThreadAndBranchRoundTrip(t *testing.T) {
	store := newTestStore(t)

	sub := testSub(42)
	sub.BranchName = NullBranch("release/v2")
	sub.ThreadID = NullThread(777)
	require.NoError(t, store.Upsert(sub))

	got, err := store.Get(42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "release/v2", got.Branch())
	assert.Equal(t, int64(777), got.Thread())
}

func TestCount(t *testing.T) {
	store := newTestStore(t)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, store.Upsert(testSub(1)))
	require.NoError(t, store.Upsert(testSub(2)))
	require.NoError(t, store.Upsert(testSub(2))) // same chat, still one record

	count, err = store.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
