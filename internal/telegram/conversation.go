package telegram

import "sync"

// Onboarding is a linear three-step form: repository owner, repository
// name, then branch. At most one dialogue per chat.
type convState int

const (
	stateRepoOwner convState = iota
	stateRepoName
	stateBranch
)

// dialog holds the partial answers of one chat's onboarding dialogue.
type dialog struct {
	state    convState
	owner    string
	repo     string
	threadID int64
}

// conversations tracks active onboarding dialogues by chat id.
type conversations struct {
	mu     sync.Mutex
	active map[int64]*dialog
}

func newConversations() *conversations {
	return &conversations{active: make(map[int64]*dialog)}
}

// begin starts (or restarts) the dialogue for a chat.
func (c *conversations) begin(chatID, threadID int64) *dialog {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := &dialog{state: stateRepoOwner, threadID: threadID}
	c.active[chatID] = d
	return d
}

// get returns the active dialogue for a chat, or nil.
func (c *conversations) get(chatID int64) *dialog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active[chatID]
}

// end discards the dialogue for a chat, if any.
func (c *conversations) end(chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, chatID)
}
