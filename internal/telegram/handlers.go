package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/committracker/internal/github"
	"github.com/user/committracker/internal/storage"
	"github.com/user/committracker/internal/tracker"
	"github.com/user/committracker/pkg/logger"
)

// subscribeTimeout bounds the head-resolution call during onboarding.
const subscribeTimeout = 15 * time.Second

// Handlers manages command and dialogue handling for the bot.
type Handlers struct {
	api        *tgbotapi.BotAPI
	controller *tracker.Controller
	store      *storage.SubscriptionStore
	ghClient   *github.Client
	sched      *tracker.Scheduler
	convs      *conversations
	startTime  time.Time
}

// NewHandlers creates a new handlers instance. The bot API is attached
// by NewBot.
func NewHandlers(controller *tracker.Controller, store *storage.SubscriptionStore, ghClient *github.Client, sched *tracker.Scheduler) *Handlers {
	return &Handlers{
		controller: controller,
		store:      store,
		ghClient:   ghClient,
		sched:      sched,
		convs:      newConversations(),
	}
}

// HandleMessage routes an incoming message to a command handler or to
// the active onboarding dialogue.
func (h *Handlers) HandleMessage(msg *incomingMessage) {
	if msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	threadID := msg.MessageThreadID

	if msg.IsCommand() {
		h.handleCommand(chatID, threadID, msg.Command(), msg.CommandArguments())
		return
	}

	if text := strings.TrimSpace(msg.Text); text != "" {
		h.handleDialogueInput(chatID, threadID, text)
	}
}

func (h *Handlers) handleCommand(chatID, threadID int64, command, args string) {
	logger.Debug().
		Str("command", command).
		Int64("chat_id", chatID).
		Msg("Received command")

	switch command {
	case "start":
		h.handleStart(chatID, threadID)
	case "help":
		h.handleHelp(chatID, threadID)
	case "skip":
		h.handleSkip(chatID, threadID)
	case "cancel":
		h.handleCancel(chatID, threadID)
	case "unsubscribe", "unsub", "unscribe":
		h.handleUnsubscribe(chatID, threadID)
	case "list":
		h.handleList(chatID, threadID)
	case "status":
		h.handleStatus(chatID, threadID)
	default:
		h.reply(chatID, threadID, "Unknown command. Use /help to see available commands.")
	}
}

// handleStart begins the onboarding dialogue.
func (h *Handlers) handleStart(chatID, threadID int64) {
	h.convs.begin(chatID, threadID)
	h.reply(chatID, threadID,
		`Welcome to the <b>Commit Tracker Bot</b>. Please insert the <b>repository owner</b> (e.g., "octocat").`)
}

// handleDialogueInput advances the onboarding dialogue one step.
func (h *Handlers) handleDialogueInput(chatID, threadID int64, text string) {
	d := h.convs.get(chatID)
	if d == nil {
		return
	}

	switch d.state {
	case stateRepoOwner:
		d.owner = text
		d.state = stateRepoName
		h.reply(chatID, threadID,
			`Great! Now please insert the <b>repository name</b> (e.g., "Spoon-Knife").`)
	case stateRepoName:
		d.repo = text
		d.state = stateBranch
		h.reply(chatID, threadID,
			"Got it. Now, please specify the <b>branch name</b> you want to track "+
				`(e.g., "main", "develop").`+"\n\n"+
				`If you want to track the <b>default branch</b>, you can send /skip or just type "default".`)
	case stateBranch:
		branch := text
		if strings.EqualFold(branch, "default") {
			branch = ""
		}
		h.completeOnboarding(chatID, d, branch)
	}
}

// handleSkip handles /skip at the branch step of the dialogue.
func (h *Handlers) handleSkip(chatID, threadID int64) {
	d := h.convs.get(chatID)
	if d == nil || d.state != stateBranch {
		h.reply(chatID, threadID, "Nothing to skip. Use /start to set up a subscription.")
		return
	}
	h.completeOnboarding(chatID, d, "")
}

// handleCancel aborts the onboarding dialogue.
func (h *Handlers) handleCancel(chatID, threadID int64) {
	if h.convs.get(chatID) == nil {
		h.reply(chatID, threadID, "No setup in progress.")
		return
	}
	h.convs.end(chatID)
	h.reply(chatID, threadID, "Setup cancelled. Use /start to begin again.")
}

// completeOnboarding hands the collected form to the lifecycle
// controller. The dialogue ends either way; resolution failure requires
// the user to restart it.
func (h *Handlers) completeOnboarding(chatID int64, d *dialog, branch string) {
	h.convs.end(chatID)

	branchDisplay := branch
	if branchDisplay == "" {
		branchDisplay = "default"
	}
	repoLabel := fmt.Sprintf("%s/%s", html.EscapeString(d.owner), html.EscapeString(d.repo))

	ctx, cancel := context.WithTimeout(context.Background(), subscribeTimeout)
	defer cancel()

	err := h.controller.Subscribe(ctx, chatID, d.owner, d.repo, branch, d.threadID)
	switch {
	case err == nil:
		h.reply(chatID, d.threadID, fmt.Sprintf(
			"You are now subscribed to the repository <b>%s</b> (branch: <b>%s</b>).",
			repoLabel, html.EscapeString(branchDisplay)))
		h.reply(chatID, d.threadID, "You will receive a message when a new commit is pushed.")
	case errors.Is(err, tracker.ErrNotFound):
		h.reply(chatID, d.threadID, fmt.Sprintf(
			`Could not find the repository <b>%s</b> or branch "<b>%s</b>". Please check the details and try /start again.`,
			repoLabel, html.EscapeString(branchDisplay)))
	default:
		logger.Error().Err(err).Int64("chat_id", chatID).Str("repo", d.owner+"/"+d.repo).Msg("Onboarding failed")
		h.reply(chatID, d.threadID, fmt.Sprintf(
			`Error: Could not access the repository <b>%s</b> (branch: "<b>%s</b>"). Please retry with /start.`,
			repoLabel, html.EscapeString(branchDisplay)))
	}
}

// handleUnsubscribe cancels the chat's poll job and removes its record.
func (h *Handlers) handleUnsubscribe(chatID, threadID int64) {
	h.convs.end(chatID)

	removed, err := h.controller.Unsubscribe(chatID)
	if err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to unsubscribe")
		h.reply(chatID, threadID, "Failed to unsubscribe, please try again later.")
		return
	}
	if !removed {
		h.reply(chatID, threadID, "You have no active subscription.")
		return
	}
	h.reply(chatID, threadID, "Successfully unsubscribed.")
}

// handleList shows the chat's current subscription.
func (h *Handlers) handleList(chatID, threadID int64) {
	sub, err := h.store.Get(chatID)
	if err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to read subscription")
		h.reply(chatID, threadID, "Failed to read your subscription, please try again later.")
		return
	}
	if sub == nil {
		h.reply(chatID, threadID, "You have no active subscription. Use /start to set one up.")
		return
	}

	branch := sub.Branch()
	if branch == "" {
		branch = "default"
	}
	h.reply(chatID, threadID, fmt.Sprintf(
		"Tracking <b>%s/%s</b> (branch: <b>%s</b>).",
		html.EscapeString(sub.RepoOwner), html.EscapeString(sub.RepoName), html.EscapeString(branch)))
}

// handleHelp sends command help.
func (h *Handlers) handleHelp(chatID, threadID int64) {
	h.reply(chatID, threadID, `<b>Commit Tracker Bot</b>

/start - subscribe to a repository (guided setup)
/skip - track the default branch (during setup)
/cancel - abort the setup
/list - show your current subscription
/unsubscribe - stop tracking
/status - bot status

During setup you will be asked for the repository owner, the repository name, and the branch to track. Once subscribed, every new commit on the tracked branch is delivered here.`)
}

// handleStatus shows bot status information.
func (h *Handlers) handleStatus(chatID, threadID int64) {
	uptime := formatDuration(time.Since(h.startTime))

	subCount, err := h.store.Count()
	if err != nil {
		subCount = -1
	}

	rateLimitInfo := "unknown"
	if h.ghClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		limits, err := h.ghClient.RateLimits(ctx)
		if err == nil && limits != nil && limits.Core != nil {
			resetIn := time.Until(limits.Core.Reset.Time)
			rateLimitInfo = fmt.Sprintf("%d/%d (resets in %s)",
				limits.Core.Remaining, limits.Core.Limit, formatDuration(resetIn))
		}
	}

	h.reply(chatID, threadID, fmt.Sprintf(`<b>Bot status</b>

Uptime: %s
Subscriptions: %d
Active poll jobs: %d
GitHub API quota: %s`,
		uptime, subCount, h.sched.ActiveJobs(), rateLimitInfo))
}

// formatDuration formats a duration to a human-readable string.
func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	} else if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// reply sends an HTML-formatted reply into the originating chat/thread.
func (h *Handlers) reply(chatID, threadID int64, text string) {
	if err := sendHTML(h.api, chatID, threadID, text); err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send reply")
	}
}
