// Package telegram provides the Telegram bot surface: the update loop,
// command handling, and the conversational onboarding dialogue.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/committracker/pkg/logger"
)

// updateTimeout is the long-poll timeout for getUpdates, in seconds.
const updateTimeout = 15

// incomingMessage extends the library message with topic-thread fields
// the v5 typed structs predate.
type incomingMessage struct {
	tgbotapi.Message
	MessageThreadID int64 `json:"message_thread_id"`
	IsTopicMessage  bool  `json:"is_topic_message"`
}

// incomingUpdate mirrors the subset of the update payload the bot reads.
type incomingUpdate struct {
	UpdateID int              `json:"update_id"`
	Message  *incomingMessage `json:"message"`
}

// Bot represents the Telegram bot.
type Bot struct {
	api      *tgbotapi.BotAPI
	handlers *Handlers
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewBot creates a new Telegram bot instance.
func NewBot(token string, debug bool, handlers *Handlers) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	api.Debug = debug
	// Headroom over the long-poll timeout so a wedged send cannot hang
	// a poll cycle forever.
	api.Client = &http.Client{Timeout: (updateTimeout + 15) * time.Second}

	logger.Info().Str("username", api.Self.UserName).Msg("Telegram bot authorized")

	ctx, cancel := context.WithCancel(context.Background())
	handlers.api = api
	handlers.startTime = time.Now()

	return &Bot{
		api:      api,
		handlers: handlers,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start begins the update loop.
func (b *Bot) Start() {
	b.wg.Add(1)
	go b.pollUpdates()
	logger.Info().Msg("Telegram bot started, listening for updates")
}

// Stop gracefully stops the bot. Blocks until the in-flight long poll
// returns, at most updateTimeout seconds.
func (b *Bot) Stop() {
	logger.Info().Msg("Stopping Telegram bot")
	b.cancel()
	b.wg.Wait()
}

// API returns the underlying bot API for direct access.
func (b *Bot) API() *tgbotapi.BotAPI {
	return b.api
}

// pollUpdates runs getUpdates directly instead of the library's update
// channel so message_thread_id survives parsing.
func (b *Bot) pollUpdates() {
	defer b.wg.Done()

	offset := 0
	for {
		select {
		case <-b.ctx.Done():
			return
		default:
		}

		params := tgbotapi.Params{}
		params.AddNonZero("offset", offset)
		params.AddNonZero("timeout", updateTimeout)

		resp, err := b.api.MakeRequest("getUpdates", params)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to fetch updates")
			select {
			case <-b.ctx.Done():
				return
			case <-time.After(3 * time.Second):
			}
			continue
		}

		var updates []incomingUpdate
		if err := json.Unmarshal(resp.Result, &updates); err != nil {
			logger.Error().Err(err).Msg("Failed to decode updates")
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if u.Message != nil {
				b.handlers.HandleMessage(u.Message)
			}
		}
	}
}

// sendHTML sends an HTML-formatted message, threading it into a topic
// when threadID is non-zero.
func sendHTML(api *tgbotapi.BotAPI, chatID, threadID int64, text string) error {
	params := tgbotapi.Params{
		"chat_id":    strconv.FormatInt(chatID, 10),
		"text":       text,
		"parse_mode": tgbotapi.ModeHTML,
	}
	params.AddBool("disable_web_page_preview", true)
	params.AddNonZero64("message_thread_id", threadID)

	_, err := api.MakeRequest("sendMessage", params)
	return err
}
