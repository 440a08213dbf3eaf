// Package notifier formats commits and delivers them over Telegram.
package notifier

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/committracker/internal/tracker"
)

// Notifier implements tracker.Transport over the Telegram Bot API.
type Notifier struct {
	api *tgbotapi.BotAPI
}

// NewNotifier creates a notifier instance.
func NewNotifier(api *tgbotapi.BotAPI) *Notifier {
	return &Notifier{api: api}
}

// Deliver sends a formatted HTML message to the target chat (and topic
// thread, when set). The raw sendMessage call is used because the typed
// message configs predate topic threads.
func (n *Notifier) Deliver(target tracker.Target, text string) error {
	params := tgbotapi.Params{
		"chat_id":    strconv.FormatInt(target.ChatID, 10),
		"text":       text,
		"parse_mode": tgbotapi.ModeHTML,
	}
	params.AddBool("disable_web_page_preview", true)
	params.AddNonZero64("message_thread_id", target.ThreadID)

	if _, err := n.api.MakeRequest("sendMessage", params); err != nil {
		return fmt.Errorf("%w: %v", tracker.ErrDeliveryFailed, err)
	}
	return nil
}
