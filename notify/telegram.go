package notify

import (
	"fmt"
	"html"
	"strings"

	"suggestguard/utils"
)

// DefaultTelegramAPI is the Bot API base URL.
const DefaultTelegramAPI = "https://api.telegram.org"

// NewTelegramNotifier creates a notifier that sends messages through the
// Telegram Bot API sendMessage method. An empty apiBase uses
// DefaultTelegramAPI.
func NewTelegramNotifier(apiBase, botToken, chatID string, logger *utils.Logger) *WebhookNotifier {
	if apiBase == "" {
		apiBase = DefaultTelegramAPI
	}
	url := strings.TrimRight(apiBase, "/") + "/bot" + botToken + "/sendMessage"

	n := NewWebhookNotifier(url, logger)
	n.name = "telegram"
	n.format = func(ev Event) any {
		return map[string]string{
			"chat_id":    chatID,
			"text":       TelegramText(ev),
			"parse_mode": "HTML",
		}
	}
	return n
}

// TelegramText renders ev as a Telegram HTML message.
func TelegramText(ev Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 <b>%s</b>: %d new negative suggestion(s)\n\n",
		html.EscapeString(ev.BrandName), len(ev.NewNegativeSuggestions))
	for _, s := range ev.NewNegativeSuggestions {
		fmt.Fprintf(&b, "• #%d <b>%s</b>", s.Rank+1, html.EscapeString(s.Text))
		if s.Category != "" {
			fmt.Fprintf(&b, " [%s]", s.Category)
		}
		b.WriteString("\n")
	}
	return b.String()
}
