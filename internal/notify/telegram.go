package notify

import (
	"log/slog"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"bklreg/internal/config"
	"bklreg/lib/sl"
)

// Notifier delivers operational alerts to a Telegram chat. It backs the
// alert slog handler; there is no interactive bot here.
type Notifier struct {
	api    *tgbotapi.Bot
	chatId int64
	log    *slog.Logger
}

func New(conf *config.Config, log *slog.Logger) (*Notifier, error) {
	if !conf.Telegram.Enabled {
		return nil, nil
	}
	api, err := tgbotapi.NewBot(conf.Telegram.ApiKey, nil)
	if err != nil {
		return nil, err
	}
	return &Notifier{
		api:    api,
		chatId: conf.Telegram.ChatId,
		log:    log.With(sl.Module("notify")),
	}, nil
}

// Send posts one alert message. Markdown failures fall back to plain text;
// a delivery failure is logged and swallowed, alerts never break the
// request that triggered them.
func (n *Notifier) Send(msg string) {
	if n == nil || msg == "" {
		return
	}
	_, err := n.api.SendMessage(n.chatId, msg, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		n.log.Warn("sending alert", sl.Err(err))
		_, err = n.api.SendMessage(n.chatId, msg, nil)
		if err != nil {
			n.log.Error("sending alert fallback", sl.Err(err))
		}
	}
}

// Sanitize escapes MarkdownV2 reserved characters.
func Sanitize(input string) string {
	reservedChars := "\\_{}#+-.!|()[]=*"
	sanitized := ""
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			sanitized += "\\" + string(char)
		} else {
			sanitized += string(char)
		}
	}
	return sanitized
}
