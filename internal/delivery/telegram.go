package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

// TelegramScheme prefixes Telegram destinations: telegram:<chat_id>[:<thread_id>].
const TelegramScheme = "telegram:"

// TelegramTarget is a parsed Telegram destination.
type TelegramTarget struct {
	ChatID   int64
	ThreadID int
}

// ParseTelegramTarget parses "telegram:<chat_id>[:<thread_id>]".
func ParseTelegramTarget(dest string) (TelegramTarget, error) {
	s := strings.TrimSpace(dest)
	if !strings.HasPrefix(strings.ToLower(s), TelegramScheme) {
		return TelegramTarget{}, fmt.Errorf("%w: %q", ErrUnsupportedDestination, dest)
	}
	parts := strings.Split(s[len(TelegramScheme):], ":")
	if len(parts) == 0 || len(parts) > 2 {
		return TelegramTarget{}, fmt.Errorf("invalid telegram destination %q", dest)
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil || chatID == 0 {
		return TelegramTarget{}, fmt.Errorf("invalid telegram chat id in %q", dest)
	}
	to := TelegramTarget{ChatID: chatID}
	if len(parts) == 2 {
		tid, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || tid < 0 {
			return TelegramTarget{}, fmt.Errorf("invalid telegram thread id in %q", dest)
		}
		to.ThreadID = tid
	}
	return to, nil
}

// TelegramPoster sends messages through the Telegram Bot API.
//
// Messages are sent as plain text: the markdown emphasis used for webhook
// payloads is stripped because arXiv titles routinely contain characters
// that Telegram's legacy markdown parser rejects.
type TelegramPoster struct {
	bot *tele.Bot
}

const defaultTelegramTimeout = 20 * time.Second

// NewTelegramPoster creates an offline bot (no getMe round trip, no poller).
// apiURL may be empty to use the public Bot API. timeout bounds every Bot API
// request; telebot does not pass a caller context to its HTTP client.
func NewTelegramPoster(token, apiURL string, timeout time.Duration) (*TelegramPoster, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if timeout <= 0 {
		timeout = defaultTelegramTimeout
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     apiURL,
		Token:   token,
		Client:  &http.Client{Timeout: timeout},
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	return &TelegramPoster{bot: b}, nil
}

func (p *TelegramPoster) Post(ctx context.Context, dest, content string) (Response, error) {
	to, err := ParseTelegramTarget(dest)
	if err != nil {
		return Response{}, err
	}
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	opt := &tele.SendOptions{
		DisableWebPagePreview: true,
		ThreadID:              to.ThreadID,
	}

	// Send ignores ctx; an abandoned request still ends at the client timeout.
	done := make(chan error, 1)
	go func() {
		_, err := p.bot.Send(tele.ChatID(to.ChatID), plainText(content), opt)
		done <- err
	}()
	select {
	case err := <-done:
		return telegramResponse(err)
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// telegramResponse maps Bot API errors onto webhook-style responses so the
// delivery state machine treats both transports the same way.
func telegramResponse(err error) (Response, error) {
	if err == nil {
		return Response{StatusCode: http.StatusOK}, nil
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return Response{
			StatusCode: http.StatusTooManyRequests,
			Body:       fmt.Sprintf(`{"retry_after":%d}`, flood.RetryAfter),
		}, nil
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) && apiErr.Code > 0 {
		return Response{StatusCode: apiErr.Code, Body: apiErr.Description}, nil
	}
	return Response{}, err
}

func plainText(s string) string {
	return strings.ReplaceAll(s, "**", "")
}
