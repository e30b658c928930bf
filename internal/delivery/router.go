package delivery

import (
	"context"
	"fmt"
	"strings"
)

// Router dispatches each post to the poster that owns the destination:
// http(s) URLs go to the webhook poster, telegram: targets to Telegram.
type Router struct {
	Webhook  Poster
	Telegram Poster
}

func (r *Router) Post(ctx context.Context, dest, content string) (Response, error) {
	low := strings.ToLower(strings.TrimSpace(dest))
	switch {
	case strings.HasPrefix(low, TelegramScheme):
		if r.Telegram == nil {
			return Response{}, ErrTelegramDisabled
		}
		return r.Telegram.Post(ctx, dest, content)
	case strings.HasPrefix(low, "https://"), strings.HasPrefix(low, "http://"):
		if r.Webhook == nil {
			return Response{}, fmt.Errorf("%w: no webhook poster", ErrUnsupportedDestination)
		}
		return r.Webhook.Post(ctx, strings.TrimSpace(dest), content)
	default:
		return Response{}, fmt.Errorf("%w: %q", ErrUnsupportedDestination, redact(dest))
	}
}

// redact keeps webhook secrets out of logs and error strings.
func redact(dest string) string {
	if len(dest) <= 12 {
		return dest
	}
	return dest[:12] + "..."
}
