package delivery

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// retryAfter reads the retry_after field (seconds) from a throttled
// response body. Missing, non-JSON or non-numeric bodies yield def.
func retryAfter(body string, def time.Duration) time.Duration {
	body = strings.TrimSpace(body)
	if body == "" || !gjson.Valid(body) {
		return def
	}
	v := gjson.Get(body, "retry_after")

	var secs float64
	switch v.Type {
	case gjson.Number:
		secs = v.Float()
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return def
		}
		secs = f
	default:
		return def
	}
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return def
	}
	return time.Duration(secs * float64(time.Second))
}

func clamp(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
