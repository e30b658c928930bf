package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Lookup resolves one environment variable. os.LookupEnv satisfies it.
type Lookup func(key string) (string, bool)

// EnvLookup reads the process environment.
func EnvLookup() Lookup { return os.LookupEnv }

// Defaults for unset settings.
const (
	DefaultTimeFrame        = "1"
	DefaultMode             = "auto"
	DefaultRequestTimeout   = 20 * time.Second
	DefaultPostDelay        = 400 * time.Millisecond
	DefaultMaxRetries429    = 8
	DefaultChunkLimit       = 1800
	DefaultMaxPostsPerTopic = 0
	DefaultMaxResults       = 50
	DefaultLogLevel         = "info"
)

// Settings is the process-wide configuration, built once at startup and
// passed explicitly to every component that needs it.
type Settings struct {
	// TimeFrame is the normalized TIME_FRAME value ("all" or a day count).
	TimeFrame     string
	TimeFrameDays int
	TimeFrameAll  bool

	// Mode is the raw MODE value, lowercased.
	Mode string

	RequestTimeout   time.Duration
	PostDelay        time.Duration
	MaxRetries429    int
	ChunkLimit       int
	MaxPostsPerTopic int
	MaxResults       int

	Logging  LogSettings
	Store    StoreSettings
	Telegram TelegramSettings

	// Schedule enables daemon mode when non-empty (cron or interval).
	Schedule     string
	MetricsAddr  string
	// MetricsPprof mounts net/http/pprof under /debug/pprof/ on MetricsAddr.
	MetricsPprof bool
}

type LogSettings struct {
	Level          string
	Console        bool
	File           string
	FileMaxMB      int
	FileMaxBackups int
	FileMaxAgeDays int
}

type StoreSettings struct {
	Driver string
	Path   string
	DSN    string
}

type TelegramSettings struct {
	Token  string
	APIURL string
}

// LoadSettings reads every setting through lookup. Unset keys take their
// defaults; malformed values fail with ErrInvalidSetting.
func LoadSettings(lookup Lookup) (Settings, error) {
	if lookup == nil {
		lookup = EnvLookup()
	}
	r := reader{lookup: lookup}

	s := Settings{
		Mode:         strings.ToLower(r.str("MODE", DefaultMode)),
		Schedule:     r.str("SCHEDULE", ""),
		MetricsAddr:  r.str("METRICS_ADDR", ""),
		MetricsPprof: r.boolean("METRICS_PPROF", false),
		Logging: LogSettings{
			Level:          strings.ToLower(r.str("LOG_LEVEL", DefaultLogLevel)),
			Console:        r.boolean("LOG_CONSOLE", true),
			File:           r.str("LOG_FILE", ""),
			FileMaxMB:      r.intMin("LOG_FILE_MAX_MB", 50, 0),
			FileMaxBackups: r.intMin("LOG_FILE_MAX_BACKUPS", 5, 0),
			FileMaxAgeDays: r.intMin("LOG_FILE_MAX_AGE_DAYS", 30, 0),
		},
		Store: StoreSettings{
			Driver: strings.ToLower(r.str("STORE_DRIVER", "none")),
			Path:   r.str("STORE_PATH", ""),
			DSN:    r.str("STORE_DSN", ""),
		},
		Telegram: TelegramSettings{
			Token:  r.str("TELEGRAM_BOT_TOKEN", ""),
			APIURL: r.str("TELEGRAM_API_URL", ""),
		},
		MaxRetries429:    r.intMin("MAX_RETRIES_429", DefaultMaxRetries429, 0),
		ChunkLimit:       r.intMin("DISCORD_CHUNK_LIMIT", DefaultChunkLimit, 1),
		MaxPostsPerTopic: r.intMin("MAX_POSTS_PER_TOPIC", DefaultMaxPostsPerTopic, 0),
		MaxResults:       r.intMin("MAX_RESULTS", DefaultMaxResults, 1),
		RequestTimeout:   r.seconds("REQUEST_TIMEOUT", DefaultRequestTimeout),
		PostDelay:        r.seconds("POST_DELAY_SECONDS", DefaultPostDelay),
	}

	tf := strings.ToLower(r.str("TIME_FRAME", DefaultTimeFrame))
	if tf == "all" {
		s.TimeFrame, s.TimeFrameAll = tf, true
	} else if days, err := strconv.Atoi(tf); err != nil || days < 0 {
		r.fail("TIME_FRAME", tf, "want a non-negative number of days or \"all\"")
	} else {
		s.TimeFrame, s.TimeFrameDays = strconv.Itoa(days), days
	}

	if s.RequestTimeout <= 0 && r.err == nil {
		r.fail("REQUEST_TIMEOUT", s.RequestTimeout.String(), "must be > 0")
	}

	switch s.Store.Driver {
	case "", "none":
		s.Store.Driver = "none"
	case "file", "sqlite", "sqlite3":
		if s.Store.Path == "" {
			r.fail("STORE_PATH", "", "required for STORE_DRIVER="+s.Store.Driver)
		}
	case "postgres", "postgresql", "pgx":
		if s.Store.DSN == "" {
			r.fail("STORE_DSN", "", "required for STORE_DRIVER="+s.Store.Driver)
		}
	default:
		r.fail("STORE_DRIVER", s.Store.Driver, "want none, file, sqlite or postgres")
	}

	if r.err != nil {
		return Settings{}, r.err
	}
	return s, nil
}

// reader keeps the first failure so LoadSettings reads linearly.
type reader struct {
	lookup Lookup
	err    error
}

func (r *reader) fail(key, raw, why string) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s=%q: %s", ErrInvalidSetting, key, raw, why)
	}
}

func (r *reader) str(key, def string) string {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

func (r *reader) intMin(key string, def, min int) int {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		r.fail(key, raw, "not an integer")
		return def
	}
	if n < min {
		r.fail(key, raw, fmt.Sprintf("must be >= %d", min))
		return def
	}
	return n
}

func (r *reader) boolean(key string, def bool) bool {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		r.fail(key, raw, "not a boolean")
		return def
	}
	return b
}

func (r *reader) seconds(key string, def time.Duration) time.Duration {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	d, err := ParseSecondsField(key, raw)
	if err != nil {
		r.fail(key, raw, err.Error())
		return def
	}
	return d
}
