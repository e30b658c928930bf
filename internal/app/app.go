package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"arxivrelay/internal/config"
	"arxivrelay/internal/delivery"
	"arxivrelay/internal/feed"
	"arxivrelay/internal/metrics"
	"arxivrelay/internal/relay"
	"arxivrelay/internal/schedule"
	"arxivrelay/internal/storage"
	logx "arxivrelay/pkg/logx"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App wires settings, topics and the relay runner for one process.
type App struct {
	settings config.Settings
	topics   *config.TopicsManager

	log  logx.Logger
	logs *logx.Service

	store    storage.Store
	registry *prometheus.Registry
	runner   *relay.Runner

	// schedule is set when SCHEDULE enables daemon mode.
	schedule *schedule.Spec
}

// New validates everything a run needs before any topic is touched; every
// error it returns is a configuration failure.
func New(ctx context.Context, topicsPath string, s config.Settings, lookup config.Lookup) (*App, error) {
	if lookup == nil {
		lookup = config.EnvLookup()
	}
	logSvc, log := logx.New(mapLogConfig(s.Logging))
	log = log.With(logx.String("comp", "app"))

	a := &App{settings: s, log: log, logs: logSvc}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	a.topics = config.NewTopicsManager(topicsPath)
	a.topics.SetLogger(log.With(logx.String("comp", "topics")))
	tf, err := a.topics.Load()
	if err != nil {
		return nil, err
	}

	mode, err := relay.ParseMode(s.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: MODE: %v", config.ErrInvalidSetting, err)
	}
	if strings.TrimSpace(s.Schedule) != "" {
		spec, err := schedule.ParseSchedule(s.Schedule)
		if err != nil {
			return nil, fmt.Errorf("%w: SCHEDULE: %v", config.ErrInvalidSetting, err)
		}
		a.schedule = &spec
	}

	if sc, enabled := mapStorageConfig(s.Store); enabled {
		st, err := storage.Open(ctx, sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		a.store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(a.registry)

	// One client for every webhook post of the process; per-request deadlines
	// come from the delivery policy.
	router := &delivery.Router{Webhook: delivery.NewWebhookPoster(&http.Client{})}
	if s.Telegram.Token != "" {
		tp, err := delivery.NewTelegramPoster(s.Telegram.Token, s.Telegram.APIURL, s.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("%w: TELEGRAM_BOT_TOKEN: %v", config.ErrInvalidSetting, err)
		}
		router.Telegram = tp
	}
	sender := delivery.New(router, delivery.Policy{
		MaxRetries:     s.MaxRetries429,
		RequestTimeout: s.RequestTimeout,
	}, delivery.WithLogger(log.With(logx.String("comp", "delivery"))))

	window := relay.LastDays(s.TimeFrameDays)
	if s.TimeFrameAll {
		window = relay.AllTime()
	}
	opts := []relay.Option{
		relay.WithMetrics(m),
		relay.WithLogger(log.With(logx.String("comp", "relay"))),
	}
	if a.store != nil {
		opts = append(opts, relay.WithStore(a.store))
	}
	a.runner = relay.NewRunner(relay.Options{
		Window:           window,
		Mode:             mode,
		ChunkLimit:       s.ChunkLimit,
		MaxPostsPerTopic: s.MaxPostsPerTopic,
		MaxResults:       s.MaxResults,
		PostDelay:        s.PostDelay,
	}, feed.NewFetcher(nil), sender, destinationResolver(lookup), opts...)

	log.Info("arxivrelay configured",
		logx.String("topics_file", topicsPath),
		logx.Int("topics", len(tf.Topics)),
		logx.String("time_frame", s.TimeFrame),
		logx.String("mode", mode.String()),
		logx.Int("max_posts_per_topic", s.MaxPostsPerTopic),
		logx.Bool("telegram", router.Telegram != nil),
		logx.Bool("daemon", a.schedule != nil),
	)
	ok = true
	return a, nil
}

func destinationResolver(lookup config.Lookup) relay.Resolver {
	return func(name string) string {
		v, _ := lookup(name)
		return strings.TrimSpace(v)
	}
}

// Daemon reports whether SCHEDULE asked for repeated runs.
func (a *App) Daemon() bool { return a.schedule != nil }

// Logger returns the app logger.
func (a *App) Logger() logx.Logger { return a.log }

// RunOnce processes the current topic list once.
func (a *App) RunOnce(ctx context.Context) relay.Report {
	tf := a.topics.Get()
	if tf == nil || len(tf.Topics) == 0 {
		a.log.Warn("no topics configured; nothing to do", logx.String("path", a.topics.Path()))
		return relay.Report{}
	}
	return a.runner.Run(ctx, tf.Topics)
}

func (a *App) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close failed", logx.Err(err))
		}
		a.store = nil
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
}
