package app

import (
	"context"
	"errors"
	"net/http"
	hpprof "net/http/pprof"
	"time"

	"arxivrelay/internal/config"
	"arxivrelay/internal/runtime/supervisor"
	"arxivrelay/internal/schedule"
	logx "arxivrelay/pkg/logx"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

// Serve runs on the configured schedule until ctx is done. The topics file
// is watched so edits apply to the next run.
func (a *App) Serve(ctx context.Context) error {
	if a.schedule == nil {
		return errors.New("serve requires SCHEDULE")
	}

	sup := supervisor.New(ctx, supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))))

	if addr := a.settings.MetricsAddr; addr != "" {
		h := a.metricsHandler()
		sup.GoRestart("metrics.http", time.Second, 30*time.Second, func(ctx context.Context) error {
			return serveHTTP(ctx, addr, h, a.log)
		})
	}

	sup.Go("topics.watch", a.topics.Watch)
	sup.Go("topics.log", func(ctx context.Context) error {
		a.logTopicChanges(ctx)
		return nil
	})

	sched := schedule.New(*a.schedule, func(ctx context.Context) { a.RunOnce(ctx) },
		schedule.WithRunOnStart(),
		schedule.WithLogger(a.log.With(logx.String("comp", "schedule"))),
	)
	done := make(chan error, 1)
	sup.Go("schedule", func(ctx context.Context) error {
		err := sched.Run(ctx)
		done <- err
		return err
	})

	notify(a.log, daemon.SdNotifyReady)
	var err error
	select {
	case err = <-done:
	case <-sup.Context().Done():
	}
	notify(a.log, daemon.SdNotifyStopping)
	a.log.Info("shutting down")

	// The scheduler waits for an in-flight run, so there is no deadline here.
	if serr := sup.Stop(context.Background()); err == nil {
		err = serr
	}
	return err
}

func serveHTTP(ctx context.Context, addr string, h http.Handler, log logx.Logger) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info("metrics listening", logx.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(sctx)
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (a *App) metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	if a.settings.MetricsPprof {
		mux.HandleFunc("/debug/pprof/", hpprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", hpprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", hpprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", hpprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", hpprof.Trace)
	}
	return mux
}

func (a *App) logTopicChanges(ctx context.Context) {
	ch := a.topics.Subscribe(1)
	defer a.topics.Unsubscribe(ch)
	prev := a.topics.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case tf, ok := <-ch:
			if !ok {
				return
			}
			_, _, _, attrs := config.SummarizeTopicsChange(prev, tf)
			a.log.Info("topics changed; next run uses the new list", attrs...)
			prev = tf
		}
	}
}

// notify is a no-op outside systemd (NOTIFY_SOCKET unset).
func notify(log logx.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Warn("systemd notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		log.Debug("systemd notified", logx.String("state", state))
	}
}
