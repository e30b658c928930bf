package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"arxivrelay/internal/config"
	"arxivrelay/internal/delivery"
	"arxivrelay/internal/feed"
	"arxivrelay/internal/metrics"
	"arxivrelay/internal/storage"
	logx "arxivrelay/pkg/logx"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Source fetches the entries for a topic query.
type Source interface {
	Fetch(ctx context.Context, query string, maxResults int) (feed.Result, error)
}

// Sender delivers one message and reports how it went.
type Sender interface {
	Deliver(ctx context.Context, dest, payload string) delivery.Result
}

// Resolver maps a topic's webhook_env to its destination; "" means unset.
type Resolver func(envName string) string

// Options are the per-run knobs taken from settings.
type Options struct {
	Window           Window
	Mode             Mode
	ChunkLimit       int
	MaxPostsPerTopic int
	MaxResults       int
	// PostDelay spaces per-item messages; zero disables pacing.
	PostDelay time.Duration
}

// Runner processes topics sequentially. It is not safe for concurrent runs.
type Runner struct {
	opts    Options
	source  Source
	sender  Sender
	resolve Resolver

	store   storage.Store
	metrics *metrics.Relay
	log     logx.Logger
	now     func() time.Time
	runID   func() string
}

type Option func(*Runner)

// WithStore appends every outcome to st.
func WithStore(st storage.Store) Option { return func(r *Runner) { r.store = st } }

func WithMetrics(m *metrics.Relay) Option { return func(r *Runner) { r.metrics = m } }

func WithLogger(log logx.Logger) Option { return func(r *Runner) { r.log = log } }

// WithClock replaces time.Now for cutoff and report timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRunID replaces the uuid run id generator.
func WithRunID(fn func() string) Option {
	return func(r *Runner) {
		if fn != nil {
			r.runID = fn
		}
	}
}

func NewRunner(opts Options, source Source, sender Sender, resolve Resolver, o ...Option) *Runner {
	if opts.ChunkLimit <= 0 {
		opts.ChunkLimit = config.DefaultChunkLimit
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = config.DefaultMaxResults
	}
	if resolve == nil {
		resolve = func(string) string { return "" }
	}
	r := &Runner{
		opts:    opts,
		source:  source,
		sender:  sender,
		resolve: resolve,
		log:     logx.Nop(),
		now:     time.Now,
		runID:   uuid.NewString,
	}
	for _, fn := range o {
		fn(r)
	}
	if r.log.IsZero() {
		r.log = logx.Nop()
	}
	return r
}

// Run processes topics in order. A failing topic is logged, recorded in its
// outcome and does not stop the others. Cancellation stops before the next
// topic.
func (r *Runner) Run(ctx context.Context, topics []config.Topic) Report {
	rep := Report{RunID: r.runID(), StartedAt: r.now()}
	cutoff := r.opts.Window.Cutoff(rep.StartedAt)
	log := r.log.With(logx.String("run_id", rep.RunID))

	log.Info("run started",
		logx.Int("topics", len(topics)),
		logx.String("window", r.opts.Window.String()),
		logx.String("cutoff", cutoff.String()),
		logx.String("mode", r.opts.Mode.String()),
		logx.Int("max_posts_per_topic", r.opts.MaxPostsPerTopic),
	)

	for i, t := range topics {
		if err := ctx.Err(); err != nil {
			log.Warn("run cancelled; remaining topics not processed", logx.Int("remaining", len(topics)-i), logx.Err(err))
			break
		}
		tlog := log.With(logx.String("topic", t.ID))
		start := time.Now()
		o, err := r.runTopic(ctx, t, cutoff, tlog)
		o.Err = err
		o.Took = time.Since(start)

		switch {
		case err != nil:
			r.metrics.TopicFailed(t.ID)
			tlog.Error("topic failed", logx.Err(err), logx.Int("fetched", o.Fetched),
				logx.Int("posted_ok", o.PostedOK), logx.Int("posted_fail", o.PostedFail))
		case o.Skipped:
		default:
			tlog.Info("topic finished",
				logx.Int("fetched", o.Fetched),
				logx.Int("filtered", o.Filtered),
				logx.Int("skipped_bad_date", o.SkippedBadDate),
				logx.Bool("capped", o.Capped),
				logx.String("mode", o.Mode.String()),
				logx.Int("posted_ok", o.PostedOK),
				logx.Int("posted_fail", o.PostedFail),
				logx.Duration("took", o.Took),
			)
		}
		r.record(ctx, rep.RunID, o, tlog)
		rep.Outcomes = append(rep.Outcomes, o)
	}

	rep.FinishedAt = r.now()
	r.metrics.RunFinished(rep.FinishedAt.Sub(rep.StartedAt).Seconds())
	ok, failed := rep.Posted()
	fields := []logx.Field{
		logx.Int("topics", len(rep.Outcomes)),
		logx.Int("topics_failed", rep.Failed()),
		logx.Int("posted_ok", ok),
		logx.Int("posted_fail", failed),
		logx.Duration("dur", rep.FinishedAt.Sub(rep.StartedAt)),
	}
	if rep.Failed() > 0 || failed > 0 {
		log.Warn("run finished with failures", fields...)
	} else {
		log.Info("run finished", fields...)
	}
	return rep
}

// RunTopic processes one topic against a cutoff anchored now.
func (r *Runner) RunTopic(ctx context.Context, t config.Topic) (Outcome, error) {
	cutoff := r.opts.Window.Cutoff(r.now())
	return r.runTopic(ctx, t, cutoff, r.log.With(logx.String("topic", t.ID)))
}

// Relay filters, formats and delivers already-fetched entries for t.
func (r *Runner) Relay(ctx context.Context, t config.Topic, dest string, entries []feed.Entry) (Outcome, error) {
	cutoff := r.opts.Window.Cutoff(r.now())
	o := Outcome{TopicID: t.ID, Title: t.Title}
	return r.relay(ctx, t, dest, entries, cutoff, o, r.log.With(logx.String("topic", t.ID)))
}

func (r *Runner) runTopic(ctx context.Context, t config.Topic, cutoff feed.Cutoff, log logx.Logger) (Outcome, error) {
	o := Outcome{TopicID: t.ID, Title: t.Title}

	dest := strings.TrimSpace(r.resolve(t.WebhookEnv))
	if dest == "" {
		log.Warn("skipping topic: destination env var not set", logx.String("webhook_env", t.WebhookEnv))
		o.Skipped = true
		r.metrics.TopicSkipped(t.ID)
		return o, nil
	}

	maxResults := r.opts.MaxResults
	if t.MaxResults > 0 {
		maxResults = t.MaxResults
	}
	res, err := r.source.Fetch(ctx, t.FeedQuery(), maxResults)
	if err != nil {
		return o, fmt.Errorf("%w: topic %s: %w", ErrUpstreamFetch, t.ID, err)
	}
	log.Info("feed fetched",
		logx.String("url", res.URL),
		logx.Int("status", res.Status),
		logx.Int("fetched", len(res.Entries)),
		logx.String("total_results", res.TotalResults),
		logx.String("cutoff", cutoff.String()),
	)
	return r.relay(ctx, t, dest, res.Entries, cutoff, o, log)
}

func (r *Runner) relay(ctx context.Context, t config.Topic, dest string, entries []feed.Entry, cutoff feed.Cutoff, o Outcome, log logx.Logger) (Outcome, error) {
	o.Fetched = len(entries)
	if o.Fetched == 0 {
		r.metrics.Fetched(t.ID, 0, 0, 0)
		return o, fmt.Errorf("%w: topic %s", ErrNoEntries, t.ID)
	}

	fr := feed.Filter(entries, cutoff)
	o.SkippedBadDate = fr.SkippedCount()
	for _, s := range fr.Skipped {
		log.Warn("skipping entry with unparsable date",
			logx.String("title", shorten(singleLine(s.Entry.Title), 70)),
			logx.String("published", s.Entry.Published),
			logx.Err(s.Err),
		)
	}

	items := fr.Kept
	o.Filtered = len(items)
	if n := r.opts.MaxPostsPerTopic; n > 0 && len(items) > n {
		items = items[:n]
		o.Capped = true
	}
	r.metrics.Fetched(t.ID, o.Fetched, o.Filtered, o.SkippedBadDate)

	if len(items) == 0 {
		log.Info("no entries in the selected time window; nothing to post")
		return o, nil
	}

	o.Mode = SelectMode(r.opts.Mode, r.opts.Window, len(items))
	log.Info("posting", logx.String("mode", o.Mode.String()), logx.Int("items", len(items)))

	if o.Mode == ModeSummary {
		lines := SummaryLines(t.Title, r.opts.Window, o.Fetched, items)
		chunks := Chunk(lines, r.opts.ChunkLimit)
		for idx, c := range chunks {
			if err := ctx.Err(); err != nil {
				return o, err
			}
			r.post(ctx, t.ID, dest, c, &o, log.With(logx.Int("chunk", idx+1), logx.Int("chunks", len(chunks))))
		}
		return o, nil
	}

	lim := r.pacer()
	for _, k := range items {
		if err := lim.Wait(ctx); err != nil {
			return o, err
		}
		r.post(ctx, t.ID, dest, ItemMessage(k), &o, log.With(logx.String("title", shorten(singleLine(k.Title), logTitleRunes))))
	}
	return o, nil
}

// pacer spaces per-item posts PostDelay apart; the first post is immediate.
func (r *Runner) pacer() *rate.Limiter {
	if r.opts.PostDelay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(r.opts.PostDelay), 1)
}

func (r *Runner) post(ctx context.Context, topicID, dest, payload string, o *Outcome, log logx.Logger) {
	res := r.sender.Deliver(ctx, dest, payload)
	o.Throttles += res.Throttles
	r.metrics.Posted(topicID, res.OK, res.Throttles)
	if res.OK {
		o.PostedOK++
		log.Info("posted", logx.Int("status", res.StatusCode), logx.Int("attempts", res.Attempts))
		return
	}
	o.PostedFail++
	fields := []logx.Field{
		logx.Int("status", res.StatusCode),
		logx.Int("attempts", res.Attempts),
		logx.Bool("exhausted", res.Exhausted),
	}
	if res.Err != nil {
		fields = append(fields, logx.Err(res.Err))
	}
	if res.Body != "" {
		fields = append(fields, logx.String("response", shorten(res.Body, logBodyRunes)))
	}
	log.Warn("post failed", fields...)
}

func (r *Runner) record(ctx context.Context, runID string, o Outcome, log logx.Logger) {
	if r.store == nil {
		return
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.store.AppendOutcome(sctx, o.record(runID, r.now())); err != nil {
		log.Warn("outcome not stored", logx.Err(err))
	}
}
