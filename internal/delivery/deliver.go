package delivery

import (
	"context"
	"fmt"
	"net/http"
	"time"

	logx "arxivrelay/pkg/logx"
)

const (
	DefaultMaxRetries     = 8
	DefaultWait           = time.Second
	DefaultMinWait        = 200 * time.Millisecond
	DefaultMaxWait        = 10 * time.Second
	DefaultRequestTimeout = 20 * time.Second
)

// Response is what a single attempt observed.
type Response struct {
	StatusCode int
	Body       string
}

// Poster performs one delivery attempt. A returned error means the request
// did not produce a usable response (network failure, bad destination).
type Poster interface {
	Post(ctx context.Context, dest, content string) (Response, error)
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy bounds retries and throttle waits.
//
// MaxRetries is the number of extra attempts allowed after a throttled one;
// zero means a single attempt. Non-positive durations fall back to the
// package defaults.
type Policy struct {
	MaxRetries     int
	DefaultWait    time.Duration
	MinWait        time.Duration
	MaxWait        time.Duration
	RequestTimeout time.Duration
}

func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.DefaultWait <= 0 {
		p.DefaultWait = DefaultWait
	}
	if p.MinWait <= 0 {
		p.MinWait = DefaultMinWait
	}
	if p.MaxWait <= 0 {
		p.MaxWait = DefaultMaxWait
	}
	if p.MaxWait < p.MinWait {
		p.MaxWait = p.MinWait
	}
	if p.RequestTimeout <= 0 {
		p.RequestTimeout = DefaultRequestTimeout
	}
	return p
}

// Result is the terminal outcome of Deliver.
type Result struct {
	OK         bool
	StatusCode int
	Body       string

	Attempts  int
	Throttles int
	Waited    time.Duration
	// Exhausted is set when the endpoint was still throttling after the
	// last allowed attempt.
	Exhausted bool
	Err       error
}

type state int

const (
	stateSending state = iota
	stateThrottled
	stateSuccess
	stateFailed
)

// Deliverer runs the throttle-aware delivery state machine over a Poster.
// It holds no per-message state and is safe for sequential reuse.
type Deliverer struct {
	poster Poster
	policy Policy
	sleep  Sleeper
	log    logx.Logger
}

// Option configures a Deliverer.
type Option func(*Deliverer)

// WithSleeper replaces the real-time sleeper (tests use a recording fake).
func WithSleeper(s Sleeper) Option {
	return func(d *Deliverer) {
		if s != nil {
			d.sleep = s
		}
	}
}

// WithLogger attaches a logger for throttle/backoff diagnostics.
func WithLogger(log logx.Logger) Option {
	return func(d *Deliverer) { d.log = log }
}

func New(poster Poster, policy Policy, opts ...Option) *Deliverer {
	d := &Deliverer{
		poster: poster,
		policy: policy.normalized(),
		sleep:  SleepContext,
		log:    logx.Nop(),
	}
	for _, o := range opts {
		o(d)
	}
	if d.log.IsZero() {
		d.log = logx.Nop()
	}
	return d
}

// Policy returns the effective (defaulted) policy.
func (d *Deliverer) Policy() Policy { return d.policy }

// Deliver sends payload to dest, retrying on throttling.
func (d *Deliverer) Deliver(ctx context.Context, dest, payload string) Result {
	var (
		res  Result
		last Response
		st   = stateSending
	)

	for {
		switch st {
		case stateSending:
			res.Attempts++
			resp, err := d.attempt(ctx, dest, payload)
			last = resp
			res.StatusCode, res.Body = resp.StatusCode, resp.Body
			switch {
			case err != nil:
				res.Err = err
				st = stateFailed
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				st = stateSuccess
			case resp.StatusCode == http.StatusTooManyRequests:
				st = stateThrottled
			default:
				res.Err = fmt.Errorf("%w: HTTP %d", ErrRejected, resp.StatusCode)
				st = stateFailed
			}

		case stateThrottled:
			res.Throttles++
			if res.Attempts > d.policy.MaxRetries {
				res.Exhausted = true
				res.StatusCode = http.StatusTooManyRequests
				res.Body = ErrRetriesExhausted.Error()
				res.Err = ErrRetriesExhausted
				st = stateFailed
				continue
			}
			wait := clamp(retryAfter(last.Body, d.policy.DefaultWait), d.policy.MinWait, d.policy.MaxWait)
			d.log.Warn("rate limited; backing off",
				logx.Duration("wait", wait),
				logx.Int("attempt", res.Attempts),
				logx.Int("max_retries", d.policy.MaxRetries),
			)
			if err := d.sleep(ctx, wait); err != nil {
				res.Err = err
				st = stateFailed
				continue
			}
			res.Waited += wait
			st = stateSending

		case stateSuccess:
			res.OK = true
			return res

		case stateFailed:
			return res
		}
	}
}

func (d *Deliverer) attempt(ctx context.Context, dest, payload string) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	callCtx, cancel := context.WithTimeout(ctx, d.policy.RequestTimeout)
	defer cancel()
	return d.poster.Post(callCtx, dest, payload)
}

// SleepContext waits for d, returning early with ctx.Err() on cancellation.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		if !t.Stop() {
			<-t.C
		}
		return ctx.Err()
	}
}
