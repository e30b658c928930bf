package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	logx "arxivrelay/pkg/logx"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled run.
type Job func(ctx context.Context)

// Scheduler fires Job on a Spec. Overlapping ticks are skipped while a run
// is still in progress.
type Scheduler struct {
	spec       Spec
	job        Job
	loc        *time.Location
	runOnStart bool
	log        logx.Logger
}

type Option func(*Scheduler)

// WithLocation evaluates cron expressions in loc (default: local time).
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithRunOnStart fires the job once immediately when Run starts.
func WithRunOnStart() Option { return func(s *Scheduler) { s.runOnStart = true } }

func WithLogger(log logx.Logger) Option { return func(s *Scheduler) { s.log = log } }

func New(spec Spec, job Job, opts ...Option) *Scheduler {
	s := &Scheduler{spec: spec, job: job, loc: time.Local, log: logx.Nop()}
	for _, o := range opts {
		o(s)
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	return s
}

// Run blocks until ctx is done, then waits for an in-flight job to return.
func (s *Scheduler) Run(ctx context.Context) error {
	clog := cronLogger{log: s.log}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(s.loc),
		cron.WithLogger(clog),
	)

	// One wrapped job shared by cron ticks and the start-up run, so they
	// share the SkipIfStillRunning slot.
	job := cron.NewChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)).
		Then(cron.FuncJob(func() { s.job(ctx) }))
	id, err := c.AddJob(s.spec.CronSpec(), job)
	if err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec.CronSpec(), err)
	}

	c.Start()
	s.log.Info("scheduler started", logx.String("schedule", s.spec.String()), logx.Time("next", c.Entry(id).Next))

	var startup sync.WaitGroup
	if s.runOnStart {
		startup.Add(1)
		go func() {
			defer startup.Done()
			job.Run()
		}()
	}

	<-ctx.Done()
	s.log.Info("scheduler stopping")
	// Stop waits only for jobs cron started itself.
	<-c.Stop().Done()
	startup.Wait()
	return nil
}
