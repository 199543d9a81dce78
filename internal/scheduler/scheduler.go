// Package scheduler owns draftloop's two background jobs: a fixed-interval
// transcript poll and a cron-driven content cycle that keeps one interview
// moving. Each firing is isolated: errors are logged, panics recovered, and
// the next firing always happens.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"draftloop/internal/content"
	"draftloop/internal/registry"
)

// DefaultCronSpec fires the content cycle at 09:00 on Monday, Wednesday,
// and Friday.
const DefaultCronSpec = "0 9 * * MON,WED,FRI"

// DefaultPollInterval is how often the transcript provider is polled.
const DefaultPollInterval = 30 * time.Minute

// DefaultMiningWindow is how far back the content cycle mines when no
// unprocessed idea is available.
const DefaultMiningWindow = 7 * 24 * time.Hour

// Fetcher polls the transcript provider for new transcripts. Satisfied by
// *tldv.Poller.
type Fetcher interface {
	FetchNew(ctx context.Context) (int, error)
}

// CycleMiner mines stored transcripts on demand. Satisfied by
// *mining.Miner.
type CycleMiner interface {
	MineRecent(ctx context.Context, since time.Time) (int, error)
}

// Interviewer starts interview sessions. Satisfied by *pipeline.Pipeline.
type Interviewer interface {
	StartInterview(ctx context.Context, idea content.ContentIdea) error
}

// Config holds the scheduler's collaborators and timing knobs.
type Config struct {
	Fetcher     Fetcher
	Miner       CycleMiner
	Interviewer Interviewer
	Registry    *registry.Registry

	// CronSpec is the content-cycle schedule. Default: [DefaultCronSpec].
	CronSpec string

	// PollInterval is the transcript poll cadence. Default:
	// [DefaultPollInterval].
	PollInterval time.Duration

	// MiningWindow bounds cycle mining. Default: [DefaultMiningWindow].
	MiningWindow time.Duration
}

// Scheduler runs the poll and content-cycle jobs.
type Scheduler struct {
	fetcher     Fetcher
	miner       CycleMiner
	interviewer Interviewer
	reg         *registry.Registry

	cronSpec     string
	pollInterval time.Duration
	miningWindow time.Duration

	cron     *cron.Cron
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a Scheduler with defaults applied.
func New(cfg Config) *Scheduler {
	if cfg.CronSpec == "" {
		cfg.CronSpec = DefaultCronSpec
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MiningWindow == 0 {
		cfg.MiningWindow = DefaultMiningWindow
	}
	return &Scheduler{
		fetcher:      cfg.Fetcher,
		miner:        cfg.Miner,
		interviewer:  cfg.Interviewer,
		reg:          cfg.Registry,
		cronSpec:     cfg.CronSpec,
		pollInterval: cfg.PollInterval,
		miningWindow: cfg.MiningWindow,
		done:         make(chan struct{}),
	}
}

// Start launches both jobs. Returns an error only when the cron spec does
// not parse.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.cronSpec, func() {
		s.runIsolated(ctx, "content cycle", s.RunCycle)
	}); err != nil {
		return fmt.Errorf("scheduler: parse cron spec %q: %w", s.cronSpec, err)
	}
	s.cron.Start()

	s.wg.Add(1)
	go s.pollLoop(ctx)

	slog.Info("scheduler started", "cron", s.cronSpec, "poll_interval", s.pollInterval)
	return nil
}

// Stop halts both jobs and waits for an in-flight firing to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.cron != nil {
			<-s.cron.Stop().Done()
		}
		s.wg.Wait()
		slog.Info("scheduler stopped")
	})
}

// pollLoop polls the transcript provider until stopped. The first poll
// fires immediately.
func (s *Scheduler) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	s.runIsolated(ctx, "transcript poll", s.poll)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runIsolated(ctx, "transcript poll", s.poll)
		}
	}
}

// poll fetches new transcripts; the poller hands them to the mining queue
// itself.
func (s *Scheduler) poll(ctx context.Context) error {
	n, err := s.fetcher.FetchNew(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: poll: %w", err)
	}
	if n > 0 {
		slog.Info("scheduler: poll fetched transcripts", "count", n)
	}
	return nil
}

// RunCycle executes one content-cycle firing: poll, pick the first
// unprocessed idea (mining on demand when the pool is empty), and start an
// interview for it. A cycle with nothing to do exits quietly; a failure at
// any step ends the firing and the next one retries from scratch.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	// Fresh transcripts first, so ideas mined seconds ago are eligible.
	if err := s.poll(ctx); err != nil {
		return err
	}

	idea, ok := s.nextIdea()
	if !ok {
		n, err := s.miner.MineRecent(ctx, time.Now().Add(-s.miningWindow))
		if err != nil {
			return fmt.Errorf("scheduler: cycle mining: %w", err)
		}
		slog.Info("scheduler: cycle mined on demand", "candidates", n)
		if idea, ok = s.nextIdea(); !ok {
			slog.Info("scheduler: nothing to interview, cycle done")
			return nil
		}
	}

	if err := s.interviewer.StartInterview(ctx, idea); err != nil {
		return fmt.Errorf("scheduler: cycle interview: %w", err)
	}
	return nil
}

// nextIdea returns the oldest unprocessed idea.
func (s *Scheduler) nextIdea() (content.ContentIdea, bool) {
	ideas := s.reg.Unprocessed()
	if len(ideas) == 0 {
		return content.ContentIdea{}, false
	}
	return ideas[0], true
}

// runIsolated runs one job firing with panic recovery and error logging.
// Nothing a single firing does may take the scheduler down.
func (s *Scheduler) runIsolated(ctx context.Context, name string, fn func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scheduler: job panicked", "job", name, "panic", r)
		}
	}()
	if err := fn(ctx); err != nil {
		slog.Error("scheduler: job failed", "job", name, "err", err)
	}
}
