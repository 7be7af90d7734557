package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	domsvc "QuantPulse/internal/domain/service"
	"QuantPulse/pkg/cache"
	applogger "QuantPulse/pkg/logger"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// Config holds cron specs and job settings. An empty spec disables the job.
type Config struct {
	WarmSpec     string
	ReloadSpec   string
	SweepSpec    string
	BackfillSpec string

	Watchlist    []string
	Concurrency  int
	JobTimeout   time.Duration
	LockTTL      time.Duration
	ClientIdle   time.Duration
	HistoryDepth int
}

// GraphReloader reloads the market graph from disk.
type GraphReloader interface {
	Reload() error
}

// Invalidator drops cached ensemble results for a symbol, or all of them for "".
type Invalidator interface {
	Invalidate(ctx context.Context, symbol string) error
}

// Sweeper drops expired entries and reports how many.
type Sweeper interface {
	Sweep() int
}

// Pruner forgets idle rate limit clients.
type Pruner interface {
	Prune(idle time.Duration) int
}

// Deps are the collaborators of the background jobs. Nil members disable the jobs that need them.
type Deps struct {
	Ensemble    domsvc.EnsembleProvider
	Locks       cache.Service
	Graph       GraphReloader
	Invalidator Invalidator
	Quotes      Sweeper
	Limiter     Pruner
	History     domrepo.PriceHistory
}

// Scheduler runs the periodic maintenance of the prediction service.
type Scheduler struct {
	cron   *cron.Cron
	cfg    Config
	deps   Deps
	logger *applogger.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(cfg Config, deps Deps, logger *applogger.Logger) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if cfg.ClientIdle <= 0 {
		cfg.ClientIdle = 10 * time.Minute
	}
	if cfg.HistoryDepth <= 0 {
		cfg.HistoryDepth = 120
	}
	if logger == nil {
		logger = applogger.Nop()
	}
	cl := cronLogger{l: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register adds every configured job. It fails on the first invalid spec.
func (s *Scheduler) Register() error {
	jobs := []struct {
		name string
		spec string
		ok   bool
		run  func(context.Context) error
	}{
		{"warm_cache", s.cfg.WarmSpec, s.deps.Ensemble != nil && len(s.cfg.Watchlist) > 0, s.WarmCache},
		{"reload_graph", s.cfg.ReloadSpec, s.deps.Graph != nil, s.ReloadGraph},
		{"sweep", s.cfg.SweepSpec, s.deps.Quotes != nil || s.deps.Limiter != nil, s.Sweep},
		{"backfill_history", s.cfg.BackfillSpec, s.deps.History != nil && len(s.cfg.Watchlist) > 0, s.Backfill},
	}
	for _, j := range jobs {
		if strings.TrimSpace(j.spec) == "" || !j.ok {
			continue
		}
		if _, err := s.cron.AddFunc(j.spec, s.wrap(j.name, j.run)); err != nil {
			return fmt.Errorf("register %s: %w", j.name, err)
		}
		s.logger.Info("scheduler job registered", applogger.String("job", j.name), applogger.String("spec", j.spec))
	}
	return nil
}

// Len is the number of registered jobs.
func (s *Scheduler) Len() int { return len(s.cron.Entries()) }

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", applogger.Int("jobs", s.Len()))
}

// Stop cancels running jobs and waits for them, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) wrap(name string, run func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.cfg.JobTimeout)
		defer cancel()
		start := time.Now()
		if err := run(ctx); err != nil {
			s.logger.Warn("scheduler job failed",
				applogger.String("job", name),
				applogger.Duration("took_ms", time.Since(start)),
				applogger.Error(err),
			)
			return
		}
		s.logger.Debug("scheduler job done", applogger.String("job", name), applogger.Duration("took_ms", time.Since(start)))
	}
}

// WarmCache refreshes the normal and shock predictions of every watchlist symbol.
// A per-symbol lock keeps replicas sharing a Redis cache from warming the same symbol.
func (s *Scheduler) WarmCache(ctx context.Context) error {
	if s.deps.Ensemble == nil {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	var failed []string
	errs := make(chan string, len(s.cfg.Watchlist))

	for _, symbol := range s.cfg.Watchlist {
		g.Go(func() error {
			if err := s.warmOne(gctx, symbol); err != nil {
				errs <- symbol
				s.logger.Warn("cache warm failed", applogger.String("symbol", symbol), applogger.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	close(errs)
	for sym := range errs {
		failed = append(failed, sym)
	}
	if len(failed) > 0 {
		return fmt.Errorf("warm failed for %s", strings.Join(failed, ","))
	}
	return nil
}

func (s *Scheduler) warmOne(ctx context.Context, symbol string) error {
	if s.deps.Locks != nil {
		key := cache.GenerateKeyWithParams("lock:warm", strings.ToUpper(symbol))
		ok, err := s.deps.Locks.TryLock(ctx, key, s.cfg.LockTTL)
		if err != nil {
			return fmt.Errorf("lock: %w", err)
		}
		if !ok {
			return nil
		}
		defer func() { _ = s.deps.Locks.Unlock(context.WithoutCancel(ctx), key) }()
	}
	for _, shock := range []bool{false, true} {
		req, err := models.NewPredictionRequest(symbol, shock, 0)
		if err != nil {
			return err
		}
		if _, err := s.deps.Ensemble.GetEnsemble(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// ReloadGraph re-reads the market graph and drops every cached result computed on the old one.
func (s *Scheduler) ReloadGraph(ctx context.Context) error {
	if s.deps.Graph == nil {
		return nil
	}
	if err := s.deps.Graph.Reload(); err != nil {
		return fmt.Errorf("reload graph: %w", err)
	}
	if s.deps.Invalidator != nil {
		if err := s.deps.Invalidator.Invalidate(ctx, ""); err != nil {
			return fmt.Errorf("invalidate ensemble cache: %w", err)
		}
	}
	return nil
}

// Sweep expires stale quotes and forgets idle rate limit clients.
func (s *Scheduler) Sweep(_ context.Context) error {
	var quotes, clients int
	if s.deps.Quotes != nil {
		quotes = s.deps.Quotes.Sweep()
	}
	if s.deps.Limiter != nil {
		clients = s.deps.Limiter.Prune(s.cfg.ClientIdle)
	}
	if quotes > 0 || clients > 0 {
		s.logger.Debug("sweep", applogger.Int("quotes", quotes), applogger.Int("clients", clients))
	}
	return nil
}

// Backfill pulls the quant lookback window for every watchlist symbol so the archive stays warm.
func (s *Scheduler) Backfill(ctx context.Context) error {
	if s.deps.History == nil {
		return nil
	}
	var errs []error
	for _, symbol := range s.cfg.Watchlist {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		cs, err := s.deps.History.GetLatestNCandles(ctx, strings.ToUpper(symbol), s.cfg.HistoryDepth)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", symbol, err))
			continue
		}
		s.logger.Debug("history backfilled", applogger.String("symbol", symbol), applogger.Int("candles", len(cs)))
	}
	return errors.Join(errs...)
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	l *applogger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, kv(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(kv(keysAndValues), applogger.Error(err))...)
}

func kv(keysAndValues []interface{}) []applogger.Field {
	fields := make([]applogger.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields = append(fields, applogger.Any(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1]))
	}
	return fields
}
