package server

import (
	"context"
	"time"

	"QuantPulse/internal/scheduler"
	"QuantPulse/internal/usecase"
	"QuantPulse/pkg/config"
	xhttp "QuantPulse/pkg/http"
	pkgkafka "QuantPulse/pkg/kafka"
	applogger "QuantPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	handler    xhttp.Handler
	recorder   *usecase.PredictionRecorder
	collector  *usecase.QuoteCollector
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	scheduler  *scheduler.Scheduler
	logPub     applogger.Publisher
	httpServer *xhttp.Server
}

// New creates a new App instance. Optional parts are attached with the Set methods.
func New(cfg *config.Config, logger *applogger.Logger, handler xhttp.Handler, recorder *usecase.PredictionRecorder) *App {
	if logger == nil {
		logger = applogger.Nop()
	}
	return &App{
		cfg:      cfg,
		logger:   logger,
		handler:  handler,
		recorder: recorder,
	}
}

// SetCollector attaches the live quote stream.
func (a *App) SetCollector(c *usecase.QuoteCollector) { a.collector = c }

// SetConsumer attaches the Kafka consumer and the handler it drives.
func (a *App) SetConsumer(c *pkgkafka.Consumer, kh pkgkafka.MessageHandler) {
	a.consumer = c
	a.kh = kh
}

// SetScheduler attaches the background jobs.
func (a *App) SetScheduler(s *scheduler.Scheduler) { a.scheduler = s }

// SetLogPublisher ships aggregated warnings and errors to the log topic.
func (a *App) SetLogPublisher(p applogger.Publisher) { a.logPub = p }

// Run starts every component and blocks until ctx is done or the HTTP server fails.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.logPub != nil {
		a.logger.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   a.cfg.LogCollector.Interval,
			CountThreshold: a.cfg.LogCollector.Threshold,
			Topic:          a.cfg.Kafka.LogTopic,
			Publisher:      a.logPub,
		})
		a.logger.Info("log collector enabled", applogger.String("topic", a.cfg.Kafka.LogTopic))
	}

	// Start prediction recorder
	if a.recorder != nil && a.recorder.Enabled() {
		a.recorder.Start(runCtx)
		a.logger.Info("prediction recorder started", applogger.String("backend", a.cfg.Backend.Type))
	}

	// Start collector
	if a.collector != nil {
		go func() {
			if err := a.collector.Start(runCtx); err != nil {
				a.logger.Error("collector error", applogger.Error(err))
			}
		}()
		a.logger.Info("collector started", applogger.Strings("symbols", a.cfg.Finnhub.Symbols))
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.logger.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.logger.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.scheduler != nil {
		a.scheduler.Start()
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(true, a.cfg.Server.CORSOrigins...),
		xhttp.WithSlowRequest(a.cfg.Server.SlowRequest),
		xhttp.WithLogger(a.logger),
	)
	errc := a.httpServer.Start()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err, ok := <-errc:
		if ok && err != nil {
			a.logger.Error("http server error", applogger.Error(err))
			runErr = err
		}
	}
	cancel()

	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// shutdown stops intake first, then drains the recorder.
func (a *App) shutdown() error {
	a.logger.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()

	var firstErr error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
		firstErr = err
	}

	if a.scheduler != nil {
		a.scheduler.Stop(ctx)
	}

	// Stop collector
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.logger.Warn("collector stop error", applogger.Error(err))
		}
	}

	// Stop consumer
	if a.consumer != nil && a.kh != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.recorder != nil {
		a.recorder.Stop()
	}
	if a.logPub != nil {
		a.logger.RemoveCollector()
	}

	a.logger.Info("shutdown complete")
	return firstErr
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg.Server.ShutdownTimeout > 0 {
		return a.cfg.Server.ShutdownTimeout
	}
	return 10 * time.Second
}
