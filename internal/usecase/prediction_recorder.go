package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"QuantPulse/internal/domain/models"
	drepo "QuantPulse/internal/domain/repository"
	domsvc "QuantPulse/internal/domain/service"
	applogger "QuantPulse/pkg/logger"
)

// Event log backends.
const (
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
	BackendSQLite     = "sqlite"
	BackendMemory     = "memory"
	BackendNone       = "none"
)

// PredictionRecorder ships served predictions to the event log off the request path.
// Records are buffered and flushed in batches by size or timeout.
type PredictionRecorder struct {
	pub     drepo.Publisher
	store   drepo.PredictionStore
	metrics drepo.Metrics
	logger  *applogger.Logger
	backend string
	batchSz int
	batchTO time.Duration

	in     chan *models.PredictionRecord
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	now    func() time.Time
}

// NewPredictionRecorder creates a recorder. Start must be called before records are flushed.
func NewPredictionRecorder(
	pub drepo.Publisher,
	store drepo.PredictionStore,
	metrics drepo.Metrics,
	logger *applogger.Logger,
	backend string,
	batchSz int,
	batchTO time.Duration,
) *PredictionRecorder {
	if batchSz <= 0 {
		batchSz = 100
	}
	if batchTO <= 0 {
		batchTO = time.Second
	}
	return &PredictionRecorder{
		pub:     pub,
		store:   store,
		metrics: metrics,
		logger:  logger,
		backend: backend,
		batchSz: batchSz,
		batchTO: batchTO,
		in:      make(chan *models.PredictionRecord, batchSz*4),
		now:     time.Now,
	}
}

// Enabled reports whether records go anywhere.
func (p *PredictionRecorder) Enabled() bool {
	return p != nil && p.backend != "" && p.backend != BackendNone
}

// Observe enqueues a served result. It never blocks; a full buffer drops the record.
func (p *PredictionRecorder) Observe(res models.EnsembleResult) {
	if !p.Enabled() {
		return
	}
	rec := models.NewPredictionRecord(res, p.now())
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.in <- &rec:
	default:
		p.metrics.RecordError("recorder_dropped")
	}
}

// Start runs the flush loop until ctx is done or Stop is called.
func (p *PredictionRecorder) Start(ctx context.Context) {
	if !p.Enabled() {
		return
	}
	p.wg.Add(1)
	go p.loop(ctx)
}

// Stop drains buffered records and waits for the flush loop.
func (p *PredictionRecorder) Stop() {
	if !p.Enabled() {
		return
	}
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.in)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *PredictionRecorder) loop(ctx context.Context) {
	defer p.wg.Done()
	batch := make([]*models.PredictionRecord, 0, p.batchSz)
	ticker := time.NewTicker(p.batchTO)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// flushing uses its own deadline so shutdown can still drain
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := p.ProcessBatch(fctx, batch); err != nil && p.logger != nil {
			p.logger.Warn("prediction batch not recorded",
				applogger.String("backend", p.backend),
				applogger.Int("size", len(batch)),
				applogger.Error(err),
			)
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case rec, ok := <-p.in:
			if !ok {
				flush()
				return
			}
			batch = append(batch, rec)
			if len(batch) >= p.batchSz {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			for {
				select {
				case rec, ok := <-p.in:
					if !ok {
						flush()
						return
					}
					batch = append(batch, rec)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Process records a single prediction synchronously.
func (p *PredictionRecorder) Process(ctx context.Context, rec *models.PredictionRecord) error {
	if rec == nil {
		return fmt.Errorf("record is nil")
	}
	return p.ProcessBatch(ctx, []*models.PredictionRecord{rec})
}

// ProcessBatch routes records to the configured backend.
func (p *PredictionRecorder) ProcessBatch(ctx context.Context, recs []*models.PredictionRecord) error {
	if len(recs) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case BackendKafka:
		if p.pub == nil {
			err = fmt.Errorf("kafka publisher not configured")
			break
		}
		err = p.pub.PublishBatch(ctx, recs)
	case BackendClickHouse, BackendSQLite, BackendMemory:
		if p.store == nil {
			err = fmt.Errorf("%s store not configured", p.backend)
			break
		}
		err = p.store.StoreBatch(ctx, recs)
	case BackendNone, "":
		return nil
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("record_batch")
		return fmt.Errorf("record batch: %w", err)
	}

	for _, r := range recs {
		p.metrics.RecordMessageSent(p.backend, r.Symbol)
	}
	p.metrics.RecordLatency("record_batch_seconds", time.Since(start).Seconds())
	return nil
}

// RecordingEnsemble reports every served result to a PredictionRecorder.
type RecordingEnsemble struct {
	next     domsvc.EnsembleProvider
	recorder *PredictionRecorder
}

func NewRecordingEnsemble(next domsvc.EnsembleProvider, recorder *PredictionRecorder) *RecordingEnsemble {
	return &RecordingEnsemble{next: next, recorder: recorder}
}

func (r *RecordingEnsemble) GetEnsemble(ctx context.Context, req models.PredictionRequest) (models.EnsembleResult, error) {
	res, err := r.next.GetEnsemble(ctx, req)
	if err == nil {
		r.recorder.Observe(res)
	}
	return res, err
}

var _ domsvc.EnsembleProvider = (*RecordingEnsemble)(nil)
