package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	pkgch "QuantPulse/pkg/clickhouse"
	applogger "QuantPulse/pkg/logger"
)

const chInsertChunk = 2000

// CHPredictionStore implements PredictionStore on ClickHouse.
type CHPredictionStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHPredictionStore(ch *pkgch.Client, l *applogger.Logger) *CHPredictionStore {
	return &CHPredictionStore{db: ch.DB(), table: ch.Database() + ".predictions", l: l}
}

// Init creates the predictions table. ReplacingMergeTree collapses redelivered events by id.
func (s *CHPredictionStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            id                   String,
            symbol               LowCardinality(String),
            source               LowCardinality(String),
            shock                Bool,
            current_price        Float64,
            weighted_prediction  Float64,
            confidence_score     Float64,
            direction            LowCardinality(String),
            price_change_percent Float64,
            created_at           DateTime64(3, 'UTC')
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, created_at, id)
    `, s.table))
	if err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

func (s *CHPredictionStore) Store(ctx context.Context, rec *models.PredictionRecord) error {
	return s.StoreBatch(ctx, []*models.PredictionRecord{rec})
}

// StoreBatch inserts multi-row VALUES in chunks to reduce round-trips.
func (s *CHPredictionStore) StoreBatch(ctx context.Context, recs []*models.PredictionRecord) error {
	for start := 0; start < len(recs); start += chInsertChunk {
		end := min(start+chInsertChunk, len(recs))

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*10)
		for _, r := range recs[start:end] {
			if r == nil || r.ID == "" || r.Symbol == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				r.ID,
				r.Symbol,
				r.Source,
				r.Shock,
				r.CurrentPrice,
				r.WeightedPrediction,
				r.ConfidenceScore,
				string(r.Direction),
				r.PriceChangePercent,
				r.CreatedAt.UTC(),
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf(`INSERT INTO %s (id, symbol, source, shock, current_price, weighted_prediction,
            confidence_score, direction, price_change_percent, created_at) VALUES %s`, s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse insert predictions", applogger.Int("rows", len(values)), applogger.Error(err))
			}
			return fmt.Errorf("insert predictions: %w", err)
		}
	}
	return nil
}

// Query returns the newest records for symbol created at or after since.
func (s *CHPredictionStore) Query(ctx context.Context, symbol string, since time.Time, limit int) ([]*models.PredictionRecord, error) {
	q := fmt.Sprintf(`
        SELECT id, symbol, source, shock, current_price, weighted_prediction,
               confidence_score, direction, price_change_percent, created_at
        FROM %s FINAL
        WHERE symbol = ? AND created_at >= ?
        ORDER BY created_at DESC
        LIMIT ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, sinceOrEpoch(since), limit)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	out := make([]*models.PredictionRecord, 0, limit)
	for rows.Next() {
		var (
			r   models.PredictionRecord
			dir string
		)
		if err := rows.Scan(&r.ID, &r.Symbol, &r.Source, &r.Shock, &r.CurrentPrice, &r.WeightedPrediction,
			&r.ConfidenceScore, &dir, &r.PriceChangePercent, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		r.Direction = models.Direction(dir)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *CHPredictionStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op: the pool belongs to pkg/clickhouse.
func (s *CHPredictionStore) Close() error { return nil }

func sinceOrEpoch(t time.Time) time.Time {
	if t.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return t.UTC()
}

var _ domrepo.PredictionStore = (*CHPredictionStore)(nil)
