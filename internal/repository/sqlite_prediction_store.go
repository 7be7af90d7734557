package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"

	_ "modernc.org/sqlite"
)

// SQLitePredictionStore is the embedded event log for single-node deployments.
type SQLitePredictionStore struct {
	db *sql.DB
}

// NewSQLitePredictionStore opens (or creates) the database at path in WAL mode.
func NewSQLitePredictionStore(path string) (*SQLitePredictionStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer at a time; readers share the WAL
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return &SQLitePredictionStore{db: db}, nil
}

func (s *SQLitePredictionStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS predictions (
			id                   TEXT PRIMARY KEY,
			symbol               TEXT NOT NULL,
			source               TEXT NOT NULL,
			shock                INTEGER NOT NULL,
			current_price        REAL,
			weighted_prediction  REAL,
			confidence_score     REAL,
			direction            TEXT,
			price_change_percent REAL,
			created_at           INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_symbol_ts ON predictions(symbol, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLitePredictionStore) Store(ctx context.Context, rec *models.PredictionRecord) error {
	return s.StoreBatch(ctx, []*models.PredictionRecord{rec})
}

// StoreBatch inserts in one transaction. Duplicate ids are ignored.
func (s *SQLitePredictionStore) StoreBatch(ctx context.Context, recs []*models.PredictionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO predictions
		(id, symbol, source, shock, current_price, weighted_prediction,
		 confidence_score, direction, price_change_percent, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		if r == nil || r.ID == "" || r.Symbol == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Symbol, r.Source, boolInt(r.Shock),
			r.CurrentPrice, r.WeightedPrediction, r.ConfidenceScore,
			string(r.Direction), r.PriceChangePercent, r.CreatedAt.UnixMilli(),
		); err != nil {
			return fmt.Errorf("insert %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLitePredictionStore) Query(ctx context.Context, symbol string, since time.Time, limit int) ([]*models.PredictionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, source, shock, current_price, weighted_prediction,
		       confidence_score, direction, price_change_percent, created_at
		FROM predictions
		WHERE symbol = ? AND created_at >= ?
		ORDER BY created_at DESC, id
		LIMIT ?`, symbol, sinceOrEpoch(since).UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	out := make([]*models.PredictionRecord, 0, limit)
	for rows.Next() {
		var (
			r     models.PredictionRecord
			shock int
			dir   string
			ms    int64
		)
		if err := rows.Scan(&r.ID, &r.Symbol, &r.Source, &shock, &r.CurrentPrice, &r.WeightedPrediction,
			&r.ConfidenceScore, &dir, &r.PriceChangePercent, &ms); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		r.Shock = shock != 0
		r.Direction = models.Direction(dir)
		r.CreatedAt = time.UnixMilli(ms).UTC()
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *SQLitePredictionStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLitePredictionStore) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ domrepo.PredictionStore = (*SQLitePredictionStore)(nil)
