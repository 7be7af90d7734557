package repository

import (
	"context"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	applogger "QuantPulse/pkg/logger"
)

// CandleArchive is a PriceHistory that can also be written to.
type CandleArchive interface {
	domrepo.PriceHistory
	StoreCandles(ctx context.Context, candles []models.Candle) error
}

// TieredHistory reads the local archive first and falls back to the remote source
// when the archive is short. Remote candles are written back to the archive.
type TieredHistory struct {
	archive CandleArchive
	remote  domrepo.PriceHistory
	l       *applogger.Logger
}

func NewTieredHistory(archive CandleArchive, remote domrepo.PriceHistory, l *applogger.Logger) *TieredHistory {
	return &TieredHistory{archive: archive, remote: remote, l: l}
}

func (h *TieredHistory) GetLatestNCandles(ctx context.Context, symbol string, n int) ([]models.Candle, error) {
	if h.archive != nil {
		cs, err := h.archive.GetLatestNCandles(ctx, symbol, n)
		if err == nil && len(cs) >= n {
			return cs, nil
		}
		if err != nil && h.l != nil {
			h.l.Warn("candle archive read failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
	}
	if h.remote == nil {
		return nil, nil
	}

	cs, err := h.remote.GetLatestNCandles(ctx, symbol, n)
	if err != nil {
		return nil, err
	}
	if h.archive != nil && len(cs) > 0 {
		if err := h.archive.StoreCandles(ctx, cs); err != nil && h.l != nil {
			h.l.Warn("candle archive write failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
	}
	return cs, nil
}

var _ domrepo.PriceHistory = (*TieredHistory)(nil)
