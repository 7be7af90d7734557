package models

import "time"

// Trade is one last-sale print from the live market stream.
type Trade struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"t"` // unix seconds
	Price     float64 `json:"p"`
	Volume    float64 `json:"v"`
}

// Quote is a resolved price for a symbol.
type Quote struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Source string    `json:"source"` // stream, yahoo, demo
	AsOf   time.Time `json:"as_of"`
}

// Candle represents a daily OHLCV bar used by the quant agent.
type Candle struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Closes extracts close prices in chronological order.
func Closes(cs []Candle) []float64 {
	out := make([]float64, 0, len(cs))
	for _, c := range cs {
		if c.Close > 0 {
			out = append(out, c.Close)
		}
	}
	return out
}
