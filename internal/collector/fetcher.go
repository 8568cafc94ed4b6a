package collector

import (
	"context"

	"github.com/kktt667/Pair-Finder/internal/model"
)

// Fetcher lists a symbol universe and retrieves candle history.
type Fetcher interface {
	// FetchCandles returns up to limit of the most recent bars in chronological order.
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error)
	ListSymbols(ctx context.Context) ([]string, error)
	Name() string
}

// TickerSource is implemented by fetchers that can list a 24h market overview.
type TickerSource interface {
	FetchTickers(ctx context.Context) ([]model.Ticker, error)
}
