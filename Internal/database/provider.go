package datafeed

import (
	"context"
	"errors"

	"github.com/alphachart/doppelscan/Internal/types"
)

// ErrNoData means the data source has no usable history for a symbol.
// Distinct from transport or parse failures, though the scanner excludes
// the symbol either way.
var ErrNoData = errors.New("no historical data")

// HistoryProvider supplies daily bars for one instrument, oldest first,
// most recent last, truncated to at most limit bars.
type HistoryProvider interface {
	DailyBars(ctx context.Context, symbol string, limit int) ([]types.Bar, error)
}

// UniverseProvider supplies the tradable instruments of a named market.
type UniverseProvider interface {
	Listings(ctx context.Context, market string) ([]types.Listing, error)
}
