package scan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alphachart/doppelscan/Internal/curve"
	datafeed "github.com/alphachart/doppelscan/Internal/database"
	"github.com/alphachart/doppelscan/Internal/metrics"
	"github.com/alphachart/doppelscan/Internal/strategy/filters"
	"github.com/alphachart/doppelscan/Internal/types"
)

// errFilterRejected is internal bookkeeping for the exclusion metric; a
// rejected candidate is silently dropped, never surfaced as an error.
var errFilterRejected = errors.New("filter rejected")

const (
	DefaultWorkers      = 30
	DefaultFetchTimeout = 5 * time.Second
)

// Request holds everything one scan needs. Result policy (TopK and
// MinSimilarity) belongs to the caller, not the engine; zero values mean
// no cap and no floor.
type Request struct {
	ReferenceCurve []float64
	Lookback       int
	Universe       []types.Listing

	Filters   *filters.Engine
	CloseOnly bool

	// ScanID names the scan for progress polling; empty gets a fresh uuid.
	ScanID string

	Workers       int
	FetchTimeout  time.Duration
	TopK          int
	MinSimilarity float64
}

// keepScans caps the retained per-scan progress entries; finished scans
// beyond the cap are evicted oldest first.
const keepScans = 16

type scanProgress struct {
	completed atomic.Int64
	total     atomic.Int64
	done      atomic.Bool
}

// Orchestrator fans candidate evaluation out over a bounded worker pool
// and collects a deterministically ranked result list. One orchestrator
// can run scans concurrently; each scan tracks its own progress counters.
type Orchestrator struct {
	history datafeed.HistoryProvider
	log     zerolog.Logger

	mu       sync.Mutex
	progress map[string]*scanProgress
	order    []string
	lastID   string
}

func New(history datafeed.HistoryProvider, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		history:  history,
		log:      log,
		progress: make(map[string]*scanProgress),
	}
}

// Progress reports completed and total candidate counts for the named
// scan, or for the most recently started scan when scanID is empty.
// Completed only ever grows toward total; an unknown id reports 0/0.
func (o *Orchestrator) Progress(scanID string) (done, total int) {
	o.mu.Lock()
	if scanID == "" {
		scanID = o.lastID
	}
	sp := o.progress[scanID]
	o.mu.Unlock()

	if sp == nil {
		return 0, 0
	}
	return int(sp.completed.Load()), int(sp.total.Load())
}

// registerScan allocates the progress slot for a new scan and evicts the
// oldest finished scans past the retention cap.
func (o *Orchestrator) registerScan(scanID string, total int) *scanProgress {
	sp := &scanProgress{}
	sp.total.Store(int64(total))

	o.mu.Lock()
	defer o.mu.Unlock()

	o.progress[scanID] = sp
	o.order = append(o.order, scanID)
	o.lastID = scanID

	for len(o.order) > keepScans {
		evicted := false
		for i, id := range o.order {
			if o.progress[id].done.Load() {
				delete(o.progress, id)
				o.order = append(o.order[:i], o.order[i+1:]...)
				evicted = true
				break
			}
		}
		if !evicted {
			break
		}
	}
	return sp
}

// Scan evaluates every universe candidate independently and concurrently.
// A failure of any single candidate (missing or short history, a failed
// filter, a degenerate curve) excludes that candidate and nothing else;
// an empty result list is a valid outcome. Ordering of the returned slice
// is deterministic regardless of completion order: similarity descending,
// ties kept in universe order.
func (o *Orchestrator) Scan(ctx context.Context, req Request) ([]types.ScoredResult, error) {
	if len(req.ReferenceCurve) != curve.Points {
		return nil, fmt.Errorf("reference curve must have %d points, got %d",
			curve.Points, len(req.ReferenceCurve))
	}
	if req.Lookback < 1 {
		return nil, fmt.Errorf("lookback must be positive, got %d", req.Lookback)
	}

	workers := req.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	fetchTimeout := req.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}

	scanID := req.ScanID
	if scanID == "" {
		scanID = uuid.NewString()
	}
	log := o.log.With().Str("scan_id", scanID).Logger()
	log.Info().Int("universe", len(req.Universe)).Int("lookback", req.Lookback).
		Int("workers", workers).Msg("scan started")

	metrics.ScansStarted.Inc()
	started := time.Now()

	sp := o.registerScan(scanID, len(req.Universe))
	defer sp.done.Store(true)

	// one slot per candidate keeps collection race-free and preserves
	// universe order for tie breaking
	results := make([]types.ScoredResult, len(req.Universe))
	ok := make([]bool, len(req.Universe))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, listing := range req.Universe {
		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
			wg.Add(1)
			go func(i int, listing types.Listing) {
				defer wg.Done()
				defer func() { <-sem }()
				defer sp.completed.Add(1)

				res, err := o.evaluate(ctx, req, listing, fetchTimeout)
				if err != nil {
					metrics.CandidatesExcluded.WithLabelValues(excludeReason(err)).Inc()
					log.Debug().Err(err).Str("symbol", listing.Symbol).Msg("candidate excluded")
					return
				}
				results[i] = res
				ok[i] = true
			}(i, listing)
		}
		if ctx.Err() != nil {
			break
		}
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		log.Warn().Msg("scan aborted")
		return nil, err
	}

	ranked := make([]types.ScoredResult, 0, len(results))
	for i, r := range results {
		if ok[i] {
			ranked = append(ranked, r)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})

	if req.MinSimilarity > 0 {
		cut := len(ranked)
		for i, r := range ranked {
			if r.Similarity < req.MinSimilarity {
				cut = i
				break
			}
		}
		ranked = ranked[:cut]
	}
	if req.TopK > 0 && len(ranked) > req.TopK {
		ranked = ranked[:req.TopK]
	}

	metrics.ScanDuration.Observe(time.Since(started).Seconds())
	log.Info().Int("results", len(ranked)).Dur("elapsed", time.Since(started)).
		Msg("scan finished")
	return ranked, nil
}

func (o *Orchestrator) evaluate(ctx context.Context, req Request, listing types.Listing, fetchTimeout time.Duration) (types.ScoredResult, error) {
	metrics.CandidatesEvaluated.Inc()

	fctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	// a few spare bars absorb holidays and listing gaps
	bars, err := o.history.DailyBars(fctx, listing.Symbol, req.Lookback+5)
	if err != nil {
		return types.ScoredResult{}, fmt.Errorf("fetch %s: %w", listing.Symbol, err)
	}

	var notes []string
	if req.Filters != nil {
		pass, reasons := req.Filters.Evaluate(listing.Symbol, bars)
		if !pass {
			return types.ScoredResult{}, fmt.Errorf("%w: %s: %v", errFilterRejected, listing.Symbol, reasons)
		}
		notes = reasons
	}

	candidate, err := curve.FromBars(bars, req.Lookback, req.CloseOnly)
	if err != nil {
		return types.ScoredResult{}, fmt.Errorf("curve %s: %w", listing.Symbol, err)
	}

	sim, err := curve.Similarity(req.ReferenceCurve, candidate)
	if err != nil {
		return types.ScoredResult{}, fmt.Errorf("score %s: %w", listing.Symbol, err)
	}

	return types.ScoredResult{
		Symbol:     listing.Symbol,
		Name:       listing.Name,
		Similarity: sim,
		LastClose:  bars[len(bars)-1].Close,
		Notes:      notes,
	}, nil
}

func excludeReason(err error) string {
	switch {
	case errors.Is(err, errFilterRejected):
		return "filter"
	case errors.Is(err, curve.ErrInsufficientHistory):
		return "short_history"
	case errors.Is(err, curve.ErrUndefinedCorrelation):
		return "degenerate_curve"
	case errors.Is(err, datafeed.ErrNoData):
		return "no_data"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "fetch_error"
	}
}
