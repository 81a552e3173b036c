package scan

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/alphachart/doppelscan/Internal/curve"
	datafeed "github.com/alphachart/doppelscan/Internal/database"
	"github.com/alphachart/doppelscan/Internal/strategy/filters"
	"github.com/alphachart/doppelscan/Internal/types"
)

// fakeHistory serves canned daily bars per symbol.
type fakeHistory struct {
	bars map[string][]types.Bar
	errs map[string]error
}

func (f *fakeHistory) DailyBars(ctx context.Context, symbol string, limit int) ([]types.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	bars, ok := f.bars[symbol]
	if !ok || len(bars) == 0 {
		return nil, datafeed.ErrNoData
	}
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	out := make([]types.Bar, len(bars))
	copy(out, bars)
	return out, nil
}

func risingBars(n int, step float64) []types.Bar {
	bars := make([]types.Bar, n)
	for i := range bars {
		c := 10 + float64(i)*step
		bars[i] = types.Bar{Open: c - 0.1, High: c + 0.2, Low: c - 0.3, Close: c}
	}
	return bars
}

func fallingBars(n int) []types.Bar {
	bars := make([]types.Bar, n)
	for i := range bars {
		c := 100 - float64(i)
		bars[i] = types.Bar{Open: c + 0.1, High: c + 0.3, Low: c - 0.2, Close: c}
	}
	return bars
}

func flatBars(n int) []types.Bar {
	bars := make([]types.Bar, n)
	for i := range bars {
		bars[i] = types.Bar{Open: 10, High: 10, Low: 10, Close: 10}
	}
	return bars
}

func risingReference() []float64 {
	seq := make([]float64, curve.Points)
	for i := range seq {
		seq[i] = float64(i)
	}
	return curve.Normalize(seq)
}

func universe(symbols ...string) []types.Listing {
	out := make([]types.Listing, len(symbols))
	for i, s := range symbols {
		out[i] = types.Listing{Symbol: s, Name: s + " Inc"}
	}
	return out
}

func TestScan_IsolatesFailures(t *testing.T) {
	feed := &fakeHistory{
		bars: map[string][]types.Bar{},
		errs: map[string]error{"BAD": errors.New("connection reset")},
	}
	symbols := []string{"BAD"}
	for i := 0; i < 9; i++ {
		s := fmt.Sprintf("OK%d", i)
		symbols = append(symbols, s)
		feed.bars[s] = risingBars(40, 1)
	}

	o := New(feed, zerolog.Nop())
	results, err := o.Scan(context.Background(), Request{
		ReferenceCurve: risingReference(),
		Lookback:       30,
		Universe:       universe(symbols...),
		Workers:        4,
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(results) != 9 {
		t.Fatalf("got %d results, want 9 (one candidate failed, rest survive)", len(results))
	}
	for _, r := range results {
		if r.Symbol == "BAD" {
			t.Error("failed candidate leaked into results")
		}
	}

	done, total := o.Progress("")
	if done != 10 || total != 10 {
		t.Errorf("Progress() = %d/%d, want 10/10", done, total)
	}
}

func TestProgress_PerScanCounters(t *testing.T) {
	feed := &fakeHistory{bars: map[string][]types.Bar{}}
	var big []string
	for i := 0; i < 10; i++ {
		s := fmt.Sprintf("A%d", i)
		big = append(big, s)
		feed.bars[s] = risingBars(40, 1)
	}
	for _, s := range []string{"B0", "B1", "B2"} {
		feed.bars[s] = risingBars(40, 1)
	}

	o := New(feed, zerolog.Nop())
	req := Request{
		ReferenceCurve: risingReference(),
		Lookback:       30,
		Universe:       universe(big...),
		ScanID:         "scan-big",
	}
	if _, err := o.Scan(context.Background(), req); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	req.Universe = universe("B0", "B1", "B2")
	req.ScanID = "scan-small"
	if _, err := o.Scan(context.Background(), req); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	// The second scan must not clobber the first scan's counters.
	if done, total := o.Progress("scan-big"); done != 10 || total != 10 {
		t.Errorf("Progress(scan-big) = %d/%d, want 10/10", done, total)
	}
	if done, total := o.Progress("scan-small"); done != 3 || total != 3 {
		t.Errorf("Progress(scan-small) = %d/%d, want 3/3", done, total)
	}
	// Empty id reads the most recent scan.
	if done, total := o.Progress(""); done != 3 || total != 3 {
		t.Errorf("Progress(\"\") = %d/%d, want the latest scan's 3/3", done, total)
	}
	if done, total := o.Progress("no-such-scan"); done != 0 || total != 0 {
		t.Errorf("Progress(unknown) = %d/%d, want 0/0", done, total)
	}
}

func TestProgress_EvictsOldFinishedScans(t *testing.T) {
	feed := &fakeHistory{bars: map[string][]types.Bar{"S": risingBars(40, 1)}}
	o := New(feed, zerolog.Nop())

	req := Request{
		ReferenceCurve: risingReference(),
		Lookback:       30,
		Universe:       universe("S"),
	}
	for i := 0; i < keepScans+5; i++ {
		req.ScanID = fmt.Sprintf("scan-%02d", i)
		if _, err := o.Scan(context.Background(), req); err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
	}

	o.mu.Lock()
	n := len(o.progress)
	o.mu.Unlock()
	if n > keepScans {
		t.Errorf("retained %d progress entries, want at most %d", n, keepScans)
	}
	if done, total := o.Progress(""); done != 1 || total != 1 {
		t.Errorf("latest scan progress = %d/%d, want 1/1", done, total)
	}
}

func TestScan_DeterministicTieOrder(t *testing.T) {
	feed := &fakeHistory{bars: map[string][]types.Bar{}}
	// Identical histories score identically; ties must keep universe order.
	for _, s := range []string{"CCC", "AAA", "BBB"} {
		feed.bars[s] = risingBars(40, 1)
	}

	o := New(feed, zerolog.Nop())
	for trial := 0; trial < 5; trial++ {
		results, err := o.Scan(context.Background(), Request{
			ReferenceCurve: risingReference(),
			Lookback:       30,
			Universe:       universe("CCC", "AAA", "BBB"),
			Workers:        3,
		})
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		got := []string{results[0].Symbol, results[1].Symbol, results[2].Symbol}
		if got[0] != "CCC" || got[1] != "AAA" || got[2] != "BBB" {
			t.Fatalf("trial %d: order = %v, want universe order on ties", trial, got)
		}
	}
}

func TestScan_RankingAndPolicy(t *testing.T) {
	feed := &fakeHistory{bars: map[string][]types.Bar{
		"UP":   risingBars(40, 1),
		"DOWN": fallingBars(40),
	}}

	o := New(feed, zerolog.Nop())
	req := Request{
		ReferenceCurve: risingReference(),
		Lookback:       30,
		Universe:       universe("DOWN", "UP"),
	}

	results, err := o.Scan(context.Background(), req)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(results) != 2 || results[0].Symbol != "UP" {
		t.Fatalf("results = %+v, want UP ranked first", results)
	}
	if results[0].Similarity < 99 {
		t.Errorf("matching shape scored %v, want >= 99", results[0].Similarity)
	}
	if results[1].Similarity > 1 {
		t.Errorf("opposite shape scored %v, want near 0", results[1].Similarity)
	}
	if results[0].LastClose != 49 { // last close of the rising series
		t.Errorf("LastClose = %v, want 49", results[0].LastClose)
	}

	req.MinSimilarity = 80
	results, err = o.Scan(context.Background(), req)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(results) != 1 || results[0].Symbol != "UP" {
		t.Errorf("similarity floor kept %+v, want only UP", results)
	}

	req.MinSimilarity = 0
	req.TopK = 1
	results, err = o.Scan(context.Background(), req)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(results) != 1 {
		t.Errorf("TopK=1 returned %d results", len(results))
	}
}

func TestScan_ExcludesDegenerateAndShort(t *testing.T) {
	feed := &fakeHistory{bars: map[string][]types.Bar{
		"FLAT":  flatBars(40),
		"SHORT": risingBars(10, 1),
		"GOOD":  risingBars(40, 1),
	}}

	o := New(feed, zerolog.Nop())
	results, err := o.Scan(context.Background(), Request{
		ReferenceCurve: risingReference(),
		Lookback:       30,
		Universe:       universe("FLAT", "SHORT", "GOOD", "MISSING"),
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(results) != 1 || results[0].Symbol != "GOOD" {
		t.Fatalf("results = %+v, want only GOOD", results)
	}
}

func TestScan_FilterRejection(t *testing.T) {
	// Rising series end on a solid bullish bar, falling on a bearish one.
	feed := &fakeHistory{bars: map[string][]types.Bar{
		"UP":   risingBars(40, 1),
		"DOWN": fallingBars(40),
	}}

	o := New(feed, zerolog.Nop())
	results, err := o.Scan(context.Background(), Request{
		ReferenceCurve: risingReference(),
		Lookback:       30,
		Universe:       universe("UP", "DOWN"),
		Filters:        filters.NewEngine([]string{"bullish"}),
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(results) != 1 || results[0].Symbol != "UP" {
		t.Fatalf("results = %+v, want only UP after bullish filter", results)
	}
}

func TestScan_ValidatesRequest(t *testing.T) {
	o := New(&fakeHistory{}, zerolog.Nop())

	if _, err := o.Scan(context.Background(), Request{
		ReferenceCurve: []float64{1, 2, 3},
		Lookback:       30,
	}); err == nil {
		t.Error("short reference curve accepted")
	}

	if _, err := o.Scan(context.Background(), Request{
		ReferenceCurve: risingReference(),
		Lookback:       0,
	}); err == nil {
		t.Error("zero lookback accepted")
	}
}

func TestScan_Cancellation(t *testing.T) {
	feed := &fakeHistory{bars: map[string][]types.Bar{}}
	var symbols []string
	for i := 0; i < 50; i++ {
		s := fmt.Sprintf("S%02d", i)
		symbols = append(symbols, s)
		feed.bars[s] = risingBars(40, 1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := New(feed, zerolog.Nop())
	_, err := o.Scan(ctx, Request{
		ReferenceCurve: risingReference(),
		Lookback:       30,
		Universe:       universe(symbols...),
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Scan() error = %v, want context.Canceled", err)
	}
}

func TestScan_EmptyUniverse(t *testing.T) {
	o := New(&fakeHistory{}, zerolog.Nop())
	results, err := o.Scan(context.Background(), Request{
		ReferenceCurve: risingReference(),
		Lookback:       30,
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("empty universe produced %d results", len(results))
	}
}
