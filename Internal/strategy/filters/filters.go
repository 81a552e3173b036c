package filters

import (
	"fmt"

	"github.com/alphachart/doppelscan/Internal/types"
)

// Rule is one togglable last-bar shape predicate. Evaluate reports
// whether the chronological (oldest first) bar series passes, and a
// human-readable reason when it does not.
type Rule interface {
	Name() string
	Evaluate(bars []types.Bar) (bool, string)
}

const dojiBodyRatio = 0.1

// IsDoji reports whether a bar's body is negligible next to its range.
func IsDoji(b types.Bar) bool {
	rng := b.Range()
	return rng > 0 && b.Body()/rng <= dojiBodyRatio
}

// BullishRule requires a solid rising last bar: close above open and not
// a doji.
type BullishRule struct{}

func (BullishRule) Name() string { return "bullish" }

func (BullishRule) Evaluate(bars []types.Bar) (bool, string) {
	if len(bars) == 0 {
		return false, "no bars"
	}
	last := bars[len(bars)-1]
	if last.Close <= last.Open {
		return false, fmt.Sprintf("last bar not bullish (open %.2f, close %.2f)", last.Open, last.Close)
	}
	if IsDoji(last) {
		return false, "last bar is a doji"
	}
	return true, ""
}

// DojiRule requires the last bar to be a doji.
type DojiRule struct{}

func (DojiRule) Name() string { return "doji" }

func (DojiRule) Evaluate(bars []types.Bar) (bool, string) {
	if len(bars) == 0 {
		return false, "no bars"
	}
	if !IsDoji(bars[len(bars)-1]) {
		return false, "last bar is not a doji"
	}
	return true, ""
}

// HammerRule requires a strict hammer shape on the last bar: a small body
// near the top of the range with a long lower shadow. Large-body
// marubozu-like bars are rejected even when the shadow ratios hold.
type HammerRule struct {
	ShadowRatio   float64 // lower shadow vs upper shadow and body
	MaxBodyFrac   float64 // body vs total range
	MinShadowFrac float64 // lower shadow vs total range
	DojiShadow    float64 // lower shadow vs range for doji bodies
}

// NewHammerRule returns the rule with the strict default thresholds.
func NewHammerRule() HammerRule {
	return HammerRule{
		ShadowRatio:   3.0,
		MaxBodyFrac:   0.3,
		MinShadowFrac: 0.6,
		DojiShadow:    0.7,
	}
}

func (HammerRule) Name() string { return "hammer" }

func (r HammerRule) Evaluate(bars []types.Bar) (bool, string) {
	if len(bars) == 0 {
		return false, "no bars"
	}
	last := bars[len(bars)-1]

	rng := last.Range()
	if rng <= 0 {
		return false, "zero range bar"
	}

	doji := IsDoji(last)
	if last.Close < last.Open && !doji {
		return false, "bearish body"
	}

	lower := last.LowerShadow()
	upper := last.UpperShadow()
	body := last.Body()

	if lower < r.ShadowRatio*upper {
		return false, fmt.Sprintf("lower shadow %.2f under %.0fx upper shadow %.2f", lower, r.ShadowRatio, upper)
	}

	bodyOK := body <= 0 || lower >= r.ShadowRatio*body
	dojiOK := !doji || lower >= r.DojiShadow*rng
	if !bodyOK && !dojiOK {
		return false, "lower shadow too short for body"
	}

	if body/rng > r.MaxBodyFrac {
		return false, fmt.Sprintf("body %.0f%% of range exceeds %.0f%%", body/rng*100, r.MaxBodyFrac*100)
	}
	if lower/rng < r.MinShadowFrac {
		return false, fmt.Sprintf("lower shadow %.0f%% of range under %.0f%%", lower/rng*100, r.MinShadowFrac*100)
	}
	return true, ""
}

// MidpointSupportRule checks that the recent pullback held the midpoint
// of a long bullish anchor bar: the bar eight steps back must have a
// dominant rising body, and every close over the following six bars must
// stay at or above that bar's body midpoint.
type MidpointSupportRule struct {
	MinBodyFrac float64
}

func NewMidpointSupportRule() MidpointSupportRule {
	return MidpointSupportRule{MinBodyFrac: 0.5}
}

func (MidpointSupportRule) Name() string { return "midpoint_support" }

func (r MidpointSupportRule) Evaluate(bars []types.Bar) (bool, string) {
	if len(bars) < 8 {
		return false, fmt.Sprintf("need 8 bars, have %d", len(bars))
	}

	anchor := bars[len(bars)-8]
	rng := anchor.Range()
	if anchor.Close <= anchor.Open || rng <= 0 || anchor.Body()/rng < r.MinBodyFrac {
		return false, "no long bullish anchor bar"
	}

	mid := (anchor.Open + anchor.Close) / 2
	for i := len(bars) - 7; i < len(bars)-1; i++ {
		if bars[i].Close < mid {
			return false, fmt.Sprintf("close %.2f broke midpoint %.2f", bars[i].Close, mid)
		}
	}
	return true, ""
}

// Registry maps the closed set of rule names to constructors, replacing
// any string-keyed branching at call sites.
func Registry() map[string]Rule {
	return map[string]Rule{
		"bullish":          BullishRule{},
		"doji":             DojiRule{},
		"hammer":           NewHammerRule(),
		"midpoint_support": NewMidpointSupportRule(),
	}
}
