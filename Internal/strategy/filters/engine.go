package filters

import "github.com/alphachart/doppelscan/Internal/types"

// Engine evaluates a set of enabled rules against a candidate's bars.
// Rules combine by AND; the first failing rule excludes the candidate.
type Engine struct {
	Rules []Rule

	// ForceInclude names a single symbol that is kept in the output even
	// when rules fail, with the failure reasons recorded for display.
	// Debugging aid only.
	ForceInclude string
}

// NewEngine builds an engine from rule names out of Registry. Unknown
// names are ignored.
func NewEngine(names []string) *Engine {
	reg := Registry()
	e := &Engine{}
	for _, n := range names {
		if r, ok := reg[n]; ok {
			e.Rules = append(e.Rules, r)
		}
	}
	return e
}

// Evaluate runs every rule. A candidate passes when all rules pass, or
// when it is the force-included symbol; reasons carries each failure
// either way.
func (e *Engine) Evaluate(symbol string, bars []types.Bar) (pass bool, reasons []string) {
	pass = true
	for _, rule := range e.Rules {
		ok, reason := rule.Evaluate(bars)
		if !ok {
			pass = false
			reasons = append(reasons, rule.Name()+": "+reason)
		}
	}
	if !pass && symbol != "" && symbol == e.ForceInclude {
		return true, reasons
	}
	if pass {
		return true, nil
	}
	return false, reasons
}
