package types

import "testing"

func TestBarGeometry(t *testing.T) {
	tests := []struct {
		name                    string
		b                       Bar
		rng, body, lower, upper float64
	}{
		{
			"bullish bar",
			Bar{Open: 10, High: 11, Low: 9.5, Close: 10.75},
			1.5, 0.75, 0.5, 0.25,
		},
		{
			"bearish bar",
			Bar{Open: 10.75, High: 11, Low: 9.5, Close: 10},
			1.5, 0.75, 0.5, 0.25,
		},
		{
			"flat bar",
			Bar{Open: 10, High: 10, Low: 10, Close: 10},
			0, 0, 0, 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.b.Range(); got != tt.rng {
				t.Errorf("Range() = %v, want %v", got, tt.rng)
			}
			if got := tt.b.Body(); got != tt.body {
				t.Errorf("Body() = %v, want %v", got, tt.body)
			}
			if got := tt.b.LowerShadow(); got != tt.lower {
				t.Errorf("LowerShadow() = %v, want %v", got, tt.lower)
			}
			if got := tt.b.UpperShadow(); got != tt.upper {
				t.Errorf("UpperShadow() = %v, want %v", got, tt.upper)
			}
		})
	}
}

func TestBiasString(t *testing.T) {
	if BiasBullish.String() != "bullish" || BiasBearish.String() != "bearish" || BiasNeutral.String() != "neutral" {
		t.Error("Bias.String() mismatch")
	}
}
