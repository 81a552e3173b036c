package utils

import "time"

// RetryConfig controls RetryWithBackoff.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// RetryWithBackoff runs fn until it succeeds or attempts are exhausted,
// sleeping an exponentially growing delay between attempts. The last
// error is returned.
func RetryWithBackoff(fn func() error, cfg RetryConfig) error {
	delay := cfg.InitialDelay
	var err error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}
		time.Sleep(delay)
		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return err
}
