package ratelimit

import (
	"math"
	"math/rand"
	"time"
)

// Backoff computes the delay before retry attempt n (0-indexed: n=0 is the
// delay before the first retry, i.e. after the initial attempt failed).
// mode is one of "exp", "fixed", "none" per the descriptor's
// engine.backoff_mode; baseS is engine.backoff_base_s.
func Backoff(n int, mode string, baseS float64) time.Duration {
	switch mode {
	case "exp":
		d := baseS * math.Pow(2, float64(n))
		d += rand.Float64() * baseS
		return time.Duration(d * float64(time.Second))
	case "fixed":
		return time.Duration(baseS * float64(time.Second))
	case "none":
		return 0
	default:
		return 0
	}
}
