package comfy

import "math/rand/v2"

const (
	randomSeed   int64 = -1
	seedStride   int64 = 1000
	maxSeedRange int64 = 1 << 31
)

// Rand is the random source used for per-shot random seeds.
type Rand interface {
	Int64N(n int64) int64
}

// ShotSeed derives the seed for shotID. A base of -1 draws an independent
// 31-bit random seed; otherwise seeds are spaced 1000 apart so each shot is
// distinct yet reproducible from one episode seed.
func ShotSeed(base int64, shotID int, rnd Rand) int64 {
	if base == randomSeed {
		if rnd == nil {
			return rand.Int64N(maxSeedRange)
		}
		return rnd.Int64N(maxSeedRange)
	}
	return base + int64(shotID)*seedStride
}
