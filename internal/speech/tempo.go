package speech

import (
	"fmt"
	"math"

	"reelforge/internal/services"
)

const (
	minTempo = 0.5
	maxTempo = 2.0
	// maxTempoStages bounds the chain length; ratios needing more are
	// treated as unrecoverable.
	maxTempoStages = 16
)

// PlanTempo factors ratio (actual/target duration) into the fewest chained
// atempo stages whose individual factors stay within [0.5, 2.0].
func PlanTempo(ratio float64) ([]string, error) {
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return nil, services.Wrap(services.ErrDurationCorrection, "speech", "plan tempo",
			fmt.Sprintf("invalid ratio %v", ratio), nil)
	}
	for k := 1; k <= maxTempoStages; k++ {
		factor := math.Pow(ratio, 1/float64(k))
		if factor < minTempo || factor > maxTempo {
			continue
		}
		stages := make([]string, k)
		for i := range stages {
			stages[i] = fmt.Sprintf("atempo=%.6f", factor)
		}
		return stages, nil
	}
	return nil, services.Wrap(services.ErrDurationCorrection, "speech", "plan tempo",
		fmt.Sprintf("ratio %v needs more than %d stages", ratio, maxTempoStages), nil)
}
