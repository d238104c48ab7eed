package slot

// Tier is a discrete heatmap intensity bucket.
type Tier int

const (
	TierEmpty Tier = iota
	TierLow
	TierMid
	TierHigh
)

// Intensity break points. The denominator floor keeps a single respondent
// from saturating the top tier.
const (
	LowThreshold  = 0.33
	MidThreshold  = 0.66
	MinScaleDenom = 2
)

// TierFor maps a slot's count onto an intensity tier given the running
// maximum count across the grid.
func TierFor(count, maxCount int) Tier {
	if count <= 0 {
		return TierEmpty
	}
	denom := maxCount
	if denom < MinScaleDenom {
		denom = MinScaleDenom
	}
	ratio := float64(count) / float64(denom)
	switch {
	case ratio < LowThreshold:
		return TierLow
	case ratio < MidThreshold:
		return TierMid
	default:
		return TierHigh
	}
}

// String names the tier for logs and exports.
func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMid:
		return "mid"
	case TierHigh:
		return "high"
	default:
		return "empty"
	}
}
