package dto

import "github.com/pricedrp9/pulse-map/internal/slot"

// HeatmapSlot is one aggregated slot of the availability map.
type HeatmapSlot struct {
	Key          slot.Key `json:"key"`
	Count        int      `json:"count"`
	Tier         string   `json:"tier"`
	Participants []string `json:"participants"`
	Mine         bool     `json:"mine"`
}

// HeatmapView is the aggregated availability of a pulse, slots ordered by
// time. MaxCount is the scaling denominator input, not the tier itself.
type HeatmapView struct {
	PulseID  string        `json:"pulse_id"`
	Status   string        `json:"status"`
	MaxCount int           `json:"max_count"`
	Slots    []HeatmapSlot `json:"slots"`
}
