package engine

import (
	"time"

	"github.com/pricedrp9/pulse-map/internal/models"
	"github.com/pricedrp9/pulse-map/internal/slot"
)

// Heatmap is the aggregate view of every availability mark of a pulse:
// per-slot participant counts, per-slot participant names, the viewer's own
// marks, and the running maximum used to scale intensity tiers.
type Heatmap struct {
	Counts map[slot.Key]int
	Names  map[slot.Key][]string
	Mine   map[slot.Key]struct{}
	Max    int
}

// NewHeatmap returns an empty aggregate.
func NewHeatmap() Heatmap {
	return Heatmap{
		Counts: make(map[slot.Key]int),
		Names:  make(map[slot.Key][]string),
		Mine:   make(map[slot.Key]struct{}),
		Max:    1,
	}
}

// Aggregate recomputes the full heatmap from scratch. Each mark's slot key
// is derived in loc, the viewer's calendar context. Refreshes always run
// through here; there is no incremental path.
func Aggregate(rows []models.MarkRow, viewerID string, mode slot.Mode, loc *time.Location) Heatmap {
	if loc == nil {
		loc = time.Local
	}
	h := NewHeatmap()
	for _, row := range rows {
		key := slot.KeyOf(row.StartTime.In(loc), mode)
		h.Counts[key]++
		if h.Counts[key] > h.Max {
			h.Max = h.Counts[key]
		}
		h.Names[key] = append(h.Names[key], row.ParticipantName)
		if row.ParticipantID == viewerID {
			h.Mine[key] = struct{}{}
		}
	}
	return h
}

// Count returns the number of participants marked available for the slot.
func (h Heatmap) Count(k slot.Key) int {
	return h.Counts[k]
}

// NamesFor returns the display names marked available for the slot.
func (h Heatmap) NamesFor(k slot.Key) []string {
	return h.Names[k]
}

// HasMine reports whether the slot is in the viewer's own availability.
func (h Heatmap) HasMine(k slot.Key) bool {
	_, ok := h.Mine[k]
	return ok
}

// Tier returns the intensity bucket for the slot.
func (h Heatmap) Tier(k slot.Key) slot.Tier {
	return slot.TierFor(h.Counts[k], h.Max)
}

// clone deep-copies the aggregate so snapshots stay stable while the
// session keeps mutating its own copy.
func (h Heatmap) clone() Heatmap {
	out := Heatmap{
		Counts: make(map[slot.Key]int, len(h.Counts)),
		Names:  make(map[slot.Key][]string, len(h.Names)),
		Mine:   make(map[slot.Key]struct{}, len(h.Mine)),
		Max:    h.Max,
	}
	for k, v := range h.Counts {
		out.Counts[k] = v
	}
	for k, v := range h.Names {
		names := make([]string, len(v))
		copy(names, v)
		out.Names[k] = names
	}
	for k := range h.Mine {
		out.Mine[k] = struct{}{}
	}
	return out
}
