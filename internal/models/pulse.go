package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pricedrp9/pulse-map/internal/slot"
)

// Pulse statuses.
const (
	StatusActive    = "active"
	StatusConfirmed = "confirmed"
)

// Pulse is one coordination event. While active it collects availability;
// once confirmed it carries the organizer's finalized selection.
type Pulse struct {
	ID             string        `db:"id" json:"id"`
	Title          string        `db:"title" json:"title"`
	Mode           slot.Mode     `db:"mode" json:"mode"`
	ViewType       slot.ViewType `db:"view_type" json:"view_type"`
	StartDate      time.Time     `db:"start_date" json:"start_date"`
	Timezone       string        `db:"timezone" json:"timezone"`
	Status         string        `db:"status" json:"status"`
	OrganizerToken string        `db:"organizer_token" json:"-"`

	// FinalizedSelection holds every confirmed interval in the order the
	// organizer picked them. The legacy start/end columns mirror its first
	// element for older consumers.
	FinalizedSelection IntervalList `db:"finalized_selection" json:"finalized_selection"`
	FinalizedStart     *time.Time   `db:"finalized_start" json:"finalized_start,omitempty"`
	FinalizedEnd       *time.Time   `db:"finalized_end" json:"finalized_end,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Location resolves the pulse's IANA timezone, falling back to UTC.
func (p *Pulse) Location() *time.Location {
	if p.Timezone != "" {
		if loc, err := time.LoadLocation(p.Timezone); err == nil {
			return loc
		}
	}
	return time.UTC
}

// IntervalList stores ordered finalized intervals as a JSONB column.
type IntervalList []slot.Interval

// Value implements driver.Valuer.
func (l IntervalList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *IntervalList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("models: cannot scan %T into IntervalList", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(raw, l)
}

// Pagination captures list metadata shared by collection responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
