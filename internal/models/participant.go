package models

import "time"

// Participant is one respondent of a pulse. The organizer shows up here too
// when they vote. IsCompleted is a participant-controlled "I'm done" flag
// with no effect on aggregation or finalization.
type Participant struct {
	ID          string    `db:"id" json:"id"`
	PulseID     string    `db:"pulse_id" json:"pulse_id"`
	Name        string    `db:"name" json:"name"`
	Email       *string   `db:"email" json:"email,omitempty"`
	Timezone    string    `db:"timezone" json:"timezone"`
	IsOrganizer bool      `db:"is_organizer" json:"is_organizer"`
	IsCompleted bool      `db:"is_completed" json:"is_completed"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
