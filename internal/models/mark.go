package models

import "time"

// AvailabilityMark is one participant's claim of being free during one
// discrete slot. Toggles are delete+insert; a mark is never updated in
// place, and at most one exists per (participant, start_time).
type AvailabilityMark struct {
	ID            string    `db:"id" json:"id"`
	ParticipantID string    `db:"participant_id" json:"participant_id"`
	PulseID       string    `db:"pulse_id" json:"pulse_id"`
	StartTime     time.Time `db:"start_time" json:"start_time"`
	EndTime       time.Time `db:"end_time" json:"end_time"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// MarkRow is the aggregation input: a mark joined with its owner's name.
type MarkRow struct {
	StartTime       time.Time `db:"start_time" json:"start_time"`
	EndTime         time.Time `db:"end_time" json:"end_time"`
	ParticipantID   string    `db:"participant_id" json:"participant_id"`
	ParticipantName string    `db:"participant_name" json:"participant_name"`
}
