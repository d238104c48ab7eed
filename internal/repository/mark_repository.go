package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pricedrp9/pulse-map/internal/models"
)

// MarkRepository persists availability marks. Marks are create/delete only;
// a unique constraint on (participant_id, start_time) makes duplicate adds
// no-ops.
type MarkRepository struct {
	db *sqlx.DB
}

// NewMarkRepository constructs a mark repository.
func NewMarkRepository(db *sqlx.DB) *MarkRepository {
	return &MarkRepository{db: db}
}

// Create inserts a mark, silently keeping the existing row on conflict.
func (r *MarkRepository) Create(ctx context.Context, mark *models.AvailabilityMark) error {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	if mark.CreatedAt.IsZero() {
		mark.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO availability (id, participant_id, pulse_id, start_time, end_time, created_at)
VALUES (:id, :participant_id, :pulse_id, :start_time, :end_time, :created_at)
ON CONFLICT (participant_id, start_time) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, mark); err != nil {
		return fmt.Errorf("create mark: %w", err)
	}
	return nil
}

// Delete removes the mark keyed by (participant, start). Deleting a missing
// mark is a no-op.
func (r *MarkRepository) Delete(ctx context.Context, participantID string, start time.Time) error {
	query := `DELETE FROM availability WHERE participant_id = $1 AND start_time = $2`
	if _, err := r.db.ExecContext(ctx, query, participantID, start); err != nil {
		return fmt.Errorf("delete mark: %w", err)
	}
	return nil
}

// ListByPulse returns every mark of a pulse joined with its owner's name.
func (r *MarkRepository) ListByPulse(ctx context.Context, pulseID string) ([]models.MarkRow, error) {
	query := `SELECT a.start_time, a.end_time, a.participant_id, p.name AS participant_name
FROM availability a
JOIN participants p ON p.id = a.participant_id
WHERE a.pulse_id = $1
ORDER BY a.start_time ASC, a.created_at ASC`
	var rows []models.MarkRow
	if err := r.db.SelectContext(ctx, &rows, query, pulseID); err != nil {
		return nil, fmt.Errorf("list marks: %w", err)
	}
	return rows, nil
}
