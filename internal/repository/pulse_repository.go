package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pricedrp9/pulse-map/internal/models"
)

const pulseColumns = `id, title, mode, view_type, start_date, timezone, status, organizer_token, finalized_selection, finalized_start, finalized_end, created_at, updated_at`

// PulseRepository persists pulses.
type PulseRepository struct {
	db *sqlx.DB
}

// NewPulseRepository constructs a pulse repository.
func NewPulseRepository(db *sqlx.DB) *PulseRepository {
	return &PulseRepository{db: db}
}

// Create inserts a pulse.
func (r *PulseRepository) Create(ctx context.Context, pulse *models.Pulse) error {
	if pulse.ID == "" {
		pulse.ID = uuid.NewString()
	}
	if pulse.OrganizerToken == "" {
		pulse.OrganizerToken = uuid.NewString()
	}
	now := time.Now().UTC()
	pulse.CreatedAt = now
	pulse.UpdatedAt = now
	query := `INSERT INTO pulses (id, title, mode, view_type, start_date, timezone, status, organizer_token, created_at, updated_at)
VALUES (:id, :title, :mode, :view_type, :start_date, :timezone, :status, :organizer_token, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, pulse); err != nil {
		return fmt.Errorf("create pulse: %w", err)
	}
	return nil
}

// GetByID fetches a pulse.
func (r *PulseRepository) GetByID(ctx context.Context, id string) (*models.Pulse, error) {
	query := fmt.Sprintf(`SELECT %s FROM pulses WHERE id = $1`, pulseColumns)
	var pulse models.Pulse
	if err := r.db.GetContext(ctx, &pulse, query, id); err != nil {
		return nil, err
	}
	return &pulse, nil
}

// ListByIDs returns the pulses for a set of ids, newest first.
func (r *PulseRepository) ListByIDs(ctx context.Context, ids []string, page, pageSize int) ([]models.Pulse, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT %s FROM pulses WHERE id = ANY($1) ORDER BY created_at DESC LIMIT %d OFFSET %d`, pulseColumns, pageSize, offset)
	var pulses []models.Pulse
	if err := r.db.SelectContext(ctx, &pulses, query, pq.Array(ids)); err != nil {
		return nil, 0, fmt.Errorf("list pulses: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM pulses WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, 0, fmt.Errorf("count pulses: %w", err)
	}
	return pulses, total, nil
}

// Finalize commits the confirmed state: the ordered interval list plus the
// legacy single-slot mirror of its first element. Last write wins; there is
// no compare-and-set guard on status.
func (r *PulseRepository) Finalize(ctx context.Context, id string, selection models.IntervalList, start, end time.Time) error {
	query := `UPDATE pulses SET status = $2, finalized_selection = $3, finalized_start = $4, finalized_end = $5, updated_at = $6 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.StatusConfirmed, selection, start, end, time.Now().UTC()); err != nil {
		return fmt.Errorf("finalize pulse: %w", err)
	}
	return nil
}

// Reopen reverts a pulse to voting, clearing the selection and mirrors.
func (r *PulseRepository) Reopen(ctx context.Context, id string) error {
	query := `UPDATE pulses SET status = $2, finalized_selection = NULL, finalized_start = NULL, finalized_end = NULL, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.StatusActive, time.Now().UTC()); err != nil {
		return fmt.Errorf("reopen pulse: %w", err)
	}
	return nil
}
