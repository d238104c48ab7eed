package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pricedrp9/pulse-map/internal/models"
)

const participantColumns = `id, pulse_id, name, email, timezone, is_organizer, is_completed, created_at`

// ParticipantRepository persists pulse respondents.
type ParticipantRepository struct {
	db *sqlx.DB
}

// NewParticipantRepository constructs a participant repository.
func NewParticipantRepository(db *sqlx.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// Create inserts a participant.
func (r *ParticipantRepository) Create(ctx context.Context, p *models.Participant) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO participants (id, pulse_id, name, email, timezone, is_organizer, is_completed, created_at)
VALUES (:id, :pulse_id, :name, :email, :timezone, :is_organizer, :is_completed, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("create participant: %w", err)
	}
	return nil
}

// GetByID fetches a participant.
func (r *ParticipantRepository) GetByID(ctx context.Context, id string) (*models.Participant, error) {
	query := fmt.Sprintf(`SELECT %s FROM participants WHERE id = $1`, participantColumns)
	var p models.Participant
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByPulse returns every respondent of a pulse in join order.
func (r *ParticipantRepository) ListByPulse(ctx context.Context, pulseID string) ([]models.Participant, error) {
	query := fmt.Sprintf(`SELECT %s FROM participants WHERE pulse_id = $1 ORDER BY created_at ASC`, participantColumns)
	var participants []models.Participant
	if err := r.db.SelectContext(ctx, &participants, query, pulseID); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return participants, nil
}

// ListWithEmail returns the respondents reachable by the notifier.
func (r *ParticipantRepository) ListWithEmail(ctx context.Context, pulseID string) ([]models.Participant, error) {
	query := fmt.Sprintf(`SELECT %s FROM participants WHERE pulse_id = $1 AND email IS NOT NULL ORDER BY created_at ASC`, participantColumns)
	var participants []models.Participant
	if err := r.db.SelectContext(ctx, &participants, query, pulseID); err != nil {
		return nil, fmt.Errorf("list participants with email: %w", err)
	}
	return participants, nil
}

// Update persists the mutable participant fields.
func (r *ParticipantRepository) Update(ctx context.Context, p *models.Participant) error {
	query := `UPDATE participants SET name = :name, email = :email, is_completed = :is_completed WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("update participant: %w", err)
	}
	return nil
}
