package repository

import (
	"context"

	"secadvisor-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PersonaRepository handles database operations for persona selections
type PersonaRepository struct {
	db *pgxpool.Pool
}

// NewPersonaRepository creates a new persona repository
func NewPersonaRepository(db *pgxpool.Pool) *PersonaRepository {
	return &PersonaRepository{db: db}
}

// Create records a persona selection
func (r *PersonaRepository) Create(ctx context.Context, persona *models.Persona) error {
	query := `
		INSERT INTO personas (name, selected_at)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := r.db.QueryRow(
		ctx, query,
		persona.Name,
		persona.SelectedAt,
	).Scan(&persona.ID, &persona.CreatedAt)

	return err
}

// GetByID retrieves a persona selection by ID
func (r *PersonaRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Persona, error) {
	persona := &models.Persona{}
	query := `
		SELECT id, name, selected_at, created_at
		FROM personas
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&persona.ID,
		&persona.Name,
		&persona.SelectedAt,
		&persona.CreatedAt,
	)

	if err != nil {
		return nil, err
	}

	return persona, nil
}

// ListRecent retrieves the most recent persona selections
func (r *PersonaRepository) ListRecent(ctx context.Context, limit int) ([]*models.Persona, error) {
	query := `
		SELECT id, name, selected_at, created_at
		FROM personas
		ORDER BY selected_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var personas []*models.Persona
	for rows.Next() {
		persona := &models.Persona{}
		err := rows.Scan(
			&persona.ID,
			&persona.Name,
			&persona.SelectedAt,
			&persona.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		personas = append(personas, persona)
	}

	return personas, rows.Err()
}
