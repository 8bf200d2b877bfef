package store

import (
	"context"
	"database/sql"

	"tour-booking-service/internal/models"
)

// ListMemories retrieves the gallery, newest first, with the tour name
// when the memory is linked to one
func (s *Store) ListMemories(ctx context.Context) ([]models.Memory, error) {
	var memories []models.Memory
	query := `
		SELECT m.*, t.name AS tour_name
		FROM memories m LEFT JOIN tours t ON m.tour_id = t.id
		ORDER BY m.memory_date DESC`

	err := s.db.SelectContext(ctx, &memories, query)
	return memories, err
}

// GetMemoryByID retrieves a memory by ID
func (s *Store) GetMemoryByID(ctx context.Context, id int64) (*models.Memory, error) {
	var memory models.Memory
	err := s.db.GetContext(ctx, &memory, "SELECT * FROM memories WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrMemoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &memory, nil
}

// CreateMemory inserts a gallery entry
func (s *Store) CreateMemory(ctx context.Context, memory *models.Memory) error {
	query := `
		INSERT INTO memories (title, description, image_filename, tour_id, memory_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return s.db.GetContext(ctx, &memory.ID, query,
		memory.Title, memory.Description, memory.ImageFilename, memory.TourID, memory.MemoryDate)
}

// UpdateMemory updates a gallery entry
func (s *Store) UpdateMemory(ctx context.Context, memory *models.Memory) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE memories SET title = $1, description = $2, image_filename = $3, tour_id = $4, memory_date = $5 WHERE id = $6",
		memory.Title, memory.Description, memory.ImageFilename, memory.TourID, memory.MemoryDate, memory.ID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrMemoryNotFound
	}
	return nil
}

// DeleteMemory removes a gallery entry
func (s *Store) DeleteMemory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM memories WHERE id = $1", id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrMemoryNotFound
	}
	return nil
}
