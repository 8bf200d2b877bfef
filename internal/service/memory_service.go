package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tour-booking-service/internal/models"
	"tour-booking-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MemoryStore is the persistence surface for the gallery
type MemoryStore interface {
	ListMemories(ctx context.Context) ([]models.Memory, error)
	GetMemoryByID(ctx context.Context, id int64) (*models.Memory, error)
	CreateMemory(ctx context.Context, memory *models.Memory) error
	UpdateMemory(ctx context.Context, memory *models.Memory) error
	DeleteMemory(ctx context.Context, id int64) error
}

// MemoryService manages gallery entries and the image files backing
// them. The record owns its file: replacing or deleting the record
// removes the old file from disk.
type MemoryService struct {
	store    MemoryStore
	mediaDir string
	logger   *zap.Logger
}

// NewMemoryService creates a new memory service
func NewMemoryService(store MemoryStore, mediaDir string) *MemoryService {
	return &MemoryService{
		store:    store,
		mediaDir: mediaDir,
		logger:   util.GetLogger(),
	}
}

// List retrieves the gallery
func (s *MemoryService) List(ctx context.Context) ([]models.Memory, error) {
	return s.store.ListMemories(ctx)
}

// NewImageFilename builds a collision-free filename for an upload,
// keeping the original extension.
func (s *MemoryService) NewImageFilename(original string) string {
	ext := filepath.Ext(original)
	return fmt.Sprintf("%s_%s%s", time.Now().Format("20060102150405"), uuid.New().String()[:8], ext)
}

// ImagePath returns the on-disk path for a stored filename
func (s *MemoryService) ImagePath(filename string) string {
	return filepath.Join(s.mediaDir, filepath.Base(filename))
}

// Create inserts a gallery entry; the image must already be saved
func (s *MemoryService) Create(ctx context.Context, memory *models.Memory) error {
	if memory.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if memory.ImageFilename == "" {
		return fmt.Errorf("%w: image is required", ErrValidation)
	}
	if err := s.store.CreateMemory(ctx, memory); err != nil {
		return fmt.Errorf("failed to create memory: %w", err)
	}
	s.logger.Info("Memory added", zap.Int64("memory_id", memory.ID), zap.String("image", memory.ImageFilename))
	return nil
}

// Update replaces a gallery entry. When the image changed, the previous
// file is removed after the row commits.
func (s *MemoryService) Update(ctx context.Context, memory *models.Memory) error {
	if memory.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}

	existing, err := s.store.GetMemoryByID(ctx, memory.ID)
	if err != nil {
		return err
	}
	if memory.ImageFilename == "" {
		memory.ImageFilename = existing.ImageFilename
	}

	if err := s.store.UpdateMemory(ctx, memory); err != nil {
		return fmt.Errorf("failed to update memory: %w", err)
	}

	if existing.ImageFilename != "" && existing.ImageFilename != memory.ImageFilename {
		s.removeImage(existing.ImageFilename)
	}
	return nil
}

// Delete removes a gallery entry and its image file
func (s *MemoryService) Delete(ctx context.Context, id int64) error {
	memory, err := s.store.GetMemoryByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteMemory(ctx, id); err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	if memory.ImageFilename != "" {
		s.removeImage(memory.ImageFilename)
	}
	return nil
}

func (s *MemoryService) removeImage(filename string) {
	path := s.ImagePath(filename)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to remove image file", zap.String("path", path), zap.Error(err))
	}
}
