package service

import (
	"github.com/vidinfra/docvault/internal/config"
	"github.com/vidinfra/docvault/internal/domain/note"
	"github.com/vidinfra/docvault/internal/logger"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration

	// Repositories
	NoteRepo note.Repository
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	noteRepo note.Repository,
) ServiceParams {
	return ServiceParams{
		Logger:   logger,
		Config:   config,
		NoteRepo: noteRepo,
	}
}
