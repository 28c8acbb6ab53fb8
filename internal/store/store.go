// Package store defines the persistence contract shared by the
// flat-file and relational backends.
package store

import (
	"errors"

	"mucm/internal/domain"
)

var (
	// ErrNotFound is returned when the requested aggregate does not
	// exist in the backend.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an aggregate with the same ID is
	// already stored and the operation does not allow replacement.
	ErrConflict = errors.New("already exists")
	// ErrSchemaTooNew is returned when a relational store was written
	// by a newer tool version.
	ErrSchemaTooNew = errors.New("store schema is newer than this tool supports")
)

// Repository persists use case aggregates. Saves are whole-aggregate
// and atomic; a failed save leaves the previous state observable.
type Repository interface {
	// Save writes the aggregate, replacing any stored version.
	Save(uc *domain.UseCase) error
	// LoadByID returns the aggregate or ErrNotFound.
	LoadByID(id string) (*domain.UseCase, error)
	// LoadAll returns every aggregate in the backend's deterministic
	// order.
	LoadAll() ([]*domain.UseCase, error)
	// ExistingIDs returns the set of stored use case IDs. The ID
	// allocator consults it so a half-created artifact from a crashed
	// run never collides silently.
	ExistingIDs() (map[string]bool, error)
	// SaveRendered stores a rendered artifact alongside the aggregate.
	SaveRendered(id, artifact, content string) error
	// Delete removes the aggregate and its rendered artifacts.
	Delete(id string) error
}

// PersonaRepository persists reusable participant records.
type PersonaRepository interface {
	SavePersona(p *domain.Persona) error
	LoadPersona(id string) (*domain.Persona, error)
	LoadAllPersonas() ([]*domain.Persona, error)
	DeletePersona(id string) error
}

// Store is a full backend: use cases plus personas.
type Store interface {
	Repository
	PersonaRepository
	// Backend names the concrete backend ("toml" or "sqlite").
	Backend() string
	Close() error
}
