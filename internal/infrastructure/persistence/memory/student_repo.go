// Package memory implements the repositories in process memory. It backs the
// services when no database is configured, and in tests.
package memory

import (
	"context"
	"sync"

	"github.com/coursework/storehub/internal/domain/gradebook"
	"github.com/coursework/storehub/internal/domain/shared"
)

var _ gradebook.Repository = (*StudentRepository)(nil)

// StudentRepository is a gradebook.Repository over a Roster.
type StudentRepository struct {
	mu     sync.RWMutex
	roster *gradebook.Roster
}

// NewStudentRepository creates an empty repository.
func NewStudentRepository() *StudentRepository {
	return &StudentRepository{roster: gradebook.NewRoster()}
}

// Create adds a student.
func (r *StudentRepository) Create(ctx context.Context, s *gradebook.Student) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roster.Enroll(s)
}

// GetByNumber returns a copy of the student.
func (r *StudentRepository) GetByNumber(ctx context.Context, number shared.StudentNumber) (*gradebook.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roster.Get(number)
}

// Update replaces the stored student.
func (r *StudentRepository) Update(ctx context.Context, s *gradebook.Student) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roster.Replace(s)
}

// List returns all students ordered by name, then number.
func (r *StudentRepository) List(ctx context.Context) ([]*gradebook.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roster.Students(), nil
}
