package gradebook

import (
	"context"
	"fmt"
	"slices"

	"github.com/coursework/storehub/internal/domain/shared"
)

// Roster - список студентов класса по номеру студенческого.
// Не потокобезопасен.
type Roster struct {
	students map[shared.StudentNumber]*Student
}

// NewRoster создаёт пустой список.
func NewRoster() *Roster {
	return &Roster{students: make(map[shared.StudentNumber]*Student)}
}

// Enroll добавляет студента.
func (r *Roster) Enroll(s *Student) error {
	if _, ok := r.students[s.Number]; ok {
		return &shared.DomainError{
			Domain:  "gradebook",
			Op:      "Enroll",
			Kind:    shared.ErrStudentAlreadyExists,
			Message: fmt.Sprintf("student %s already enrolled", s.Number),
		}
	}
	r.students[s.Number] = s.clone()
	return nil
}

// Get возвращает копию студента.
func (r *Roster) Get(number shared.StudentNumber) (*Student, error) {
	s, ok := r.students[number]
	if !ok {
		return nil, &shared.DomainError{
			Domain:  "gradebook",
			Op:      "Get",
			Kind:    shared.ErrStudentNotFound,
			Message: fmt.Sprintf("student %s not found", number),
		}
	}
	return s.clone(), nil
}

// Replace заменяет записанного студента копией s.
func (r *Roster) Replace(s *Student) error {
	if _, err := r.Get(s.Number); err != nil {
		return err
	}
	r.students[s.Number] = s.clone()
	return nil
}

// Len возвращает число студентов.
func (r *Roster) Len() int {
	return len(r.students)
}

// Students возвращает копии студентов, отсортированные по имени и номеру.
func (r *Roster) Students() []*Student {
	out := make([]*Student, 0, len(r.students))
	for _, s := range r.students {
		out = append(out, s.clone())
	}
	slices.SortFunc(out, (*Student).Compare)
	return out
}

// ClassAverage - среднее средних по студентам, у которых есть оценки.
// Возвращает ErrNoMarks, если оценок нет ни у кого.
func (r *Roster) ClassAverage() (float64, error) {
	return ClassAverage(r.Students())
}

// ClassAverage - среднее средних по переданным студентам.
func ClassAverage(students []*Student) (float64, error) {
	sum, n := 0.0, 0
	for _, s := range students {
		avg, err := s.Average()
		if err != nil {
			continue
		}
		sum += avg
		n++
	}
	if n == 0 {
		return 0, &shared.DomainError{
			Domain:  "gradebook",
			Op:      "ClassAverage",
			Kind:    shared.ErrNoMarks,
			Message: "no student has recorded marks",
		}
	}
	return sum / float64(n), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// Repository хранит студентов.
type Repository interface {
	// Create добавляет студента.
	// Возвращает ErrStudentAlreadyExists, если номер занят.
	Create(ctx context.Context, s *Student) error

	// GetByNumber возвращает студента по номеру.
	// Возвращает ErrStudentNotFound, если студента нет.
	GetByNumber(ctx context.Context, number shared.StudentNumber) (*Student, error)

	// Update сохраняет изменённые оценки и имя.
	Update(ctx context.Context, s *Student) error

	// List возвращает всех студентов, отсортированных по имени и номеру.
	List(ctx context.Context) ([]*Student, error)
}

// AverageCache кэширует средние баллы.
type AverageCache interface {
	// Get возвращает среднее из кэша. ok=false при промахе.
	Get(ctx context.Context, number shared.StudentNumber) (avg float64, ok bool, err error)

	// Set кладёт среднее в кэш.
	Set(ctx context.Context, number shared.StudentNumber, avg float64) error

	// Invalidate удаляет среднее из кэша.
	Invalidate(ctx context.Context, number shared.StudentNumber) error
}
