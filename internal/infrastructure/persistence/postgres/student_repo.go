package postgres

import (
	"context"
	"fmt"

	"github.com/coursework/storehub/internal/domain/gradebook"
	"github.com/coursework/storehub/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

var _ gradebook.Repository = (*StudentRepository)(nil)

// StudentRepository implements gradebook.Repository for PostgreSQL.
// Marks are stored as an INTEGER[] column, NoMark as -1.
type StudentRepository struct {
	db DB
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(db DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, number, name, marks`

// Create creates a new student.
func (r *StudentRepository) Create(ctx context.Context, s *gradebook.Student) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO students (`+studentColumns+`) VALUES ($1, $2, $3, $4)`,
		s.ID, s.Number.String(), s.Name, marksToInts(s.Marks),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return &shared.DomainError{
				Domain:  "gradebook",
				Op:      "Create",
				Kind:    shared.ErrStudentAlreadyExists,
				Message: fmt.Sprintf("student %s already enrolled", s.Number),
			}
		}
		return storageError("CreateStudent", err)
	}
	return nil
}

// GetByNumber returns a student by student number.
func (r *StudentRepository) GetByNumber(ctx context.Context, number shared.StudentNumber) (*gradebook.Student, error) {
	row := r.db.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE number = $1`, number.String())

	s, err := scanStudent(row)
	if IsNoRows(err) {
		return nil, studentNotFound("GetByNumber", number)
	}
	if err != nil {
		return nil, storageError("GetByNumber", err)
	}
	return s, nil
}

// Update stores the student's name and marks.
func (r *StudentRepository) Update(ctx context.Context, s *gradebook.Student) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE students SET name = $2, marks = $3, updated_at = NOW() WHERE number = $1`,
		s.Number.String(), s.Name, marksToInts(s.Marks),
	)
	if err != nil {
		return storageError("UpdateStudent", err)
	}
	if tag.RowsAffected() == 0 {
		return studentNotFound("Update", s.Number)
	}
	return nil
}

// List returns all students ordered by name, then number.
func (r *StudentRepository) List(ctx context.Context) ([]*gradebook.Student, error) {
	rows, err := r.db.Query(ctx, `SELECT `+studentColumns+` FROM students ORDER BY name, number`)
	if err != nil {
		return nil, storageError("ListStudents", err)
	}
	defer rows.Close()

	var students []*gradebook.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, storageError("ListStudents", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("ListStudents", err)
	}
	return students, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

func scanStudent(row pgx.Row) (*gradebook.Student, error) {
	var s gradebook.Student
	var number string
	var marks []int32

	if err := row.Scan(&s.ID, &number, &s.Name, &marks); err != nil {
		return nil, err
	}

	s.Number = shared.StudentNumber(number)
	s.Marks = intsToMarks(marks)
	return &s, nil
}

func marksToInts(marks []gradebook.Mark) []int32 {
	out := make([]int32, len(marks))
	for i, m := range marks {
		out[i] = int32(m)
	}
	return out
}

func intsToMarks(values []int32) []gradebook.Mark {
	out := make([]gradebook.Mark, len(values))
	for i, v := range values {
		out[i] = gradebook.Mark(v)
	}
	return out
}

func studentNotFound(op string, number shared.StudentNumber) error {
	return &shared.DomainError{
		Domain:  "gradebook",
		Op:      op,
		Kind:    shared.ErrStudentNotFound,
		Message: fmt.Sprintf("student %s not found", number),
	}
}
