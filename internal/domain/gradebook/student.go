// Package gradebook содержит журнал оценок: студентов, их оценки за задания
// и средние баллы.
package gradebook

import (
	"fmt"
	"strings"

	"github.com/coursework/storehub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Mark - оценка за задание, от 0 до 100, либо NoMark.
type Mark int

const (
	// NoMark - задание ещё не оценено.
	NoMark Mark = -1

	// MinMark - минимальная оценка.
	MinMark Mark = 0

	// MaxMark - максимальная оценка.
	MaxMark Mark = 100
)

// IsValid проверяет, что оценка в диапазоне [-1, 100].
func (m Mark) IsValid() bool {
	return m >= NoMark && m <= MaxMark
}

// IsRecorded возвращает true, если оценка выставлена.
func (m Mark) IsRecorded() bool {
	return m != NoMark
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student - студент в журнале.
type Student struct {
	// ID - внутренний идентификатор (UUID).
	ID string

	// Name - имя студента.
	Name string

	// Number - номер студенческого.
	Number shared.StudentNumber

	// Marks - i-й элемент содержит оценку за i-е задание.
	Marks []Mark
}

// NewStudent создаёт студента с assignments пустыми оценками.
func NewStudent(id, name, number string, assignments int) (*Student, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidStudent("student name is required")
	}
	sn, err := shared.NewStudentNumber(number)
	if err != nil {
		return nil, invalidStudent(err.Error())
	}
	if assignments < 0 {
		return nil, invalidStudent("assignment count cannot be negative")
	}

	marks := make([]Mark, assignments)
	for i := range marks {
		marks[i] = NoMark
	}

	return &Student{
		ID:     id,
		Name:   name,
		Number: sn,
		Marks:  marks,
	}, nil
}

// SetMark выставляет оценку за idx-е задание. NoMark стирает оценку.
func (s *Student) SetMark(idx int, mark Mark) error {
	if idx < 0 || idx >= len(s.Marks) {
		return &shared.DomainError{
			Domain:  "gradebook",
			Op:      "SetMark",
			Kind:    shared.ErrMarkIndexOutOfRange,
			Message: fmt.Sprintf("assignment %d out of range [0, %d)", idx, len(s.Marks)),
		}
	}
	if !mark.IsValid() {
		return &shared.DomainError{
			Domain:  "gradebook",
			Op:      "SetMark",
			Kind:    shared.ErrInvalidMark,
			Message: fmt.Sprintf("mark %d out of range [-1, 100]", mark),
		}
	}
	s.Marks[idx] = mark
	return nil
}

// Mark возвращает оценку за idx-е задание, NoMark вне диапазона.
func (s *Student) Mark(idx int) Mark {
	if idx < 0 || idx >= len(s.Marks) {
		return NoMark
	}
	return s.Marks[idx]
}

// Average - среднее по выставленным оценкам, все задания равного веса.
// Возвращает ErrNoMarks, если ни одной оценки нет.
func (s *Student) Average() (float64, error) {
	total, count := 0, 0
	for _, m := range s.Marks {
		if m.IsRecorded() {
			total += int(m)
			count++
		}
	}
	if count == 0 {
		return 0, &shared.DomainError{
			Domain:  "gradebook",
			Op:      "Average",
			Kind:    shared.ErrNoMarks,
			Message: fmt.Sprintf("student %s has no recorded marks", s.Number),
		}
	}
	return float64(total) / float64(count), nil
}

// Compare сравнивает студентов по имени, затем по номеру.
func (s *Student) Compare(other *Student) int {
	if c := strings.Compare(s.Name, other.Name); c != 0 {
		return c
	}
	return strings.Compare(string(s.Number), string(other.Number))
}

func (s *Student) clone() *Student {
	c := *s
	c.Marks = append([]Mark(nil), s.Marks...)
	return &c
}

func invalidStudent(msg string) error {
	return &shared.DomainError{
		Domain:  "gradebook",
		Op:      "NewStudent",
		Kind:    shared.ErrInvalidStudent,
		Message: msg,
	}
}
