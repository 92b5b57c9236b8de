package service

import (
	"context"
	"errors"

	"github.com/coursework/storehub/config"
	"github.com/coursework/storehub/internal/domain/gradebook"
	"github.com/coursework/storehub/internal/domain/shared"
	"github.com/coursework/storehub/pkg/logger"

	"github.com/google/uuid"
)

// GradebookDeps holds the collaborators of GradebookService. Students is
// required.
type GradebookDeps struct {
	Students gradebook.Repository
	Averages gradebook.AverageCache
	Events   shared.EventPublisher
	Features Features
	Logger   *logger.Logger

	// NewID generates student IDs. Defaults to random UUIDs.
	NewID func() string
}

// GradebookService records marks and computes averages.
type GradebookService struct {
	deps GradebookDeps
	log  *logger.Logger
}

// NewGradebookService creates a new GradebookService.
func NewGradebookService(deps GradebookDeps) (*GradebookService, error) {
	if deps.Students == nil {
		return nil, errors.New("gradebook service: student repository is required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}

	return &GradebookService{
		deps: deps,
		log:  deps.Logger.With(logger.Component("gradebook")),
	}, nil
}

// Enroll adds a student with assignments unmarked slots.
func (s *GradebookService) Enroll(ctx context.Context, name, number string, assignments int) (*gradebook.Student, error) {
	student, err := gradebook.NewStudent(s.deps.NewID(), name, number, assignments)
	if err != nil {
		return nil, err
	}

	if err := s.deps.Students.Create(ctx, student); err != nil {
		return nil, err
	}

	s.publish(shared.NewStudentEnrolledEvent(student.ID, student.Number.String(), student.Name, assignments))
	s.log.Info("student enrolled", logger.StudentNumber(number), logger.Count(assignments))
	return student, nil
}

// Student returns a student by number.
func (s *GradebookService) Student(ctx context.Context, number string) (*gradebook.Student, error) {
	sn, err := shared.NewStudentNumber(number)
	if err != nil {
		return nil, err
	}
	return s.deps.Students.GetByNumber(ctx, sn)
}

// Students returns all students ordered by name, then number.
func (s *GradebookService) Students(ctx context.Context) ([]*gradebook.Student, error) {
	return s.deps.Students.List(ctx)
}

// RecordMark sets the mark for one assignment. gradebook.NoMark clears it.
func (s *GradebookService) RecordMark(ctx context.Context, number string, idx int, mark gradebook.Mark) error {
	student, err := s.Student(ctx, number)
	if err != nil {
		return err
	}

	old := student.Mark(idx)
	if err := student.SetMark(idx, mark); err != nil {
		return err
	}
	if err := s.deps.Students.Update(ctx, student); err != nil {
		return err
	}

	if cache := s.averages(); cache != nil {
		if err := cache.Invalidate(ctx, student.Number); err != nil {
			s.log.Warn("average cache invalidate failed", logger.StudentNumber(number), logger.Err(err))
		}
	}

	s.publish(shared.NewMarkRecordedEvent(student.ID, number, idx, int(old), int(mark)))
	s.log.Info("mark recorded",
		logger.StudentNumber(number),
		logger.Int("assignment", idx),
		logger.Int("mark", int(mark)),
	)
	return nil
}

// Average returns a student's average over recorded marks.
func (s *GradebookService) Average(ctx context.Context, number string) (float64, error) {
	sn, err := shared.NewStudentNumber(number)
	if err != nil {
		return 0, err
	}

	cache := s.averages()
	if cache != nil {
		avg, ok, err := cache.Get(ctx, sn)
		if err != nil {
			s.log.Warn("average cache read failed", logger.StudentNumber(number), logger.Err(err))
		} else if ok {
			return avg, nil
		}
	}

	student, err := s.deps.Students.GetByNumber(ctx, sn)
	if err != nil {
		return 0, err
	}
	avg, err := student.Average()
	if err != nil {
		return 0, err
	}

	if cache != nil {
		if err := cache.Set(ctx, sn, avg); err != nil {
			s.log.Warn("average cache write failed", logger.StudentNumber(number), logger.Err(err))
		}
	}
	return avg, nil
}

// ClassAverage averages the averages of students with recorded marks.
func (s *GradebookService) ClassAverage(ctx context.Context) (float64, error) {
	students, err := s.deps.Students.List(ctx)
	if err != nil {
		return 0, err
	}
	return gradebook.ClassAverage(students)
}

func (s *GradebookService) averages() gradebook.AverageCache {
	if s.deps.Averages == nil || s.deps.Features == nil || !s.deps.Features.IsEnabled(config.FeatureCacheAverages) {
		return nil
	}
	return s.deps.Averages
}

func (s *GradebookService) publish(event shared.Event) {
	if s.deps.Events == nil {
		return
	}
	if err := s.deps.Events.Publish(event); err != nil {
		s.log.Warn("event publish failed", logger.String("event_type", string(event.EventType())), logger.Err(err))
	}
}
