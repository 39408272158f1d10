package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/course-catalog-api/internal/models"
	"github.com/noah-isme/course-catalog-api/internal/repository"
	appErrors "github.com/noah-isme/course-catalog-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.EnrollmentDetail, error)
	FindForUpdate(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Enrollment, error)
	Exists(ctx context.Context, exec sqlx.ExtContext, courseID, studentID, excludeID int64) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error
	Update(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error
	Delete(ctx context.Context, id int64) error
}

type enrollmentCourseLocker interface {
	FindForShare(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Course, error)
}

type enrollmentStudentLocker interface {
	FindForShare(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Student, error)
}

// EnrollmentRequest is the writable enrollment payload. Nil fields were not supplied.
type EnrollmentRequest struct {
	Course    *int64 `json:"course" validate:"required"`
	Student   *int64 `json:"student" validate:"required"`
	Completed *bool  `json:"completed"`
}

// EnrollmentService handles enrollment use-cases.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   enrollmentCourseLocker
	students  enrollmentStudentLocker
	tx        txProvider
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(repo enrollmentRepository, courses enrollmentCourseLocker, students enrollmentStudentLocker, tx txProvider, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		courses:   courses,
		students:  students,
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns enrollments and pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	filter.PageRequest = normalisePage(filter.PageRequest)
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalErr(err, "failed to list enrollments")
	}
	return pageOf(enrollments, filter.PageRequest, total)
}

// Get returns an enrollment with course and student labels.
func (s *EnrollmentService) Get(ctx context.Context, id int64) (*models.EnrollmentDetail, error) {
	enrollment, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, notFoundOr(err, "enrollment not found", "failed to load enrollment")
	}
	return enrollment, nil
}

// Create enrolls a student in a course. Within one transaction the course and
// student are read under a shared lock and checked in order: course active,
// student active, pair not yet enrolled.
func (s *EnrollmentService) Create(ctx context.Context, req EnrollmentRequest) (*models.EnrollmentDetail, error) {
	v := newViolations()
	if err := v.collect(s.validator.Struct(req)); err != nil {
		return nil, internalErr(err, "failed to validate enrollment")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	enrollment := &models.Enrollment{CourseID: *req.Course, StudentID: *req.Student}
	err := withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		course, student, err := s.participants(ctx, tx, enrollment.CourseID, enrollment.StudentID)
		if err != nil {
			return err
		}
		if !course.IsActive {
			return appErrors.Clone(appErrors.ErrCourseInactive, "")
		}
		if !student.IsActive {
			return appErrors.Clone(appErrors.ErrStudentInactive, "")
		}
		enrolled, err := s.repo.Exists(ctx, tx, course.ID, student.ID, 0)
		if err != nil {
			return internalErr(err, "failed to check enrollment")
		}
		if enrolled {
			return appErrors.Clone(appErrors.ErrAlreadyEnrolled, "")
		}

		enrollment.EnrolledAt = s.now()
		enrollment.Completed = false
		enrollment.CompletedAt = nil
		if err := s.repo.Create(ctx, tx, enrollment); err != nil {
			return s.writeError(err, "failed to create enrollment")
		}
		return nil
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Status < 500 {
			s.metrics.RecordEnrollmentRejection(appErr.Code)
		}
		return nil, err
	}

	s.logger.Info("enrollment created",
		zap.Int64("enrollment_id", enrollment.ID),
		zap.Int64("course_id", enrollment.CourseID),
		zap.Int64("student_id", enrollment.StudentID),
	)
	s.metrics.RecordWrite("enrollment", "create")
	s.cache.InvalidateViews(ctx)
	return s.Get(ctx, enrollment.ID)
}

// Update reassigns course or student and toggles completion. Completing keeps an
// existing completion time or stamps now; un-completing clears it.
func (s *EnrollmentService) Update(ctx context.Context, id int64, req EnrollmentRequest, partial bool) (*models.EnrollmentDetail, error) {
	err := withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		enrollment, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return notFoundOr(err, "enrollment not found", "failed to load enrollment")
		}

		if partial {
			if req.Course == nil {
				req.Course = &enrollment.CourseID
			}
			if req.Student == nil {
				req.Student = &enrollment.StudentID
			}
		}
		if req.Completed == nil {
			req.Completed = &enrollment.Completed
		}
		v := newViolations()
		if err := v.collect(s.validator.Struct(req)); err != nil {
			return internalErr(err, "failed to validate enrollment")
		}
		if err := v.err(); err != nil {
			return err
		}

		if *req.Course != enrollment.CourseID || *req.Student != enrollment.StudentID {
			if _, _, err := s.participants(ctx, tx, *req.Course, *req.Student); err != nil {
				return err
			}
			enrolled, err := s.repo.Exists(ctx, tx, *req.Course, *req.Student, id)
			if err != nil {
				return internalErr(err, "failed to check enrollment")
			}
			if enrolled {
				return appErrors.Clone(appErrors.ErrAlreadyEnrolled, "")
			}
		}

		enrollment.CourseID = *req.Course
		enrollment.StudentID = *req.Student
		enrollment.Completed = *req.Completed
		enrollment.StampCompletion(s.now())
		if err := s.repo.Update(ctx, tx, enrollment); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
			}
			return s.writeError(err, "failed to update enrollment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordWrite("enrollment", "update")
	s.cache.InvalidateViews(ctx)
	return s.Get(ctx, id)
}

// Delete removes an enrollment.
func (s *EnrollmentService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "enrollment not found", "failed to delete enrollment")
	}
	s.logger.Info("enrollment deleted", zap.Int64("enrollment_id", id))
	s.metrics.RecordWrite("enrollment", "delete")
	s.cache.InvalidateViews(ctx)
	return nil
}

// participants resolves course and student, reporting unresolvable ids as field errors.
func (s *EnrollmentService) participants(ctx context.Context, tx sqlx.ExtContext, courseID, studentID int64) (*models.Course, *models.Student, error) {
	v := newViolations()
	course, err := s.courses.FindForShare(ctx, tx, courseID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, nil, internalErr(err, "failed to load course")
		}
		v.add("course", "course does not exist")
	}
	student, err := s.students.FindForShare(ctx, tx, studentID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, nil, internalErr(err, "failed to load student")
		}
		v.add("student", "student does not exist")
	}
	if err := v.err(); err != nil {
		return nil, nil, err
	}
	return course, student, nil
}

func (s *EnrollmentService) writeError(err error, message string) error {
	if constraint, ok := repository.UniqueViolation(err); ok && constraint == repository.ConstraintEnrollmentPair {
		return appErrors.Clone(appErrors.ErrAlreadyEnrolled, "")
	}
	return internalErr(err, message)
}
