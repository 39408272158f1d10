package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/course-catalog-api/internal/models"
	"github.com/noah-isme/course-catalog-api/internal/repository"
	appErrors "github.com/noah-isme/course-catalog-api/pkg/errors"
	"github.com/noah-isme/course-catalog-api/pkg/slug"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	ListByCourse(ctx context.Context, courseID int64, page models.PageRequest) ([]models.StudentDetail, int, error)
	ListActiveWithEnrollments(ctx context.Context, page models.PageRequest) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.StudentDetail, error)
	LockByID(ctx context.Context, exec sqlx.ExtContext, id int64) error
	CountEnrollments(ctx context.Context, exec sqlx.ExtContext, id int64) (int, error)
	ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error)
	ExistsBySlug(ctx context.Context, slug string, excludeID int64) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error
	Update(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id int64) error
}

type courseReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.CourseDetail, error)
}

// StudentRequest is the writable student payload. Nil fields were not supplied.
type StudentRequest struct {
	FirstName *string `json:"first_name" validate:"required,notblank,max=100"`
	LastName  *string `json:"last_name" validate:"required,notblank,max=100"`
	Email     *string `json:"email" validate:"required,email,max=254"`
	Phone     *string `json:"phone" validate:"omitempty,max=13"`
	IsActive  *bool   `json:"is_active"`
}

func (r StudentRequest) merge(base models.Student, all bool) StudentRequest {
	r.FirstName = trimmed(r.FirstName)
	r.LastName = trimmed(r.LastName)
	if r.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*r.Email))
		r.Email = &email
	}
	r.Phone = trimmed(r.Phone)
	if all {
		if r.FirstName == nil {
			r.FirstName = &base.FirstName
		}
		if r.LastName == nil {
			r.LastName = &base.LastName
		}
		if r.Email == nil {
			r.Email = &base.Email
		}
	}
	if r.Phone == nil {
		r.Phone = base.Phone
	}
	if r.IsActive == nil {
		r.IsActive = &base.IsActive
	}
	return r
}

func (r StudentRequest) apply(student *models.Student) {
	student.FirstName = *r.FirstName
	student.LastName = *r.LastName
	student.Email = *r.Email
	student.Phone = nil
	if r.Phone != nil && *r.Phone != "" {
		phone := *r.Phone
		student.Phone = &phone
	}
	student.IsActive = *r.IsActive
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	courses   courseReader
	tx        txProvider
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, courses courseReader, tx txProvider, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, courses: courses, tx: tx, metrics: metrics, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	filter.PageRequest = normalisePage(filter.PageRequest)
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalErr(err, "failed to list students")
	}
	return pageOf(students, filter.PageRequest, total)
}

// ListByCourse returns the distinct students enrolled in a course.
func (s *StudentService) ListByCourse(ctx context.Context, courseID int64, page models.PageRequest) ([]models.StudentDetail, *models.Pagination, error) {
	if _, err := s.courses.FindByID(ctx, nil, courseID); err != nil {
		return nil, nil, notFoundOr(err, "course not found", "failed to load course")
	}
	page = normalisePage(page)
	students, total, err := s.repo.ListByCourse(ctx, courseID, page)
	if err != nil {
		return nil, nil, internalErr(err, "failed to list course students")
	}
	return pageOf(students, page, total)
}

// ListActive returns active students holding at least one enrollment.
func (s *StudentService) ListActive(ctx context.Context, page models.PageRequest) ([]models.StudentDetail, *models.Pagination, error) {
	page = normalisePage(page)
	students, total, err := s.repo.ListActiveWithEnrollments(ctx, page)
	if err != nil {
		return nil, nil, internalErr(err, "failed to list active students")
	}
	return pageOf(students, page, total)
}

// Get returns a student with the number of enrolled courses.
func (s *StudentService) Get(ctx context.Context, id int64) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, notFoundOr(err, "student not found", "failed to load student")
	}
	return student, nil
}

// Create registers a new student with a slug derived from the full name.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.StudentDetail, error) {
	req = req.merge(models.Student{IsActive: true}, false)
	if err := s.validate(ctx, req, 0); err != nil {
		return nil, err
	}

	student := &models.Student{}
	req.apply(student)
	for attempt := 1; ; attempt++ {
		generated, err := slug.Unique(ctx, student.FirstName+"-"+student.LastName, "student", func(ctx context.Context, candidate string) (bool, error) {
			return s.repo.ExistsBySlug(ctx, candidate, 0)
		})
		if err != nil {
			return nil, internalErr(err, "failed to generate slug")
		}
		student.Slug = generated

		err = s.repo.Create(ctx, nil, student)
		if err == nil {
			break
		}
		if constraint, ok := repository.UniqueViolation(err); ok && constraint == repository.ConstraintStudentSlug && attempt < maxSlugAttempts {
			s.logger.Debug("student slug taken concurrently, retrying", zap.String("slug", student.Slug), zap.Int("attempt", attempt))
			continue
		}
		return nil, writeStudentError(err, "failed to create student")
	}

	s.logger.Info("student created", zap.Int64("student_id", student.ID), zap.String("slug", student.Slug))
	s.metrics.RecordWrite("student", "create")
	return &models.StudentDetail{Student: *student}, nil
}

// Update replaces (partial=false) or patches (partial=true) a student. The slug is kept.
func (s *StudentService) Update(ctx context.Context, id int64, req StudentRequest, partial bool) (*models.StudentDetail, error) {
	existing, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, notFoundOr(err, "student not found", "failed to load student")
	}

	req = req.merge(existing.Student, partial)
	if err := s.validate(ctx, req, id); err != nil {
		return nil, err
	}

	student := existing.Student
	req.apply(&student)
	if err := s.repo.Update(ctx, nil, &student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, writeStudentError(err, "failed to update student")
	}
	s.metrics.RecordWrite("student", "update")
	return &models.StudentDetail{Student: student, EnrolledCoursesCount: existing.EnrolledCoursesCount}, nil
}

// Delete removes a student unless enrollments still reference them.
func (s *StudentService) Delete(ctx context.Context, id int64) error {
	err := withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.repo.LockByID(ctx, tx, id); err != nil {
			return notFoundOr(err, "student not found", "failed to lock student")
		}
		count, err := s.repo.CountEnrollments(ctx, tx, id)
		if err != nil {
			return internalErr(err, "failed to count student enrollments")
		}
		if count > 0 {
			return appErrors.Clone(appErrors.ErrHasDependents, "student has enrollments; delete them first")
		}
		if err := s.repo.Delete(ctx, tx, id); err != nil {
			return notFoundOr(err, "student not found", "failed to delete student")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("student deleted", zap.Int64("student_id", id))
	s.metrics.RecordWrite("student", "delete")
	return nil
}

func (s *StudentService) validate(ctx context.Context, req StudentRequest, selfID int64) error {
	v := newViolations()
	if err := v.collect(s.validator.Struct(req)); err != nil {
		return internalErr(err, "failed to validate student")
	}
	if !v.has("email") {
		taken, err := s.repo.ExistsByEmail(ctx, *req.Email, selfID)
		if err != nil {
			return internalErr(err, "failed to validate email")
		}
		if taken {
			v.duplicate("email", "a student with this email is already registered")
		}
	}
	return v.err()
}

func writeStudentError(err error, message string) error {
	if constraint, ok := repository.UniqueViolation(err); ok && constraint == repository.ConstraintStudentEmail {
		return appErrors.Validation(map[string]string{"email": "a student with this email is already registered"}, true)
	}
	return internalErr(err, message)
}
