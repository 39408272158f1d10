package service

import (
	"context"
	"database/sql"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/course-catalog-api/internal/models"
	"github.com/noah-isme/course-catalog-api/internal/repository"
	appErrors "github.com/noah-isme/course-catalog-api/pkg/errors"
	"github.com/noah-isme/course-catalog-api/pkg/slug"
)

const minCourseTitle = 5

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	ListPopular(ctx context.Context, page models.PageRequest) ([]models.CourseDetail, int, error)
	ListByCategory(ctx context.Context, categoryID int64, page models.PageRequest) ([]models.CourseDetail, int, error)
	ListByStudent(ctx context.Context, studentID int64, page models.PageRequest) ([]models.CourseDetail, int, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.CourseDetail, error)
	LockByID(ctx context.Context, exec sqlx.ExtContext, id int64) error
	CountEnrollments(ctx context.Context, exec sqlx.ExtContext, id int64) (int, error)
	ExistsByTitle(ctx context.Context, title string, excludeID int64) (bool, error)
	ExistsBySlug(ctx context.Context, slug string, excludeID int64) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, course *models.Course) error
	Update(ctx context.Context, exec sqlx.ExtContext, course *models.Course) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id int64) error
}

type categoryReader interface {
	FindByID(ctx context.Context, id int64) (*models.CategoryDetail, error)
}

type enrolledStudentReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.StudentDetail, error)
	EnrolledInCourse(ctx context.Context, courseID int64) ([]models.StudentDetail, error)
}

// CourseRequest is the writable course payload. Nil fields were not supplied.
type CourseRequest struct {
	Title       *string `json:"title" validate:"required,notblank,max=100"`
	Description *string `json:"description" validate:"required,notblank"`
	Price       *int64  `json:"price"`
	Status      *string `json:"status" validate:"oneof=beginner intermediate advanced"`
	Category    *int64  `json:"category" validate:"required"`
	IsActive    *bool   `json:"is_active"`
}

// merge fills unsupplied fields from base. Title, description and category are
// only taken from base when all is set (PATCH semantics).
func (r CourseRequest) merge(base models.Course, all bool) CourseRequest {
	r.Title = trimmed(r.Title)
	if all {
		if r.Title == nil {
			r.Title = &base.Title
		}
		if r.Description == nil {
			r.Description = &base.Description
		}
		if r.Category == nil {
			r.Category = &base.CategoryID
		}
	}
	if r.Price == nil {
		r.Price = &base.Price
	}
	if r.Status == nil {
		status := string(base.Status)
		r.Status = &status
	}
	if r.IsActive == nil {
		r.IsActive = &base.IsActive
	}
	return r
}

func (r CourseRequest) apply(course *models.Course) {
	course.Title = *r.Title
	course.Description = *r.Description
	course.Price = *r.Price
	course.Status = models.CourseStatus(*r.Status)
	course.CategoryID = *r.Category
	course.IsActive = *r.IsActive
}

// CourseService handles course use-cases and the derived course views.
type CourseService struct {
	repo       courseRepository
	categories categoryReader
	students   enrolledStudentReader
	tx         txProvider
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(repo courseRepository, categories categoryReader, students enrolledStudentReader, tx txProvider, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{
		repo:       repo,
		categories: categories,
		students:   students,
		tx:         tx,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

// List returns courses matching the filter.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error) {
	filter.PageRequest = normalisePage(filter.PageRequest)
	start := time.Now()
	courses, total, err := s.repo.List(ctx, filter)
	s.metrics.ObserveDBQuery("courses_list", time.Since(start))
	if err != nil {
		return nil, nil, internalErr(err, "failed to list courses")
	}
	return pageOf(courses, filter.PageRequest, total)
}

// ListPopular returns active courses with at least ten enrollments, most enrolled first.
func (s *CourseService) ListPopular(ctx context.Context, page models.PageRequest) ([]models.CourseDetail, *models.Pagination, error) {
	page = normalisePage(page)
	courses, total, err := s.cache.courses(ctx, popularCoursesKey(page), func() ([]models.CourseDetail, int, error) {
		start := time.Now()
		defer func() { s.metrics.ObserveDBQuery("courses_popular", time.Since(start)) }()
		return s.repo.ListPopular(ctx, page)
	})
	if err != nil {
		return nil, nil, internalErr(err, "failed to list popular courses")
	}
	return pageOf(courses, page, total)
}

// ListByCategory returns the active courses of a category.
func (s *CourseService) ListByCategory(ctx context.Context, categoryID int64, page models.PageRequest) ([]models.CourseDetail, *models.Pagination, error) {
	if _, err := s.categories.FindByID(ctx, categoryID); err != nil {
		return nil, nil, notFoundOr(err, "category not found", "failed to load category")
	}
	page = normalisePage(page)
	courses, total, err := s.cache.courses(ctx, categoryCoursesKey(categoryID, page), func() ([]models.CourseDetail, int, error) {
		return s.repo.ListByCategory(ctx, categoryID, page)
	})
	if err != nil {
		return nil, nil, internalErr(err, "failed to list category courses")
	}
	return pageOf(courses, page, total)
}

// ListByStudent returns the distinct courses a student is enrolled in.
func (s *CourseService) ListByStudent(ctx context.Context, studentID int64, page models.PageRequest) ([]models.CourseDetail, *models.Pagination, error) {
	if _, err := s.students.FindByID(ctx, nil, studentID); err != nil {
		return nil, nil, notFoundOr(err, "student not found", "failed to load student")
	}
	page = normalisePage(page)
	courses, total, err := s.repo.ListByStudent(ctx, studentID, page)
	if err != nil {
		return nil, nil, internalErr(err, "failed to list student courses")
	}
	return pageOf(courses, page, total)
}

// Get returns a course with its full category and enrolled students.
func (s *CourseService) Get(ctx context.Context, id int64) (*models.CourseRelations, error) {
	course, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, notFoundOr(err, "course not found", "failed to load course")
	}
	category, err := s.categories.FindByID(ctx, course.CategoryID)
	if err != nil {
		return nil, internalErr(err, "failed to load course category")
	}
	students, err := s.students.EnrolledInCourse(ctx, id)
	if err != nil {
		return nil, internalErr(err, "failed to load enrolled students")
	}
	return &models.CourseRelations{Course: *course, Category: *category, EnrolledStudents: students}, nil
}

// Create validates the payload, assigns a unique slug and stores the course.
func (s *CourseService) Create(ctx context.Context, req CourseRequest) (*models.CourseDetail, error) {
	req = req.merge(models.Course{Status: models.CourseStatusBeginner, IsActive: true}, false)
	if err := s.validate(ctx, req, 0); err != nil {
		return nil, err
	}

	course := &models.Course{}
	req.apply(course)
	for attempt := 1; ; attempt++ {
		generated, err := slug.Unique(ctx, course.Title, "course", func(ctx context.Context, candidate string) (bool, error) {
			return s.repo.ExistsBySlug(ctx, candidate, 0)
		})
		if err != nil {
			return nil, internalErr(err, "failed to generate slug")
		}
		course.Slug = generated

		err = s.repo.Create(ctx, nil, course)
		if err == nil {
			break
		}
		if constraint, ok := repository.UniqueViolation(err); ok && constraint == repository.ConstraintCourseSlug && attempt < maxSlugAttempts {
			s.logger.Debug("course slug taken concurrently, retrying", zap.String("slug", course.Slug), zap.Int("attempt", attempt))
			continue
		}
		return nil, s.writeError(err, "failed to create course")
	}

	s.logger.Info("course created", zap.Int64("course_id", course.ID), zap.String("slug", course.Slug))
	s.metrics.RecordWrite("course", "create")
	s.cache.InvalidateViews(ctx)
	return s.reload(ctx, course.ID)
}

// Update replaces (partial=false) or patches (partial=true) a course. The slug is kept.
func (s *CourseService) Update(ctx context.Context, id int64, req CourseRequest, partial bool) (*models.CourseDetail, error) {
	existing, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, notFoundOr(err, "course not found", "failed to load course")
	}

	req = req.merge(existing.Course, partial)
	if err := s.validate(ctx, req, id); err != nil {
		return nil, err
	}

	course := existing.Course
	req.apply(&course)
	if err := s.repo.Update(ctx, nil, &course); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, s.writeError(err, "failed to update course")
	}

	s.metrics.RecordWrite("course", "update")
	s.cache.InvalidateViews(ctx)
	return s.reload(ctx, id)
}

// Delete removes a course unless enrollments still reference it.
func (s *CourseService) Delete(ctx context.Context, id int64) error {
	err := withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.repo.LockByID(ctx, tx, id); err != nil {
			return notFoundOr(err, "course not found", "failed to lock course")
		}
		count, err := s.repo.CountEnrollments(ctx, tx, id)
		if err != nil {
			return internalErr(err, "failed to count course enrollments")
		}
		if count > 0 {
			return appErrors.Clone(appErrors.ErrHasDependents, "course has enrollments; delete them first")
		}
		if err := s.repo.Delete(ctx, tx, id); err != nil {
			return notFoundOr(err, "course not found", "failed to delete course")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("course deleted", zap.Int64("course_id", id))
	s.metrics.RecordWrite("course", "delete")
	s.cache.InvalidateViews(ctx)
	return nil
}

func (s *CourseService) validate(ctx context.Context, req CourseRequest, selfID int64) error {
	v := newViolations()
	if err := v.collect(s.validator.Struct(req)); err != nil {
		return internalErr(err, "failed to validate course")
	}

	if !v.has("title") {
		if utf8.RuneCountInString(*req.Title) < minCourseTitle {
			v.add("title", "title must be at least 5 characters")
		} else {
			taken, err := s.repo.ExistsByTitle(ctx, *req.Title, selfID)
			if err != nil {
				return internalErr(err, "failed to validate title")
			}
			if taken {
				v.duplicate("title", "a course with this title already exists")
			}
		}
	}

	if !v.has("price") {
		if *req.Price < 0 {
			v.add("price", "price must not be negative")
		} else if !v.has("status") && models.CourseStatus(*req.Status) == models.CourseStatusBeginner && *req.Price > models.BeginnerPriceCeiling {
			v.add("price", "beginner courses cannot cost more than 500000")
		}
	}

	if !v.has("category") {
		if _, err := s.categories.FindByID(ctx, *req.Category); err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return internalErr(err, "failed to validate category")
			}
			v.add("category", "category does not exist")
		}
	}
	return v.err()
}

// writeError maps storage constraint failures to field errors.
func (s *CourseService) writeError(err error, message string) error {
	if constraint, ok := repository.UniqueViolation(err); ok && constraint == repository.ConstraintCourseTitle {
		return appErrors.Validation(map[string]string{"title": "a course with this title already exists"}, true)
	}
	if constraint, ok := repository.ForeignKeyViolation(err); ok && constraint == repository.ConstraintCourseCategory {
		return appErrors.Validation(map[string]string{"category": "category does not exist"}, false)
	}
	return internalErr(err, message)
}

func (s *CourseService) reload(ctx context.Context, id int64) (*models.CourseDetail, error) {
	course, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, notFoundOr(err, "course not found", "failed to load course")
	}
	return course, nil
}

func pageOf[T any](items []T, page models.PageRequest, total int) ([]T, *models.Pagination, error) {
	pagination, err := paginate(page, total)
	if err != nil {
		return nil, nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, pagination, nil
}
