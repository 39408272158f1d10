package service

import (
	"context"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/course-catalog-api/internal/models"
	"github.com/noah-isme/course-catalog-api/internal/repository"
	appErrors "github.com/noah-isme/course-catalog-api/pkg/errors"
	"github.com/noah-isme/course-catalog-api/pkg/slug"
)

const minCategoryTitle = 3

type categoryRepository interface {
	List(ctx context.Context, filter models.CategoryFilter) ([]models.CategoryDetail, int, error)
	FindByID(ctx context.Context, id int64) (*models.CategoryDetail, error)
	ExistsByTitle(ctx context.Context, title string, excludeID int64) (bool, error)
	ExistsBySlug(ctx context.Context, slug string, excludeID int64) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, category *models.Category) error
	Update(ctx context.Context, exec sqlx.ExtContext, category *models.Category) error
	Delete(ctx context.Context, id int64) error
}

// CategoryRequest is the writable category payload.
type CategoryRequest struct {
	Title *string `json:"title" validate:"required,notblank,max=100"`
}

// CategoryService handles category use-cases.
type CategoryService struct {
	repo      categoryRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCategoryService constructs the category service.
func NewCategoryService(repo categoryRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CategoryService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns categories and pagination metadata.
func (s *CategoryService) List(ctx context.Context, filter models.CategoryFilter) ([]models.CategoryDetail, *models.Pagination, error) {
	filter.PageRequest = normalisePage(filter.PageRequest)
	categories, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalErr(err, "failed to list categories")
	}
	pagination, err := paginate(filter.PageRequest, total)
	if err != nil {
		return nil, nil, err
	}
	return categories, pagination, nil
}

// Get returns a category with its course count.
func (s *CategoryService) Get(ctx context.Context, id int64) (*models.CategoryDetail, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "category not found", "failed to load category")
	}
	return category, nil
}

// Create validates the payload, assigns a unique slug and stores the category.
func (s *CategoryService) Create(ctx context.Context, req CategoryRequest) (*models.CategoryDetail, error) {
	req.Title = trimmed(req.Title)
	if err := s.validate(ctx, req, 0); err != nil {
		return nil, err
	}

	category := &models.Category{Title: *req.Title}
	for attempt := 1; ; attempt++ {
		generated, err := slug.Unique(ctx, category.Title, "category", func(ctx context.Context, candidate string) (bool, error) {
			return s.repo.ExistsBySlug(ctx, candidate, 0)
		})
		if err != nil {
			return nil, internalErr(err, "failed to generate slug")
		}
		category.Slug = generated

		err = s.repo.Create(ctx, nil, category)
		if err == nil {
			break
		}
		constraint, unique := repository.UniqueViolation(err)
		switch {
		case unique && constraint == repository.ConstraintCategoryTitle:
			return nil, appErrors.Validation(map[string]string{"title": "a category with this title already exists"}, true)
		case unique && constraint == repository.ConstraintCategorySlug && attempt < maxSlugAttempts:
			s.logger.Debug("category slug taken concurrently, retrying", zap.String("slug", category.Slug), zap.Int("attempt", attempt))
			continue
		default:
			return nil, internalErr(err, "failed to create category")
		}
	}

	s.logger.Info("category created", zap.Int64("category_id", category.ID), zap.String("slug", category.Slug))
	return &models.CategoryDetail{Category: *category}, nil
}

// Update replaces (partial=false) or patches (partial=true) a category title.
func (s *CategoryService) Update(ctx context.Context, id int64, req CategoryRequest, partial bool) (*models.CategoryDetail, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "category not found", "failed to load category")
	}

	req.Title = trimmed(req.Title)
	if partial && req.Title == nil {
		req.Title = &existing.Title
	}
	if err := s.validate(ctx, req, id); err != nil {
		return nil, err
	}

	category := existing.Category
	category.Title = *req.Title
	if err := s.repo.Update(ctx, nil, &category); err != nil {
		if constraint, ok := repository.UniqueViolation(err); ok && constraint == repository.ConstraintCategoryTitle {
			return nil, appErrors.Validation(map[string]string{"title": "a category with this title already exists"}, true)
		}
		return nil, notFoundOr(err, "category not found", "failed to update category")
	}
	s.cache.InvalidateViews(ctx)
	return &models.CategoryDetail{Category: category, CourseCount: existing.CourseCount}, nil
}

// Delete removes a category together with its courses and their enrollments.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "category not found", "failed to delete category")
	}
	s.logger.Info("category deleted", zap.Int64("category_id", id))
	s.cache.InvalidateViews(ctx)
	return nil
}

func (s *CategoryService) validate(ctx context.Context, req CategoryRequest, selfID int64) error {
	v := newViolations()
	if err := v.collect(s.validator.Struct(req)); err != nil {
		return internalErr(err, "failed to validate category")
	}
	if !v.has("title") {
		if utf8.RuneCountInString(*req.Title) < minCategoryTitle {
			v.add("title", "title must be at least 3 characters")
		} else {
			taken, err := s.repo.ExistsByTitle(ctx, *req.Title, selfID)
			if err != nil {
				return internalErr(err, "failed to validate title")
			}
			if taken {
				v.duplicate("title", "a category with this title already exists")
			}
		}
	}
	return v.err()
}
