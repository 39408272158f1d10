package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-catalog-api/internal/models"
	appErrors "github.com/noah-isme/course-catalog-api/pkg/errors"
)

const (
	courseCachePattern   = "courses:*"
	categoryCachePattern = "categories:*"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// cachedCourses is the stored form of a cached course listing page.
type cachedCourses struct {
	Items []models.CourseDetail `json:"items"`
	Total int                   `json:"total"`
}

// CacheService wraps the read-through cache used for derived course views.
// A nil or disabled CacheService behaves as a permanent miss.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
	// generation is part of every view key. InvalidateViews bumps it, so a
	// load that began before a write stores under a key nobody reads.
	generation atomic.Uint64
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return true, nil
}

// Set stores the value in cache using the default TTL when ttl is not positive.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes cached values for the provided pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// InvalidateViews drops every cached course and category-course view. Catalog
// writes call it after commit; a failure only leaves entries to expire on TTL.
func (s *CacheService) InvalidateViews(ctx context.Context) {
	if s == nil {
		return
	}
	s.generation.Add(1)
	for _, pattern := range []string{courseCachePattern, categoryCachePattern} {
		_ = s.Invalidate(ctx, pattern)
	}
}

// courses serves a course listing page from cache, loading and storing it on a miss.
// Cache failures fall back to the loader.
func (s *CacheService) courses(ctx context.Context, key string, load func() ([]models.CourseDetail, int, error)) ([]models.CourseDetail, int, error) {
	if s.Enabled() {
		key = fmt.Sprintf("%s:g%d", key, s.generation.Load())
	}
	var cached cachedCourses
	if hit, _ := s.Get(ctx, key, &cached); hit {
		return cached.Items, cached.Total, nil
	}
	items, total, err := load()
	if err != nil {
		return nil, 0, err
	}
	_ = s.Set(ctx, key, cachedCourses{Items: items, Total: total}, 0)
	return items, total, nil
}

func popularCoursesKey(page models.PageRequest) string {
	return fmt.Sprintf("courses:popular:p%d:s%d", page.Page, page.PageSize)
}

func categoryCoursesKey(categoryID int64, page models.PageRequest) string {
	return fmt.Sprintf("categories:%d:courses:p%d:s%d", categoryID, page.Page, page.PageSize)
}
