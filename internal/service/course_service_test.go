package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-catalog-api/internal/models"
	"github.com/noah-isme/course-catalog-api/internal/repository"
	appErrors "github.com/noah-isme/course-catalog-api/pkg/errors"
)

type courseFixture struct {
	svc        *CourseService
	courses    *fakeCourseRepo
	categories *fakeCategoryRepo
	students   *fakeStudentRepo
	cache      *memoryCacheRepo
}

func newCourseFixture(t *testing.T, courses ...models.Course) courseFixture {
	t.Helper()
	db, _ := newTxProviderMock(t)
	f := courseFixture{
		courses:    newFakeCourseRepo(courses...),
		categories: newFakeCategoryRepo(models.Category{ID: 1, Title: "Programming", Slug: "programming"}),
		students:   newFakeStudentRepo(),
		cache:      newMemoryCacheRepo(),
	}
	cache := NewCacheService(f.cache, nil, 0, zap.NewNop(), true)
	f.svc = NewCourseService(f.courses, f.categories, f.students, db, cache, nil, nil, zap.NewNop())
	return f
}

func validCourseRequest() CourseRequest {
	return CourseRequest{
		Title:       strPtr("Intro to Go"),
		Description: strPtr("Learn the basics"),
		Price:       int64Ptr(250000),
		Category:    int64Ptr(1),
	}
}

func requireFields(t *testing.T, err error) *appErrors.Error {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected *errors.Error, got %T", err)
	return appErr
}

func TestCourseServiceCreateDefaults(t *testing.T) {
	f := newCourseFixture(t)

	created, err := f.svc.Create(context.Background(), validCourseRequest())
	require.NoError(t, err)
	assert.Equal(t, "intro-to-go", created.Slug)
	assert.Equal(t, models.CourseStatusBeginner, created.Status)
	assert.True(t, created.IsActive)
	assert.Equal(t, int64(1), created.CategoryID)
}

func TestCourseServiceCreateCollectsAllViolations(t *testing.T) {
	f := newCourseFixture(t)

	appErr := requireFields(t, func() error {
		_, err := f.svc.Create(context.Background(), CourseRequest{
			Title:    strPtr("Go"),
			Price:    int64Ptr(-1),
			Category: int64Ptr(42),
		})
		return err
	}())
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Equal(t, map[string]string{
		"title":       "title must be at least 5 characters",
		"description": "this field is required",
		"price":       "price must not be negative",
		"category":    "category does not exist",
	}, appErr.Fields)
}

func TestCourseServiceBeginnerPriceCeiling(t *testing.T) {
	f := newCourseFixture(t)

	req := validCourseRequest()
	req.Price = int64Ptr(models.BeginnerPriceCeiling + 1)
	_, err := f.svc.Create(context.Background(), req)
	appErr := requireFields(t, err)
	assert.Equal(t, "beginner courses cannot cost more than 500000", appErr.Fields["price"])

	req.Price = int64Ptr(models.BeginnerPriceCeiling)
	_, err = f.svc.Create(context.Background(), req)
	require.NoError(t, err)

	req = validCourseRequest()
	req.Title = strPtr("Advanced Go")
	req.Price = int64Ptr(models.BeginnerPriceCeiling + 1)
	req.Status = strPtr("advanced")
	_, err = f.svc.Create(context.Background(), req)
	require.NoError(t, err)
}

func TestCourseServicePatchChecksMergedCeiling(t *testing.T) {
	f := newCourseFixture(t, models.Course{
		ID: 5, Title: "Distributed Systems", Description: "Consensus", Price: 900000,
		Status: models.CourseStatusAdvanced, Slug: "distributed-systems", CategoryID: 1, IsActive: true,
	})

	_, err := f.svc.Update(context.Background(), 5, CourseRequest{Status: strPtr("beginner")}, true)
	appErr := requireFields(t, err)
	assert.Contains(t, appErr.Fields, "price")

	updated, err := f.svc.Update(context.Background(), 5, CourseRequest{IsActive: boolPtr(false)}, true)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "distributed-systems", updated.Slug)
	assert.Equal(t, int64(900000), updated.Price)
}

func TestCourseServicePutRequiresCoreFields(t *testing.T) {
	f := newCourseFixture(t, models.Course{
		ID: 5, Title: "Distributed Systems", Description: "Consensus", Price: 100,
		Status: models.CourseStatusAdvanced, Slug: "distributed-systems", CategoryID: 1, IsActive: true,
	})

	_, err := f.svc.Update(context.Background(), 5, CourseRequest{Title: strPtr("Distributed Systems")}, false)
	appErr := requireFields(t, err)
	assert.Equal(t, "this field is required", appErr.Fields["description"])
	assert.Equal(t, "this field is required", appErr.Fields["category"])
}

func TestCourseServiceInvalidStatus(t *testing.T) {
	f := newCourseFixture(t)

	req := validCourseRequest()
	req.Status = strPtr("expert")
	_, err := f.svc.Create(context.Background(), req)
	appErr := requireFields(t, err)
	assert.Equal(t, `"expert" is not a valid choice`, appErr.Fields["status"])
}

func TestCourseServiceDuplicateTitle(t *testing.T) {
	f := newCourseFixture(t, models.Course{ID: 3, Title: "Intro to Go", Slug: "intro-to-go", CategoryID: 1})

	_, err := f.svc.Create(context.Background(), validCourseRequest())
	appErr := requireFields(t, err)
	assert.Equal(t, "DUPLICATE", appErr.Code)

	f.courses.createErrs = []error{uniqueErr(repository.ConstraintCourseTitle)}
	req := validCourseRequest()
	req.Title = strPtr("Intro to Rust")
	_, err = f.svc.Create(context.Background(), req)
	assert.True(t, errors.Is(err, appErrors.ErrDuplicate))
}

func TestCourseServiceSlugCollision(t *testing.T) {
	f := newCourseFixture(t, models.Course{ID: 3, Title: "Intro-to Go!", Slug: "intro-to-go", CategoryID: 1})
	f.courses.createErrs = []error{uniqueErr(repository.ConstraintCourseSlug)}

	created, err := f.svc.Create(context.Background(), validCourseRequest())
	require.NoError(t, err)
	assert.Equal(t, "intro-to-go-1", created.Slug)
}

func TestCourseServiceDeleteGuardsEnrollments(t *testing.T) {
	db, mock := newTxProviderMock(t)
	courses := newFakeCourseRepo(models.Course{ID: 5, Title: "Intro to Go", CategoryID: 1})
	courses.enrollments[5] = 2
	svc := NewCourseService(courses, newFakeCategoryRepo(), newFakeStudentRepo(), db, nil, nil, nil, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectRollback()
	err := svc.Delete(context.Background(), 5)
	assert.True(t, errors.Is(err, appErrors.ErrHasDependents))
	assert.Empty(t, courses.deleted)

	courses.enrollments[5] = 0
	mock.ExpectBegin()
	mock.ExpectCommit()
	require.NoError(t, svc.Delete(context.Background(), 5))
	assert.Equal(t, []int64{5}, courses.deleted)

	mock.ExpectBegin()
	mock.ExpectRollback()
	err = svc.Delete(context.Background(), 5)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseServicePopularIsCached(t *testing.T) {
	f := newCourseFixture(t, models.Course{
		ID: 5, Title: "Intro to Go", Description: "Basics", Price: 100000,
		Status: models.CourseStatusBeginner, Slug: "intro-to-go", CategoryID: 1, IsActive: true,
	})
	f.courses.enrollments[5] = models.PopularEnrollmentThreshold

	items, pagination, err := f.svc.ListPopular(context.Background(), models.PageRequest{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, pagination.Page)

	_, _, err = f.svc.ListPopular(context.Background(), models.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.courses.popularCalls)

	_, err = f.svc.Update(context.Background(), 5, CourseRequest{IsActive: boolPtr(false)}, true)
	require.NoError(t, err)
	items, _, err = f.svc.ListPopular(context.Background(), models.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 2, f.courses.popularCalls)
}

func TestCourseServiceListByCategory(t *testing.T) {
	f := newCourseFixture(t,
		models.Course{ID: 5, Title: "Intro to Go", CategoryID: 1, IsActive: true},
		models.Course{ID: 6, Title: "Old Go", CategoryID: 1, IsActive: false},
	)

	items, _, err := f.svc.ListByCategory(context.Background(), 1, models.PageRequest{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(5), items[0].ID)

	_, _, err = f.svc.ListByCategory(context.Background(), 99, models.PageRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestCourseServiceListByStudentUnknown(t *testing.T) {
	f := newCourseFixture(t)

	_, _, err := f.svc.ListByStudent(context.Background(), 12, models.PageRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestCourseServiceGetIncludesRelations(t *testing.T) {
	f := newCourseFixture(t, models.Course{ID: 5, Title: "Intro to Go", CategoryID: 1, IsActive: true})
	f.students.students[8] = models.Student{ID: 8, FirstName: "Ada", LastName: "Lovelace", IsActive: true}

	relations, err := f.svc.Get(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Programming", relations.Category.Title)
	require.Len(t, relations.EnrolledStudents, 1)
	assert.Equal(t, "Ada Lovelace", relations.EnrolledStudents[0].FullName())

	_, err = f.svc.Get(context.Background(), 6)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
