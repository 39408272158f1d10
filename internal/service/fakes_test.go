package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-catalog-api/internal/models"
	appErrors "github.com/noah-isme/course-catalog-api/pkg/errors"
)

func newTxProviderMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func uniqueErr(constraint string) error {
	return &pq.Error{Code: "23505", Constraint: constraint}
}

func strPtr(v string) *string { return &v }
func int64Ptr(v int64) *int64 { return &v }
func boolPtr(v bool) *bool    { return &v }

type fakeCategoryRepo struct {
	categories map[int64]models.Category
	courses    map[int64]int
	nextID     int64
	createErrs []error
	lastFilter models.CategoryFilter
	listTotal  int
}

func newFakeCategoryRepo(existing ...models.Category) *fakeCategoryRepo {
	repo := &fakeCategoryRepo{categories: map[int64]models.Category{}, courses: map[int64]int{}, nextID: 100}
	for _, c := range existing {
		repo.categories[c.ID] = c
	}
	return repo
}

func (f *fakeCategoryRepo) List(ctx context.Context, filter models.CategoryFilter) ([]models.CategoryDetail, int, error) {
	f.lastFilter = filter
	var out []models.CategoryDetail
	for _, c := range f.categories {
		out = append(out, models.CategoryDetail{Category: c, CourseCount: f.courses[c.ID]})
	}
	total := f.listTotal
	if total == 0 {
		total = len(out)
	}
	return out, total, nil
}

func (f *fakeCategoryRepo) FindByID(ctx context.Context, id int64) (*models.CategoryDetail, error) {
	c, ok := f.categories[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.CategoryDetail{Category: c, CourseCount: f.courses[id]}, nil
}

func (f *fakeCategoryRepo) ExistsByTitle(ctx context.Context, title string, excludeID int64) (bool, error) {
	for id, c := range f.categories {
		if id != excludeID && strings.EqualFold(c.Title, title) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCategoryRepo) ExistsBySlug(ctx context.Context, slug string, excludeID int64) (bool, error) {
	for id, c := range f.categories {
		if id != excludeID && c.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCategoryRepo) Create(ctx context.Context, exec sqlx.ExtContext, category *models.Category) error {
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	f.nextID++
	category.ID = f.nextID
	f.categories[category.ID] = *category
	return nil
}

func (f *fakeCategoryRepo) Update(ctx context.Context, exec sqlx.ExtContext, category *models.Category) error {
	if _, ok := f.categories[category.ID]; !ok {
		return sql.ErrNoRows
	}
	f.categories[category.ID] = *category
	return nil
}

func (f *fakeCategoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := f.categories[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.categories, id)
	return nil
}

type fakeCourseRepo struct {
	courses      map[int64]models.Course
	enrollments  map[int64]int
	nextID       int64
	createErrs   []error
	popularCalls int
	deleted      []int64
}

func newFakeCourseRepo(existing ...models.Course) *fakeCourseRepo {
	repo := &fakeCourseRepo{courses: map[int64]models.Course{}, enrollments: map[int64]int{}, nextID: 200}
	for _, c := range existing {
		repo.courses[c.ID] = c
	}
	return repo
}

func (f *fakeCourseRepo) detail(c models.Course) models.CourseDetail {
	return models.CourseDetail{Course: c, CategoryName: "Programming", StudentCount: f.enrollments[c.ID]}
}

func (f *fakeCourseRepo) sorted() []models.CourseDetail {
	out := make([]models.CourseDetail, 0, len(f.courses))
	for _, c := range f.courses {
		out = append(out, f.detail(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	out := f.sorted()
	return out, len(out), nil
}

func (f *fakeCourseRepo) ListAll(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, error) {
	return f.sorted(), nil
}

func (f *fakeCourseRepo) ListPopular(ctx context.Context, page models.PageRequest) ([]models.CourseDetail, int, error) {
	f.popularCalls++
	var out []models.CourseDetail
	for _, c := range f.sorted() {
		if c.IsActive && c.IsPopular() {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

func (f *fakeCourseRepo) ListByCategory(ctx context.Context, categoryID int64, page models.PageRequest) ([]models.CourseDetail, int, error) {
	var out []models.CourseDetail
	for _, c := range f.sorted() {
		if c.CategoryID == categoryID && c.IsActive {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

func (f *fakeCourseRepo) ListByStudent(ctx context.Context, studentID int64, page models.PageRequest) ([]models.CourseDetail, int, error) {
	return nil, 0, nil
}

func (f *fakeCourseRepo) FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.CourseDetail, error) {
	c, ok := f.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d := f.detail(c)
	return &d, nil
}

func (f *fakeCourseRepo) FindForShare(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Course, error) {
	c, ok := f.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (f *fakeCourseRepo) LockByID(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	if _, ok := f.courses[id]; !ok {
		return sql.ErrNoRows
	}
	return nil
}

func (f *fakeCourseRepo) CountEnrollments(ctx context.Context, exec sqlx.ExtContext, id int64) (int, error) {
	return f.enrollments[id], nil
}

func (f *fakeCourseRepo) ExistsByTitle(ctx context.Context, title string, excludeID int64) (bool, error) {
	for id, c := range f.courses {
		if id != excludeID && strings.EqualFold(c.Title, title) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCourseRepo) ExistsBySlug(ctx context.Context, slug string, excludeID int64) (bool, error) {
	for id, c := range f.courses {
		if id != excludeID && c.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCourseRepo) Create(ctx context.Context, exec sqlx.ExtContext, course *models.Course) error {
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	f.nextID++
	course.ID = f.nextID
	course.CreatedAt = time.Now().UTC()
	course.UpdatedAt = course.CreatedAt
	f.courses[course.ID] = *course
	return nil
}

func (f *fakeCourseRepo) Update(ctx context.Context, exec sqlx.ExtContext, course *models.Course) error {
	if _, ok := f.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	f.courses[course.ID] = *course
	return nil
}

func (f *fakeCourseRepo) Delete(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	if _, ok := f.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.courses, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeStudentRepo struct {
	students    map[int64]models.Student
	enrollments map[int64]int
	nextID      int64
	createErrs  []error
	deleted     []int64
}

func newFakeStudentRepo(existing ...models.Student) *fakeStudentRepo {
	repo := &fakeStudentRepo{students: map[int64]models.Student{}, enrollments: map[int64]int{}, nextID: 300}
	for _, s := range existing {
		repo.students[s.ID] = s
	}
	return repo
}

func (f *fakeStudentRepo) all() []models.StudentDetail {
	out := make([]models.StudentDetail, 0, len(f.students))
	for _, s := range f.students {
		out = append(out, models.StudentDetail{Student: s, EnrolledCoursesCount: f.enrollments[s.ID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	out := f.all()
	return out, len(out), nil
}

func (f *fakeStudentRepo) ListByCourse(ctx context.Context, courseID int64, page models.PageRequest) ([]models.StudentDetail, int, error) {
	return nil, 0, nil
}

func (f *fakeStudentRepo) ListActiveWithEnrollments(ctx context.Context, page models.PageRequest) ([]models.StudentDetail, int, error) {
	var out []models.StudentDetail
	for _, s := range f.all() {
		if s.IsActive && s.EnrolledCoursesCount > 0 {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

func (f *fakeStudentRepo) EnrolledInCourse(ctx context.Context, courseID int64) ([]models.StudentDetail, error) {
	return f.all(), nil
}

func (f *fakeStudentRepo) FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.StudentDetail, error) {
	s, ok := f.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.StudentDetail{Student: s, EnrolledCoursesCount: f.enrollments[id]}, nil
}

func (f *fakeStudentRepo) FindForShare(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Student, error) {
	s, ok := f.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (f *fakeStudentRepo) LockByID(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	if _, ok := f.students[id]; !ok {
		return sql.ErrNoRows
	}
	return nil
}

func (f *fakeStudentRepo) CountEnrollments(ctx context.Context, exec sqlx.ExtContext, id int64) (int, error) {
	return f.enrollments[id], nil
}

func (f *fakeStudentRepo) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	for id, s := range f.students {
		if id != excludeID && s.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStudentRepo) ExistsBySlug(ctx context.Context, slug string, excludeID int64) (bool, error) {
	for id, s := range f.students {
		if id != excludeID && s.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStudentRepo) Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error {
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	f.nextID++
	student.ID = f.nextID
	f.students[student.ID] = *student
	return nil
}

func (f *fakeStudentRepo) Update(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error {
	if _, ok := f.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	f.students[student.ID] = *student
	return nil
}

func (f *fakeStudentRepo) Delete(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	if _, ok := f.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.students, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeEnrollmentRepo struct {
	enrollments map[int64]models.Enrollment
	nextID      int64
	createErr   error
	created     []models.Enrollment
}

func newFakeEnrollmentRepo(existing ...models.Enrollment) *fakeEnrollmentRepo {
	repo := &fakeEnrollmentRepo{enrollments: map[int64]models.Enrollment{}, nextID: 400}
	for _, e := range existing {
		repo.enrollments[e.ID] = e
	}
	return repo
}

func (f *fakeEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var out []models.EnrollmentDetail
	for _, e := range f.enrollments {
		out = append(out, models.EnrollmentDetail{Enrollment: e})
	}
	return out, len(out), nil
}

func (f *fakeEnrollmentRepo) FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.EnrollmentDetail, error) {
	e, ok := f.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.EnrollmentDetail{Enrollment: e, CourseTitle: "Intro to Go", StudentFirstName: "Ada", StudentLastName: "Lovelace"}, nil
}

func (f *fakeEnrollmentRepo) FindForUpdate(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Enrollment, error) {
	e, ok := f.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (f *fakeEnrollmentRepo) Exists(ctx context.Context, exec sqlx.ExtContext, courseID, studentID, excludeID int64) (bool, error) {
	for id, e := range f.enrollments {
		if id != excludeID && e.CourseID == courseID && e.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeEnrollmentRepo) Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	enrollment.ID = f.nextID
	f.enrollments[enrollment.ID] = *enrollment
	f.created = append(f.created, *enrollment)
	return nil
}

func (f *fakeEnrollmentRepo) Update(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	if _, ok := f.enrollments[enrollment.ID]; !ok {
		return sql.ErrNoRows
	}
	f.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (f *fakeEnrollmentRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := f.enrollments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.enrollments, id)
	return nil
}

type memoryCacheRepo struct {
	entries map[string]interface{}
	deleted []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string]interface{}{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	value, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*cachedCourses)) = value.(cachedCourses)
	return nil
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.entries[key] = value
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	m.deleted = append(m.deleted, pattern)
	return nil
}
