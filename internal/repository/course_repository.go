package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-catalog-api/internal/models"
	"github.com/noah-isme/course-catalog-api/pkg/query"
)

const courseColumns = `co.id, co.title, co.description, co.price, co.status, co.slug, co.category_id, co.is_active, co.created_at, co.updated_at,
        cat.title AS category_name,
        (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = co.id) AS student_count`

const courseFrom = "FROM courses co JOIN categories cat ON cat.id = co.category_id"

var courseSorts = map[string]string{
	"price":      "co.price",
	"created_at": "co.created_at",
	"updated_at": "co.updated_at",
}

var courseNewestFirst = query.OrderTerm{Column: "co.created_at", Desc: true}

// CourseRepository manages persistence for courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

func courseConditions(filter models.CourseFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("co.status = $%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("co.category_id = $%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conditions = append(conditions, fmt.Sprintf("co.is_active = $%d", len(args)))
	}
	if filter.MinPrice != nil {
		args = append(args, *filter.MinPrice)
		conditions = append(conditions, fmt.Sprintf("co.price >= $%d", len(args)))
	}
	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		conditions = append(conditions, fmt.Sprintf("co.price <= $%d", len(args)))
	}
	if cond, searchArgs := query.SearchCondition(filter.Search, []string{"co.title", "co.description"}, args); cond != "" {
		conditions = append(conditions, cond)
		args = searchArgs
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// courseOrder appends the newest-first tiebreak to whatever ordering was requested.
func courseOrder(raw string) string {
	terms := query.ParseOrdering(raw, courseSorts)
	return query.OrderBy(append(terms, courseNewestFirst))
}

// List returns courses matching the filter with category names and enrollment counts.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	clause, args := courseConditions(filter)
	listQuery := fmt.Sprintf("SELECT %s %s%s ORDER BY %s%s", courseColumns, courseFrom, clause, courseOrder(filter.Ordering), window(filter.PageRequest))

	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s%s", courseFrom, clause), args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// ListAll returns every course matching the filter without pagination. Used for exports.
func (r *CourseRepository) ListAll(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, error) {
	clause, args := courseConditions(filter)
	listQuery := fmt.Sprintf("SELECT %s %s%s ORDER BY %s", courseColumns, courseFrom, clause, courseOrder(filter.Ordering))
	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, listQuery, args...); err != nil {
		return nil, fmt.Errorf("export courses: %w", err)
	}
	return courses, nil
}

// ListPopular returns active courses with at least the popular enrollment threshold, most enrolled first.
func (r *CourseRepository) ListPopular(ctx context.Context, page models.PageRequest) ([]models.CourseDetail, int, error) {
	const clause = " WHERE co.is_active = TRUE AND (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = co.id) >= $1"
	listQuery := fmt.Sprintf("SELECT %s %s%s ORDER BY student_count DESC, co.created_at DESC%s", courseColumns, courseFrom, clause, window(page))

	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, listQuery, models.PopularEnrollmentThreshold); err != nil {
		return nil, 0, fmt.Errorf("list popular courses: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s%s", courseFrom, clause), models.PopularEnrollmentThreshold); err != nil {
		return nil, 0, fmt.Errorf("count popular courses: %w", err)
	}
	return courses, total, nil
}

// ListByCategory returns the active courses of a category, newest first.
func (r *CourseRepository) ListByCategory(ctx context.Context, categoryID int64, page models.PageRequest) ([]models.CourseDetail, int, error) {
	const clause = " WHERE co.category_id = $1 AND co.is_active = TRUE"
	listQuery := fmt.Sprintf("SELECT %s %s%s ORDER BY co.created_at DESC%s", courseColumns, courseFrom, clause, window(page))

	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, listQuery, categoryID); err != nil {
		return nil, 0, fmt.Errorf("list category courses: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s%s", courseFrom, clause), categoryID); err != nil {
		return nil, 0, fmt.Errorf("count category courses: %w", err)
	}
	return courses, total, nil
}

// ListByStudent returns the distinct courses a student is enrolled in, newest first.
func (r *CourseRepository) ListByStudent(ctx context.Context, studentID int64, page models.PageRequest) ([]models.CourseDetail, int, error) {
	const clause = " WHERE EXISTS (SELECT 1 FROM enrollments en WHERE en.course_id = co.id AND en.student_id = $1)"
	listQuery := fmt.Sprintf("SELECT %s %s%s ORDER BY co.created_at DESC%s", courseColumns, courseFrom, clause, window(page))

	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, listQuery, studentID); err != nil {
		return nil, 0, fmt.Errorf("list student courses: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s%s", courseFrom, clause), studentID); err != nil {
		return nil, 0, fmt.Errorf("count student courses: %w", err)
	}
	return courses, total, nil
}

// FindByID fetches a course with its category name and enrollment count.
func (r *CourseRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.CourseDetail, error) {
	q := fmt.Sprintf("SELECT %s %s WHERE co.id = $1", courseColumns, courseFrom)
	var course models.CourseDetail
	if err := sqlx.GetContext(ctx, r.exec(exec), &course, q, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindForShare reads a course row under a shared lock so it cannot change or
// disappear before the surrounding transaction commits.
func (r *CourseRepository) FindForShare(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Course, error) {
	const q = `SELECT id, title, description, price, status, slug, category_id, is_active, created_at, updated_at
        FROM courses WHERE id = $1 FOR SHARE`
	var course models.Course
	if err := sqlx.GetContext(ctx, r.exec(exec), &course, q, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// LockByID takes a row lock on the course for the rest of the transaction.
func (r *CourseRepository) LockByID(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	var locked int64
	return sqlx.GetContext(ctx, r.exec(exec), &locked, `SELECT id FROM courses WHERE id = $1 FOR UPDATE`, id)
}

// CountEnrollments returns the number of enrollments referencing the course.
func (r *CourseRepository) CountEnrollments(ctx context.Context, exec sqlx.ExtContext, id int64) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, r.exec(exec), &count, `SELECT COUNT(*) FROM enrollments WHERE course_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count course enrollments: %w", err)
	}
	return count, nil
}

// ExistsByTitle checks case-insensitively for a course title, optionally excluding an ID.
func (r *CourseRepository) ExistsByTitle(ctx context.Context, title string, excludeID int64) (bool, error) {
	return exists(ctx, r.db, "courses", "LOWER(title) = LOWER($1)", strings.TrimSpace(title), excludeID)
}

// ExistsBySlug checks whether a course slug is taken, optionally excluding an ID.
func (r *CourseRepository) ExistsBySlug(ctx context.Context, slug string, excludeID int64) (bool, error) {
	return exists(ctx, r.db, "courses", "slug = $1", slug, excludeID)
}

// Create inserts a course and sets its generated ID and timestamps.
func (r *CourseRepository) Create(ctx context.Context, exec sqlx.ExtContext, course *models.Course) error {
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const q = `INSERT INTO courses (title, description, price, status, slug, category_id, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	if err := sqlx.GetContext(ctx, r.exec(exec), &course.ID, q,
		course.Title, course.Description, course.Price, course.Status, course.Slug, course.CategoryID, course.IsActive, course.CreatedAt, course.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update writes the mutable course fields. The slug is left untouched.
func (r *CourseRepository) Update(ctx context.Context, exec sqlx.ExtContext, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const q = `UPDATE courses SET title = :title, description = :description, price = :price, status = :status,
        category_id = :category_id, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, r.exec(exec), q, course)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return requireAffected(result, "update course")
}

// Delete removes a course row.
func (r *CourseRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	result, err := r.exec(exec).ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return requireAffected(result, "delete course")
}
