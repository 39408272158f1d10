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

const studentColumns = `s.id, s.first_name, s.last_name, s.email, s.slug, s.phone, s.is_active, s.created_at, s.updated_at,
        (SELECT COUNT(*) FROM enrollments e WHERE e.student_id = s.id) AS enrolled_courses_count`

var studentSorts = map[string]string{
	"first_name": "s.first_name",
	"last_name":  "s.last_name",
	"created_at": "s.created_at",
}

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	var args []interface{}
	clause := ""
	if cond, searchArgs := query.SearchCondition(filter.Search, []string{"s.first_name", "s.last_name", "s.email", "s.phone"}, args); cond != "" {
		clause = " WHERE " + cond
		args = searchArgs
	}

	order := query.OrderBy(query.ParseOrdering(filter.Ordering, studentSorts), query.OrderTerm{Column: "s.created_at", Desc: true})
	return r.page(ctx, clause, order, filter.PageRequest, "students", args...)
}

// ListByCourse returns the distinct students enrolled in a course, newest first.
func (r *StudentRepository) ListByCourse(ctx context.Context, courseID int64, page models.PageRequest) ([]models.StudentDetail, int, error) {
	const clause = " WHERE EXISTS (SELECT 1 FROM enrollments en WHERE en.student_id = s.id AND en.course_id = $1)"
	return r.page(ctx, clause, "s.created_at DESC", page, "course students", courseID)
}

// ListActiveWithEnrollments returns active students holding at least one enrollment, newest first.
func (r *StudentRepository) ListActiveWithEnrollments(ctx context.Context, page models.PageRequest) ([]models.StudentDetail, int, error) {
	const clause = " WHERE s.is_active = TRUE AND EXISTS (SELECT 1 FROM enrollments en WHERE en.student_id = s.id)"
	return r.page(ctx, clause, "s.created_at DESC", page, "active students")
}

// EnrolledInCourse returns every student enrolled in the course. Used by the course detail view.
func (r *StudentRepository) EnrolledInCourse(ctx context.Context, courseID int64) ([]models.StudentDetail, error) {
	q := fmt.Sprintf(`SELECT %s FROM students s
        WHERE EXISTS (SELECT 1 FROM enrollments en WHERE en.student_id = s.id AND en.course_id = $1)
        ORDER BY s.created_at DESC`, studentColumns)
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, q, courseID); err != nil {
		return nil, fmt.Errorf("list enrolled students: %w", err)
	}
	return students, nil
}

func (r *StudentRepository) page(ctx context.Context, clause, order string, page models.PageRequest, label string, args ...interface{}) ([]models.StudentDetail, int, error) {
	listQuery := fmt.Sprintf("SELECT %s FROM students s%s ORDER BY %s%s", studentColumns, clause, order, window(page))
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", label, err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students s"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", label, err)
	}
	return students, total, nil
}

// FindByID fetches a student with the number of enrolled courses.
func (r *StudentRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.StudentDetail, error) {
	q := fmt.Sprintf("SELECT %s FROM students s WHERE s.id = $1", studentColumns)
	var student models.StudentDetail
	if err := sqlx.GetContext(ctx, r.exec(exec), &student, q, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindForShare reads a student row under a shared lock.
func (r *StudentRepository) FindForShare(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Student, error) {
	const q = `SELECT id, first_name, last_name, email, slug, phone, is_active, created_at, updated_at
        FROM students WHERE id = $1 FOR SHARE`
	var student models.Student
	if err := sqlx.GetContext(ctx, r.exec(exec), &student, q, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// LockByID takes a row lock on the student for the rest of the transaction.
func (r *StudentRepository) LockByID(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	var locked int64
	return sqlx.GetContext(ctx, r.exec(exec), &locked, `SELECT id FROM students WHERE id = $1 FOR UPDATE`, id)
}

// CountEnrollments returns the number of enrollments referencing the student.
func (r *StudentRepository) CountEnrollments(ctx context.Context, exec sqlx.ExtContext, id int64) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, r.exec(exec), &count, `SELECT COUNT(*) FROM enrollments WHERE student_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count student enrollments: %w", err)
	}
	return count, nil
}

// ExistsByEmail checks if a student with the email exists, optionally excluding an ID.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	return exists(ctx, r.db, "students", "email = $1", strings.ToLower(strings.TrimSpace(email)), excludeID)
}

// ExistsBySlug checks whether a student slug is taken, optionally excluding an ID.
func (r *StudentRepository) ExistsBySlug(ctx context.Context, slug string, excludeID int64) (bool, error) {
	return exists(ctx, r.db, "students", "slug = $1", slug, excludeID)
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error {
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const q = `INSERT INTO students (first_name, last_name, email, slug, phone, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	if err := sqlx.GetContext(ctx, r.exec(exec), &student.ID, q,
		student.FirstName, student.LastName, student.Email, student.Slug, student.Phone, student.IsActive, student.CreatedAt, student.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student. The slug is left untouched.
func (r *StudentRepository) Update(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const q = `UPDATE students SET first_name = :first_name, last_name = :last_name, email = :email, phone = :phone,
        is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, r.exec(exec), q, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return requireAffected(result, "update student")
}

// Delete removes a student row.
func (r *StudentRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	result, err := r.exec(exec).ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return requireAffected(result, "delete student")
}
