package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-catalog-api/internal/models"
	"github.com/noah-isme/course-catalog-api/pkg/query"
)

const enrollmentColumns = `e.id, e.course_id, e.student_id, e.enrolled_at, e.completed, e.completed_at,
        co.title AS course_title, s.first_name AS student_first_name, s.last_name AS student_last_name`

const enrollmentFrom = `FROM enrollments e
JOIN courses co ON co.id = e.course_id
JOIN students s ON s.id = e.student_id`

var enrollmentSorts = map[string]string{
	"enrolled_at":  "e.enrolled_at",
	"completed_at": "e.completed_at",
}

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func (r *EnrollmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.CourseID != nil {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, *filter.CourseID)
	}
	if filter.StudentID != nil {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, *filter.StudentID)
	}
	if filter.Completed != nil {
		conditions = append(conditions, fmt.Sprintf("e.completed = $%d", len(args)+1))
		args = append(args, *filter.Completed)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	order := query.OrderBy(query.ParseOrdering(filter.Ordering, enrollmentSorts), query.OrderTerm{Column: "e.enrolled_at", Desc: true})
	listQuery := fmt.Sprintf("SELECT %s %s%s ORDER BY %s%s", enrollmentColumns, enrollmentFrom, clause, order, window(filter.PageRequest))

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM enrollments e"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID fetches an enrollment with course and student labels.
func (r *EnrollmentRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.EnrollmentDetail, error) {
	q := fmt.Sprintf("SELECT %s %s WHERE e.id = $1", enrollmentColumns, enrollmentFrom)
	var enrollment models.EnrollmentDetail
	if err := sqlx.GetContext(ctx, r.exec(exec), &enrollment, q, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindForUpdate reads and locks an enrollment row.
func (r *EnrollmentRepository) FindForUpdate(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Enrollment, error) {
	const q = `SELECT id, course_id, student_id, enrolled_at, completed, completed_at FROM enrollments WHERE id = $1 FOR UPDATE`
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, r.exec(exec), &enrollment, q, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Exists reports whether the course/student pair is already enrolled, optionally excluding an ID.
func (r *EnrollmentRepository) Exists(ctx context.Context, exec sqlx.ExtContext, courseID, studentID, excludeID int64) (bool, error) {
	q := "SELECT 1 FROM enrollments WHERE course_id = $1 AND student_id = $2"
	args := []interface{}{courseID, studentID}
	if excludeID > 0 {
		q += " AND id <> $3"
		args = append(args, excludeID)
	}
	var found int
	if err := sqlx.GetContext(ctx, r.exec(exec), &found, q+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// Create inserts an enrollment and sets its generated ID.
func (r *EnrollmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	const q = `INSERT INTO enrollments (course_id, student_id, enrolled_at, completed, completed_at)
        VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := sqlx.GetContext(ctx, r.exec(exec), &enrollment.ID, q,
		enrollment.CourseID, enrollment.StudentID, enrollment.EnrolledAt, enrollment.Completed, enrollment.CompletedAt,
	); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Update writes course, student and completion state. enrolled_at never changes.
func (r *EnrollmentRepository) Update(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	const q = `UPDATE enrollments SET course_id = $1, student_id = $2, completed = $3, completed_at = $4 WHERE id = $5`
	result, err := r.exec(exec).ExecContext(ctx, q, enrollment.CourseID, enrollment.StudentID, enrollment.Completed, enrollment.CompletedAt, enrollment.ID)
	if err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	return requireAffected(result, "update enrollment")
}

// Delete removes an enrollment.
func (r *EnrollmentRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return requireAffected(result, "delete enrollment")
}
