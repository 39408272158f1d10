package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/noah-isme/course-catalog-api/internal/models"
)

// Postgres constraint names referenced by the services.
const (
	ConstraintCategorySlug   = "categories_slug_key"
	ConstraintCategoryTitle  = "categories_title_lower_key"
	ConstraintCourseSlug     = "courses_slug_key"
	ConstraintCourseTitle    = "courses_title_lower_key"
	ConstraintCourseCategory = "courses_category_id_fkey"
	ConstraintStudentSlug    = "students_slug_key"
	ConstraintStudentEmail   = "students_email_key"
	ConstraintEnrollmentPair = "enrollments_course_student_key"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// UniqueViolation reports the constraint name when err is a Postgres unique violation.
func UniqueViolation(err error) (string, bool) {
	return pgConstraint(err, pgUniqueViolation)
}

// ForeignKeyViolation reports the constraint name when err is a Postgres foreign key violation.
func ForeignKeyViolation(err error) (string, bool) {
	return pgConstraint(err, pgForeignKeyViolation)
}

func pgConstraint(err error, code pq.ErrorCode) (string, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != code {
		return "", false
	}
	return pqErr.Constraint, true
}

func window(p models.PageRequest) string {
	p = p.Normalize()
	return fmt.Sprintf(" LIMIT %d OFFSET %d", p.Limit(), p.Offset())
}
