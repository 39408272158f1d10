package models

import (
	"strings"
	"time"
)

// Student represents a learner who may enroll in courses.
type Student struct {
	ID        int64     `db:"id" json:"id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Email     string    `db:"email" json:"email"`
	Slug      string    `db:"slug" json:"slug"`
	Phone     *string   `db:"phone" json:"phone"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins the first and last names.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// StudentDetail contains student information with the number of enrolled courses.
type StudentDetail struct {
	Student
	EnrolledCoursesCount int `db:"enrolled_courses_count" json:"enrolled_courses_count"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	PageRequest
	Search   string
	Ordering string
}
