package models

import "time"

// CourseStatus is the difficulty level of a course.
type CourseStatus string

// Supported course levels.
const (
	CourseStatusBeginner     CourseStatus = "beginner"
	CourseStatusIntermediate CourseStatus = "intermediate"
	CourseStatusAdvanced     CourseStatus = "advanced"
)

const (
	// BeginnerPriceCeiling is the highest price a beginner course may carry.
	BeginnerPriceCeiling int64 = 500000
	// PopularEnrollmentThreshold is the enrollment count from which a course counts as popular.
	PopularEnrollmentThreshold = 10
)

// Valid reports whether the status is one of the supported levels.
func (s CourseStatus) Valid() bool {
	switch s {
	case CourseStatusBeginner, CourseStatusIntermediate, CourseStatusAdvanced:
		return true
	}
	return false
}

// Course is a priced offering inside a category.
type Course struct {
	ID          int64        `db:"id" json:"id"`
	Title       string       `db:"title" json:"title"`
	Description string       `db:"description" json:"description"`
	Price       int64        `db:"price" json:"price"`
	Status      CourseStatus `db:"status" json:"status"`
	Slug        string       `db:"slug" json:"slug"`
	CategoryID  int64        `db:"category_id" json:"category"`
	IsActive    bool         `db:"is_active" json:"is_active"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// CourseDetail enriches Course with its category name and enrollment count.
type CourseDetail struct {
	Course
	CategoryName string `db:"category_name" json:"category_name"`
	StudentCount int    `db:"student_count" json:"student_count"`
}

// IsPopular reports whether enough students are enrolled.
func (c CourseDetail) IsPopular() bool {
	return c.StudentCount >= PopularEnrollmentThreshold
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	PageRequest
	Status     CourseStatus
	CategoryID *int64
	IsActive   *bool
	MinPrice   *int64
	MaxPrice   *int64
	Search     string
	Ordering   string
}

// CourseRelations bundles a course with its category and enrolled students.
type CourseRelations struct {
	Course           CourseDetail
	Category         CategoryDetail
	EnrolledStudents []StudentDetail
}
