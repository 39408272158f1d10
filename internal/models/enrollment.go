package models

import "time"

// Enrollment links a student to a course.
type Enrollment struct {
	ID          int64      `db:"id" json:"id"`
	CourseID    int64      `db:"course_id" json:"course"`
	StudentID   int64      `db:"student_id" json:"student"`
	EnrolledAt  time.Time  `db:"enrolled_at" json:"enrolled_at"`
	Completed   bool       `db:"completed" json:"completed"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at"`
}

// StampCompletion keeps CompletedAt consistent with Completed. An existing
// completion time is preserved; a missing one is set to now.
func (e *Enrollment) StampCompletion(now time.Time) {
	if !e.Completed {
		e.CompletedAt = nil
		return
	}
	if e.CompletedAt == nil {
		stamped := now
		e.CompletedAt = &stamped
	}
}

// EnrollmentDetail enriches Enrollment with course and student labels.
type EnrollmentDetail struct {
	Enrollment
	CourseTitle      string `db:"course_title" json:"course_title"`
	StudentFirstName string `db:"student_first_name" json:"-"`
	StudentLastName  string `db:"student_last_name" json:"-"`
}

// StudentName renders the enrolled student's full name.
func (e EnrollmentDetail) StudentName() string {
	return Student{FirstName: e.StudentFirstName, LastName: e.StudentLastName}.FullName()
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	PageRequest
	CourseID  *int64
	StudentID *int64
	Completed *bool
	Ordering  string
}
