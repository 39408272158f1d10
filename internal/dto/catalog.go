package dto

import (
	"time"

	"github.com/noah-isme/course-catalog-api/internal/models"
)

// CategoryView is the category representation used by every category endpoint.
type CategoryView struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	CourseCount int    `json:"course_count"`
}

// NewCategoryView projects a category with its course count.
func NewCategoryView(c models.CategoryDetail) CategoryView {
	return CategoryView{ID: c.ID, Title: c.Title, Slug: c.Slug, CourseCount: c.CourseCount}
}

// CategoryViews projects a category page.
func CategoryViews(items []models.CategoryDetail) []CategoryView {
	out := make([]CategoryView, 0, len(items))
	for _, item := range items {
		out = append(out, NewCategoryView(item))
	}
	return out
}

// CourseListItem is the flat course representation used in listings and write responses.
type CourseListItem struct {
	ID           int64               `json:"id"`
	Title        string              `json:"title"`
	Slug         string              `json:"slug"`
	Description  string              `json:"description"`
	Price        int64               `json:"price"`
	Status       models.CourseStatus `json:"status"`
	Category     int64               `json:"category"`
	CategoryName string              `json:"category_name"`
	IsActive     bool                `json:"is_active"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	StudentCount int                 `json:"student_count"`
	IsPopular    bool                `json:"is_popular"`
}

// NewCourseListItem projects a course for listings.
func NewCourseListItem(c models.CourseDetail) CourseListItem {
	return CourseListItem{
		ID:           c.ID,
		Title:        c.Title,
		Slug:         c.Slug,
		Description:  c.Description,
		Price:        c.Price,
		Status:       c.Status,
		Category:     c.CategoryID,
		CategoryName: c.CategoryName,
		IsActive:     c.IsActive,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		StudentCount: c.StudentCount,
		IsPopular:    c.IsPopular(),
	}
}

// CourseListItems projects a course page.
func CourseListItems(items []models.CourseDetail) []CourseListItem {
	out := make([]CourseListItem, 0, len(items))
	for _, item := range items {
		out = append(out, NewCourseListItem(item))
	}
	return out
}

// CourseDetail is the single-course representation with its full category and enrolled students.
type CourseDetail struct {
	ID               int64               `json:"id"`
	Title            string              `json:"title"`
	Slug             string              `json:"slug"`
	Description      string              `json:"description"`
	Price            int64               `json:"price"`
	Status           models.CourseStatus `json:"status"`
	Category         CategoryView        `json:"category"`
	IsActive         bool                `json:"is_active"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	StudentCount     int                 `json:"student_count"`
	IsPopular        bool                `json:"is_popular"`
	EnrolledStudents []StudentView       `json:"enrolled_students"`
}

// NewCourseDetail projects a course with its relations.
func NewCourseDetail(r models.CourseRelations) CourseDetail {
	c := r.Course
	return CourseDetail{
		ID:               c.ID,
		Title:            c.Title,
		Slug:             c.Slug,
		Description:      c.Description,
		Price:            c.Price,
		Status:           c.Status,
		Category:         NewCategoryView(r.Category),
		IsActive:         c.IsActive,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
		StudentCount:     c.StudentCount,
		IsPopular:        c.IsPopular(),
		EnrolledStudents: StudentViews(r.EnrolledStudents),
	}
}

// StudentView is the student representation with derived name and course count.
type StudentView struct {
	ID                   int64     `json:"id"`
	FirstName            string    `json:"first_name"`
	LastName             string    `json:"last_name"`
	FullName             string    `json:"full_name"`
	Email                string    `json:"email"`
	Slug                 string    `json:"slug"`
	Phone                *string   `json:"phone"`
	IsActive             bool      `json:"is_active"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
	EnrolledCoursesCount int       `json:"enrolled_courses_count"`
}

// NewStudentView projects a student.
func NewStudentView(s models.StudentDetail) StudentView {
	return StudentView{
		ID:                   s.ID,
		FirstName:            s.FirstName,
		LastName:             s.LastName,
		FullName:             s.FullName(),
		Email:                s.Email,
		Slug:                 s.Slug,
		Phone:                s.Phone,
		IsActive:             s.IsActive,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
		EnrolledCoursesCount: s.EnrolledCoursesCount,
	}
}

// StudentViews projects a student page.
func StudentViews(items []models.StudentDetail) []StudentView {
	out := make([]StudentView, 0, len(items))
	for _, item := range items {
		out = append(out, NewStudentView(item))
	}
	return out
}

// EnrollmentView is the enrollment representation with course and student labels.
type EnrollmentView struct {
	ID          int64      `json:"id"`
	Course      int64      `json:"course"`
	Student     int64      `json:"student"`
	CourseTitle string     `json:"course_title"`
	StudentName string     `json:"student_name"`
	EnrolledAt  time.Time  `json:"enrolled_at"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
}

// NewEnrollmentView projects an enrollment.
func NewEnrollmentView(e models.EnrollmentDetail) EnrollmentView {
	return EnrollmentView{
		ID:          e.ID,
		Course:      e.CourseID,
		Student:     e.StudentID,
		CourseTitle: e.CourseTitle,
		StudentName: e.StudentName(),
		EnrolledAt:  e.EnrolledAt,
		Completed:   e.Completed,
		CompletedAt: e.CompletedAt,
	}
}

// EnrollmentViews projects an enrollment page.
func EnrollmentViews(items []models.EnrollmentDetail) []EnrollmentView {
	out := make([]EnrollmentView, 0, len(items))
	for _, item := range items {
		out = append(out, NewEnrollmentView(item))
	}
	return out
}
