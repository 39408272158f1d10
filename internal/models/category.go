package models

// Category groups courses. Deleting a category removes its courses.
type Category struct {
	ID    int64  `db:"id" json:"id"`
	Title string `db:"title" json:"title"`
	Slug  string `db:"slug" json:"slug"`
}

// CategoryDetail adds the number of courses filed under the category.
type CategoryDetail struct {
	Category
	CourseCount int `db:"course_count" json:"course_count"`
}

// CategoryFilter encapsulates allowed search parameters for listing categories.
type CategoryFilter struct {
	PageRequest
	Search   string
	Ordering string
}
