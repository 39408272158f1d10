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

const categoryColumns = `c.id, c.title, c.slug,
        (SELECT COUNT(*) FROM courses co WHERE co.category_id = c.id) AS course_count`

var categorySorts = map[string]string{
	"title": "c.title",
	"id":    "c.id",
}

// CategoryRepository manages persistence for categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository constructs a CategoryRepository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns categories matching the filter with their course counts.
func (r *CategoryRepository) List(ctx context.Context, filter models.CategoryFilter) ([]models.CategoryDetail, int, error) {
	var args []interface{}
	clause := ""
	if cond, searchArgs := query.SearchCondition(filter.Search, []string{"c.title"}, args); cond != "" {
		clause = " WHERE " + cond
		args = searchArgs
	}

	order := query.OrderBy(query.ParseOrdering(filter.Ordering, categorySorts), query.OrderTerm{Column: "c.id"})
	listQuery := fmt.Sprintf("SELECT %s FROM categories c%s ORDER BY %s%s", categoryColumns, clause, order, window(filter.PageRequest))

	var categories []models.CategoryDetail
	if err := r.db.SelectContext(ctx, &categories, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list categories: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM categories c"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count categories: %w", err)
	}
	return categories, total, nil
}

// FindByID fetches a category with its course count.
func (r *CategoryRepository) FindByID(ctx context.Context, id int64) (*models.CategoryDetail, error) {
	q := fmt.Sprintf("SELECT %s FROM categories c WHERE c.id = $1", categoryColumns)
	var category models.CategoryDetail
	if err := r.db.GetContext(ctx, &category, q, id); err != nil {
		return nil, err
	}
	return &category, nil
}

// ExistsByTitle checks case-insensitively for a category title, optionally excluding an ID.
func (r *CategoryRepository) ExistsByTitle(ctx context.Context, title string, excludeID int64) (bool, error) {
	return exists(ctx, r.db, "categories", "LOWER(title) = LOWER($1)", strings.TrimSpace(title), excludeID)
}

// ExistsBySlug checks whether a slug is taken, optionally excluding an ID.
func (r *CategoryRepository) ExistsBySlug(ctx context.Context, slug string, excludeID int64) (bool, error) {
	return exists(ctx, r.db, "categories", "slug = $1", slug, excludeID)
}

// Create inserts a category and sets its generated ID.
func (r *CategoryRepository) Create(ctx context.Context, exec sqlx.ExtContext, category *models.Category) error {
	const q = `INSERT INTO categories (title, slug) VALUES ($1, $2) RETURNING id`
	if err := sqlx.GetContext(ctx, r.exec(exec), &category.ID, q, category.Title, category.Slug); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// Update renames a category. The slug is never regenerated.
func (r *CategoryRepository) Update(ctx context.Context, exec sqlx.ExtContext, category *models.Category) error {
	const q = `UPDATE categories SET title = $1 WHERE id = $2`
	result, err := r.exec(exec).ExecContext(ctx, q, category.Title, category.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireAffected(result, "update category")
}

// Delete removes a category; its courses and their enrollments cascade.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireAffected(result, "delete category")
}

func exists(ctx context.Context, db sqlx.QueryerContext, table, condition string, value interface{}, excludeID int64) (bool, error) {
	q := fmt.Sprintf("SELECT 1 FROM %s WHERE %s", table, condition)
	args := []interface{}{value}
	if excludeID > 0 {
		q += " AND id <> $2"
		args = append(args, excludeID)
	}
	var found int
	if err := sqlx.GetContext(ctx, db, &found, q+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check %s: %w", table, err)
	}
	return true, nil
}

func requireAffected(result sql.Result, action string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", action, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
