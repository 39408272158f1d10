package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-catalog-api/internal/dto"
	"github.com/noah-isme/course-catalog-api/internal/models"
	"github.com/noah-isme/course-catalog-api/internal/service"
	"github.com/noah-isme/course-catalog-api/pkg/response"
)

type categoryService interface {
	List(ctx context.Context, filter models.CategoryFilter) ([]models.CategoryDetail, *models.Pagination, error)
	Get(ctx context.Context, id int64) (*models.CategoryDetail, error)
	Create(ctx context.Context, req service.CategoryRequest) (*models.CategoryDetail, error)
	Update(ctx context.Context, id int64, req service.CategoryRequest, partial bool) (*models.CategoryDetail, error)
	Delete(ctx context.Context, id int64) error
}

type categoryCourseLister interface {
	ListByCategory(ctx context.Context, categoryID int64, page models.PageRequest) ([]models.CourseDetail, *models.Pagination, error)
}

// CategoryHandler exposes category endpoints.
type CategoryHandler struct {
	categories categoryService
	courses    categoryCourseLister
}

// NewCategoryHandler constructs CategoryHandler.
func NewCategoryHandler(categories categoryService, courses categoryCourseLister) *CategoryHandler {
	return &CategoryHandler{categories: categories, courses: courses}
}

// List godoc
// @Summary List categories
// @Tags Categories
// @Produce json
// @Param search query string false "Search by title"
// @Param ordering query string false "title, id (prefix - for descending)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	page, err := pageRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.CategoryFilter{
		PageRequest: page,
		Search:      strings.TrimSpace(c.Query("search")),
		Ordering:    c.Query("ordering"),
	}
	categories, pagination, err := h.categories.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, dto.CategoryViews(categories), pagination)
}

// Get godoc
// @Summary Get category
// @Tags Categories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /categories/{id} [get]
func (h *CategoryHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	category, err := h.categories.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewCategoryView(*category), nil)
}

// Create godoc
// @Summary Create category
// @Tags Categories
// @Accept json
// @Produce json
// @Param payload body service.CategoryRequest true "Category payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req service.CategoryRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	category, err := h.categories.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewCategoryView(*category))
}

// Update godoc
// @Summary Replace category
// @Tags Categories
// @Accept json
// @Produce json
// @Param id path int true "Category ID"
// @Param payload body service.CategoryRequest true "Category payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	h.update(c, false)
}

// Patch godoc
// @Summary Partially update category
// @Tags Categories
// @Accept json
// @Produce json
// @Param id path int true "Category ID"
// @Param payload body service.CategoryRequest true "Category fields"
// @Success 200 {object} response.Envelope
// @Router /categories/{id} [patch]
func (h *CategoryHandler) Patch(c *gin.Context) {
	h.update(c, true)
}

func (h *CategoryHandler) update(c *gin.Context, partial bool) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CategoryRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	category, err := h.categories.Update(c.Request.Context(), id, req, partial)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewCategoryView(*category), nil)
}

// Delete godoc
// @Summary Delete category and its courses
// @Tags Categories
// @Param id path int true "Category ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.categories.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Courses godoc
// @Summary List active courses of a category
// @Tags Categories
// @Produce json
// @Param id path int true "Category ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /categories/{id}/courses [get]
func (h *CategoryHandler) Courses(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := pageRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	courses, pagination, err := h.courses.ListByCategory(c.Request.Context(), id, page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, dto.CourseListItems(courses), pagination)
}
