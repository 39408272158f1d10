package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-catalog-api/internal/dto"
	"github.com/noah-isme/course-catalog-api/internal/models"
	"github.com/noah-isme/course-catalog-api/internal/service"
	"github.com/noah-isme/course-catalog-api/pkg/response"
)

type courseService interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error)
	ListPopular(ctx context.Context, page models.PageRequest) ([]models.CourseDetail, *models.Pagination, error)
	Get(ctx context.Context, id int64) (*models.CourseRelations, error)
	Create(ctx context.Context, req service.CourseRequest) (*models.CourseDetail, error)
	Update(ctx context.Context, id int64, req service.CourseRequest, partial bool) (*models.CourseDetail, error)
	Delete(ctx context.Context, id int64) error
}

type courseStudentLister interface {
	ListByCourse(ctx context.Context, courseID int64, page models.PageRequest) ([]models.StudentDetail, *models.Pagination, error)
}

type courseExporter interface {
	ExportCourses(ctx context.Context, filter models.CourseFilter, format string) (*service.ExportResult, error)
}

// CourseHandler exposes course endpoints.
type CourseHandler struct {
	courses  courseService
	students courseStudentLister
	exporter courseExporter
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses courseService, students courseStudentLister, exporter courseExporter) *CourseHandler {
	return &CourseHandler{courses: courses, students: students, exporter: exporter}
}

// courseFilter reads the course list filters shared by listing and export.
func courseFilter(c *gin.Context) (models.CourseFilter, error) {
	page, err := pageRequest(c)
	if err != nil {
		return models.CourseFilter{}, err
	}
	bad := queryErrors{}
	filter := models.CourseFilter{
		PageRequest: page,
		CategoryID:  bad.int64(c, "category"),
		IsActive:    bad.bool(c, "is_active"),
		MinPrice:    bad.int64(c, "min_price"),
		MaxPrice:    bad.int64(c, "max_price"),
		Search:      strings.TrimSpace(c.Query("search")),
		Ordering:    c.Query("ordering"),
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := models.CourseStatus(strings.ToLower(raw))
		if !status.Valid() {
			bad["status"] = strconv.Quote(raw) + " is not a valid choice"
		}
		filter.Status = status
	}
	if err := bad.err(); err != nil {
		return models.CourseFilter{}, err
	}
	return filter, nil
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Param status query string false "beginner, intermediate or advanced"
// @Param category query int false "Category ID"
// @Param is_active query bool false "Active flag"
// @Param min_price query int false "Minimum price"
// @Param max_price query int false "Maximum price"
// @Param search query string false "Search title and description"
// @Param ordering query string false "price, created_at, updated_at (prefix - for descending)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	filter, err := courseFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	courses, pagination, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, dto.CourseListItems(courses), pagination)
}

// Popular godoc
// @Summary List popular courses
// @Description Active courses with at least ten enrollments, most enrolled first.
// @Tags Courses
// @Produce json
// @Param page query int false "Page"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} response.Envelope
// @Router /courses/popular [get]
func (h *CourseHandler) Popular(c *gin.Context) {
	page, err := pageRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	courses, pagination, err := h.courses.ListPopular(c.Request.Context(), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, dto.CourseListItems(courses), pagination)
}

// Export godoc
// @Summary Export courses
// @Tags Courses
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /courses/export [get]
func (h *CourseHandler) Export(c *gin.Context) {
	filter, err := courseFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exporter.ExportCourses(c.Request.Context(), filter, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Header("X-Total-Count", strconv.Itoa(result.Rows))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}

// Get godoc
// @Summary Get course with category and enrolled students
// @Tags Courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	course, err := h.courses.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewCourseDetail(*course), nil)
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body service.CourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req service.CourseRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	course, err := h.courses.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewCourseListItem(*course))
}

// Update godoc
// @Summary Replace course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param payload body service.CourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	h.update(c, false)
}

// Patch godoc
// @Summary Partially update course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param payload body service.CourseRequest true "Course fields"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [patch]
func (h *CourseHandler) Patch(c *gin.Context) {
	h.update(c, true)
}

func (h *CourseHandler) update(c *gin.Context, partial bool) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CourseRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	course, err := h.courses.Update(c.Request.Context(), id, req, partial)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewCourseListItem(*course), nil)
}

// Delete godoc
// @Summary Delete course
// @Description Refused with HAS_DEPENDENTS while enrollments reference the course.
// @Tags Courses
// @Param id path int true "Course ID"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.courses.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Students godoc
// @Summary List students enrolled in a course
// @Tags Courses
// @Produce json
// @Param id path int true "Course ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/students [get]
func (h *CourseHandler) Students(c *gin.Context) {
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
	students, pagination, err := h.students.ListByCourse(c.Request.Context(), id, page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, dto.StudentViews(students), pagination)
}
