package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-catalog-api/internal/models"
	appErrors "github.com/noah-isme/course-catalog-api/pkg/errors"
	"github.com/noah-isme/course-catalog-api/pkg/export"
)

type courseExportSource interface {
	ListAll(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, error)
}

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportResult is a rendered document ready to be streamed.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
	Rows        int
}

var courseExportHeaders = []string{"id", "title", "slug", "category", "status", "price", "active", "students", "popular", "created_at"}

// ExportService renders course listings as downloadable documents.
type ExportService struct {
	courses   courseExportSource
	renderers map[string]renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService with CSV and PDF renderers.
func NewExportService(courses courseExportSource, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		courses: courses,
		renderers: map[string]renderer{
			"csv": export.NewCSV(),
			"pdf": export.NewPDF(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// ExportCourses renders every course matching the filter in the requested format.
func (s *ExportService) ExportCourses(ctx context.Context, filter models.CourseFilter, format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	r, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Validation(map[string]string{"format": fmt.Sprintf("%q is not a valid choice", format)}, false)
	}

	courses, err := s.courses.ListAll(ctx, filter)
	if err != nil {
		return nil, internalErr(err, "failed to load courses for export")
	}

	dataset := export.Dataset{Title: "Course catalog", Headers: courseExportHeaders}
	for _, c := range courses {
		if err := dataset.Append(
			strconv.FormatInt(c.ID, 10),
			c.Title,
			c.Slug,
			c.CategoryName,
			string(c.Status),
			strconv.FormatInt(c.Price, 10),
			strconv.FormatBool(c.IsActive),
			strconv.Itoa(c.StudentCount),
			strconv.FormatBool(c.IsPopular()),
			c.CreatedAt.UTC().Format(time.RFC3339),
		); err != nil {
			return nil, internalErr(err, "failed to build export")
		}
	}

	payload, err := r.Render(dataset)
	if err != nil {
		return nil, internalErr(err, "failed to render export")
	}
	s.logger.Info("courses exported", zap.String("format", format), zap.Int("rows", len(courses)))
	return &ExportResult{
		Filename:    fmt.Sprintf("courses-%s.%s", s.now().UTC().Format("20060102-150405"), r.Extension()),
		ContentType: r.ContentType(),
		Payload:     payload,
		Rows:        len(courses),
	}, nil
}
