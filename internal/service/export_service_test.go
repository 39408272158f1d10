package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-catalog-api/internal/models"
	appErrors "github.com/noah-isme/course-catalog-api/pkg/errors"
)

type exportSourceStub struct {
	courses []models.CourseDetail
	filter  models.CourseFilter
	err     error
}

func (s *exportSourceStub) ListAll(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, error) {
	s.filter = filter
	return s.courses, s.err
}

func exportFixture() []models.CourseDetail {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return []models.CourseDetail{
		{
			Course:       models.Course{ID: 1, Title: "Intro to Go", Slug: "intro-to-go", Status: models.CourseStatusBeginner, Price: 250000, IsActive: true, CreatedAt: created},
			CategoryName: "Programming",
			StudentCount: 12,
		},
	}
}

func TestExportServiceCSV(t *testing.T) {
	source := &exportSourceStub{courses: exportFixture()}
	svc := NewExportService(source, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }

	status := models.CourseStatusBeginner
	result, err := svc.ExportCourses(context.Background(), models.CourseFilter{Status: status}, "CSV")
	require.NoError(t, err)
	assert.Equal(t, "courses-20240601-100000.csv", result.Filename)
	assert.Equal(t, 1, result.Rows)
	assert.Equal(t, status, source.filter.Status)

	lines := strings.Split(strings.TrimSpace(string(result.Payload)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1,Intro to Go,intro-to-go,Programming,beginner,250000,true,12,true,2024-01-02T03:04:05Z", lines[1])
}

func TestExportServicePDF(t *testing.T) {
	svc := NewExportService(&exportSourceStub{courses: exportFixture()}, nil)
	result, err := svc.ExportCourses(context.Background(), models.CourseFilter{}, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, bytes.HasPrefix(result.Payload, []byte("%PDF-")))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(&exportSourceStub{}, nil)
	_, err := svc.ExportCourses(context.Background(), models.CourseFilter{}, "xlsx")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Fields, "format")
}

func TestExportServiceSourceFailure(t *testing.T) {
	svc := NewExportService(&exportSourceStub{err: errors.New("db down")}, nil)
	_, err := svc.ExportCourses(context.Background(), models.CourseFilter{}, "")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
}
