package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-catalog-api/internal/models"
)

func TestEnrollmentRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	course := int64(2)
	completed := false
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "course_id", "student_id", "enrolled_at", "completed", "completed_at", "course_title", "student_first_name", "student_last_name"}).
		AddRow(1, 2, 3, now, false, nil, "Intro to Go", "Ada", "Lovelace")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.course_id = $1 AND e.completed = $2 ORDER BY e.completed_at ASC LIMIT 10 OFFSET 0")).
		WithArgs(course, completed).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments e WHERE e.course_id = $1 AND e.completed = $2")).
		WithArgs(course, completed).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	enrollments, total, err := repo.List(context.Background(), models.EnrollmentFilter{
		PageRequest: models.PageRequest{Page: 1, PageSize: 10},
		CourseID:    &course,
		Completed:   &completed,
		Ordering:    "completed_at",
	})
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, "Ada Lovelace", enrollments[0].StudentName())
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListDefaultOrdering(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY e.enrolled_at DESC LIMIT 10 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments e")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.EnrollmentFilter{PageRequest: models.PageRequest{Page: 1, PageSize: 10}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExists(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE course_id = $1 AND student_id = $2 AND id <> $3 LIMIT 1")).
		WithArgs(int64(1), int64(2), int64(9)).
		WillReturnError(sql.ErrNoRows)

	found, err := repo.Exists(context.Background(), nil, 1, 2, 9)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateInTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	enrolledAt := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO enrollments (course_id, student_id, enrolled_at, completed, completed_at)")).
		WithArgs(int64(1), int64(2), enrolledAt, false, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(30))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	enrollment := &models.Enrollment{CourseID: 1, StudentID: 2, EnrolledAt: enrolledAt}
	require.NoError(t, repo.Create(context.Background(), tx, enrollment))
	require.NoError(t, tx.Commit())
	assert.Equal(t, int64(30), enrollment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET course_id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), nil, &models.Enrollment{ID: 4, CourseID: 1, StudentID: 2})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
