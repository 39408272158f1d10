package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(PageRequest{Page: 3, PageSize: 10}, 25)
	assert.Equal(t, 3, p.TotalPages)
	assert.False(t, p.OutOfRange())

	empty := NewPagination(PageRequest{Page: 1, PageSize: 10}, 0)
	assert.Equal(t, 1, empty.TotalPages)
	assert.False(t, empty.OutOfRange())

	past := NewPagination(PageRequest{Page: 4, PageSize: 10}, 25)
	assert.True(t, past.OutOfRange())
}

func TestPageRequestWindow(t *testing.T) {
	assert.Equal(t, 0, PageRequest{Page: 1, PageSize: 10}.Offset())
	assert.Equal(t, 20, PageRequest{Page: 3, PageSize: 10}.Offset())
	assert.Equal(t, 0, PageRequest{Page: 0, PageSize: 10}.Offset())

	assert.Equal(t, 10, PageRequest{}.Limit())
	assert.Equal(t, 100, PageRequest{Page: 3, PageSize: 500}.Limit())
	assert.Equal(t, 200, PageRequest{Page: 3, PageSize: 500}.Offset())

	assert.Equal(t, PageRequest{Page: 1, PageSize: 10}, PageRequest{Page: -2}.Normalize())
	assert.Equal(t, PageRequest{Page: 2, PageSize: 25}, PageRequest{Page: 2, PageSize: 25}.Normalize())
}

func TestStampCompletion(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	earlier := now.Add(-48 * time.Hour)

	e := Enrollment{Completed: true}
	e.StampCompletion(now)
	require.NotNil(t, e.CompletedAt)
	assert.Equal(t, now, *e.CompletedAt)

	kept := Enrollment{Completed: true, CompletedAt: &earlier}
	kept.StampCompletion(now)
	assert.Equal(t, earlier, *kept.CompletedAt)

	cleared := Enrollment{Completed: false, CompletedAt: &earlier}
	cleared.StampCompletion(now)
	assert.Nil(t, cleared.CompletedAt)
	cleared.StampCompletion(now)
	assert.Nil(t, cleared.CompletedAt)
}

func TestCourseHelpers(t *testing.T) {
	assert.True(t, CourseStatusAdvanced.Valid())
	assert.False(t, CourseStatus("expert").Valid())
	assert.True(t, CourseDetail{StudentCount: 10}.IsPopular())
	assert.False(t, CourseDetail{StudentCount: 9}.IsPopular())
	assert.Equal(t, "Ada Lovelace", EnrollmentDetail{StudentFirstName: "Ada", StudentLastName: "Lovelace"}.StudentName())
}
