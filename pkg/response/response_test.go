package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-catalog-api/internal/models"
	appErrors "github.com/noah-isme/course-catalog-api/pkg/errors"
)

func TestPaginatedLinks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/courses?page=2&status=beginner", nil)
	c.Request.Host = ""
	c.Request.URL.Host = ""

	Paginated(c, []string{"a"}, &models.Pagination{Page: 2, PageSize: 10, TotalCount: 25, TotalPages: 3})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data       []string          `json:"data"`
		Pagination models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Pagination.Next)
	require.NotNil(t, body.Pagination.Previous)
	assert.Equal(t, "/api/v1/courses?page=3&status=beginner", *body.Pagination.Next)
	assert.Equal(t, "/api/v1/courses?status=beginner", *body.Pagination.Previous)
	assert.Equal(t, 25, body.Pagination.TotalCount)
}

func TestPaginatedLastPage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/students", nil)

	Paginated(c, []string{}, &models.Pagination{Page: 1, PageSize: 10, TotalCount: 0, TotalPages: 1})

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.JSONEq(t, `[]`, string(body["data"]))

	var pagination map[string]interface{}
	require.NoError(t, json.Unmarshal(body["pagination"], &pagination))
	require.Contains(t, pagination, "next")
	require.Contains(t, pagination, "previous")
	assert.Nil(t, pagination["next"])
	assert.Nil(t, pagination["previous"])
	assert.EqualValues(t, 1, pagination["total_pages"])
}

func TestErrorRendersFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, appErrors.Validation(map[string]string{"price": "price must not be negative"}, false))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Error appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Equal(t, "price must not be negative", body.Error.Fields["price"])
}
