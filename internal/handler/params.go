package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-catalog-api/internal/models"
	appErrors "github.com/noah-isme/course-catalog-api/pkg/errors"
	"github.com/noah-isme/course-catalog-api/pkg/query"
)

// pathID reads the numeric id path parameter. Anything else cannot name a resource.
func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
	}
	return id, nil
}

func pageRequest(c *gin.Context) (models.PageRequest, error) {
	page, err := query.ParsePage(c.Query("page"))
	if err != nil {
		return models.PageRequest{}, appErrors.Clone(appErrors.ErrInvalidPage, "")
	}
	return models.PageRequest{Page: page, PageSize: query.ParsePageSize(c.Query("page_size"))}, nil
}

// queryErrors accumulates malformed filter parameters.
type queryErrors map[string]string

func (q queryErrors) int64(c *gin.Context, key string) *int64 {
	v, err := query.ParseInt64(c.Query(key))
	if err != nil {
		q[key] = err.Error()
	}
	return v
}

func (q queryErrors) bool(c *gin.Context, key string) *bool {
	v, err := query.ParseBool(c.Query(key))
	if err != nil {
		q[key] = err.Error()
	}
	return v
}

func (q queryErrors) err() error {
	if len(q) == 0 {
		return nil
	}
	return appErrors.Validation(q, false)
}

// bindJSON decodes the request body, reporting wrongly typed fields by name.
func bindJSON(c *gin.Context, dest interface{}) error {
	err := c.ShouldBindJSON(dest)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		field := typeErr.Field
		if idx := strings.LastIndex(field, "."); idx >= 0 {
			field = field[idx+1:]
		}
		return appErrors.Validation(map[string]string{field: typeMessage(typeErr.Type)}, false)
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
}

func typeMessage(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "a valid integer is required"
	case reflect.Bool:
		return "must be a valid boolean"
	case reflect.String:
		return "not a valid string"
	default:
		return "invalid value"
	}
}
