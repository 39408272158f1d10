package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-catalog-api/internal/models"
	appErrors "github.com/noah-isme/course-catalog-api/pkg/errors"
)

const maxSlugAttempts = 5

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = validate.RegisterValidation("notblank", validators.NotBlank)
	return validate
}

// violations collects field errors for a single validation pass.
type violations struct {
	fields     map[string]string
	duplicates map[string]bool
}

func newViolations() *violations {
	return &violations{fields: map[string]string{}, duplicates: map[string]bool{}}
}

func (v *violations) add(field, message string) {
	if _, exists := v.fields[field]; exists {
		return
	}
	v.fields[field] = message
}

func (v *violations) duplicate(field, message string) {
	if _, exists := v.fields[field]; exists {
		return
	}
	v.fields[field] = message
	v.duplicates[field] = true
}

func (v *violations) has(field string) bool {
	_, ok := v.fields[field]
	return ok
}

// collect translates validator errors into field messages. Other errors are returned as-is.
func (v *violations) collect(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		v.add(fe.Field(), fieldMessage(fe))
	}
	return nil
}

func (v *violations) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return appErrors.Validation(v.fields, len(v.duplicates) == len(v.fields))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "notblank":
		return "this field may not be blank"
	case "max":
		return fmt.Sprintf("ensure this field has no more than %s characters", fe.Param())
	case "email":
		return "enter a valid email address"
	case "oneof":
		return fmt.Sprintf("%q is not a valid choice", fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("failed on the %s rule", fe.Tag())
	}
}

func normalisePage(req models.PageRequest) models.PageRequest {
	return req.Normalize()
}

// paginate builds pagination metadata and rejects pages past the last one.
func paginate(req models.PageRequest, total int) (*models.Pagination, error) {
	pagination := models.NewPagination(req, total)
	if pagination.OutOfRange() {
		return nil, appErrors.Clone(appErrors.ErrInvalidPage, "")
	}
	return pagination, nil
}

func internalErr(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func notFoundOr(err error, notFound, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return internalErr(err, message)
}

// withTx runs fn inside a transaction, committing when fn succeeds.
func withTx(ctx context.Context, db txProvider, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return internalErr(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return internalErr(err, "failed to commit transaction")
	}
	return nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	t := strings.TrimSpace(*value)
	return &t
}
