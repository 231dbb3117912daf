package store

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// CategoryInput is the editable part of a category.
type CategoryInput struct {
	Name        string `form:"name" json:"name" validate:"required,max=40"`
	Description string `form:"description" json:"description" validate:"max=200"`
}

// NewsInput is the editable part of a news article. The image travels
// separately through the upload gate.
type NewsInput struct {
	Title      string `form:"title" json:"title" validate:"required,max=200"`
	Content    string `form:"content" json:"content" validate:"required"`
	Topic      string `form:"topic" json:"topic" validate:"max=100"`
	CategoryID string `form:"category_id" json:"category_id" validate:"required"`
}

// TeamMemberInput is the editable part of a team member.
type TeamMemberInput struct {
	Name     string `form:"name" json:"name" validate:"required,max=100"`
	JobTitle string `form:"job_title" json:"job_title" validate:"required,max=100"`
}

// ContactInput is a message submitted through the contact form.
type ContactInput struct {
	Name    string `form:"name" json:"name" validate:"required,max=100"`
	Email   string `form:"email" json:"email" validate:"required,email,max=150"`
	Subject string `form:"subject" json:"subject" validate:"required,max=200"`
	Message string `form:"message" json:"message" validate:"required,max=2000"`
}

// ProfileInput is the editable part of a user's profile.
type ProfileInput struct {
	FirstName string `form:"first_name" json:"first_name" validate:"max=50"`
	LastName  string `form:"last_name" json:"last_name" validate:"max=50"`
}

// EmailInput carries a requested email change.
type EmailInput struct {
	Email string `form:"email" json:"email" validate:"required,email,max=255"`
}

// ValidationError maps input field names to a human-readable message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// AsValidationError unwraps err into a *ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report fields under their form names so handlers can attach
		// messages to inputs directly.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks v against its validate tags; callers trim input first.
// Returns a *ValidationError describing every failing field.
func Validate(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("cannot exceed %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
