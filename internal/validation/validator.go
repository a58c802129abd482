package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/newsdesk-api/internal/models"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Validator checks request payloads: struct tags first, then rules tags cannot express
type Validator struct {
	structs *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	v := validator.New()
	// report json names, not Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{structs: v}
}

// ValidateArticle validates the writable fields of an article
func (v *Validator) ValidateArticle(in *models.ArticleInput) []ValidationError {
	errs := v.structErrors(in)

	if strings.TrimSpace(in.Title) == "" && !hasField(errs, "title") {
		errs = append(errs, ValidationError{Field: "title", Message: "title is required"})
	}
	if strings.TrimSpace(in.Content) == "" && !hasField(errs, "content") {
		errs = append(errs, ValidationError{Field: "content", Message: "content is required"})
	}
	if in.Category != "" && !slugRegex.MatchString(in.Category) && !hasField(errs, "category") {
		errs = append(errs, ValidationError{Field: "category", Message: "unknown category", Value: in.Category})
	}
	for _, k := range in.Keywords {
		if strings.TrimSpace(k) == "" {
			errs = append(errs, ValidationError{Field: "keywords", Message: "keywords must not be blank"})
			break
		}
	}
	return errs
}

// ValidateCategory validates a new category
func (v *Validator) ValidateCategory(in *models.CategoryInput) []ValidationError {
	errs := v.structErrors(in)
	if in.Name != "" && !slugRegex.MatchString(in.Name) {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "name must be kebab-case (lowercase letters, numbers, hyphens)",
			Value:   in.Name,
		})
	}
	if strings.TrimSpace(in.Label) == "" && !hasField(errs, "label") {
		errs = append(errs, ValidationError{Field: "label", Message: "label is required"})
	}
	return errs
}

// ValidateCategoryUpdate validates a category change
func (v *Validator) ValidateCategoryUpdate(in *models.CategoryUpdate) []ValidationError {
	errs := v.structErrors(in)
	if in.Label != nil && strings.TrimSpace(*in.Label) == "" && !hasField(errs, "label") {
		errs = append(errs, ValidationError{Field: "label", Message: "label must not be blank"})
	}
	return errs
}

// ValidateProfile validates a profile change
func (v *Validator) ValidateProfile(in *models.ProfileInput) []ValidationError {
	return v.structErrors(in)
}

// ValidateSEOSettings rejects unknown keys
func (v *Validator) ValidateSEOSettings(settings map[string]string) []ValidationError {
	var errs []ValidationError
	for key := range settings {
		if !models.IsSEOKey(key) {
			errs = append(errs, ValidationError{Field: key, Message: "unknown setting"})
		}
	}
	return errs
}

// ValidateUserID checks the shape of a user id taken from a URL
func (v *Validator) ValidateUserID(id string) []ValidationError {
	if strings.TrimSpace(id) == "" {
		return []ValidationError{{Field: "user_id", Message: "user_id is required"}}
	}
	return nil
}

func (v *Validator) structErrors(s interface{}) []ValidationError {
	err := v.structs.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Field: "", Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{Field: fieldName(fe), Message: message(fe), Value: fe.Value()})
	}
	return out
}

func fieldName(fe validator.FieldError) string {
	// dive errors are reported as keywords[2]; collapse to the field
	name := fe.Field()
	if i := strings.IndexByte(name, '['); i > 0 {
		return name[:i]
	}
	return name
}

func message(fe validator.FieldError) string {
	field := fieldName(fe)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func hasField(errs []ValidationError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

// IsValidUUID checks if a string is a valid UUID
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
