package validator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// maxBodyBytes bounds request decoding; checkout payloads are small.
const maxBodyBytes = 1 << 20

// Validate checks s against its `validate` tags and reports failures as a
// *ValidationError with per-field messages.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = message(fe)
	}
	return &ValidationError{fields: fields}
}

// ValidationError reports which request fields failed validation, keyed by
// struct field name.
type ValidationError struct {
	fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.fields))
	for name, msg := range e.fields {
		parts = append(parts, fmt.Sprintf("%s %s", name, msg))
	}
	sort.Strings(parts)
	return "invalid request: " + strings.Join(parts, "; ")
}

// Fields returns the per-field failure messages for the error envelope.
func (e *ValidationError) Fields() map[string]string {
	return e.fields
}

// message translates the tags the checkout DTOs actually use into text the
// storefront can show.
func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// DecodeAndValidate decodes the JSON request body into dst and validates it.
// The body read is bounded so an oversized payload cannot tie up the handler.
func DecodeAndValidate(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return Validate(dst)
}
