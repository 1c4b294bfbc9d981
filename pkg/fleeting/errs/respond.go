package errs

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var debug bool

// SetDebug toggles whether internal error detail is exposed in responses
func SetDebug(enabled bool) {
	debug = enabled
}

// Respond writes err as a JSON error body with the mapped status code.
// Internal errors are logged and only described in debug mode.
func Respond(c *gin.Context, err error) {
	status := Status(err)
	body := gin.H{"error": err.Error()}

	var validation *ValidationError
	if errors.As(err, &validation) {
		body["error"] = "Validation failed"
		body["errors"] = validation.Fields
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
		body["error"] = "Internal server error"
		if debug {
			body["detail"] = err.Error()
		}
	}

	c.AbortWithStatusJSON(status, body)
}

// FromBinding converts a gin binding failure into a ValidationError with one
// message per offending JSON field.
func FromBinding(err error) *ValidationError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return NewValidationError("body", "Malformed request body")
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		name := jsonName(fe)
		fields[name] = bindingMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func jsonName(fe validator.FieldError) string {
	// Namespace is "CreatePostRequest.Tags[0]"; drop the struct name and
	// lowercase the remainder to match the JSON keys.
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		ns = ns[idx+1:]
	}
	return toSnake(ns)
}

func bindingMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if fe.Kind().String() == "slice" {
			return "Must contain at least " + fe.Param() + " item(s)"
		}
		return "Must be at least " + fe.Param() + " characters"
	case "max":
		if fe.Kind().String() == "slice" {
			return "Must contain at most " + fe.Param() + " item(s)"
		}
		return "Must be at most " + fe.Param() + " characters"
	case "email":
		return "Must be a valid email address"
	case "eqfield":
		return "Does not match " + toSnake(fe.Param())
	case "url":
		return "Must be a valid URL"
	default:
		return "Is invalid"
	}
}

func toSnake(s string) string {
	var b strings.Builder
	var prev rune
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			if (prev >= 'a' && prev <= 'z') || (prev >= '0' && prev <= '9') {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
		} else {
			b.WriteRune(r)
		}
		prev = r
	}
	return b.String()
}
