package errors

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Field identifies a form field that a validation message attaches to.
type Field string

const (
	FieldEmail          Field = "email"
	FieldPassword       Field = "password"
	FieldPasswordRepeat Field = "passwordRepeat"
	FieldBreeds         Field = "favouriteBreeds"
)

// FieldErrors maps form fields to inline validation messages. It is
// returned to the client as-is so the form can render errors per field.
type FieldErrors map[Field]string

func (f FieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for field, msg := range f {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// Status for field errors is always 422: the request was well-formed but
// the submitted values were rejected.
func (f FieldErrors) HTTPStatus() int {
	return http.StatusUnprocessableEntity
}
