package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for handlers whose failure modes reduce to a plain HTTP
// status. The receiving and payments handlers carry richer taxonomies and map
// their kinds through ProblemKind instead.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrValidation = errors.New("validation failed")
)

// RespondError maps a wrapped sentinel onto an RFC7807 response. Errors that
// wrap neither sentinel become an opaque 500.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
