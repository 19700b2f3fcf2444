package httpx

import (
	"errors"
	"net/http"

	"github.com/aegis-admin/aegis/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrProtectedResource):
		Problem(w, http.StatusForbidden, "Protected Resource", err.Error())
	case errors.Is(err, shared.ErrHasDependents):
		Problem(w, http.StatusConflict, "Has Dependents", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnprocessableEntity, "Invalid Credentials", "The provided credentials are incorrect.")
	case errors.Is(err, shared.ErrRegistrationDisabled):
		Problem(w, http.StatusForbidden, "Registration Disabled", "Registration is currently disabled.")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
