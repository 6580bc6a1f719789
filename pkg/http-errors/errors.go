package httperrors

import (
	"net/http"

	dErrors "partnerd/pkg/domain-errors"
)

// ToHTTPStatus maps domain error codes onto HTTP statuses so handlers stay
// free of switch statements. Unknown codes fall through to 500.
func ToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput, dErrors.CodeBadRequest,
		dErrors.CodeInvalidName, dErrors.CodeInvalidAmount:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeAlreadyRegistered,
		dErrors.CodeAlreadyCompleted, dErrors.CodeAlreadyCancelled:
		return http.StatusConflict
	case dErrors.CodeUnknownCounterparty:
		return http.StatusUnprocessableEntity
	case dErrors.CodeOverflow:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
