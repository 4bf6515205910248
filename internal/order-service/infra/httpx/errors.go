package httpx

import (
	"errors"
	"net/http"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

const (
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeBadJSON            = "BAD_JSON"
	CodeInvalidParameter   = "INVALID_PARAMETER"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeConflict           = "CONFLICT"
	CodeBadGateway         = "BAD_GATEWAY"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_SERVER_ERROR"

	msgBadJSON  = "Malformed JSON request"
	msgInternal = "An unexpected error occurred"
)

type apiError struct {
	status  int
	code    string
	message string
	fields  map[string]string
}

// classify maps a service error onto the HTTP surface. Internal errors
// never expose their message.
func classify(err error) apiError {
	var de *domain.Error
	if !errors.As(err, &de) {
		return apiError{status: http.StatusInternalServerError, code: CodeInternal, message: msgInternal}
	}

	switch de.Kind {
	case domain.KindValidation:
		return apiError{status: http.StatusBadRequest, code: CodeValidationFailed, message: de.Message, fields: de.Fields}
	case domain.KindMalformedInput:
		return apiError{status: http.StatusBadRequest, code: CodeBadJSON, message: msgBadJSON}
	case domain.KindNotFound:
		return apiError{status: http.StatusNotFound, code: CodeNotFound, message: de.Message}
	case domain.KindConflict:
		return apiError{status: http.StatusConflict, code: CodeConflict, message: de.Message}
	case domain.KindUnavailable:
		if de.Code == domain.CodeCatalogUnavailable {
			return apiError{status: http.StatusBadGateway, code: CodeBadGateway, message: de.Message}
		}
		return apiError{status: http.StatusServiceUnavailable, code: CodeServiceUnavailable, message: de.Message}
	default:
		return apiError{status: http.StatusInternalServerError, code: CodeInternal, message: msgInternal}
	}
}
