package errors

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

type ErrorClass int

const (
	ClassInternal ErrorClass = iota
	ClassValidation
	ClassAuthorization
	ClassNotFound
	ClassConflict
	ClassTimeout
	ClassUnavailable
)

// ErrorClassifier maps internal errors onto the stable taxonomy exposed to
// callers, logging the full internal error while returning only a
// sanitized class and message across the boundary.
type ErrorClassifier struct {
	logger *slog.Logger
}

func NewErrorClassifier(logger *slog.Logger) *ErrorClassifier {
	return &ErrorClassifier{logger: logger}
}

func Classify(err error) ErrorClass {
	switch {
	case errors.Is(err, ErrNotFound):
		return ClassNotFound
	case errors.Is(err, ErrValidation):
		return ClassValidation
	case errors.Is(err, ErrPermission):
		return ClassAuthorization
	case errors.Is(err, ErrConflict):
		return ClassConflict
	case errors.Is(err, ErrTimeout):
		return ClassTimeout
	case errors.Is(err, ErrUnavailable):
		return ClassUnavailable
	default:
		return ClassInternal
	}
}

// HTTPStatus maps an error class to the status the presentation layer
// should answer with.
func (c ErrorClass) HTTPStatus() int {
	switch c {
	case ClassNotFound:
		return http.StatusNotFound
	case ClassValidation:
		return http.StatusBadRequest
	case ClassAuthorization:
		return http.StatusForbidden
	case ClassConflict:
		return http.StatusConflict
	case ClassTimeout:
		return http.StatusGatewayTimeout
	case ClassUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (c ErrorClass) ClientMessage() string {
	switch c {
	case ClassNotFound:
		return "Credential not found"
	case ClassValidation:
		return "The request contains invalid parameters"
	case ClassAuthorization:
		return "Permission denied"
	case ClassConflict:
		return "A concurrent modification conflict occurred, retry the request"
	case ClassTimeout:
		return "The storage backend did not respond in time"
	case ClassUnavailable:
		return "The storage backend is unavailable"
	default:
		return "An unexpected internal error occurred"
	}
}

// LogAndSanitize records the internal error and returns the message safe to
// put in a response body. Permission errors keep their role/action detail;
// everything else is reduced to the class message.
func (ec *ErrorClassifier) LogAndSanitize(ctx context.Context, operation string, err error) (int, string) {
	class := Classify(err)

	ec.logger.ErrorContext(ctx, "operation failed",
		"operation", operation,
		"error_class", int(class),
		"internal_error", err.Error(),
	)

	var perm *PermissionError
	if errors.As(err, &perm) {
		return class.HTTPStatus(), perm.Error()
	}
	return class.HTTPStatus(), class.ClientMessage()
}
