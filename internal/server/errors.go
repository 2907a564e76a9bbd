package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openpress/peerflow/internal/authorization"
	identitydomain "github.com/openpress/peerflow/internal/identity/domain"
	invitationdomain "github.com/openpress/peerflow/internal/invitation/domain"
	manuscriptdomain "github.com/openpress/peerflow/internal/manuscript/domain"
	notifdomain "github.com/openpress/peerflow/internal/notification/domain"
	reviewdomain "github.com/openpress/peerflow/internal/review/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrTooManyRequests = errors.New("too_many_requests")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if code, ok := validationCode(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: "request", Code: code, Message: code},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, invitationdomain.ErrExpired):
		return http.StatusGone, errorPayload{
			Type:    "invitation_expired",
			Message: "invitation expired",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func validationCode(err error) (string, bool) {
	for _, candidate := range []error{
		reviewdomain.ErrInvalidReviewerSet,
		reviewdomain.ErrInvalidDecision,
		manuscriptdomain.ErrInvalidTitle,
		manuscriptdomain.ErrInvalidJournal,
		manuscriptdomain.ErrInvalidPageToken,
		identitydomain.ErrInvalidName,
		identitydomain.ErrInvalidEmail,
		identitydomain.ErrInvalidRole,
		invitationdomain.ErrInvalidEmail,
	} {
		if errors.Is(err, candidate) {
			return candidate.Error(), true
		}
	}
	return "", false
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, reviewdomain.ErrAlreadyAssigned),
		errors.Is(err, reviewdomain.ErrAlreadySubmitted),
		errors.Is(err, reviewdomain.ErrSlotsFilled),
		errors.Is(err, reviewdomain.ErrNotCompleted),
		errors.Is(err, reviewdomain.ErrNoEligibleReviewer),
		errors.Is(err, manuscriptdomain.ErrNotWithdrawable),
		errors.Is(err, invitationdomain.ErrDuplicate),
		errors.Is(err, identitydomain.ErrUserExists):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, reviewdomain.ErrNotFound),
		errors.Is(err, manuscriptdomain.ErrNotFound),
		errors.Is(err, invitationdomain.ErrNotFound),
		errors.Is(err, identitydomain.ErrUserNotFound),
		errors.Is(err, notifdomain.ErrNotFound):
		return true
	default:
		return false
	}
}
