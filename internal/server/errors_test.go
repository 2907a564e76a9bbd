package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/openpress/peerflow/internal/authorization"
	identitydomain "github.com/openpress/peerflow/internal/identity/domain"
	invitationdomain "github.com/openpress/peerflow/internal/invitation/domain"
	manuscriptdomain "github.com/openpress/peerflow/internal/manuscript/domain"
	reviewdomain "github.com/openpress/peerflow/internal/review/domain"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation errors", invalidRequestError(), http.StatusBadRequest},
		{"invalid reviewer set", reviewdomain.ErrInvalidReviewerSet, http.StatusBadRequest},
		{"invalid decision", reviewdomain.ErrInvalidDecision, http.StatusBadRequest},
		{"invalid page token", manuscriptdomain.ErrInvalidPageToken, http.StatusBadRequest},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", authorization.ErrForbidden, http.StatusForbidden},
		{"rate limited", ErrTooManyRequests, http.StatusTooManyRequests},
		{"already assigned", reviewdomain.ErrAlreadyAssigned, http.StatusConflict},
		{"already submitted", reviewdomain.ErrAlreadySubmitted, http.StatusConflict},
		{"slots filled", reviewdomain.ErrSlotsFilled, http.StatusConflict},
		{"not withdrawable", manuscriptdomain.ErrNotWithdrawable, http.StatusConflict},
		{"duplicate invitation", invitationdomain.ErrDuplicate, http.StatusConflict},
		{"duplicate user", identitydomain.ErrUserExists, http.StatusConflict},
		{"review not found", reviewdomain.ErrNotFound, http.StatusNotFound},
		{"manuscript not found", manuscriptdomain.ErrNotFound, http.StatusNotFound},
		{"expired invitation", invitationdomain.ErrExpired, http.StatusGone},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.want, status)
			assert.NotEmpty(t, payload.Type)
		})
	}
}

func TestErrorHandlingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("renders the mapped status", func(t *testing.T) {
		engine := gin.New()
		engine.Use(ErrorHandlingMiddleware())
		engine.GET("/boom", func(c *gin.Context) {
			AbortWithError(c, reviewdomain.ErrAlreadySubmitted)
		})

		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "conflict")
	})

	t.Run("leaves successful responses alone", func(t *testing.T) {
		engine := gin.New()
		engine.Use(ErrorHandlingMiddleware())
		engine.GET("/ok", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
