package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/studypath/studypath-backend/internal/apierr"
	"github.com/studypath/studypath-backend/internal/counsellor"
	"github.com/studypath/studypath-backend/internal/services"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondServiceError maps service-layer errors onto HTTP statuses. Unknown
// errors stay opaque 500s.
func RespondServiceError(c *gin.Context, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		RespondError(c, ae.Status, ae.Code, err)
		return
	}
	switch {
	case errors.Is(err, services.ErrOnboardingRequired):
		RespondError(c, http.StatusForbidden, "onboarding_required", err)
	case errors.Is(err, counsellor.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, counsellor.ErrDuplicate):
		RespondError(c, http.StatusConflict, "duplicate", err)
	case errors.Is(err, counsellor.ErrInvalidStage),
		errors.Is(err, counsellor.ErrPreconditionFailed),
		errors.Is(err, counsellor.ErrInvalidCount),
		errors.Is(err, counsellor.ErrCapacityExceeded),
		errors.Is(err, counsellor.ErrNotRequired),
		errors.Is(err, counsellor.ErrInvalidInput),
		errors.Is(err, counsellor.ErrUnknownAction):
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
