package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mindful-resolve/internal/app"
	"mindful-resolve/internal/transport/http/response"
)

// writeServiceError maps service sentinels to statuses. Anything unrecognised
// is attached to the context for the request logger and answered with fallback.
func writeServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput),
		errors.Is(err, app.ErrInvalidSessionCode),
		errors.Is(err, app.ErrPerspectiveEmpty),
		errors.Is(err, app.ErrPerspectiveTooLong),
		errors.Is(err, app.ErrNameTooLong),
		errors.Is(err, app.ErrSessionIncomplete):
		response.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrSessionComplete),
		errors.Is(err, app.ErrSessionCodeTaken),
		errors.Is(err, app.ErrGenerationInProgress):
		response.Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrGeneratorUnavailable):
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "AI service not configured")
	case errors.Is(err, app.ErrSolutionGeneration):
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, app.ErrSolutionGeneration.Error())
	case errors.Is(err, app.ErrSolutionPersist):
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, app.ErrSolutionPersist.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, fallback)
	}
}
