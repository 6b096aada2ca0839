package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mindful-resolve/internal/app"
	"mindful-resolve/internal/pkg/sessioncode"
	"mindful-resolve/internal/transport/http/middleware"
	"mindful-resolve/internal/transport/http/response"
)

type SolutionHandler struct {
	sessionService *app.SessionService
	tokenSecret    string
}

type GenerateSolutionRequest struct {
	SessionCode string `json:"sessionCode"`
}

type GenerateSolutionResponse struct {
	Solution string `json:"solution"`
}

func NewSolutionHandler(sessionService *app.SessionService, tokenSecret string) *SolutionHandler {
	return &SolutionHandler{
		sessionService: sessionService,
		tokenSecret:    tokenSecret,
	}
}

// Generate returns the session's solution, generating it on first request.
// Checks run in order: body (400), session exists (404), token (401/403).
func (h *SolutionHandler) Generate(c *gin.Context) {
	var req GenerateSolutionRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.SessionCode) == "" {
		response.Error(c, http.StatusBadRequest, "session code is required")
		return
	}

	if _, err := h.sessionService.GetSession(c.Request.Context(), req.SessionCode); err != nil {
		if errors.Is(err, app.ErrInvalidSessionCode) {
			err = app.ErrSessionNotFound
		}
		writeServiceError(c, err, "look up session failed")
		return
	}

	claims, err := middleware.ParseParticipant(c, h.tokenSecret)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "invalid or missing participant token")
		return
	}
	if claims.SessionCode != sessioncode.Normalize(req.SessionCode) {
		response.Error(c, http.StatusForbidden, "token does not belong to this session")
		return
	}

	solution, err := h.sessionService.GenerateSolution(c.Request.Context(), req.SessionCode)
	if err != nil {
		writeServiceError(c, err, "generate solution failed")
		return
	}

	response.OK(c, GenerateSolutionResponse{Solution: solution})
}
