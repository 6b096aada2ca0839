package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mindful-resolve/internal/app"
	"mindful-resolve/internal/model"
	"mindful-resolve/internal/transport/http/response"
)

type SessionHandler struct {
	sessionService *app.SessionService
}

type CreateSessionRequest struct {
	SessionCode string `json:"session_code"`
	PartnerName string `json:"partner_name"`
	Perspective string `json:"perspective"`
}

type JoinSessionRequest struct {
	SessionCode string `json:"session_code"`
}

type SubmitPartner2Request struct {
	PartnerName string `json:"partner_name"`
	Perspective string `json:"perspective"`
}

// SessionView is what participants see of a session. Perspectives stay on
// the server once submitted.
type SessionView struct {
	SessionCode  string    `json:"session_code"`
	Partner1Name string    `json:"partner1_name"`
	Partner2Name string    `json:"partner2_name,omitempty"`
	HasPartner2  bool      `json:"has_partner2"`
	Solution     string    `json:"solution,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type SessionTokenResponse struct {
	Session SessionView `json:"session"`
	Token   string      `json:"token"`
}

type JoinSessionResponse struct {
	SessionCode  string `json:"session_code"`
	Partner1Name string `json:"partner1_name"`
}

func NewSessionHandler(sessionService *app.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := h.sessionService.CreateSession(c.Request.Context(), app.CreateSessionInput{
		Code:        req.SessionCode,
		Name:        req.PartnerName,
		Perspective: req.Perspective,
	})
	if err != nil {
		writeServiceError(c, err, "create session failed")
		return
	}

	response.Created(c, SessionTokenResponse{
		Session: newSessionView(result.Session),
		Token:   result.Token,
	})
}

func (h *SessionHandler) Join(c *gin.Context) {
	var req JoinSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	session, err := h.sessionService.CheckJoin(c.Request.Context(), req.SessionCode)
	if err != nil {
		writeServiceError(c, err, "join session failed")
		return
	}

	response.OK(c, JoinSessionResponse{
		SessionCode:  session.SessionCode,
		Partner1Name: session.Partner1DisplayName(),
	})
}

func (h *SessionHandler) SubmitPartner2(c *gin.Context) {
	var req SubmitPartner2Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := h.sessionService.SubmitPartner2(c.Request.Context(), app.SubmitPartner2Input{
		Code:        c.Param("code"),
		Name:        req.PartnerName,
		Perspective: req.Perspective,
	})
	if err != nil {
		writeServiceError(c, err, "submit perspective failed")
		return
	}

	response.OK(c, SessionTokenResponse{
		Session: newSessionView(result.Session),
		Token:   result.Token,
	})
}

func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessionService.GetSession(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeServiceError(c, err, "fetch session failed")
		return
	}

	response.OK(c, newSessionView(session))
}

func newSessionView(session *model.Session) SessionView {
	view := SessionView{
		SessionCode:  session.SessionCode,
		Partner1Name: session.Partner1DisplayName(),
		HasPartner2:  session.HasPartner2(),
		Solution:     session.Solution,
		CreatedAt:    session.CreatedAt,
	}
	if view.HasPartner2 {
		view.Partner2Name = session.Partner2DisplayName()
	}
	return view
}
