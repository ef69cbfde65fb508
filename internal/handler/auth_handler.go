package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-panel/internal/middleware"
	"github.com/noah-isme/academic-panel/internal/models"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
	"github.com/noah-isme/academic-panel/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Me(ctx context.Context, userID string) (*models.UserInfo, error)
	ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error
	CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error)
}

type nonceIssuer interface {
	Issue(userID, action string) (string, time.Time)
}

// SessionConfig controls the panel session cookie.
type SessionConfig struct {
	Secure bool
	Domain string
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
	nonces  nonceIssuer
	session SessionConfig
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, nonces nonceIssuer, session SessionConfig) *AuthHandler {
	return &AuthHandler{service: svc, nonces: nonces, session: session}
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by email and password. Also sets the panel session cookie.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	res, err := h.authenticate(c, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// authenticate logs in and stores the session cookie on success.
func (h *AuthHandler) authenticate(c *gin.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")
	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		return nil, err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, res.AccessToken, int(res.ExpiresIn), "/", h.session.Domain, h.session.Secure, true)
	return res, nil
}

// Logout godoc
// @Summary Logout
// @Description Clear the panel session cookie
// @Tags Authentication
// @Success 204
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.clearSession(c)
	response.NoContent(c)
}

func (h *AuthHandler) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", h.session.Domain, h.session.Secure, true)
}

// Nonce godoc
// @Summary Issue request token
// @Description Issue a nonce binding the current user to a panel action
// @Tags Authentication
// @Produce json
// @Param action query string true "Panel action"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/nonce [get]
func (h *AuthHandler) Nonce(c *gin.Context) {
	action := strings.TrimSpace(c.Query("action"))
	if !knownAction(action) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown action"))
		return
	}
	token, expiresAt := h.nonces.Issue(middleware.ActorID(c), action)
	response.JSON(c, http.StatusOK, models.NonceResponse{Action: action, Nonce: token, ExpiresAt: expiresAt}, nil)
}

// Me godoc
// @Summary Current user
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	info, err := h.service.Me(c.Request.Context(), middleware.ActorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info, nil)
}

// ChangePassword godoc
// @Summary Change password
// @Description Change password for current user
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ChangePasswordRequest true "Change password"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), middleware.ActorID(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateUser godoc
// @Summary Create panel user
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body models.CreateUserRequest true "User payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users [post]
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	user, err := h.service.CreateUser(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

func knownAction(action string) bool {
	for _, known := range middleware.PanelActions {
		if action == known {
			return true
		}
	}
	return false
}
