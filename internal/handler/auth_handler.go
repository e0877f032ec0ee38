package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/campusudc/asesorias-api/internal/guard"
	"github.com/campusudc/asesorias-api/internal/models"
	"github.com/campusudc/asesorias-api/internal/store"
	appErrors "github.com/campusudc/asesorias-api/pkg/errors"
	"github.com/campusudc/asesorias-api/pkg/response"
)

// AuthHandler exposes the session endpoints.
type AuthHandler struct {
	registry *store.SessionRegistry
	validate *validator.Validate
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(registry *store.SessionRegistry, validate *validator.Validate) *AuthHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &AuthHandler{registry: registry, validate: validate}
}

// LoginRequest holds credentials forwarded to the auth service.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the minted session and the profile.
type LoginResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresIn    int64           `json:"expires_in"`
	User         *models.Profile `json:"user"`
}

// Login signs the caller in against the auth service.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload"))
		return
	}

	session, profile, err := h.registry.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, LoginResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    session.ExpiresIn,
		User:         profile,
	})
}

// Logout signs the caller out and clears the session store.
func (h *AuthHandler) Logout(c *gin.Context) {
	sess := guard.SessionFromContext(c)
	if sess == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}

	token := sess.Token()
	err := sess.Logout(c.Request.Context())
	h.registry.Drop(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SessionInfo describes the current session.
type SessionInfo struct {
	Identity *models.Identity `json:"identity"`
	Profile  *models.Profile  `json:"profile,omitempty"`
	Role     models.Role      `json:"role"`
	Degraded bool             `json:"degraded,omitempty"`
}

// Session returns the caller's current session state.
func (h *AuthHandler) Session(c *gin.Context) {
	sess := guard.SessionFromContext(c)
	if sess == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}

	response.JSON(c, http.StatusOK, SessionInfo{
		Identity: sess.Identity(),
		Profile:  sess.Profile(),
		Role:     sess.Role(),
		Degraded: sess.Degraded(),
	})
}
