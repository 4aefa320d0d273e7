package handlers

import (
	"errors"
	"net/http"

	"github.com/KitaosakaSystem/webSyuhai/models"
	"github.com/KitaosakaSystem/webSyuhai/services"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	authService    *services.AuthService
	lockoutService *services.LockoutService
	sessionService *services.SessionService
}

func NewAuthHandler(authService *services.AuthService, lockoutService *services.LockoutService, sessionService *services.SessionService) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		lockoutService: lockoutService,
		sessionService: sessionService,
	}
}

type credentialsRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "password is required"})
	}

	user, err := h.authService.Register(req.UserID, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidUserID):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, services.ErrUserExists):
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to register user"})
		}
	}
	return c.JSON(http.StatusCreated, user)
}

// Login validates the id shape before anything else touches a backend,
// then walks the lockout ledger, the credential check, and the profile
// lookup. Cached day state comes back with the tokens so the client can
// resume a route already chosen today.
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	// id shape first: no ledger read, no credential check for garbage ids
	userType, err := services.UserTypeForID(req.UserID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := h.lockoutService.Check(req.UserID); err != nil {
		return lockoutResponse(c, err)
	}

	user, err := h.authService.Login(req.UserID, req.Password)
	if err != nil {
		if ferr := h.lockoutService.RecordFailure(req.UserID); ferr != nil {
			var lockErr *services.LockoutError
			if errors.As(ferr, &lockErr) {
				return lockoutResponse(c, ferr)
			}
			c.Logger().Errorf("failed to record login failure: %v", ferr)
		}
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
		case errors.Is(err, services.ErrBadCredential):
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "login failed"})
		}
	}

	if err := h.lockoutService.RecordSuccess(req.UserID); err != nil {
		c.Logger().Errorf("failed to reset login attempts: %v", err)
	}

	name, kyotenID, err := h.authService.LookupProfile(req.UserID, userType)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "profile not found"})
	}

	tokens, err := h.authService.GenerateTokens(user, name, kyotenID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to generate tokens"})
	}

	// stale-day eviction happens inside Load
	state, err := h.sessionService.Load(c.Request().Context(), req.UserID)
	if err != nil {
		c.Logger().Errorf("failed to load session state: %v", err)
		state = services.SessionState{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"auth":        tokens,
		"user_name":   name,
		"kyoten_id":   kyotenID,
		"today_route": state.TodayRoute,
		"chat_rooms":  state.Rooms,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	user := c.Get("user").(*models.User)
	if err := h.sessionService.Clear(c.Request().Context(), user.UserID); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to clear session"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) GetCurrentUser(c echo.Context) error {
	user := c.Get("user").(*models.User)
	claims := c.Get("claims").(*services.Claims)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":      user,
		"user_name": claims.UserName,
		"kyoten_id": claims.KyotenID,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	claims, err := h.authService.ValidateToken(req.RefreshToken)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
	}

	var user models.User
	if err := h.authService.Db.First(&user, claims.UserID).Error; err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
	}

	name, kyotenID, err := h.authService.LookupProfile(user.UserID, user.UserType)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "profile not found"})
	}

	tokens, err := h.authService.GenerateTokens(&user, name, kyotenID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to generate tokens"})
	}
	return c.JSON(http.StatusOK, tokens)
}

func lockoutResponse(c echo.Context, err error) error {
	var lockErr *services.LockoutError
	if errors.As(err, &lockErr) {
		return c.JSON(http.StatusLocked, map[string]interface{}{
			"error":       "login temporarily locked",
			"retry_after": lockErr.RemainingSecs,
		})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "login failed"})
}
