package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"auth-service/internal/domain"
	"auth-service/internal/service"
)

// AuthHandler mantiene dependencias para los endpoints de autenticacion.
type AuthHandler struct {
	logger     *zap.Logger
	authServ   *service.AuthService
	cookieName string
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, authServ *service.AuthService, cookieName string) *AuthHandler {
	if cookieName == "" {
		cookieName = "session_id"
	}
	return &AuthHandler{
		logger:     logger,
		authServ:   authServ,
		cookieName: cookieName,
	}
}

// Index maneja GET /.
func (h *AuthHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Bienvenue"})
}

// Register maneja POST /users.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `form:"email" json:"email" binding:"required"`
		Password string `form:"password" json:"password" binding:"required"`
	}
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.authServ.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "email already registered"})
			return
		}
		if errors.Is(err, service.ErrInvalidEmail) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		h.logger.Error("register failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"email": user.Email, "message": "user created"})
}

// Login maneja POST /sessions.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `form:"email" json:"email" binding:"required"`
		Password string `form:"password" json:"password" binding:"required"`
	}
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ok, err := h.authServ.ValidateLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not login"})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	sessionID, err := h.authServ.CreateSession(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error("create session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not login"})
		return
	}

	c.SetCookie(h.cookieName, sessionID, 0, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"email": req.Email, "message": "logged in"})
}

// Logout maneja DELETE /sessions.
func (h *AuthHandler) Logout(c *gin.Context) {
	user := h.currentUser(c)
	if user == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	if err := h.authServ.DestroySession(c.Request.Context(), user.ID); err != nil {
		h.logger.Error("destroy session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not logout"})
		return
	}

	c.SetCookie(h.cookieName, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}

// Profile maneja GET /profile.
func (h *AuthHandler) Profile(c *gin.Context) {
	user := h.currentUser(c)
	if user == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"email": user.Email})
}

// RequestReset maneja POST /reset_password.
func (h *AuthHandler) RequestReset(c *gin.Context) {
	var req struct {
		Email string `form:"email" json:"email" binding:"required"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	token, err := h.authServ.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		// Un email desconocido responde igual que uno invalido: el endpoint
		// no revela que direcciones existen.
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		h.logger.Error("request password reset failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not request reset"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"email": req.Email, "reset_token": token})
}

// UpdatePassword maneja PUT /reset_password.
func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	var req struct {
		ResetToken  string `form:"reset_token" json:"reset_token" binding:"required"`
		NewPassword string `form:"new_password" json:"new_password" binding:"required"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	if err := h.authServ.ConsumePasswordReset(c.Request.Context(), req.ResetToken, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidResetToken) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		h.logger.Error("update password failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// currentUser resuelve la cookie de sesion al usuario autenticado, o nil.
func (h *AuthHandler) currentUser(c *gin.Context) *domain.User {
	sessionID, err := c.Cookie(h.cookieName)
	if err != nil {
		return nil
	}
	user, err := h.authServ.GetUserBySessionID(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error("session lookup failed", zap.Error(err))
		return nil
	}
	return user
}
