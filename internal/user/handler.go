package user

import (
	"context"
	"net/http"

	"doc-tracker/internal/domain"
	"doc-tracker/internal/errors"
	"doc-tracker/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SessionStore interface {
	Create(ctx context.Context, user *domain.User) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
}

type TokenGenerator interface {
	Generate(sessionID, username string) (string, error)
}

// Handler handles HTTP requests for users
type Handler struct {
	service  Service
	sessions SessionStore
	tokens   TokenGenerator
	log      *zap.Logger
}

// NewHandler creates a new user handler
func NewHandler(service Service, sessions SessionStore, tokens TokenGenerator, log *zap.Logger) *Handler {
	return &Handler{service: service, sessions: sessions, tokens: tokens, log: log}
}

// FormLogin represents login form data
type FormLogin struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// FormCreateUser represents the admin form for a new account
type FormCreateUser struct {
	Username    string `json:"username" binding:"required,max=64"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"display_name" binding:"required"`
	Role        string `json:"role" binding:"required,role"`
}

type FormChangePassword struct {
	Password string `json:"password" binding:"required,min=6"`
	Confirm  string `json:"confirm" binding:"required"`
}

// Login handles user login
func (h *Handler) Login(c *gin.Context) {
	var form FormLogin
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	user, err := h.service.Login(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		c.Error(err)
		return
	}

	sess, err := h.sessions.Create(c.Request.Context(), user)
	if err != nil {
		c.Error(errors.Internal(err))
		return
	}

	token, err := h.tokens.Generate(sess.ID, user.Username)
	if err != nil {
		c.Error(errors.Internal(err))
		return
	}

	h.log.Info("login", zap.String("username", user.Username))
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"user":         user.ToSafeUser(),
	})
}

// Logout destroys the current session
func (h *Handler) Logout(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		c.Error(errors.Unauthorized("Session not found", nil))
		return
	}

	if err := h.sessions.Delete(c.Request.Context(), sess.ID); err != nil {
		c.Error(errors.Internal(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// GetProfile handles getting the current user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		c.Error(errors.Unauthorized("Session not found", nil))
		return
	}

	user, err := h.service.GetByUsername(c.Request.Context(), sess.Username)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, user.ToSafeUser())
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.service.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) CreateUser(c *gin.Context) {
	var form FormCreateUser
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	user := &domain.User{
		Username:    form.Username,
		Password:    form.Password,
		DisplayName: form.DisplayName,
		Role:        form.Role,
	}
	if err := h.service.Create(c.Request.Context(), user); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user.ToSafeUser()})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		c.Error(errors.Unauthorized("Session not found", nil))
		return
	}

	if err := h.service.Delete(c.Request.Context(), sess.Username, c.Param("username")); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var form FormChangePassword
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	err := h.service.ChangePassword(c.Request.Context(), c.Param("username"), form.Password, form.Confirm)
	if err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
