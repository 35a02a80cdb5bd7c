package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jafarshop/storeapi/internal/api/middleware"
	"github.com/jafarshop/storeapi/internal/auth"
	"github.com/jafarshop/storeapi/internal/domain"
	"github.com/jafarshop/storeapi/internal/repository"
	"github.com/jafarshop/storeapi/pkg/errors"
)

// RegisterRequest represents the signup payload
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=4,max=20"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=20"`
	Phone    string `json:"phone" binding:"required"`
}

// LoginRequest represents the login payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries a refresh token to rotate
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UserResponse is the public shape of a user
type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

// HandleRegister handles POST /v1/auth/register
func HandleRegister(repos *repository.Repositories, tokens *auth.TokenManager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		if _, err := repos.User.GetByEmail(c.Request.Context(), req.Email); err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		} else if _, ok := err.(*errors.ErrNotFound); !ok {
			respondError(c, logger, err)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 10)
		if err != nil {
			logger.Error("Failed to hash password", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		user := &domain.User{
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: string(hash),
			Phone:        req.Phone,
			Role:         domain.RoleUser,
		}
		if err := repos.User.Create(c.Request.Context(), user); err != nil {
			respondError(c, logger, err)
			return
		}

		pair, err := tokens.IssuePair(c.Request.Context(), user.ID, user.Role)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"user":   toUserResponse(user),
			"tokens": pair,
		})
	}
}

// HandleLogin handles POST /v1/auth/login
func HandleLogin(repos *repository.Repositories, tokens *auth.TokenManager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		user, err := repos.User.GetByEmail(c.Request.Context(), req.Email)
		if err != nil {
			if _, ok := err.(*errors.ErrNotFound); ok {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
				return
			}
			respondError(c, logger, err)
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}

		pair, err := tokens.IssuePair(c.Request.Context(), user.ID, user.Role)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"user":   toUserResponse(user),
			"tokens": pair,
		})
	}
}

// HandleRefresh handles POST /v1/auth/refresh
func HandleRefresh(tokens *auth.TokenManager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		claims, err := tokens.VerifyRefresh(c.Request.Context(), req.RefreshToken)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		userID, err := uuidFromClaims(claims)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		pair, err := tokens.IssuePair(c.Request.Context(), userID, domain.Role(claims.Role))
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"tokens": pair})
	}
}

// HandleGetMe handles GET /v1/me
func HandleGetMe(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		user, err := repos.User.GetByID(c.Request.Context(), userID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, toUserResponse(user))
	}
}

// HandleLogout handles POST /v1/auth/logout
func HandleLogout(tokens *auth.TokenManager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if err := tokens.Revoke(c.Request.Context(), userID); err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}

func uuidFromClaims(claims *auth.Claims) (uuid.UUID, error) {
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, &errors.ErrUnauthorized{Message: "invalid token claims"}
	}
	return userID, nil
}

func toUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:    user.ID.String(),
		Name:  user.Name,
		Email: user.Email,
		Phone: user.Phone,
		Role:  string(user.Role),
	}
}
