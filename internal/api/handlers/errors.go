package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/storeapi/pkg/errors"
)

// respondError maps a typed error to its HTTP status. Anything unrecognized
// is a server error; those are logged, client errors are not.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	switch err.(type) {
	case *errors.ErrValidation,
		*errors.ErrInvalidCartState,
		*errors.ErrInsufficientStock,
		*errors.ErrInvalidStateTransition:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case *errors.ErrUnauthorized:
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case *errors.ErrForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case *errors.ErrNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
