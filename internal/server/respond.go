package server

import (
	stderrors "errors"
	"log"
	"net/http"

	"taskhub/internal/domain/errors"
	"taskhub/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// FieldError is one entry of a field-level validation failure list.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func sendResponse(ctx *gin.Context, statusCode int, data gin.H, message string) {
	ctx.JSON(statusCode, gin.H{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func sendError(ctx *gin.Context, statusCode int, message string) {
	ctx.AbortWithStatusJSON(statusCode, gin.H{
		"success": false,
		"message": message,
	})
}

func sendFieldErrors(ctx *gin.Context, fieldErrors []FieldError) {
	ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": errors.ErrValidationFailed.Error(),
		"errors":  fieldErrors,
	})
}

// sendDomainError is the single mapping point from a domain error to an HTTP
// status and wire envelope.
func sendDomainError(ctx *gin.Context, err error) {
	switch {
	case stderrors.Is(err, errors.ErrNotFound) || stderrors.Is(err, errors.ErrUserNotFound):
		sendError(ctx, http.StatusNotFound, err.Error())
	case stderrors.Is(err, errors.ErrForbidden):
		sendError(ctx, http.StatusForbidden, err.Error())
	case stderrors.Is(err, errors.ErrUnauthorized),
		stderrors.Is(err, errors.ErrInvalidCredentials),
		stderrors.Is(err, errors.ErrAccountDeactivated),
		stderrors.Is(err, errors.ErrUserGone),
		stderrors.Is(err, errors.ErrTokenInvalid),
		stderrors.Is(err, errors.ErrTokenExpired):
		sendError(ctx, http.StatusUnauthorized, err.Error())
	case stderrors.Is(err, errors.ErrUserAlreadyExists) || stderrors.Is(err, errors.ErrConflict):
		sendError(ctx, http.StatusBadRequest, err.Error())
	case stderrors.Is(err, errors.ErrValidationFailed) || stderrors.Is(err, errors.ErrBadRequest):
		sendError(ctx, http.StatusBadRequest, err.Error())
	default:
		principal := ""
		if user := currentUser(ctx); user != nil {
			principal = user.ID
		}
		log.Printf("[ERROR] %s %s (principal=%q): %v", ctx.Request.Method, ctx.Request.URL.Path, principal, err)
		sendError(ctx, http.StatusInternalServerError, errors.ErrInternalServer.Error())
	}
}

const principalKey = "principal"

// currentUser returns the authenticated principal attached by Authenticate,
// or nil on unauthenticated routes.
func currentUser(ctx *gin.Context) *models.User {
	value, exists := ctx.Get(principalKey)
	if !exists {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

func publicUser(user *models.User) gin.H {
	return gin.H{
		"id":        user.ID,
		"name":      user.Name,
		"email":     user.Email,
		"role":      user.Role,
		"isActive":  user.Active,
		"createdAt": user.CreatedAt,
	}
}
