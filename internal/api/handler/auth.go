package handler

import (
	"errors"
	"net/http"
	"strings"

	"artmarket/backend/internal/apperrors"
	"artmarket/backend/internal/logger"
	"artmarket/backend/internal/models"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const userContextKey = "authUser"

// authenticate validates the Bearer token from the request and resolves it
// to a verified user. The identity collaborator issues the tokens; this
// service only checks them.
func (h *Handler) authenticate(c *gin.Context) (*models.User, error) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, errors.New("authorization token missing")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(h.Cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, errors.New("invalid token claims")
	}

	user, err := h.Storage.GetUserByID(userID)
	if err != nil {
		return nil, errors.New("unknown user")
	}
	if !user.IsVerified {
		return nil, errors.New("account not verified")
	}
	return user, nil
}

// AuthRequired guards the REST routes, stashing the resolved user in the
// request context.
func (h *Handler) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.authenticate(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

// currentUser returns the authenticated user placed by AuthRequired.
func currentUser(c *gin.Context) *models.User {
	return c.MustGet(userContextKey).(*models.User)
}

// writeError maps an error onto an HTTP response. Expected outcomes carry
// their message; operational faults are logged and masked.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperrors.CodeOf(err) {
	case apperrors.CodeValidation:
		status = http.StatusBadRequest
	case apperrors.CodeNotFound:
		status = http.StatusNotFound
	case apperrors.CodeForbidden:
		status = http.StatusForbidden
	case apperrors.CodeContentRejected:
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		logger.Log.Error("request failed",
			zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && len(appErr.Violations) > 0 {
		c.JSON(status, gin.H{"error": appErr.Message, "violations": appErr.Violations})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
