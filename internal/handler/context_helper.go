package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/middleware"
	"github.com/Parhamrhh/course-registration-performance-testing/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func studentIDFromContext(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.StudentID
	}
	return ""
}
