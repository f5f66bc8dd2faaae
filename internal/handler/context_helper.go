package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/openacademia/research-track-api/internal/middleware"
	"github.com/openacademia/research-track-api/internal/models"
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

// actorFromContext returns the acting user's ID for updated_by stamping.
func actorFromContext(c *gin.Context) *string {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil
	}
	return &claims.UserID
}
