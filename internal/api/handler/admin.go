package handler

import (
	"crypto/subtle"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"nativeteacher/backend/internal/config"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

// generateAdminJWT issues a short-lived HS256 token for the stats surface.
func (h *Handler) generateAdminJWT() (string, error) {
	claims := jwt.MapClaims{
		"sub": "admin",
		"exp": time.Now().Add(config.AdminTokenTTL).Unix(),
		"iss": "nativeteacher-service",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.JWTSecret)
}

type loginRequest struct {
	Secret string `json:"secret"`
}

// AdminLogin exchanges the shared admin secret for a bearer token.
func (h *Handler) AdminLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if h.AdminSecret == "" || subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.AdminSecret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid admin secret"})
		return
	}

	token, err := h.generateAdminJWT()
	if err != nil {
		log.Printf("ERROR: Failed to sign admin token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// AdminAuth is the middleware guarding the stats endpoint.
func (h *Handler) AdminAuth(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
		return
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return h.JWTSecret, nil
	})
	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return
	}

	c.Next()
}

// AdminStats reports the waiting pool per language pair and the total number
// of committed matches.
func (h *Handler) AdminStats(c *gin.Context) {
	waiting, err := h.Storage.CountWaitingByPair()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count waiting users"})
		return
	}
	matches, err := h.Storage.CountMatches()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count matches"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"waiting_by_pair": waiting,
		"total_matches":   matches,
	})
}
