package controller

import (
	"net/http"

	"chatrelay/service"

	"github.com/gin-gonic/gin"
)

// AuthController ...
type AuthController struct{}

var tokenService = new(service.TokenService)

// TokenValid rejects the request unless it carries a valid access token, and
// stashes the authenticated identity on the context.
func (a AuthController) TokenValid(c *gin.Context) {
	tokenAuth, err := tokenService.ExtractTokenMetadata(c.Request)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Please login first"})
		return
	}

	c.Set("UserId", tokenAuth.UserID)
	c.Set("UserName", tokenAuth.UserName)
}

// Refresh issues a fresh token for a still-valid credential.
func (a AuthController) Refresh(c *gin.Context) {
	accessToken := tokenService.ExtractToken(c.Request)

	details, err := tokenService.ExtractMetadata(accessToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid authorization, please login again"})
		return
	}

	ts, err := tokenService.CreateToken(details.UserID, details.UserName)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"message": "Invalid authorization, please login again"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": ts.AccessToken})
}

// authedUserID reads the identity placed on the context by TokenValid.
func authedUserID(c *gin.Context) uint {
	id, _ := c.Get("UserId")
	userID, _ := id.(uint)
	return userID
}
