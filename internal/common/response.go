package common

import "github.com/gin-gonic/gin"

// Error writes the single-field error body every endpoint uses.
func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}
