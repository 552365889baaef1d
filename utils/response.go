package utils

import (
	"github.com/gin-gonic/gin"
)

// RespondWithError aborts the request with the standard failure envelope.
func RespondWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// RespondWithErrorData is RespondWithError with a structured data payload,
// e.g. the points breakdown of an insufficient balance.
func RespondWithErrorData(c *gin.Context, status int, message string, data interface{}) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message, "data": data})
}

// RespondWithSuccess writes the standard success envelope.
func RespondWithSuccess(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}
