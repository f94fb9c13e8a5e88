// Package response writes the uniform {status, data} JSON envelope.
package response

import (
	"github.com/gin-gonic/gin"
)

// Envelope is the body of every API and page response.
type Envelope struct {
	Status int `json:"status"`
	Data   any `json:"data"`
}

// ErrorBody is the data payload of error envelopes.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON sets the HTTP status and writes {status, data}.
func JSON(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Status: status, Data: data})
}

// Error aborts the chain and writes {status, data: {error}}.
func Error(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Envelope{Status: status, Data: ErrorBody{Error: msg}})
}
