package response

import "github.com/gin-gonic/gin"

const ContextRequestIDKey = "request_id"

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func OK(c *gin.Context, data any) {
	c.JSON(200, data)
}

// Error writes {error} and tags it with the request ID when one was set.
func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, ErrorResponse{
		Error:     message,
		RequestID: c.GetString(ContextRequestIDKey),
	})
}

// Abort writes the error and stops the handler chain.
func Abort(c *gin.Context, httpStatus int, message string) {
	Error(c, httpStatus, message)
	c.Abort()
}
