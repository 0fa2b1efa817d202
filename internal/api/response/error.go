package response

import "github.com/gin-gonic/gin"

// Error is a failed request ready to be written as an envelope.
type Error struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Extras  string `json:"extras"`
}

func (e Error) Error() string {
	return e.Extras
}

func NewError(code int, message string) Error {
	return Error{
		Success: false,
		Code:    code,
		Extras:  message,
	}
}

// WriteError writes e with ErrorResponse.
func WriteError(c *gin.Context, e Error) {
	ErrorResponse(c, e.Code, e.Extras)
}
