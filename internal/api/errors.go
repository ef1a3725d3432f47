package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paulexconde/storecheck/pkg/fault"
)

// writeError maps a service error onto an HTTP response.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	var f *fault.Fault
	if errors.As(err, &f) {
		msg = f.Message
		switch f.Type {
		case fault.ErrClient:
			status = http.StatusBadRequest
			switch {
			case errors.Is(err, fault.ErrNotFound):
				status = http.StatusNotFound
			case errors.Is(err, fault.ErrUnauthenticated):
				status = http.StatusUnauthorized
			case errors.Is(err, fault.ErrForbidden):
				status = http.StatusForbidden
			}
		case fault.ErrUpstream:
			status = http.StatusBadGateway
		}
	}

	if status >= http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}

	body := gin.H{"error": msg}
	if details := fault.DetailsOf(err); details != nil {
		body["details"] = details
	}
	c.AbortWithStatusJSON(status, body)
}
