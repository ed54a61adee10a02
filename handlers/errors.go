package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atelierhq/atelier/guard"
	"github.com/atelierhq/atelier/services"
)

// respondError writes the JSON body for a failed request. Guard errors carry
// their own status, code and message and are rendered verbatim; service
// errors map onto conventional statuses.
func respondError(c *gin.Context, err error) {
	var gerr *guard.Error
	if errors.As(err, &gerr) {
		c.JSON(gerr.Status, gin.H{"error": gin.H{
			"statusCode": gerr.Status,
			"code":       gerr.Code,
			"message":    gerr.Message,
		}})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, services.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
