package api

import (
	"errors"
	"net/http"

	"github.com/TheNaotagrey/Asgaria/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidPixels is returned for a pixel document that is not an id to [[x,y],...] map.
	ErrInvalidPixels = errors.New("invalid pixel data")
	// ErrInvalidID is returned for a non-integer barony id.
	ErrInvalidID = errors.New("invalid barony id")
	// ErrInvalidBody is returned when a request body cannot be bound.
	ErrInvalidBody = errors.New("invalid request body")
	// ErrBodyTooLarge is returned when a request body, or its decompressed form, exceeds the limit.
	ErrBodyTooLarge = errors.New("request body too large")
)

func errorResponse(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// handleError maps store and request errors to status codes.
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidPixels), errors.Is(err, ErrInvalidID), errors.Is(err, ErrInvalidBody):
		errorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrBodyTooLarge):
		errorResponse(c, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		errorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrAlreadyExists):
		errorResponse(c, http.StatusConflict, err.Error())
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("unhandled internal server error")
		errorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
