package api

import (
	"errors"
	"net/http"
	"unicode"
	"unicode/utf8"

	"github.com/cozy-creator/classify-server/internal/classifier"
	"github.com/cozy-creator/classify-server/internal/utils/imageutil"

	"github.com/gin-gonic/gin"
)

var (
	ErrFileRequired     = errors.New("file is required")
	ErrBatchTooLarge    = errors.New("too many files in batch")
	ErrHistoryDisabled  = errors.New("prediction history is disabled")
	ErrFileReadFailed   = errors.New("error reading file")
	ErrInvalidListLimit = errors.New("limit must be a positive integer")
)

type ErrorResponse struct {
	Detail string `json:"detail"`
}

// StatusFor maps handler errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, classifier.ErrModelNotLoaded):
		return http.StatusServiceUnavailable
	case errors.Is(err, imageutil.ErrNotImage),
		errors.Is(err, imageutil.ErrDecode),
		errors.Is(err, ErrFileRequired),
		errors.Is(err, ErrBatchTooLarge),
		errors.Is(err, ErrFileReadFailed),
		errors.Is(err, ErrInvalidListLimit):
		return http.StatusBadRequest
	case errors.Is(err, ErrHistoryDisabled):
		return http.StatusNotFound
	}

	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	abortWithStatus(c, StatusFor(err), err)
}

func abortWithStatus(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, ErrorResponse{Detail: Detail(err)})
}

// Detail renders err as a client-facing message.
func Detail(err error) string {
	msg := err.Error()
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}

	return string(unicode.ToUpper(r)) + msg[size:]
}
