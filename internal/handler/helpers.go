package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"marketplace/voucherhub/internal/handler/middleware"
	"marketplace/voucherhub/internal/service"
	"marketplace/voucherhub/pkg/response"
)

var ErrNoClaims = errors.New("claims not found in context")

func getUserIDFromContext(c *gin.Context) (uuid.UUID, error) {
	claims, ok := middleware.Claims(c)
	if !ok {
		return uuid.Nil, ErrNoClaims
	}
	return claims.UserID()
}

// optionalUserID returns nil for anonymous requests.
func optionalUserID(c *gin.Context) *uuid.UUID {
	id, err := getUserIDFromContext(c)
	if err != nil {
		return nil
	}
	return &id
}

func getBusinessIDFromContext(c *gin.Context) (uuid.UUID, error) {
	v, exists := c.Get(middleware.ContextKeyBusinessID)
	if !exists {
		return uuid.Nil, ErrNoClaims
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrNoClaims
	}
	return id, nil
}

// pathID parses the :id parameter and writes a 400 on failure.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := service.ParseID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}

func queryUUID(c *gin.Context, key string) (*uuid.UUID, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	id, err := service.ParseID(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// statusOf maps a service error kind to an HTTP status.
func statusOf(err error) int {
	switch service.KindOf(err) {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindInvalidTransition, service.KindConflict:
		return http.StatusConflict
	case service.KindBusinessRule:
		return http.StatusUnprocessableEntity
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err in the standard envelope. Internal errors never
// leak their message.
func respondError(c *gin.Context, err error) {
	status := statusOf(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	response.Fail(c, status, service.CodeOf(err), message)
}
