package security

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for security settings and audit logs
type Handler struct {
	service *Service
}

// NewHandler creates a new security handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.service.GetSettings(userID(c))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, settings)
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	settings, err := h.service.UpdateSettings(userID(c), c.ClientIP(), req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, settings)
}

func (h *Handler) ListAudit(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.service.ListAudit(userID(c), limit, offset)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func userID(c *gin.Context) string {
	if v, ok := c.Get("user_id"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func statusFor(err error) int {
	switch err.Error() {
	case "user id required", "invalid wallet address", "invalid whitelisted address",
		"daily limit cannot be negative":
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// RegisterRoutes registers security routes on the given router group
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	sec := router.Group("/security")
	{
		sec.GET("/settings", h.GetSettings)
		sec.PUT("/settings", h.UpdateSettings)
		sec.GET("/audit", h.ListAudit)
	}
}
