package strategy

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for strategies
type Handler struct {
	service Service
}

// NewHandler creates a new strategy handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	strategy, err := h.service.Create(userID(c), &req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, strategy)
}

func (h *Handler) Get(c *gin.Context) {
	strategy, err := h.service.Get(userID(c), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	if strategy == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "strategy not found"})
		return
	}

	c.JSON(http.StatusOK, strategy)
}

func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	strategies, err := h.service.List(userID(c), limit, offset)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"strategies": strategies})
}

func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	strategy, err := h.service.Update(userID(c), c.Param("id"), &req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, strategy)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(userID(c), c.Param("id")); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
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
	case "strategy not found":
		return http.StatusNotFound
	case "strategy not owned by user":
		return http.StatusForbidden
	case "user id required", "name required", "invalid strategy status":
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// RegisterRoutes registers strategy routes on the given router group
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	strategies := router.Group("/strategies")
	{
		strategies.POST("", h.Create)
		strategies.GET("", h.List)
		strategies.GET("/:id", h.Get)
		strategies.PUT("/:id", h.Update)
		strategies.DELETE("/:id", h.Delete)
	}
}
