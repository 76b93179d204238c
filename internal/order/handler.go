package order

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for orders
type Handler struct {
	service Service
}

// NewHandler creates a new order handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateCrossChain(c *gin.Context) {
	var req CreateCrossChainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	order, err := h.service.CreateCrossChain(userID(c), &req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *Handler) GetCrossChain(c *gin.Context) {
	order, err := h.service.GetCrossChain(userID(c), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) ListCrossChain(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, err := h.service.ListCrossChain(userID(c), limit, offset)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) CancelCrossChain(c *gin.Context) {
	order, err := h.service.CancelCrossChain(userID(c), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) CreateLimit(c *gin.Context) {
	var req CreateLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	order, err := h.service.CreateLimit(userID(c), &req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *Handler) ListLimit(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, err := h.service.ListLimit(userID(c), limit, offset)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) CancelLimit(c *gin.Context) {
	order, err := h.service.CancelLimit(userID(c), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, order)
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
	case "order not found":
		return http.StatusNotFound
	case "order not owned by user":
		return http.StatusForbidden
	case "only pending orders can be cancelled":
		return http.StatusConflict
	case "user id required", "invalid token address", "amount must be positive",
		"cannot swap same token on same chain":
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// RegisterRoutes registers order routes on the given router group
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/orders")
	{
		orders.POST("/cross-chain", h.CreateCrossChain)
		orders.GET("/cross-chain", h.ListCrossChain)
		orders.GET("/cross-chain/:id", h.GetCrossChain)
		orders.DELETE("/cross-chain/:id", h.CancelCrossChain)

		orders.POST("/limit", h.CreateLimit)
		orders.GET("/limit", h.ListLimit)
		orders.DELETE("/limit/:id", h.CancelLimit)
	}
}
