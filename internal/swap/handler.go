package swap

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"swapdeck/internal/aggregator"
)

// Handler handles HTTP requests for swap operations
type Handler struct {
	service Service
}

// NewHandler creates a new swap handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetQuote handles POST /swap/quote requests
func (h *Handler) GetQuote(c *gin.Context) {
	var req aggregator.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request",
			"details": err.Error(),
		})
		return
	}

	quote, err := h.service.GetQuote(c.Request.Context(), &req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, quote)
}

// BuildSwap handles POST /swap/build requests
func (h *Handler) BuildSwap(c *gin.Context) {
	var req aggregator.SwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request",
			"details": err.Error(),
		})
		return
	}

	tx, err := h.service.BuildSwap(c.Request.Context(), &req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, tx)
}

// GetCrossChainQuote handles POST /swap/cross-chain/quote requests
func (h *Handler) GetCrossChainQuote(c *gin.Context) {
	var req aggregator.CrossChainQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request",
			"details": err.Error(),
		})
		return
	}

	quote, err := h.service.GetCrossChainQuote(c.Request.Context(), &req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, quote)
}

// ListTokens handles GET /swap/tokens requests
func (h *Handler) ListTokens(c *gin.Context) {
	chainID, err := strconv.Atoi(c.DefaultQuery("chainId", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chain id"})
		return
	}

	tokens, err := h.service.ListTokens(c.Request.Context(), chainID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// statusFor maps service errors onto HTTP status codes. Validation
// failures are the caller's fault; everything else is an upstream
// failure surfaced as 502.
func statusFor(err error) int {
	switch err.Error() {
	case "token addresses required",
		"cannot swap same token",
		"amount must be positive",
		"invalid wallet address",
		"source and destination chain must differ",
		"chain id required":
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

// RegisterRoutes registers swap routes on the given router group
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	swap := router.Group("/swap")
	{
		swap.GET("/tokens", h.ListTokens)
		swap.POST("/quote", h.GetQuote)
		swap.POST("/build", h.BuildSwap)
		swap.POST("/cross-chain/quote", h.GetCrossChainQuote)
	}
}
