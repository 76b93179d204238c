package portfolio

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for portfolio lookups
type Handler struct {
	service Service
}

// NewHandler creates a new portfolio handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) GetSnapshot(c *gin.Context) {
	chainID, _ := strconv.Atoi(c.DefaultQuery("chainId", "1"))

	snapshot, err := h.service.GetSnapshot(c.Request.Context(), chainID, c.Param("wallet"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (h *Handler) GetHistory(c *gin.Context) {
	chainID, _ := strconv.Atoi(c.DefaultQuery("chainId", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	history, err := h.service.GetHistory(c.Request.Context(), chainID, c.Param("wallet"), limit)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": history})
}

func (h *Handler) GetGasPrice(c *gin.Context) {
	chainID, _ := strconv.Atoi(c.DefaultQuery("chainId", "1"))

	gas, err := h.service.GetGasPrice(c.Request.Context(), chainID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gas)
}

func (h *Handler) GetSpotPrices(c *gin.Context) {
	chainID, _ := strconv.Atoi(c.DefaultQuery("chainId", "1"))
	tokens := strings.Split(c.Query("tokens"), ",")
	if len(tokens) == 1 && tokens[0] == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tokens required"})
		return
	}

	prices, err := h.service.GetSpotPrices(c.Request.Context(), chainID, tokens)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"prices": prices})
}

func statusFor(err error) int {
	switch err.Error() {
	case "invalid wallet address", "tokens required":
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

// RegisterRoutes registers portfolio routes on the given router group
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	portfolio := router.Group("/portfolio")
	{
		portfolio.GET("/gas-price", h.GetGasPrice)
		portfolio.GET("/spot-prices", h.GetSpotPrices)
		portfolio.GET("/:wallet", h.GetSnapshot)
		portfolio.GET("/:wallet/history", h.GetHistory)
	}
}
