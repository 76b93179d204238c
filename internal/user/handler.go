package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for user accounts
type Handler struct {
	service Service
}

// NewHandler creates a new user handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type bindWalletRequest struct {
	Address string `json:"address" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	u, err := h.service.Register(req.Username, req.Password)
	if err != nil {
		status := http.StatusInternalServerError
		switch err.Error() {
		case "username and password required":
			status = http.StatusBadRequest
		case "username already taken":
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, u)
}

func (h *Handler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	u, token, err := h.service.Login(req.Username, req.Password)
	if err != nil {
		status := http.StatusInternalServerError
		if err.Error() == "invalid credentials" {
			status = http.StatusUnauthorized
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": u, "token": token})
}

func (h *Handler) BindWallet(c *gin.Context) {
	var req bindWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	userID, _ := c.Get("user_id")
	u, err := h.service.BindWallet(userID.(string), req.Address)
	if err != nil {
		status := http.StatusInternalServerError
		switch err.Error() {
		case "invalid wallet address":
			status = http.StatusBadRequest
		case "user not found":
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, u)
}

func (h *Handler) Me(c *gin.Context) {
	userID, _ := c.Get("user_id")
	u, err := h.service.Get(userID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, u)
}

// RegisterRoutes registers user routes. Public routes go on the open
// group, account routes on the authenticated group.
func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.POST("/auth/register", h.Register)
	public.POST("/auth/login", h.Login)

	protected.GET("/me", h.Me)
	protected.POST("/me/wallet", h.BindWallet)
}
