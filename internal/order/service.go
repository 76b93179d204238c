package order

import (
	"crypto/rand"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"swapdeck/internal/models"
	"swapdeck/internal/ws"
)

// timelockWindow is how long a cross-chain order's placeholder
// timelock reaches into the future.
const timelockWindow = 24 * time.Hour

// Notifier pushes order events to the owner's live connections.
type Notifier interface {
	SendNotification(userID string, payload ws.NotificationPayload)
}

// CreateCrossChainRequest is the payload for creating a cross-chain order
type CreateCrossChainRequest struct {
	FromChainID int             `json:"from_chain_id" binding:"required"`
	ToChainID   int             `json:"to_chain_id" binding:"required"`
	FromToken   string          `json:"from_token" binding:"required"`
	ToToken     string          `json:"to_token" binding:"required"`
	FromAmount  decimal.Decimal `json:"from_amount" binding:"required"`
	ToAmount    decimal.Decimal `json:"to_amount"`
}

// CreateLimitRequest is the payload for creating a limit order
type CreateLimitRequest struct {
	ChainID    int             `json:"chain_id" binding:"required"`
	MakerToken string          `json:"maker_token" binding:"required"`
	TakerToken string          `json:"taker_token" binding:"required"`
	MakerRate  decimal.Decimal `json:"maker_rate"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
}

// Service defines order operations
type Service interface {
	CreateCrossChain(userID string, req *CreateCrossChainRequest) (*models.CrossChainOrder, error)
	GetCrossChain(userID, id string) (*models.CrossChainOrder, error)
	ListCrossChain(userID string, limit, offset int) ([]*models.CrossChainOrder, error)
	CancelCrossChain(userID, id string) (*models.CrossChainOrder, error)

	CreateLimit(userID string, req *CreateLimitRequest) (*models.LimitOrder, error)
	ListLimit(userID string, limit, offset int) ([]*models.LimitOrder, error)
	CancelLimit(userID, id string) (*models.LimitOrder, error)
}

type service struct {
	repo     Repository
	notifier Notifier
}

// NewService creates an order service. The notifier may be nil in
// contexts without a live hub.
func NewService(repo Repository, notifier Notifier) Service {
	return &service{repo: repo, notifier: notifier}
}

// CreateCrossChain records an atomic-swap style order. The hashlock is
// a keccak hash of a random secret and the timelock a fixed window;
// both are placeholders, never verified on-chain.
func (s *service) CreateCrossChain(userID string, req *CreateCrossChainRequest) (*models.CrossChainOrder, error) {
	if userID == "" {
		return nil, errors.New("user id required")
	}
	if !common.IsHexAddress(req.FromToken) || !common.IsHexAddress(req.ToToken) {
		return nil, errors.New("invalid token address")
	}
	if req.FromAmount.IsZero() || req.FromAmount.IsNegative() {
		return nil, errors.New("amount must be positive")
	}
	if req.FromChainID == req.ToChainID && req.FromToken == req.ToToken {
		return nil, errors.New("cannot swap same token on same chain")
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}

	order := &models.CrossChainOrder{
		ID:          uuid.NewString(),
		UserID:      userID,
		FromChainID: req.FromChainID,
		ToChainID:   req.ToChainID,
		FromToken:   req.FromToken,
		ToToken:     req.ToToken,
		FromAmount:  req.FromAmount,
		ToAmount:    req.ToAmount,
		Hashlock:    ethcrypto.Keccak256Hash(secret).Hex(),
		Timelock:    time.Now().Add(timelockWindow).Unix(),
		Status:      models.OrderStatusPending,
	}

	if err := s.repo.CreateCrossChain(order); err != nil {
		return nil, err
	}

	s.notify(userID, "info", "Order created",
		"Cross-chain order "+order.ID+" submitted")
	return order, nil
}

func (s *service) GetCrossChain(userID, id string) (*models.CrossChainOrder, error) {
	order, err := s.repo.GetCrossChainByID(id)
	if err != nil || order == nil {
		return order, err
	}
	if order.UserID != userID {
		return nil, errors.New("order not owned by user")
	}
	return order, nil
}

func (s *service) ListCrossChain(userID string, limit, offset int) ([]*models.CrossChainOrder, error) {
	if userID == "" {
		return nil, errors.New("user id required")
	}
	return s.repo.ListCrossChainByUser(userID, clampLimit(limit), clampOffset(offset))
}

func (s *service) CancelCrossChain(userID, id string) (*models.CrossChainOrder, error) {
	order, err := s.GetCrossChain(userID, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order not found")
	}
	if order.Status != models.OrderStatusPending {
		return nil, errors.New("only pending orders can be cancelled")
	}

	if err := s.repo.UpdateCrossChainStatus(id, models.OrderStatusCancelled); err != nil {
		return nil, err
	}
	order.Status = models.OrderStatusCancelled

	s.notify(userID, "warning", "Order cancelled",
		"Cross-chain order "+id+" cancelled")
	return order, nil
}

func (s *service) CreateLimit(userID string, req *CreateLimitRequest) (*models.LimitOrder, error) {
	if userID == "" {
		return nil, errors.New("user id required")
	}
	if !common.IsHexAddress(req.MakerToken) || !common.IsHexAddress(req.TakerToken) {
		return nil, errors.New("invalid token address")
	}
	if req.Amount.IsZero() || req.Amount.IsNegative() {
		return nil, errors.New("amount must be positive")
	}

	order := &models.LimitOrder{
		ID:         uuid.NewString(),
		UserID:     userID,
		ChainID:    req.ChainID,
		MakerToken: req.MakerToken,
		TakerToken: req.TakerToken,
		MakerRate:  req.MakerRate,
		Amount:     req.Amount,
		Status:     models.OrderStatusPending,
	}

	if err := s.repo.CreateLimit(order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) ListLimit(userID string, limit, offset int) ([]*models.LimitOrder, error) {
	if userID == "" {
		return nil, errors.New("user id required")
	}
	return s.repo.ListLimitByUser(userID, clampLimit(limit), clampOffset(offset))
}

func (s *service) CancelLimit(userID, id string) (*models.LimitOrder, error) {
	order, err := s.repo.GetLimitByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order not found")
	}
	if order.UserID != userID {
		return nil, errors.New("order not owned by user")
	}
	if order.Status != models.OrderStatusPending {
		return nil, errors.New("only pending orders can be cancelled")
	}

	if err := s.repo.UpdateLimitStatus(id, models.OrderStatusCancelled); err != nil {
		return nil, err
	}
	order.Status = models.OrderStatusCancelled
	return order, nil
}

func (s *service) notify(userID, level, title, message string) {
	if s.notifier == nil {
		return
	}
	s.notifier.SendNotification(userID, ws.NotificationPayload{
		Level:   level,
		Title:   title,
		Message: message,
	})
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
