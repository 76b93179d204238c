package strategy

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"swapdeck/internal/models"
)

// Pusher delivers strategy updates to the owner's live connections.
type Pusher interface {
	SendStrategyUpdate(userID string, payload interface{})
}

// CreateRequest is the payload for creating a strategy
type CreateRequest struct {
	Name        string          `json:"name" binding:"required"`
	Type        string          `json:"type" binding:"required"`
	Pairs       []string        `json:"pairs"`
	MaxPosition decimal.Decimal `json:"max_position"`
	StopLoss    decimal.Decimal `json:"stop_loss"`
	TakeProfit  decimal.Decimal `json:"take_profit"`
}

// UpdateRequest is the payload for updating a strategy
type UpdateRequest struct {
	Name        *string                `json:"name"`
	Status      *models.StrategyStatus `json:"status"`
	Pairs       []string               `json:"pairs"`
	MaxPosition *decimal.Decimal       `json:"max_position"`
	StopLoss    *decimal.Decimal       `json:"stop_loss"`
	TakeProfit  *decimal.Decimal       `json:"take_profit"`
}

// Service defines strategy operations
type Service interface {
	Create(userID string, req *CreateRequest) (*models.Strategy, error)
	Get(userID, id string) (*models.Strategy, error)
	List(userID string, limit, offset int) ([]*models.Strategy, error)
	Update(userID, id string, req *UpdateRequest) (*models.Strategy, error)
	Delete(userID, id string) error
}

type service struct {
	repo   Repository
	pusher Pusher
}

// NewService creates a strategy service. The pusher may be nil in
// contexts without a live hub.
func NewService(repo Repository, pusher Pusher) Service {
	return &service{repo: repo, pusher: pusher}
}

func (s *service) Create(userID string, req *CreateRequest) (*models.Strategy, error) {
	if userID == "" {
		return nil, errors.New("user id required")
	}
	if req.Name == "" {
		return nil, errors.New("name required")
	}

	strategy := &models.Strategy{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        req.Name,
		Type:        req.Type,
		Status:      models.StrategyStatusPaused,
		Pairs:       pq.StringArray(req.Pairs),
		MaxPosition: req.MaxPosition,
		StopLoss:    req.StopLoss,
		TakeProfit:  req.TakeProfit,
	}
	mockPerformance(strategy)

	if err := s.repo.Create(strategy); err != nil {
		return nil, err
	}

	s.push(strategy)
	return strategy, nil
}

func (s *service) Get(userID, id string) (*models.Strategy, error) {
	strategy, err := s.repo.GetByID(id)
	if err != nil || strategy == nil {
		return strategy, err
	}
	if strategy.UserID != userID {
		return nil, errors.New("strategy not owned by user")
	}
	return strategy, nil
}

func (s *service) List(userID string, limit, offset int) ([]*models.Strategy, error) {
	if userID == "" {
		return nil, errors.New("user id required")
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(userID, limit, offset)
}

func (s *service) Update(userID, id string, req *UpdateRequest) (*models.Strategy, error) {
	strategy, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}
	if strategy == nil {
		return nil, errors.New("strategy not found")
	}

	if req.Name != nil {
		strategy.Name = *req.Name
	}
	if req.Status != nil {
		switch *req.Status {
		case models.StrategyStatusActive, models.StrategyStatusPaused, models.StrategyStatusStopped:
			strategy.Status = *req.Status
		default:
			return nil, errors.New("invalid strategy status")
		}
	}
	if req.Pairs != nil {
		strategy.Pairs = pq.StringArray(req.Pairs)
	}
	if req.MaxPosition != nil {
		strategy.MaxPosition = *req.MaxPosition
	}
	if req.StopLoss != nil {
		strategy.StopLoss = *req.StopLoss
	}
	if req.TakeProfit != nil {
		strategy.TakeProfit = *req.TakeProfit
	}

	if err := s.repo.Update(strategy); err != nil {
		return nil, err
	}

	s.push(strategy)
	return strategy, nil
}

func (s *service) Delete(userID, id string) error {
	strategy, err := s.Get(userID, id)
	if err != nil {
		return err
	}
	if strategy == nil {
		return errors.New("strategy not found")
	}
	return s.repo.Delete(id)
}

func (s *service) push(strategy *models.Strategy) {
	if s.pusher == nil {
		return
	}
	s.pusher.SendStrategyUpdate(strategy.UserID, strategy)
}

// mockPerformance fills the strategy's performance fields with
// deterministic demo data; the trading logic itself is not run.
func mockPerformance(strategy *models.Strategy) {
	seed := float64(time.Now().UnixNano()%1000) / 1000.0
	strategy.PnL = decimal.NewFromFloat(math.Round((seed*2000-500)*100) / 100)
	strategy.WinRate = decimal.NewFromFloat(math.Round((0.4+seed*0.4)*1000) / 1000)
	strategy.TradeCount = int(seed * 200)
}
