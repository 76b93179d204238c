package portfolio

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"swapdeck/internal/aggregator"
)

// Upstream is the slice of the aggregator the portfolio service uses.
type Upstream interface {
	GetBalances(ctx context.Context, chainID int, wallet string) ([]aggregator.Balance, error)
	GetSpotPrices(ctx context.Context, chainID int, tokens []string) (map[string]decimal.Decimal, error)
	GetGasPrice(ctx context.Context, chainID int) (*aggregator.GasPrice, error)
	GetHistory(ctx context.Context, chainID int, wallet string, limit int) ([]aggregator.HistoryEvent, error)
}

// Pusher delivers portfolio updates to the owner's live connections.
type Pusher interface {
	SendPortfolioUpdate(userID string, payload interface{})
}

// Snapshot is a wallet's aggregated portfolio view.
type Snapshot struct {
	WalletAddress string               `json:"wallet_address"`
	ChainID       int                  `json:"chain_id"`
	TotalValueUSD decimal.Decimal      `json:"total_value_usd"`
	Balances      []aggregator.Balance `json:"balances"`
	Risk          RiskMetrics          `json:"risk"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// RiskMetrics holds the dashboard's risk panel numbers. They are
// computed from balance concentration only; no market model runs.
type RiskMetrics struct {
	Concentration decimal.Decimal `json:"concentration"`
	Exposure      decimal.Decimal `json:"exposure"`
	Score         int             `json:"score"`
}

// Service defines portfolio operations
type Service interface {
	GetSnapshot(ctx context.Context, chainID int, wallet string) (*Snapshot, error)
	GetHistory(ctx context.Context, chainID int, wallet string, limit int) ([]aggregator.HistoryEvent, error)
	GetGasPrice(ctx context.Context, chainID int) (*aggregator.GasPrice, error)
	GetSpotPrices(ctx context.Context, chainID int, tokens []string) (map[string]decimal.Decimal, error)
	PushSnapshot(ctx context.Context, userID string, chainID int, wallet string) error
}

type service struct {
	upstream Upstream
	pusher   Pusher
}

// NewService creates a portfolio service. The pusher may be nil in
// contexts without a live hub.
func NewService(upstream Upstream, pusher Pusher) Service {
	return &service{upstream: upstream, pusher: pusher}
}

// GetSnapshot aggregates balances and prices into one portfolio view.
func (s *service) GetSnapshot(ctx context.Context, chainID int, wallet string) (*Snapshot, error) {
	if !common.IsHexAddress(wallet) {
		return nil, errors.New("invalid wallet address")
	}

	balances, err := s.upstream.GetBalances(ctx, chainID, wallet)
	if err != nil {
		return nil, err
	}

	tokens := make([]string, 0, len(balances))
	for _, b := range balances {
		tokens = append(tokens, b.Token)
	}

	prices := map[string]decimal.Decimal{}
	if len(tokens) > 0 {
		prices, err = s.upstream.GetSpotPrices(ctx, chainID, tokens)
		if err != nil {
			// Balances are still useful without prices.
			prices = map[string]decimal.Decimal{}
		}
	}

	total := decimal.Zero
	largest := decimal.Zero
	for i := range balances {
		price, ok := prices[balances[i].Token]
		if !ok {
			continue
		}
		value := balances[i].Amount.Mul(price)
		balances[i].ValueUSD = value
		total = total.Add(value)
		if value.GreaterThan(largest) {
			largest = value
		}
	}

	return &Snapshot{
		WalletAddress: wallet,
		ChainID:       chainID,
		TotalValueUSD: total,
		Balances:      balances,
		Risk:          riskFrom(total, largest),
		UpdatedAt:     time.Now(),
	}, nil
}

func (s *service) GetHistory(ctx context.Context, chainID int, wallet string, limit int) ([]aggregator.HistoryEvent, error) {
	if !common.IsHexAddress(wallet) {
		return nil, errors.New("invalid wallet address")
	}
	return s.upstream.GetHistory(ctx, chainID, wallet, limit)
}

func (s *service) GetGasPrice(ctx context.Context, chainID int) (*aggregator.GasPrice, error) {
	return s.upstream.GetGasPrice(ctx, chainID)
}

func (s *service) GetSpotPrices(ctx context.Context, chainID int, tokens []string) (map[string]decimal.Decimal, error) {
	if len(tokens) == 0 {
		return nil, errors.New("tokens required")
	}
	return s.upstream.GetSpotPrices(ctx, chainID, tokens)
}

// PushSnapshot recomputes a user's portfolio and fans it out to their
// live connections.
func (s *service) PushSnapshot(ctx context.Context, userID string, chainID int, wallet string) error {
	if s.pusher == nil {
		return nil
	}
	snapshot, err := s.GetSnapshot(ctx, chainID, wallet)
	if err != nil {
		return err
	}
	s.pusher.SendPortfolioUpdate(userID, snapshot)
	return nil
}

// riskFrom derives the risk panel numbers from value concentration.
func riskFrom(total, largest decimal.Decimal) RiskMetrics {
	if total.IsZero() {
		return RiskMetrics{Concentration: decimal.Zero, Exposure: decimal.Zero, Score: 0}
	}

	concentration := largest.Div(total)
	score := int(concentration.Mul(decimal.NewFromInt(100)).IntPart())
	return RiskMetrics{
		Concentration: concentration.Round(4),
		Exposure:      total,
		Score:         score,
	}
}
