package swap

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"swapdeck/internal/aggregator"
)

// Aggregator is the slice of the upstream client the swap service uses.
type Aggregator interface {
	GetQuote(ctx context.Context, req *aggregator.QuoteRequest) (*aggregator.QuoteResponse, error)
	BuildSwap(ctx context.Context, req *aggregator.SwapRequest) (*aggregator.SwapTxResponse, error)
	GetCrossChainQuote(ctx context.Context, req *aggregator.CrossChainQuoteRequest) (*aggregator.CrossChainQuoteResponse, error)
	GetTokens(ctx context.Context, chainID int) ([]aggregator.TokenInfo, error)
}

// Service defines swap proxy operations
type Service interface {
	GetQuote(ctx context.Context, req *aggregator.QuoteRequest) (*aggregator.QuoteResponse, error)
	BuildSwap(ctx context.Context, req *aggregator.SwapRequest) (*aggregator.SwapTxResponse, error)
	GetCrossChainQuote(ctx context.Context, req *aggregator.CrossChainQuoteRequest) (*aggregator.CrossChainQuoteResponse, error)
	ListTokens(ctx context.Context, chainID int) ([]aggregator.TokenInfo, error)
}

type service struct {
	upstream Aggregator
}

// NewService creates a new swap service over the upstream aggregator.
func NewService(upstream Aggregator) Service {
	return &service{upstream: upstream}
}

func (s *service) GetQuote(ctx context.Context, req *aggregator.QuoteRequest) (*aggregator.QuoteResponse, error) {
	if req.Src == "" || req.Dst == "" {
		return nil, errors.New("token addresses required")
	}
	if req.Src == req.Dst {
		return nil, errors.New("cannot swap same token")
	}
	if req.Amount.IsZero() || req.Amount.IsNegative() {
		return nil, errors.New("amount must be positive")
	}
	return s.upstream.GetQuote(ctx, req)
}

func (s *service) BuildSwap(ctx context.Context, req *aggregator.SwapRequest) (*aggregator.SwapTxResponse, error) {
	if req.Src == "" || req.Dst == "" {
		return nil, errors.New("token addresses required")
	}
	if req.Src == req.Dst {
		return nil, errors.New("cannot swap same token")
	}
	if req.Amount.IsZero() || req.Amount.IsNegative() {
		return nil, errors.New("amount must be positive")
	}
	if !common.IsHexAddress(req.FromAddress) {
		return nil, errors.New("invalid wallet address")
	}
	if req.Slippage.IsZero() {
		req.Slippage = decimal.NewFromFloat(0.5)
	}
	return s.upstream.BuildSwap(ctx, req)
}

func (s *service) GetCrossChainQuote(ctx context.Context, req *aggregator.CrossChainQuoteRequest) (*aggregator.CrossChainQuoteResponse, error) {
	if req.SrcChainID == req.DstChainID {
		return nil, errors.New("source and destination chain must differ")
	}
	if req.Amount.IsZero() || req.Amount.IsNegative() {
		return nil, errors.New("amount must be positive")
	}
	if req.Wallet != "" && !common.IsHexAddress(req.Wallet) {
		return nil, errors.New("invalid wallet address")
	}
	return s.upstream.GetCrossChainQuote(ctx, req)
}

func (s *service) ListTokens(ctx context.Context, chainID int) ([]aggregator.TokenInfo, error) {
	if chainID <= 0 {
		return nil, errors.New("chain id required")
	}
	return s.upstream.GetTokens(ctx, chainID)
}
