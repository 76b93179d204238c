package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Client is a stateless request/response wrapper around the
// third-party DEX aggregation REST API. Every call is a plain HTTP
// round trip; failures surface as errors to the caller and are never
// retried here.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates an aggregator client for the given base URL.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// GetTokens returns the aggregator's token list for one chain.
func (c *Client) GetTokens(ctx context.Context, chainID int) ([]TokenInfo, error) {
	var resp struct {
		Tokens map[string]TokenInfo `json:"tokens"`
	}
	path := fmt.Sprintf("/swap/v6.0/%d/tokens", chainID)
	if err := c.getJSON(ctx, path, nil, &resp); err != nil {
		return nil, err
	}

	tokens := make([]TokenInfo, 0, len(resp.Tokens))
	for _, t := range resp.Tokens {
		tokens = append(tokens, t)
	}
	return tokens, nil
}

// GetQuote fetches a same-chain swap quote.
func (c *Client) GetQuote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error) {
	params := url.Values{}
	params.Set("src", req.Src)
	params.Set("dst", req.Dst)
	params.Set("amount", req.Amount.String())

	var resp QuoteResponse
	path := fmt.Sprintf("/swap/v6.0/%d/quote", req.ChainID)
	if err := c.getJSON(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BuildSwap fetches an executable swap transaction for the wallet to sign.
func (c *Client) BuildSwap(ctx context.Context, req *SwapRequest) (*SwapTxResponse, error) {
	params := url.Values{}
	params.Set("src", req.Src)
	params.Set("dst", req.Dst)
	params.Set("amount", req.Amount.String())
	params.Set("from", req.FromAddress)
	params.Set("slippage", req.Slippage.String())

	var resp SwapTxResponse
	path := fmt.Sprintf("/swap/v6.0/%d/swap", req.ChainID)
	if err := c.getJSON(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetCrossChainQuote fetches a Fusion-style cross-chain quote.
func (c *Client) GetCrossChainQuote(ctx context.Context, req *CrossChainQuoteRequest) (*CrossChainQuoteResponse, error) {
	params := url.Values{}
	params.Set("srcChain", fmt.Sprintf("%d", req.SrcChainID))
	params.Set("dstChain", fmt.Sprintf("%d", req.DstChainID))
	params.Set("srcTokenAddress", req.SrcToken)
	params.Set("dstTokenAddress", req.DstToken)
	params.Set("amount", req.Amount.String())
	params.Set("walletAddress", req.Wallet)

	var resp CrossChainQuoteResponse
	if err := c.getJSON(ctx, "/fusion-plus/quoter/v1.0/quote/receive", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSpotPrices returns USD spot prices for the given token symbols.
func (c *Client) GetSpotPrices(ctx context.Context, chainID int, tokens []string) (map[string]decimal.Decimal, error) {
	if len(tokens) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	params := url.Values{}
	params.Set("tokens", strings.Join(tokens, ","))
	params.Set("currency", "USD")

	prices := make(map[string]decimal.Decimal)
	path := fmt.Sprintf("/price/v1.1/%d", chainID)
	if err := c.getJSON(ctx, path, params, &prices); err != nil {
		return nil, err
	}
	return prices, nil
}

// GetGasPrice returns the current gas price tiers for one chain.
func (c *Client) GetGasPrice(ctx context.Context, chainID int) (*GasPrice, error) {
	var resp GasPrice
	path := fmt.Sprintf("/gas-price/v1.5/%d", chainID)
	if err := c.getJSON(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	resp.ChainID = chainID
	return &resp, nil
}

// GetBalances returns token balances for a wallet address.
func (c *Client) GetBalances(ctx context.Context, chainID int, wallet string) ([]Balance, error) {
	raw := make(map[string]decimal.Decimal)
	path := fmt.Sprintf("/balance/v1.2/%d/balances/%s", chainID, wallet)
	if err := c.getJSON(ctx, path, nil, &raw); err != nil {
		return nil, err
	}

	balances := make([]Balance, 0, len(raw))
	for token, amount := range raw {
		if amount.IsZero() {
			continue
		}
		balances = append(balances, Balance{Token: token, Amount: amount})
	}
	return balances, nil
}

// GetHistory returns recent transaction history for a wallet address.
func (c *Client) GetHistory(ctx context.Context, chainID int, wallet string, limit int) ([]HistoryEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	params := url.Values{}
	params.Set("chainId", fmt.Sprintf("%d", chainID))
	params.Set("limit", fmt.Sprintf("%d", limit))

	var resp struct {
		Items []HistoryEvent `json:"items"`
	}
	path := fmt.Sprintf("/history/v2.0/history/%s/events", wallet)
	if err := c.getJSON(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// getJSON performs a GET request against the aggregator and decodes
// the JSON response into result.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, result interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("aggregator request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logrus.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"path":   path,
		}).Warn("Aggregator returned non-OK status")
		return fmt.Errorf("aggregator error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to parse aggregator response: %w", err)
	}
	return nil
}
