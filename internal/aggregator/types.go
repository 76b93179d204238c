package aggregator

import (
	"github.com/shopspring/decimal"
)

// TokenInfo describes a token as reported by the aggregator.
type TokenInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
	LogoURI  string `json:"logoURI,omitempty"`
}

// QuoteRequest is a classic same-chain swap quote request.
type QuoteRequest struct {
	ChainID  int             `json:"chain_id"`
	Src      string          `json:"src"`
	Dst      string          `json:"dst"`
	Amount   decimal.Decimal `json:"amount"`
	Slippage decimal.Decimal `json:"slippage,omitempty"`
}

// QuoteResponse is the aggregator's answer to a quote request.
type QuoteResponse struct {
	DstAmount   decimal.Decimal `json:"dstAmount"`
	SrcToken    TokenInfo       `json:"srcToken"`
	DstToken    TokenInfo       `json:"dstToken"`
	Gas         uint64          `json:"gas,omitempty"`
	Protocols   []string        `json:"protocols,omitempty"`
	PriceImpact decimal.Decimal `json:"priceImpact,omitempty"`
}

// SwapRequest asks the aggregator for an executable swap transaction.
type SwapRequest struct {
	ChainID     int             `json:"chain_id"`
	Src         string          `json:"src"`
	Dst         string          `json:"dst"`
	Amount      decimal.Decimal `json:"amount"`
	FromAddress string          `json:"from"`
	Slippage    decimal.Decimal `json:"slippage"`
}

// SwapTxResponse carries the unsigned transaction data the wallet
// will sign and submit.
type SwapTxResponse struct {
	DstAmount decimal.Decimal `json:"dstAmount"`
	Tx        SwapTx          `json:"tx"`
}

// SwapTx is the raw transaction payload returned by the aggregator.
type SwapTx struct {
	From     string          `json:"from"`
	To       string          `json:"to"`
	Data     string          `json:"data"`
	Value    decimal.Decimal `json:"value"`
	Gas      uint64          `json:"gas"`
	GasPrice decimal.Decimal `json:"gasPrice"`
}

// CrossChainQuoteRequest is a Fusion-style cross-chain quote request.
type CrossChainQuoteRequest struct {
	SrcChainID int             `json:"srcChain"`
	DstChainID int             `json:"dstChain"`
	SrcToken   string          `json:"srcTokenAddress"`
	DstToken   string          `json:"dstTokenAddress"`
	Amount     decimal.Decimal `json:"amount"`
	Wallet     string          `json:"walletAddress"`
}

// CrossChainQuoteResponse is the aggregator's cross-chain quote.
type CrossChainQuoteResponse struct {
	QuoteID       string          `json:"quoteId"`
	SrcAmount     decimal.Decimal `json:"srcTokenAmount"`
	DstAmount     decimal.Decimal `json:"dstTokenAmount"`
	EstimatedTime int             `json:"estimatedTime,omitempty"`
}

// GasPrice is an EIP-1559 style gas price report for one chain.
type GasPrice struct {
	ChainID  int             `json:"chain_id"`
	Baseline decimal.Decimal `json:"baseFee"`
	Low      decimal.Decimal `json:"low"`
	Medium   decimal.Decimal `json:"medium"`
	High     decimal.Decimal `json:"high"`
	Instant  decimal.Decimal `json:"instant"`
}

// Balance is one token balance for a wallet.
type Balance struct {
	Token    string          `json:"token"`
	Amount   decimal.Decimal `json:"amount"`
	ValueUSD decimal.Decimal `json:"value_usd,omitempty"`
}

// HistoryEvent is one entry of a wallet's transaction history.
type HistoryEvent struct {
	TxHash    string          `json:"txHash"`
	Type      string          `json:"type"`
	TokenIn   string          `json:"tokenIn,omitempty"`
	TokenOut  string          `json:"tokenOut,omitempty"`
	AmountIn  decimal.Decimal `json:"amountIn,omitempty"`
	AmountOut decimal.Decimal `json:"amountOut,omitempty"`
	Timestamp int64           `json:"timestamp"`
}
