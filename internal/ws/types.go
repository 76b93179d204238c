package ws

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"swapdeck/internal/aggregator"
)

// MessageType represents different types of channel messages
type MessageType string

const (
	MessageTypeSubscribe               MessageType = "subscribe"
	MessageTypeUnsubscribe             MessageType = "unsubscribe"
	MessageTypeSubscriptionConfirmed   MessageType = "subscription_confirmed"
	MessageTypeUnsubscriptionConfirmed MessageType = "unsubscription_confirmed"
	MessageTypeConnection              MessageType = "connection"
	MessageTypeInitialPrices           MessageType = "initial_prices"
	MessageTypePriceUpdate             MessageType = "price_update"
	MessageTypeGasUpdate               MessageType = "gas_update"
	MessageTypePortfolioUpdate         MessageType = "portfolio_update"
	MessageTypeStrategyUpdate          MessageType = "strategy_update"
	MessageTypeNotification            MessageType = "notification"
	MessageTypeHeartbeat               MessageType = "heartbeat"
	MessageTypePing                    MessageType = "ping"
	MessageTypePong                    MessageType = "pong"
	MessageTypeError                   MessageType = "error"
)

// Envelope is the wire format for every channel message. Data stays
// raw JSON until a typed decode at the consuming boundary, so unknown
// message types pass through the dispatcher uninterpreted.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// NewEnvelope constructs an envelope with the current timestamp,
// marshaling the payload. Envelopes are immutable once built.
func NewEnvelope(msgType MessageType, payload interface{}) (Envelope, error) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, err
		}
		data = b
	}
	return Envelope{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Encode serializes the envelope to a JSON text frame.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode unmarshals the envelope's payload into out.
func (e Envelope) Decode(out interface{}) error {
	if e.Data == nil {
		return nil
	}
	return json.Unmarshal(e.Data, out)
}

// SubscribeFilter is the payload of subscribe/unsubscribe messages.
// On subscribe, array fields are merged additively and scalar fields
// overwrite; on unsubscribe, only the listed array elements are
// removed and scalars are left alone.
type SubscribeFilter struct {
	UserID        string   `json:"userId,omitempty"`
	WalletAddress string   `json:"walletAddress,omitempty"`
	Tokens        []string `json:"tokens,omitempty"`
	Pairs         []string `json:"pairs,omitempty"`
}

// ConnectionPayload confirms a new connection to the client.
type ConnectionPayload struct {
	Status string `json:"status"`
}

// SubscriptionPayload echoes the connection's current subscription
// state after a subscribe or unsubscribe.
type SubscriptionPayload struct {
	UserID        string   `json:"userId,omitempty"`
	WalletAddress string   `json:"walletAddress,omitempty"`
	Tokens        []string `json:"tokens"`
	Pairs         []string `json:"pairs"`
}

// PricesPayload carries spot prices for initial_prices and
// price_update messages, filtered to the recipient's token set.
type PricesPayload struct {
	Prices map[string]decimal.Decimal `json:"prices"`
	Tokens []string                   `json:"tokens"`
}

// GasPayload carries a gas price report for gas_update messages.
type GasPayload struct {
	GasPrices aggregator.GasPrice `json:"gasPrices"`
	ChainID   int                 `json:"chainId"`
}

// HeartbeatPayload carries the server timestamp of a heartbeat or pong.
type HeartbeatPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// NotificationPayload is a user-targeted notification.
type NotificationPayload struct {
	Level   string `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// ErrorPayload reports a per-message failure back to the sender.
type ErrorPayload struct {
	Message string `json:"message"`
}

// HubStats represents fan-out hub statistics
type HubStats struct {
	TotalConnections   int       `json:"total_connections"`
	ActiveConnections  int       `json:"active_connections"`
	TotalSubscriptions int       `json:"total_subscriptions"`
	MessagesSent       int64     `json:"messages_sent"`
	MessagesReceived   int64     `json:"messages_received"`
	LastUpdate         time.Time `json:"last_update"`
}
