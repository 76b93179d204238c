package ws

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"swapdeck/internal/aggregator"
	"swapdeck/internal/metrics"
	"swapdeck/internal/scheduler"
)

// maxPriceBatch caps tokens per upstream price request to respect the
// aggregator's rate limits.
const maxPriceBatch = 10

// PriceSource is the slice of the upstream aggregator the hub polls.
type PriceSource interface {
	GetSpotPrices(ctx context.Context, chainID int, tokens []string) (map[string]decimal.Decimal, error)
	GetGasPrice(ctx context.Context, chainID int) (*aggregator.GasPrice, error)
}

// Snapshot holds last known prices so new subscribers get data before
// the next poll tick.
type Snapshot interface {
	SetPrices(ctx context.Context, prices map[string]decimal.Decimal)
	GetPrices(ctx context.Context, tokens []string) map[string]decimal.Decimal
}

// Subscription is one connection's filter set. It is owned exclusively
// by the hub, created empty on connect and deleted on disconnect.
type Subscription struct {
	UserID        string
	WalletAddress string
	Tokens        map[string]bool
	Pairs         map[string]bool
	LastPing      time.Time
}

func newSubscription(now time.Time) *Subscription {
	return &Subscription{
		Tokens:   make(map[string]bool),
		Pairs:    make(map[string]bool),
		LastPing: now,
	}
}

func (s *Subscription) tokenList() []string {
	tokens := make([]string, 0, len(s.Tokens))
	for t := range s.Tokens {
		tokens = append(tokens, t)
	}
	return tokens
}

func (s *Subscription) pairList() []string {
	pairs := make([]string, 0, len(s.Pairs))
	for p := range s.Pairs {
		pairs = append(pairs, p)
	}
	return pairs
}

// Hub accepts transport connections, tracks each connection's
// subscription filters, polls upstream data and fans updates out to
// matching subscribers.
type Hub struct {
	ChainID    int
	StaleAfter time.Duration

	prices   PriceSource
	snapshot Snapshot
	clock    scheduler.Clock

	clients map[*Client]*Subscription
	mu      sync.RWMutex

	stats    HubStats
	stopOnce sync.Once
}

// NewHub creates a fan-out hub polling the given price source.
func NewHub(prices PriceSource, snapshot Snapshot, clock scheduler.Clock, chainID int, staleAfter time.Duration) *Hub {
	if clock == nil {
		clock = scheduler.RealClock{}
	}
	if staleAfter <= 0 {
		staleAfter = 60 * time.Second
	}
	return &Hub{
		ChainID:    chainID,
		StaleAfter: staleAfter,
		prices:     prices,
		snapshot:   snapshot,
		clock:      clock,
		clients:    make(map[*Client]*Subscription),
	}
}

// RegisterClient adds a connection with an empty subscription record
// and confirms the connection to the client.
func (h *Hub) RegisterClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = newSubscription(h.clock.Now())
	h.stats.TotalConnections++
	h.stats.ActiveConnections++
	h.stats.LastUpdate = h.clock.Now()
	active := h.stats.ActiveConnections
	h.mu.Unlock()

	metrics.ActiveConnections.Inc()
	logrus.WithFields(logrus.Fields{
		"client": client.ID,
		"active": active,
	}).Info("Channel client connected")

	h.sendTo(client, MessageTypeConnection, ConnectionPayload{Status: "connected"})
}

// UnregisterClient removes a connection and its subscription record.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		h.stats.ActiveConnections--
		h.stats.LastUpdate = h.clock.Now()
	}
	active := h.stats.ActiveConnections
	h.mu.Unlock()

	if ok {
		client.Close()
		metrics.ActiveConnections.Dec()
		logrus.WithFields(logrus.Fields{
			"client": client.ID,
			"active": active,
		}).Info("Channel client disconnected")
	}
}

// HandleSubscribe merges the filter into the connection's subscription
// record: additive union for tokens/pairs, overwrite for scalars. A
// snapshot of known prices for any newly added tokens is pushed
// immediately so the subscriber does not wait for the next poll tick.
func (h *Hub) HandleSubscribe(client *Client, filter SubscribeFilter) {
	h.mu.Lock()
	sub, ok := h.clients[client]
	if !ok {
		h.mu.Unlock()
		return
	}

	if filter.UserID != "" {
		sub.UserID = filter.UserID
	}
	if filter.WalletAddress != "" {
		sub.WalletAddress = filter.WalletAddress
	}

	var added []string
	for _, token := range filter.Tokens {
		if !sub.Tokens[token] {
			sub.Tokens[token] = true
			added = append(added, token)
		}
	}
	for _, pair := range filter.Pairs {
		sub.Pairs[pair] = true
	}

	confirm := SubscriptionPayload{
		UserID:        sub.UserID,
		WalletAddress: sub.WalletAddress,
		Tokens:        sub.tokenList(),
		Pairs:         sub.pairList(),
	}
	h.mu.Unlock()

	h.sendTo(client, MessageTypeSubscriptionConfirmed, confirm)

	if len(added) > 0 && h.snapshot != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		prices := h.snapshot.GetPrices(ctx, added)
		cancel()
		if len(prices) > 0 {
			h.sendTo(client, MessageTypeInitialPrices, PricesPayload{
				Prices: prices,
				Tokens: added,
			})
		}
	}
}

// HandleUnsubscribe removes the listed elements from the connection's
// array filters. Scalar fields are not clearable here; only a later
// subscribe can replace them.
func (h *Hub) HandleUnsubscribe(client *Client, filter SubscribeFilter) {
	h.mu.Lock()
	sub, ok := h.clients[client]
	if !ok {
		h.mu.Unlock()
		return
	}

	for _, token := range filter.Tokens {
		delete(sub.Tokens, token)
	}
	for _, pair := range filter.Pairs {
		delete(sub.Pairs, pair)
	}

	confirm := SubscriptionPayload{
		UserID:        sub.UserID,
		WalletAddress: sub.WalletAddress,
		Tokens:        sub.tokenList(),
		Pairs:         sub.pairList(),
	}
	h.mu.Unlock()

	h.sendTo(client, MessageTypeUnsubscriptionConfirmed, confirm)
}

// HandlePing records liveness and replies with a pong.
func (h *Hub) HandlePing(client *Client) {
	h.touch(client)
	h.sendTo(client, MessageTypePong, HeartbeatPayload{Timestamp: h.clock.Now().UnixMilli()})
}

// touch refreshes a connection's last-ping timestamp.
func (h *Hub) touch(client *Client) {
	h.mu.Lock()
	if sub, ok := h.clients[client]; ok {
		sub.LastPing = h.clock.Now()
	}
	h.mu.Unlock()
}

// PollPrices collects the union of all subscribed tokens, fetches them
// from the aggregator in batches, and fans price updates out to the
// connections whose filter intersects each batch. A failing batch is
// logged and skipped; it never aborts the cycle for other batches.
func (h *Hub) PollPrices(ctx context.Context) {
	h.mu.RLock()
	union := make(map[string]bool)
	for _, sub := range h.clients {
		for token := range sub.Tokens {
			union[token] = true
		}
	}
	h.mu.RUnlock()

	if len(union) == 0 {
		return
	}

	tokens := make([]string, 0, len(union))
	for t := range union {
		tokens = append(tokens, t)
	}

	for start := 0; start < len(tokens); start += maxPriceBatch {
		end := start + maxPriceBatch
		if end > len(tokens) {
			end = len(tokens)
		}
		batch := tokens[start:end]

		prices, err := h.prices.GetSpotPrices(ctx, h.ChainID, batch)
		if err != nil {
			metrics.PollErrors.WithLabelValues("prices").Inc()
			logrus.WithError(err).WithField("batch", len(batch)).Warn("Price poll batch failed")
			continue
		}

		if h.snapshot != nil {
			h.snapshot.SetPrices(ctx, prices)
		}
		h.broadcastPrices(prices)
	}
}

// broadcastPrices sends each connection only the prices for tokens it
// subscribed to. Connections with no overlap receive nothing.
func (h *Hub) broadcastPrices(prices map[string]decimal.Decimal) {
	h.mu.RLock()
	targets := make(map[*Client]PricesPayload)
	for client, sub := range h.clients {
		filtered := make(map[string]decimal.Decimal)
		tokens := make([]string, 0)
		for token, price := range prices {
			if sub.Tokens[token] {
				filtered[token] = price
				tokens = append(tokens, token)
			}
		}
		if len(filtered) > 0 {
			targets[client] = PricesPayload{Prices: filtered, Tokens: tokens}
		}
	}
	h.mu.RUnlock()

	for client, payload := range targets {
		h.sendTo(client, MessageTypePriceUpdate, payload)
	}
}

// PollGas fetches the gas price once and broadcasts it to every
// connection; gas price is not per-subscription.
func (h *Hub) PollGas(ctx context.Context) {
	gas, err := h.prices.GetGasPrice(ctx, h.ChainID)
	if err != nil {
		metrics.PollErrors.WithLabelValues("gas").Inc()
		logrus.WithError(err).Warn("Gas poll failed")
		return
	}

	h.broadcast(MessageTypeGasUpdate, GasPayload{GasPrices: *gas, ChainID: h.ChainID})
}

// SweepStale sends a heartbeat to every open connection and
// force-closes any whose last ping is older than StaleAfter, so the
// registry cannot grow without bound when clients vanish without a
// clean close.
func (h *Hub) SweepStale() {
	now := h.clock.Now()

	h.mu.Lock()
	var stale []*Client
	live := make([]*Client, 0, len(h.clients))
	for client, sub := range h.clients {
		if now.Sub(sub.LastPing) > h.StaleAfter || client.Closed() {
			stale = append(stale, client)
			delete(h.clients, client)
			h.stats.ActiveConnections--
			continue
		}
		live = append(live, client)
	}
	h.stats.LastUpdate = now
	h.mu.Unlock()

	for _, client := range stale {
		metrics.ActiveConnections.Dec()
		logrus.WithField("client", client.ID).Warn("Purging stale channel client")
		client.Close()
	}

	hb := HeartbeatPayload{Timestamp: now.UnixMilli()}
	for _, client := range live {
		h.sendTo(client, MessageTypeHeartbeat, hb)
	}
}

// SendPortfolioUpdate pushes a portfolio update to every connection
// subscribed with the given user ID.
func (h *Hub) SendPortfolioUpdate(userID string, payload interface{}) {
	h.broadcastToUser(userID, MessageTypePortfolioUpdate, payload)
}

// SendStrategyUpdate pushes a strategy update to every connection
// subscribed with the given user ID.
func (h *Hub) SendStrategyUpdate(userID string, payload interface{}) {
	h.broadcastToUser(userID, MessageTypeStrategyUpdate, payload)
}

// SendNotification pushes a notification to every connection
// subscribed with the given user ID.
func (h *Hub) SendNotification(userID string, payload NotificationPayload) {
	h.broadcastToUser(userID, MessageTypeNotification, payload)
}

func (h *Hub) broadcastToUser(userID string, msgType MessageType, payload interface{}) {
	if userID == "" {
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0)
	for client, sub := range h.clients {
		if sub.UserID == userID {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		h.sendTo(client, msgType, payload)
	}
}

// broadcast sends one message to every registered connection.
func (h *Hub) broadcast(msgType MessageType, payload interface{}) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		h.sendTo(client, msgType, payload)
	}
}

// sendTo enqueues one envelope for one client. A client whose send
// buffer is full is treated as gone and purged; one slow or closing
// connection never fails a broadcast for the others.
func (h *Hub) sendTo(client *Client, msgType MessageType, payload interface{}) {
	env, err := NewEnvelope(msgType, payload)
	if err != nil {
		logrus.WithError(err).WithField("type", msgType).Error("Failed to build envelope")
		return
	}
	data, err := env.Encode()
	if err != nil {
		logrus.WithError(err).WithField("type", msgType).Error("Failed to encode envelope")
		return
	}

	if !client.Enqueue(data) {
		h.UnregisterClient(client)
		return
	}

	h.mu.Lock()
	h.stats.MessagesSent++
	h.stats.LastUpdate = h.clock.Now()
	h.mu.Unlock()
	metrics.MessagesSent.Inc()
}

// GetSubscription returns a copy of a connection's current filter set.
func (h *Hub) GetSubscription(client *Client) (SubscriptionPayload, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sub, ok := h.clients[client]
	if !ok {
		return SubscriptionPayload{}, false
	}
	return SubscriptionPayload{
		UserID:        sub.UserID,
		WalletAddress: sub.WalletAddress,
		Tokens:        sub.tokenList(),
		Pairs:         sub.pairList(),
	}, true
}

// GetStats returns current hub statistics.
func (h *Hub) GetStats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := h.stats
	stats.TotalSubscriptions = 0
	for _, sub := range h.clients {
		stats.TotalSubscriptions += len(sub.Tokens) + len(sub.Pairs)
	}
	return stats
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop closes every client connection. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		clients := make([]*Client, 0, len(h.clients))
		for client := range h.clients {
			clients = append(clients, client)
			delete(h.clients, client)
		}
		h.stats.ActiveConnections = 0
		h.mu.Unlock()

		for _, client := range clients {
			client.Close()
			metrics.ActiveConnections.Dec()
		}
	})
}
