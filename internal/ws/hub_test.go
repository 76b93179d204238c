package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swapdeck/internal/aggregator"
	"swapdeck/internal/scheduler"
)

// fakePrices is a scriptable PriceSource
type fakePrices struct {
	mu      sync.Mutex
	prices  map[string]decimal.Decimal
	gas     *aggregator.GasPrice
	failFor map[string]bool
	calls   [][]string
}

func newFakePrices() *fakePrices {
	return &fakePrices{
		prices:  make(map[string]decimal.Decimal),
		failFor: make(map[string]bool),
		gas: &aggregator.GasPrice{
			ChainID: 1,
			Medium:  decimal.NewFromInt(30),
		},
	}
}

func (f *fakePrices) GetSpotPrices(ctx context.Context, chainID int, tokens []string) (map[string]decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, tokens)
	out := make(map[string]decimal.Decimal)
	for _, t := range tokens {
		if f.failFor[t] {
			return nil, errors.New("upstream unavailable")
		}
		if p, ok := f.prices[t]; ok {
			out[t] = p
		}
	}
	return out, nil
}

func (f *fakePrices) GetGasPrice(ctx context.Context, chainID int) (*aggregator.GasPrice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gas == nil {
		return nil, errors.New("upstream unavailable")
	}
	return f.gas, nil
}

// memSnapshot is an in-memory Snapshot
type memSnapshot struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
}

func newMemSnapshot() *memSnapshot {
	return &memSnapshot{prices: make(map[string]decimal.Decimal)}
}

func (m *memSnapshot) SetPrices(ctx context.Context, prices map[string]decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for t, p := range prices {
		m.prices[t] = p
	}
}

func (m *memSnapshot) GetPrices(ctx context.Context, tokens []string) map[string]decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]decimal.Decimal)
	for _, t := range tokens {
		if p, ok := m.prices[t]; ok {
			out[t] = p
		}
	}
	return out
}

func newTestHub(t *testing.T) (*Hub, *fakePrices, *memSnapshot, *scheduler.FakeClock) {
	t.Helper()
	prices := newFakePrices()
	snapshot := newMemSnapshot()
	clock := scheduler.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	hub := NewHub(prices, snapshot, clock, 1, 60*time.Second)
	return hub, prices, snapshot, clock
}

func addClient(t *testing.T, hub *Hub, id string) *Client {
	t.Helper()
	client := NewClient(nil, hub, id)
	hub.RegisterClient(client)

	env := nextEnvelope(t, client)
	require.Equal(t, MessageTypeConnection, env.Type)
	return client
}

// nextEnvelope pops one queued frame off the client's send buffer.
func nextEnvelope(t *testing.T, client *Client) Envelope {
	t.Helper()
	select {
	case data := <-client.Send:
		var env Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		return env
	default:
		t.Fatal("no envelope queued")
		return Envelope{}
	}
}

func noEnvelope(t *testing.T, client *Client) {
	t.Helper()
	select {
	case data := <-client.Send:
		t.Fatalf("unexpected envelope queued: %s", data)
	default:
	}
}

func TestRegisterClientConfirmsConnection(t *testing.T) {
	hub, _, _, _ := newTestHub(t)
	client := NewClient(nil, hub, "c1")
	hub.RegisterClient(client)

	env := nextEnvelope(t, client)
	assert.Equal(t, MessageTypeConnection, env.Type)

	var payload ConnectionPayload
	require.NoError(t, env.Decode(&payload))
	assert.Equal(t, "connected", payload.Status)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestSubscribeMergesAdditively(t *testing.T) {
	hub, _, _, _ := newTestHub(t)
	client := addClient(t, hub, "c1")

	hub.HandleSubscribe(client, SubscribeFilter{
		UserID: "user-1",
		Tokens: []string{"0xaaa", "0xbbb"},
		Pairs:  []string{"ETH/USDC"},
	})
	env := nextEnvelope(t, client)
	require.Equal(t, MessageTypeSubscriptionConfirmed, env.Type)

	// Second subscribe adds tokens and overwrites the wallet without
	// dropping anything already subscribed.
	hub.HandleSubscribe(client, SubscribeFilter{
		WalletAddress: "0x1111111111111111111111111111111111111111",
		Tokens:        []string{"0xbbb", "0xccc"},
	})
	env = nextEnvelope(t, client)
	require.Equal(t, MessageTypeSubscriptionConfirmed, env.Type)

	var payload SubscriptionPayload
	require.NoError(t, env.Decode(&payload))
	assert.Equal(t, "user-1", payload.UserID)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", payload.WalletAddress)
	assert.ElementsMatch(t, []string{"0xaaa", "0xbbb", "0xccc"}, payload.Tokens)
	assert.ElementsMatch(t, []string{"ETH/USDC"}, payload.Pairs)
}

func TestUnsubscribeRemovesOnlyListedElements(t *testing.T) {
	hub, _, _, _ := newTestHub(t)
	client := addClient(t, hub, "c1")

	hub.HandleSubscribe(client, SubscribeFilter{
		UserID: "user-1",
		Tokens: []string{"0xaaa", "0xbbb"},
		Pairs:  []string{"ETH/USDC", "BTC/USDC"},
	})
	nextEnvelope(t, client)

	hub.HandleUnsubscribe(client, SubscribeFilter{
		Tokens: []string{"0xaaa", "0xmissing"},
		Pairs:  []string{"ETH/USDC"},
	})
	env := nextEnvelope(t, client)
	require.Equal(t, MessageTypeUnsubscriptionConfirmed, env.Type)

	var payload SubscriptionPayload
	require.NoError(t, env.Decode(&payload))
	assert.Equal(t, "user-1", payload.UserID, "scalar fields survive unsubscribe")
	assert.ElementsMatch(t, []string{"0xbbb"}, payload.Tokens)
	assert.ElementsMatch(t, []string{"BTC/USDC"}, payload.Pairs)
}

func TestSubscribePushesSnapshotForNewTokens(t *testing.T) {
	hub, _, snapshot, _ := newTestHub(t)
	snapshot.SetPrices(context.Background(), map[string]decimal.Decimal{
		"0xaaa": decimal.NewFromFloat(1.5),
	})

	client := addClient(t, hub, "c1")
	hub.HandleSubscribe(client, SubscribeFilter{Tokens: []string{"0xaaa", "0xnew"}})

	env := nextEnvelope(t, client)
	require.Equal(t, MessageTypeSubscriptionConfirmed, env.Type)

	env = nextEnvelope(t, client)
	require.Equal(t, MessageTypeInitialPrices, env.Type)

	var payload PricesPayload
	require.NoError(t, env.Decode(&payload))
	assert.True(t, payload.Prices["0xaaa"].Equal(decimal.NewFromFloat(1.5)))
	assert.NotContains(t, payload.Prices, "0xnew", "unknown tokens are omitted, not zeroed")

	// Re-subscribing the same token adds nothing, so no snapshot push.
	hub.HandleSubscribe(client, SubscribeFilter{Tokens: []string{"0xaaa"}})
	env = nextEnvelope(t, client)
	require.Equal(t, MessageTypeSubscriptionConfirmed, env.Type)
	noEnvelope(t, client)
}

func TestPollPricesSendsOnlySubscribedTokens(t *testing.T) {
	hub, prices, _, _ := newTestHub(t)
	prices.prices["0xaaa"] = decimal.NewFromInt(100)
	prices.prices["0xbbb"] = decimal.NewFromInt(200)

	alice := addClient(t, hub, "alice")
	bob := addClient(t, hub, "bob")
	idle := addClient(t, hub, "idle")

	hub.HandleSubscribe(alice, SubscribeFilter{Tokens: []string{"0xaaa"}})
	nextEnvelope(t, alice)
	hub.HandleSubscribe(bob, SubscribeFilter{Tokens: []string{"0xaaa", "0xbbb"}})
	nextEnvelope(t, bob)

	hub.PollPrices(context.Background())

	env := nextEnvelope(t, alice)
	require.Equal(t, MessageTypePriceUpdate, env.Type)
	var payload PricesPayload
	require.NoError(t, env.Decode(&payload))
	assert.Len(t, payload.Prices, 1)
	assert.True(t, payload.Prices["0xaaa"].Equal(decimal.NewFromInt(100)))

	env = nextEnvelope(t, bob)
	require.Equal(t, MessageTypePriceUpdate, env.Type)
	require.NoError(t, env.Decode(&payload))
	assert.Len(t, payload.Prices, 2)

	noEnvelope(t, idle)
}

func TestPollPricesBatchesRequests(t *testing.T) {
	hub, prices, _, _ := newTestHub(t)

	tokens := make([]string, 0, 23)
	for i := 0; i < 23; i++ {
		token := "0xtok" + string(rune('a'+i))
		tokens = append(tokens, token)
		prices.prices[token] = decimal.NewFromInt(int64(i))
	}

	client := addClient(t, hub, "c1")
	hub.HandleSubscribe(client, SubscribeFilter{Tokens: tokens})
	nextEnvelope(t, client)

	hub.PollPrices(context.Background())

	prices.mu.Lock()
	defer prices.mu.Unlock()
	require.Len(t, prices.calls, 3)
	for _, call := range prices.calls {
		assert.LessOrEqual(t, len(call), 10)
	}
}

func TestPollPricesBatchFailureIsIsolated(t *testing.T) {
	hub, prices, snapshot, _ := newTestHub(t)

	tokens := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		token := "0xtok" + string(rune('a'+i))
		tokens = append(tokens, token)
		prices.prices[token] = decimal.NewFromInt(int64(i + 1))
	}

	client := addClient(t, hub, "c1")
	hub.HandleSubscribe(client, SubscribeFilter{Tokens: tokens})
	nextEnvelope(t, client)

	// Poison one token; whichever batch it lands in fails, and the
	// cycle must still deliver the other batches.
	prices.mu.Lock()
	poisoned := tokens[0]
	prices.failFor[poisoned] = true
	prices.mu.Unlock()

	hub.PollPrices(context.Background())

	received := make(map[string]decimal.Decimal)
	for {
		select {
		case data := <-client.Send:
			var env Envelope
			require.NoError(t, json.Unmarshal(data, &env))
			require.Equal(t, MessageTypePriceUpdate, env.Type)
			var payload PricesPayload
			require.NoError(t, env.Decode(&payload))
			for tok, p := range payload.Prices {
				received[tok] = p
			}
			continue
		default:
		}
		break
	}

	assert.NotContains(t, received, poisoned)
	assert.NotEmpty(t, snapshot.GetPrices(context.Background(), tokens))
}

func TestPollGasBroadcastsToAll(t *testing.T) {
	hub, _, _, _ := newTestHub(t)
	alice := addClient(t, hub, "alice")
	bob := addClient(t, hub, "bob")

	hub.PollGas(context.Background())

	for _, client := range []*Client{alice, bob} {
		env := nextEnvelope(t, client)
		require.Equal(t, MessageTypeGasUpdate, env.Type)

		var payload GasPayload
		require.NoError(t, env.Decode(&payload))
		assert.Equal(t, 1, payload.ChainID)
		assert.True(t, payload.GasPrices.Medium.Equal(decimal.NewFromInt(30)))
	}
}

func TestSweepStalePurgesSilentClients(t *testing.T) {
	hub, _, _, clock := newTestHub(t)
	quiet := addClient(t, hub, "quiet")
	chatty := addClient(t, hub, "chatty")

	clock.Advance(45 * time.Second)
	hub.HandlePing(chatty)
	env := nextEnvelope(t, chatty)
	require.Equal(t, MessageTypePong, env.Type)

	clock.Advance(30 * time.Second)
	hub.SweepStale()

	assert.Equal(t, 1, hub.ClientCount())
	assert.True(t, quiet.Closed())
	assert.False(t, chatty.Closed())

	env = nextEnvelope(t, chatty)
	assert.Equal(t, MessageTypeHeartbeat, env.Type)
}

func TestTargetedPushReachesOnlyMatchingUser(t *testing.T) {
	hub, _, _, _ := newTestHub(t)
	alice := addClient(t, hub, "alice")
	aliceTab := addClient(t, hub, "alice-tab2")
	bob := addClient(t, hub, "bob")

	hub.HandleSubscribe(alice, SubscribeFilter{UserID: "user-a"})
	nextEnvelope(t, alice)
	hub.HandleSubscribe(aliceTab, SubscribeFilter{UserID: "user-a"})
	nextEnvelope(t, aliceTab)
	hub.HandleSubscribe(bob, SubscribeFilter{UserID: "user-b"})
	nextEnvelope(t, bob)

	hub.SendNotification("user-a", NotificationPayload{
		Level:   "info",
		Title:   "Order filled",
		Message: "limit order executed",
	})

	for _, client := range []*Client{alice, aliceTab} {
		env := nextEnvelope(t, client)
		require.Equal(t, MessageTypeNotification, env.Type)

		var payload NotificationPayload
		require.NoError(t, env.Decode(&payload))
		assert.Equal(t, "Order filled", payload.Title)
	}
	noEnvelope(t, bob)

	// An empty user ID must never broadcast.
	hub.SendNotification("", NotificationPayload{Title: "nope"})
	noEnvelope(t, alice)
	noEnvelope(t, bob)
}

func TestFullSendBufferEvictsClient(t *testing.T) {
	hub, _, _, _ := newTestHub(t)
	client := addClient(t, hub, "c1")

	// Saturate the send buffer so the next hub write cannot enqueue.
	for i := 0; i < cap(client.Send); i++ {
		require.True(t, client.Enqueue([]byte("{}")))
	}

	hub.HandlePing(client)
	assert.Equal(t, 0, hub.ClientCount())
	assert.True(t, client.Closed())
}

func TestStatsTrackSubscriptions(t *testing.T) {
	hub, _, _, _ := newTestHub(t)
	client := addClient(t, hub, "c1")

	hub.HandleSubscribe(client, SubscribeFilter{
		Tokens: []string{"0xaaa", "0xbbb"},
		Pairs:  []string{"ETH/USDC"},
	})
	nextEnvelope(t, client)

	stats := hub.GetStats()
	assert.Equal(t, 1, stats.TotalConnections)
	assert.Equal(t, 1, stats.ActiveConnections)
	assert.Equal(t, 3, stats.TotalSubscriptions)
	assert.Greater(t, stats.MessagesSent, int64(0))

	hub.UnregisterClient(client)
	stats = hub.GetStats()
	assert.Equal(t, 0, stats.ActiveConnections)
	assert.Equal(t, 0, stats.TotalSubscriptions)
}
