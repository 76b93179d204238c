package stream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swapdeck/internal/ws"
)

// channelServer is a scriptable test endpoint. It records every frame
// a manager sends and lets tests push frames back.
type channelServer struct {
	srv      *httptest.Server
	upgrades int32

	mu       sync.Mutex
	conns    []*websocket.Conn
	received []ws.Envelope
}

func newChannelServer(t *testing.T) *channelServer {
	t.Helper()
	cs := &channelServer{}
	upgrader := websocket.Upgrader{}

	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		atomic.AddInt32(&cs.upgrades, 1)
		cs.mu.Lock()
		cs.conns = append(cs.conns, conn)
		cs.mu.Unlock()

		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env ws.Envelope
			if json.Unmarshal(message, &env) == nil {
				cs.mu.Lock()
				cs.received = append(cs.received, env)
				cs.mu.Unlock()
			}
		}
	}))
	t.Cleanup(cs.srv.Close)
	return cs
}

func (cs *channelServer) wsURL() string {
	return "ws" + strings.TrimPrefix(cs.srv.URL, "http")
}

func (cs *channelServer) upgradeCount() int {
	return int(atomic.LoadInt32(&cs.upgrades))
}

func (cs *channelServer) push(t *testing.T, raw []byte) {
	t.Helper()
	cs.mu.Lock()
	defer cs.mu.Unlock()
	require.NotEmpty(t, cs.conns, "no connection to push to")
	conn := cs.conns[len(cs.conns)-1]
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
}

func (cs *channelServer) closeConns() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for _, conn := range cs.conns {
		conn.Close()
	}
	cs.conns = nil
}

func (cs *channelServer) lastReceived() (ws.Envelope, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if len(cs.received) == 0 {
		return ws.Envelope{}, false
	}
	return cs.received[len(cs.received)-1], true
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestDeriveURL(t *testing.T) {
	tests := []struct {
		name    string
		pageURL string
		want    string
	}{
		{"http page", "http://localhost:8080/dashboard", "ws://localhost:8080/ws"},
		{"https page", "https://app.example.com/trade?tab=swap", "wss://app.example.com/ws"},
		{"bare host", "http://10.0.0.5:9000", "ws://10.0.0.5:9000/ws"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveURL(tt.pageURL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextDelayDoublesAndCaps(t *testing.T) {
	mgr := NewManager(Options{URL: "ws://unused", ReconnectBase: time.Second})

	want := []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		32 * time.Second, // capped from attempt 5 on
		32 * time.Second,
	}
	for i, w := range want {
		assert.Equal(t, w, mgr.NextDelay(i+1), "attempt %d", i+1)
	}
}

func TestSendWhileDisconnectedReturnsFalse(t *testing.T) {
	mgr := NewManager(Options{URL: "ws://unused"})

	assert.False(t, mgr.Send(ws.MessageTypePing, struct{}{}))
	assert.False(t, mgr.Subscribe(ws.SubscribeFilter{Tokens: []string{"0xaaa"}}))
	assert.Equal(t, StatusDisconnected, mgr.Status())
}

func TestConnectIsSingleton(t *testing.T) {
	server := newChannelServer(t)
	mgr := NewManager(Options{URL: server.wsURL()})
	defer mgr.Disconnect()

	mgr.Connect()
	mgr.Connect()
	mgr.Connect()

	waitFor(t, mgr.IsConnected, "manager never connected")
	// Give any racing dial time to land before counting sockets.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, server.upgradeCount())

	mgr.Connect()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, server.upgradeCount(), "Connect on an open transport must be a no-op")
}

func TestSubscribeRoundTrip(t *testing.T) {
	server := newChannelServer(t)
	mgr := NewManager(Options{URL: server.wsURL()})
	defer mgr.Disconnect()

	mgr.Connect()
	waitFor(t, mgr.IsConnected, "manager never connected")

	require.True(t, mgr.Subscribe(ws.SubscribeFilter{
		UserID: "user-1",
		Tokens: []string{"0xaaa"},
	}))

	waitFor(t, func() bool {
		env, ok := server.lastReceived()
		return ok && env.Type == ws.MessageTypeSubscribe
	}, "server never received subscribe")

	env, _ := server.lastReceived()
	var filter ws.SubscribeFilter
	require.NoError(t, env.Decode(&filter))
	assert.Equal(t, "user-1", filter.UserID)
	assert.Equal(t, []string{"0xaaa"}, filter.Tokens)
}

func TestListenerReceivesEnvelopesAndSurvivesGarbage(t *testing.T) {
	server := newChannelServer(t)
	mgr := NewManager(Options{URL: server.wsURL()})
	defer mgr.Disconnect()

	var mu sync.Mutex
	var got []ws.Envelope
	remove := mgr.AddListener(func(env ws.Envelope) {
		mu.Lock()
		got = append(got, env)
		mu.Unlock()
	})

	mgr.Connect()
	waitFor(t, mgr.IsConnected, "manager never connected")

	server.push(t, []byte("{not json"))
	server.push(t, []byte(`{"type":"price_update","data":{"prices":{"0xaaa":"1.5"}},"timestamp":1}`))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, "listener never received the valid envelope")

	mu.Lock()
	assert.Equal(t, ws.MessageTypePriceUpdate, got[0].Type)
	mu.Unlock()

	// A removed listener stops receiving.
	remove()
	server.push(t, []byte(`{"type":"heartbeat","timestamp":2}`))
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	assert.Len(t, got, 1)
	mu.Unlock()
}

func TestUnknownTypesPassThroughToListeners(t *testing.T) {
	server := newChannelServer(t)
	mgr := NewManager(Options{URL: server.wsURL()})
	defer mgr.Disconnect()

	envCh := make(chan ws.Envelope, 1)
	mgr.AddListener(func(env ws.Envelope) {
		select {
		case envCh <- env:
		default:
		}
	})

	mgr.Connect()
	waitFor(t, mgr.IsConnected, "manager never connected")

	server.push(t, []byte(`{"type":"exotic_future_thing","data":{"x":1},"timestamp":3}`))

	select {
	case env := <-envCh:
		assert.Equal(t, ws.MessageType("exotic_future_thing"), env.Type)
		assert.JSONEq(t, `{"x":1}`, string(env.Data))
	case <-time.After(5 * time.Second):
		t.Fatal("unknown-type envelope was not dispatched")
	}
}

func TestReconnectAfterServerClose(t *testing.T) {
	server := newChannelServer(t)
	mgr := NewManager(Options{
		URL:           server.wsURL(),
		Reconnect:     true,
		ReconnectBase: 10 * time.Millisecond,
	})
	defer mgr.Disconnect()

	var mu sync.Mutex
	var transitions []Status
	mgr.AddStatusListener(func(s Status) {
		mu.Lock()
		transitions = append(transitions, s)
		mu.Unlock()
	})

	mgr.Connect()
	waitFor(t, mgr.IsConnected, "manager never connected")

	server.closeConns()
	waitFor(t, func() bool {
		return mgr.IsConnected() && server.upgradeCount() == 2
	}, "manager never reconnected")

	assert.Equal(t, 0, mgr.Attempts(), "attempt counter resets on success")

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, transitions, StatusDisconnected)
	assert.Contains(t, transitions, StatusConnecting)
	assert.Contains(t, transitions, StatusConnected)
}

func TestDisconnectStopsReconnect(t *testing.T) {
	server := newChannelServer(t)
	mgr := NewManager(Options{
		URL:           server.wsURL(),
		Reconnect:     true,
		ReconnectBase: 10 * time.Millisecond,
	})

	mgr.Connect()
	waitFor(t, mgr.IsConnected, "manager never connected")

	mgr.Disconnect()
	mgr.Disconnect() // idempotent

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, StatusDisconnected, mgr.Status())
	assert.Equal(t, 1, server.upgradeCount(), "no reconnect after explicit disconnect")
	assert.Equal(t, 0, mgr.Attempts())
}

func TestReconnectGivesUpAfterMaxAttempts(t *testing.T) {
	// Point at a server that refuses the upgrade so every dial fails.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusForbidden)
	}))
	defer srv.Close()

	mgr := NewManager(Options{
		URL:           "ws" + strings.TrimPrefix(srv.URL, "http"),
		Reconnect:     true,
		ReconnectBase: time.Millisecond,
		MaxAttempts:   3,
	})
	defer mgr.Disconnect()

	mgr.Connect()
	waitFor(t, func() bool { return mgr.Attempts() == 3 }, "attempts never reached the cap")

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 3, mgr.Attempts(), "no attempts beyond the cap")
	assert.False(t, mgr.IsConnected())
}
