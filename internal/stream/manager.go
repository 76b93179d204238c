package stream

import (
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"

	"swapdeck/internal/ws"
)

// Listener receives every envelope the manager dispatches. Unknown
// message types are delivered uninterpreted.
type Listener func(ws.Envelope)

// StatusListener receives connection status transitions.
type StatusListener func(Status)

// Options configures a Manager.
type Options struct {
	// URL of the channel endpoint (ws:// or wss://). DeriveURL can
	// build it from the dashboard's page URL.
	URL string

	// Reconnect enables automatic reconnection with exponential
	// backoff after an unexpected close.
	Reconnect bool

	// ReconnectBase is the backoff base interval. Attempt n waits
	// base × 2^min(n,5). Defaults to one second.
	ReconnectBase time.Duration

	// MaxAttempts bounds automatic reconnects. After this many failed
	// attempts the manager stays disconnected until Connect is called
	// again. Defaults to 10.
	MaxAttempts int
}

// Manager owns the process's single channel transport. It is an
// explicit context object with a controlled lifecycle: construct one,
// inject it into every consumer, and the "exactly one live transport"
// invariant holds without hidden globals. Connect is a no-op while a
// transport is already connecting or open.
type Manager struct {
	opts Options

	mu        sync.Mutex
	conn      *websocket.Conn
	status    Status
	attempts  int
	retry     *time.Timer
	backoff   *backoff.Backoff
	gen       int // connection generation, guards stale read loops
	listeners map[int]Listener
	statusLs  map[int]StatusListener
	nextID    int
}

// NewManager creates a channel manager. It does not connect.
func NewManager(opts Options) *Manager {
	if opts.ReconnectBase <= 0 {
		opts.ReconnectBase = time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	return &Manager{
		opts:   opts,
		status: StatusDisconnected,
		backoff: &backoff.Backoff{
			Min:    opts.ReconnectBase * 2,
			Max:    opts.ReconnectBase * 32,
			Factor: 2,
		},
		listeners: make(map[int]Listener),
		statusLs:  make(map[int]StatusListener),
	}
}

// DeriveURL converts a dashboard page URL to the channel endpoint,
// upgrading http to ws and https to wss.
func DeriveURL(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	u.RawQuery = ""
	return u.String(), nil
}

// AddListener registers a message listener and returns a function
// that removes it. Multiple independent consumers may listen at once.
func (m *Manager) AddListener(l Listener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// AddStatusListener registers a status listener and returns a removal
// function. The listener fires on every status transition.
func (m *Manager) AddStatusListener(l StatusListener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.statusLs[id] = l
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.statusLs, id)
		m.mu.Unlock()
	}
}

// Status returns the current connection status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// IsConnected reports whether the transport is currently open.
func (m *Manager) IsConnected() bool {
	return m.Status().IsConnected()
}

// Connect opens the transport. It is a no-op when a transport already
// exists in connecting or open state, so two consumers calling
// Connect cannot race a second socket into existence.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.status == StatusConnecting || m.status == StatusConnected {
		m.mu.Unlock()
		return
	}
	m.setStatusLocked(StatusConnecting)
	gen := m.gen
	m.mu.Unlock()

	go m.dial(gen)
}

func (m *Manager) dial(gen int) {
	conn, _, err := websocket.DefaultDialer.Dial(m.opts.URL, nil)

	m.mu.Lock()
	if m.gen != gen || m.status != StatusConnecting {
		// Disconnect happened while dialing.
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		logrus.WithError(err).Warn("Channel connect failed")
		m.setStatusLocked(StatusError)
		m.scheduleReconnectLocked()
		m.mu.Unlock()
		return
	}

	m.conn = conn
	m.attempts = 0
	m.backoff.Reset()
	m.setStatusLocked(StatusConnected)
	m.mu.Unlock()

	go m.readLoop(conn, gen)
}

// readLoop dispatches incoming envelopes until the transport closes.
// Malformed JSON is logged and dropped; it never stops the loop.
func (m *Manager) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			m.handleClose(gen, err)
			return
		}

		env, err := decodeEnvelope(message)
		if err != nil {
			logrus.WithError(err).Debug("Dropping malformed channel message")
			continue
		}
		m.dispatch(env)
	}
}

func decodeEnvelope(message []byte) (ws.Envelope, error) {
	var env ws.Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		return ws.Envelope{}, err
	}
	return env, nil
}

// dispatch hands one envelope to every registered listener. A
// panicking listener is contained so dispatch continues.
func (m *Manager) dispatch(env ws.Envelope) {
	m.mu.Lock()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("panic", r).Error("Channel listener panicked")
				}
			}()
			l(env)
		}()
	}
}

func (m *Manager) handleClose(gen int, err error) {
	m.mu.Lock()
	if m.gen != gen {
		// A newer connection owns the manager now.
		m.mu.Unlock()
		return
	}

	m.conn = nil
	m.setStatusLocked(StatusDisconnected)
	logrus.WithError(err).Info("Channel transport closed")
	m.scheduleReconnectLocked()
	m.mu.Unlock()
}

// scheduleReconnectLocked arms the retry timer. Attempt n (1-indexed)
// waits base × 2^min(n,5); after MaxAttempts failures no further
// retry is scheduled and recovery requires another Connect call.
func (m *Manager) scheduleReconnectLocked() {
	if !m.opts.Reconnect {
		return
	}
	if m.attempts >= m.opts.MaxAttempts {
		logrus.WithField("attempts", m.attempts).Warn("Channel reconnect attempts exhausted")
		return
	}

	m.attempts++
	delay := m.backoff.ForAttempt(float64(m.attempts - 1))
	attempt := m.attempts
	gen := m.gen

	logrus.WithFields(logrus.Fields{
		"attempt": attempt,
		"delay":   delay,
	}).Info("Scheduling channel reconnect")

	m.retry = time.AfterFunc(delay, func() {
		m.mu.Lock()
		if m.gen != gen || m.status == StatusConnected || m.status == StatusConnecting {
			m.mu.Unlock()
			return
		}
		m.setStatusLocked(StatusConnecting)
		m.mu.Unlock()
		m.dial(gen)
	})
}

// NextDelay reports the wait the manager would use for the given
// 1-indexed attempt number.
func (m *Manager) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return m.backoff.ForAttempt(float64(attempt - 1))
}

// Attempts returns the current reconnect attempt counter.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Send wraps the payload in an envelope and transmits it. Returns
// true only when the transport is open and the write succeeds; it
// never panics.
func (m *Manager) Send(msgType ws.MessageType, payload interface{}) bool {
	m.mu.Lock()
	conn := m.conn
	open := m.status == StatusConnected
	m.mu.Unlock()

	if !open || conn == nil {
		return false
	}

	env, err := ws.NewEnvelope(msgType, payload)
	if err != nil {
		logrus.WithError(err).Warn("Failed to build channel envelope")
		return false
	}
	data, err := env.Encode()
	if err != nil {
		return false
	}

	// gorilla permits one concurrent writer; serialize under the lock.
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != conn {
		return false
	}
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logrus.WithError(err).Warn("Channel send failed")
		return false
	}
	return true
}

// Subscribe sends a subscribe message with the given filter.
func (m *Manager) Subscribe(filter ws.SubscribeFilter) bool {
	return m.Send(ws.MessageTypeSubscribe, filter)
}

// Unsubscribe sends an unsubscribe message with the given filter.
func (m *Manager) Unsubscribe(filter ws.SubscribeFilter) bool {
	return m.Send(ws.MessageTypeUnsubscribe, filter)
}

// Ping sends a liveness ping.
func (m *Manager) Ping() bool {
	return m.Send(ws.MessageTypePing, struct{}{})
}

// Disconnect cancels any pending reconnect, closes the transport and
// resets the attempt counter. Idempotent.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gen++ // invalidate in-flight dials, read loops and retry timers
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	if m.conn != nil {
		m.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		m.conn.Close()
		m.conn = nil
	}
	m.attempts = 0
	m.backoff.Reset()
	if m.status != StatusDisconnected {
		m.setStatusLocked(StatusDisconnected)
	}
}

// setStatusLocked updates status and notifies listeners. Callers hold
// the mutex; notification is deferred to a goroutine so listeners can
// call back into the manager.
func (m *Manager) setStatusLocked(s Status) {
	if m.status == s {
		return
	}
	m.status = s

	listeners := make([]StatusListener, 0, len(m.statusLs))
	for _, l := range m.statusLs {
		listeners = append(listeners, l)
	}
	go func() {
		for _, l := range listeners {
			l(s)
		}
	}()
}
