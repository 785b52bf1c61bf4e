package signalsource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"signal-trade-lab/internal/domain"
)

// WSConfig configures live feed behavior.
type WSConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the backoff between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing control frames.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default live feed configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSFeed subscribes to the live signal stream over WebSocket. Decoded
// signals are delivered on a single channel; the feed reconnects with
// exponential backoff until closed.
type WSFeed struct {
	endpoint string
	apiKey   string
	config   WSConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	signals chan *domain.Signal
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewWSFeed connects to the live signal endpoint and starts reading.
func NewWSFeed(ctx context.Context, endpoint, apiKey string, config *WSConfig) (*WSFeed, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	f := &WSFeed{
		endpoint: endpoint,
		apiKey:   apiKey,
		config:   cfg,
		signals:  make(chan *domain.Signal, 256),
		done:     make(chan struct{}),
	}

	if err := f.connect(ctx); err != nil {
		return nil, err
	}

	f.wg.Add(1)
	go f.readLoop()

	f.wg.Add(1)
	go f.pingLoop()

	return f, nil
}

// Signals returns the channel of decoded live signals. The channel closes
// when the feed is closed.
func (f *WSFeed) Signals() <-chan *domain.Signal {
	return f.signals
}

// Close shuts the feed down and closes the signal channel.
func (f *WSFeed) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(f.done)

	f.connMu.Lock()
	if f.conn != nil {
		_ = f.conn.Close()
	}
	f.connMu.Unlock()

	f.wg.Wait()
	close(f.signals)
	return nil
}

// connect establishes the WebSocket connection.
func (f *WSFeed) connect(ctx context.Context) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	var header http.Header
	if f.apiKey != "" {
		header = http.Header{"X-API-Key": []string{f.apiKey}}
	}

	conn, _, err := dialer.DialContext(ctx, f.endpoint, header)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	f.conn = conn
	return nil
}

// readLoop reads messages, decodes signals, and reconnects on failure.
func (f *WSFeed) readLoop() {
	defer f.wg.Done()

	for {
		select {
		case <-f.done:
			return
		default:
		}

		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()
		if conn == nil {
			if !f.reconnect() {
				return
			}
			continue
		}

		_ = conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if f.closed.Load() {
				return
			}
			if !f.reconnect() {
				return
			}
			continue
		}

		var sig domain.Signal
		if err := json.Unmarshal(data, &sig); err != nil || sig.ID == "" {
			// Skip frames that are not signal events.
			continue
		}

		select {
		case f.signals <- &sig:
		case <-f.done:
			return
		}
	}
}

// pingLoop keeps the connection alive.
func (f *WSFeed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			conn := f.conn
			f.connMu.Unlock()
			if conn == nil {
				continue
			}
			deadline := time.Now().Add(f.config.WriteTimeout)
			_ = conn.WriteControl(websocket.PingMessage, nil, deadline)
		}
	}
}

// reconnect dials with exponential backoff. Returns false when the feed was
// closed while waiting.
func (f *WSFeed) reconnect() bool {
	delay := f.config.ReconnectDelay

	for {
		select {
		case <-f.done:
			return false
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := f.connect(ctx)
		cancel()
		if err == nil {
			return true
		}

		delay *= 2
		if delay > f.config.MaxReconnectDelay {
			delay = f.config.MaxReconnectDelay
		}
	}
}
