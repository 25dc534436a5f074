package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"nifty-options-engine/internal/domain"
	"nifty-options-engine/internal/observability"
)

// WSConfig configures WebSocket feed behavior.
type WSConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is the maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// HandshakeTimeout is the timeout for the connection handshake.
	HandshakeTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket feed configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
		HandshakeTimeout:  10 * time.Second,
	}
}

// wsTick is the wire format of one tick message.
type wsTick struct {
	TimestampMs int64   `json:"ts"`
	Price       float64 `json:"price"`
}

// WSSource streams ticks from a WebSocket endpoint using gorilla/websocket.
// It reconnects with exponential backoff and keeps the tick channel open
// across reconnects; the channel closes only on Close.
type WSSource struct {
	endpoint string
	config   WSConfig
	metrics  *observability.Metrics

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	ticks chan domain.Tick
	done  chan struct{}
	wg    sync.WaitGroup
}

var _ Source = (*WSSource)(nil)

// NewWSSource connects to the endpoint and starts reading ticks.
func NewWSSource(ctx context.Context, endpoint string, config *WSConfig, metrics *observability.Metrics) (*WSSource, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	s := &WSSource{
		endpoint: endpoint,
		config:   cfg,
		metrics:  metrics,
		ticks:    make(chan domain.Tick, 10000),
		done:     make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop()

	return s, nil
}

// Ticks returns the tick channel.
func (s *WSSource) Ticks() <-chan domain.Tick { return s.ticks }

// connect establishes the WebSocket connection.
func (s *WSSource) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: s.config.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.conn = conn
	return nil
}

// Close closes the connection and the tick channel.
func (s *WSSource) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	close(s.ticks)
	return nil
}

// readLoop reads tick messages and reconnects on failure.
func (s *WSSource) readLoop() {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			if !s.reconnect(&reconnectDelay) {
				return
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}
			slog.Warn("feed read failed, reconnecting", slog.Any("error", err))
			s.connMu.Lock()
			s.conn.Close()
			s.conn = nil
			s.connMu.Unlock()
			continue
		}
		reconnectDelay = s.config.ReconnectDelay

		var msg wsTick
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("malformed tick message dropped", slog.Any("error", err))
			continue
		}
		if msg.Price <= 0 {
			continue
		}

		tick := domain.Tick{
			Timestamp: time.UnixMilli(msg.TimestampMs),
			Price:     msg.Price,
		}
		select {
		case s.ticks <- tick:
		case <-s.done:
			return
		}
	}
}

// reconnect dials again after a backoff delay. Returns false on shutdown.
func (s *WSSource) reconnect(delay *time.Duration) bool {
	select {
	case <-s.done:
		return false
	case <-time.After(*delay):
	}

	if s.metrics != nil {
		s.metrics.FeedReconnects.Inc()
	}
	if err := s.connect(context.Background()); err != nil {
		slog.Error("feed reconnect failed",
			slog.String("endpoint", s.endpoint),
			slog.Duration("next_delay", *delay),
			slog.Any("error", err))
		*delay *= 2
		if *delay > s.config.MaxReconnectDelay {
			*delay = s.config.MaxReconnectDelay
		}
		return true
	}

	slog.Info("feed reconnected", slog.String("endpoint", s.endpoint))
	return true
}
