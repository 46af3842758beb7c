package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"PortPulse/internal/domain/models"
	drepo "PortPulse/internal/domain/repository"
	"PortPulse/pkg/logger"

	"github.com/gorilla/websocket"
)

const defaultHyperliquidWSURL = "wss://api.hyperliquid.xyz/ws"

// HyperliquidStream implements a TickStream over the allMids subscription.
// The feed carries only mid prices, so bid/ask/last all take the mid and
// 24h volume is absent.
type HyperliquidStream struct {
	wsURL          string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	l              *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

func NewHyperliquidStream(wsURL string, reconnectDelay, pingInterval time.Duration, l *logger.Logger) drepo.TickStream {
	if wsURL == "" {
		wsURL = defaultHyperliquidWSURL
	}
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	return &HyperliquidStream{
		wsURL:          wsURL,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		l:              l.With("stream_hyperliquid"),
	}
}

func (s *HyperliquidStream) Venue() string { return "hyperliquid" }

func (s *HyperliquidStream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("hyperliquid ws connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	s.l.Info("connected")
	return nil
}

func (s *HyperliquidStream) Subscribe(ctx context.Context) error {
	conn := s.current()
	if conn == nil || !s.IsConnected() {
		return fmt.Errorf("hyperliquid ws not connected")
	}
	sub := map[string]interface{}{
		"method":       "subscribe",
		"subscription": map[string]string{"type": "allMids"},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("hyperliquid subscribe: %w", err)
	}
	s.l.Info("subscribed allMids")
	return nil
}

type hlMidsMessage struct {
	Channel string `json:"channel"`
	Data    struct {
		Mids map[string]string `json:"mids"`
	} `json:"data"`
}

// Read streams normalized ticks and errors. The ping goroutine lives exactly
// as long as this read loop, so repeated Read calls after reconnects do not
// accumulate pingers.
func (s *HyperliquidStream) Read(ctx context.Context) (<-chan *models.MarketTick, <-chan error) {
	ticks := make(chan *models.MarketTick, 1024)
	errs := make(chan error, 1)
	done := make(chan struct{})

	conn := s.current()

	go s.pingLoop(ctx, done)

	go func() {
		defer close(ticks)
		defer close(errs)
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if conn == nil {
					errs <- fmt.Errorf("hyperliquid ws conn nil")
					return
				}
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("hyperliquid ws read: %w", err)
					return
				}
				var m hlMidsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					s.l.Warn("dropping malformed frame", logger.Error(err))
					continue
				}
				if m.Channel != "allMids" {
					continue
				}
				// allMids carries no per-tick timestamp; use receive time.
				now := time.Now()
				for coin, price := range m.Data.Mids {
					mid := parsePrice(price)
					if mid <= 0 {
						continue
					}
					tick := &models.MarketTick{
						Venue:     s.Venue(),
						Symbol:    coin,
						Timestamp: now,
						Bid:       mid,
						Ask:       mid,
						Last:      mid,
					}
					select {
					case ticks <- tick:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return ticks, errs
}

func (s *HyperliquidStream) pingLoop(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if conn := s.current(); conn != nil {
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}
}

func (s *HyperliquidStream) current() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

func (s *HyperliquidStream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.reconnectDelay):
	}
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

func (s *HyperliquidStream) Close() error {
	s.mu.Lock()
	s.connected = false
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (s *HyperliquidStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func parsePrice(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
