package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"PortPulse/internal/domain/models"
	drepo "PortPulse/internal/domain/repository"
	"PortPulse/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	defaultBinanceWSURL = "wss://stream.binance.com:9443/ws"
	defaultPingInterval = 30 * time.Second
)

// BinanceStream implements a TickStream over the Binance combined ticker
// stream. Subscription happens via the URL path, so Subscribe is a no-op.
type BinanceStream struct {
	wsURL          string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	l              *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

func NewBinanceStream(wsURL string, symbols []string, reconnectDelay, pingInterval time.Duration, l *logger.Logger) drepo.TickStream {
	if wsURL == "" {
		wsURL = defaultBinanceWSURL
	}
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	return &BinanceStream{
		wsURL:          wsURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		l:              l.With("stream_binance"),
	}
}

func (s *BinanceStream) Venue() string { return "binance" }

// Connect establishes the WebSocket connection with all symbol ticker
// streams combined into the path.
func (s *BinanceStream) Connect(ctx context.Context) error {
	streams := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		streams = append(streams, strings.ToLower(sym)+"@ticker")
	}
	u := fmt.Sprintf("%s/%s", s.wsURL, strings.Join(streams, "/"))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("binance ws connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	s.l.Info("connected", logger.Strings("symbols", s.symbols))
	return nil
}

func (s *BinanceStream) Subscribe(ctx context.Context) error {
	if !s.IsConnected() {
		return fmt.Errorf("binance ws not connected")
	}
	return nil
}

type binanceTicker struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"` // ms
	Symbol    string `json:"s"`
	Last      string `json:"c"`
	Bid       string `json:"b"`
	Ask       string `json:"a"`
	Volume    string `json:"v"`
}

// Read streams normalized ticks and errors. Malformed or non-ticker frames
// are dropped, never fatal to the loop. The ping goroutine lives exactly as
// long as this read loop, so repeated Read calls after reconnects do not
// accumulate pingers.
func (s *BinanceStream) Read(ctx context.Context) (<-chan *models.MarketTick, <-chan error) {
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
					errs <- fmt.Errorf("binance ws conn nil")
					return
				}
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("binance ws read: %w", err)
					return
				}
				var m binanceTicker
				if err := json.Unmarshal(b, &m); err != nil {
					s.l.Warn("dropping malformed frame", logger.Error(err))
					continue
				}
				if m.EventType != "24hrTicker" {
					continue
				}
				vol := parsePrice(m.Volume)
				tick := &models.MarketTick{
					Venue:     s.Venue(),
					Symbol:    m.Symbol,
					Timestamp: time.UnixMilli(m.EventTime),
					Bid:       parsePrice(m.Bid),
					Ask:       parsePrice(m.Ask),
					Last:      parsePrice(m.Last),
					Volume24h: &vol,
				}
				select {
				case ticks <- tick:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return ticks, errs
}

func (s *BinanceStream) pingLoop(ctx context.Context, done <-chan struct{}) {
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

func (s *BinanceStream) current() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// Reconnect closes and reconnects after the fixed backoff. No gap-filling is
// attempted; ticks during the outage are simply absent.
func (s *BinanceStream) Reconnect(ctx context.Context) error {
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

func (s *BinanceStream) Close() error {
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

func (s *BinanceStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
