package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"PortPulse/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

// wsServer upgrades every request and hands the connection to onConn. The
// handler returns when onConn does, closing the connection.
func wsServer(t *testing.T, onConn func(*websocket.Conn)) (*httptest.Server, string) {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		onConn(c)
	}))
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

// holdOpen keeps the server side alive until the peer disconnects.
func holdOpen(c *websocket.Conn) {
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

func TestBinanceReadParsesTicker(t *testing.T) {
	frame := `{"e":"24hrTicker","E":1756720800000,"s":"BTCUSDT","c":"65000.5","b":"64999","a":"65001","v":"1234.5"}`
	srv, wsURL := wsServer(t, func(c *websocket.Conn) {
		if err := c.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			return
		}
		holdOpen(c)
	})
	defer srv.Close()

	s := NewBinanceStream(wsURL, []string{"BTCUSDT"}, time.Millisecond, time.Second, testLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()
	if !s.IsConnected() {
		t.Fatalf("expected connected after Connect")
	}

	ticks, errs := s.Read(ctx)
	select {
	case tick := <-ticks:
		if tick.Venue != "binance" || tick.Symbol != "BTCUSDT" {
			t.Fatalf("tick identity: got %s/%s", tick.Venue, tick.Symbol)
		}
		if tick.Last != 65000.5 || tick.Bid != 64999 || tick.Ask != 65001 {
			t.Fatalf("tick prices: got %+v", tick)
		}
		if tick.Volume24h == nil || *tick.Volume24h != 1234.5 {
			t.Fatalf("tick volume: got %+v", tick.Volume24h)
		}
		if !tick.Timestamp.Equal(time.UnixMilli(1756720800000)) {
			t.Fatalf("tick timestamp: got %v", tick.Timestamp)
		}
	case err := <-errs:
		t.Fatalf("read error: %v", err)
	case <-ctx.Done():
		t.Fatalf("timed out waiting for tick")
	}
}

func TestBinanceReadDropsMalformedFrames(t *testing.T) {
	good := `{"e":"24hrTicker","E":1756720800000,"s":"ETHUSDT","c":"3000","b":"2999","a":"3001","v":"10"}`
	srv, wsURL := wsServer(t, func(c *websocket.Conn) {
		_ = c.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"e":"depthUpdate"}`))
		_ = c.WriteMessage(websocket.TextMessage, []byte(good))
		holdOpen(c)
	})
	defer srv.Close()

	s := NewBinanceStream(wsURL, []string{"ETHUSDT"}, time.Millisecond, time.Second, testLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()

	ticks, errs := s.Read(ctx)
	select {
	case tick := <-ticks:
		if tick.Symbol != "ETHUSDT" {
			t.Fatalf("expected the well-formed ticker, got %+v", tick)
		}
	case err := <-errs:
		t.Fatalf("read error: %v", err)
	case <-ctx.Done():
		t.Fatalf("timed out waiting for tick")
	}
}

func TestBinancePingersDoNotAccumulate(t *testing.T) {
	srv, wsURL := wsServer(t, holdOpen)
	defer srv.Close()

	s := NewBinanceStream(wsURL, []string{"BTCUSDT"}, time.Millisecond, 5*time.Millisecond, testLogger(t))
	ctx := context.Background()

	before := runtime.NumGoroutine()

	// Each cycle starts a read loop and its pinger, then tears the
	// connection down. Leaked pingers would grow the goroutine count by
	// one per cycle.
	for i := 0; i < 5; i++ {
		if err := s.Connect(ctx); err != nil {
			t.Fatalf("cycle %d connect: %v", i, err)
		}
		ticks, errs := s.Read(ctx)
		_ = s.Close()
		if _, ok := <-errs; !ok {
			t.Fatalf("cycle %d: expected a read error after close", i)
		}
		for range ticks {
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if n := runtime.NumGoroutine(); n <= before+2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("goroutines grew from %d to %d across reconnect cycles",
				before, runtime.NumGoroutine())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHyperliquidReadParsesMids(t *testing.T) {
	frame := `{"channel":"allMids","data":{"mids":{"BTC":"65000.5","ETH":"0"}}}`
	srv, wsURL := wsServer(t, func(c *websocket.Conn) {
		if _, _, err := c.ReadMessage(); err != nil { // subscribe request
			return
		}
		if err := c.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			return
		}
		holdOpen(c)
	})
	defer srv.Close()

	s := NewHyperliquidStream(wsURL, time.Millisecond, time.Second, testLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()
	if err := s.Subscribe(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	ticks, errs := s.Read(ctx)
	select {
	case tick := <-ticks:
		// The zero-priced ETH mid must have been skipped.
		if tick.Symbol != "BTC" {
			t.Fatalf("symbol: want BTC, got %q", tick.Symbol)
		}
		if tick.Bid != 65000.5 || tick.Ask != 65000.5 || tick.Last != 65000.5 {
			t.Fatalf("mid prices: got %+v", tick)
		}
		if tick.Volume24h != nil {
			t.Fatalf("allMids carries no volume, got %v", *tick.Volume24h)
		}
	case err := <-errs:
		t.Fatalf("read error: %v", err)
	case <-ctx.Done():
		t.Fatalf("timed out waiting for tick")
	}
}

func TestStreamDefaultPingInterval(t *testing.T) {
	// A zero interval must fall back to the default rather than reach
	// time.NewTicker, which panics on non-positive durations.
	b := NewBinanceStream("", nil, time.Second, 0, testLogger(t)).(*BinanceStream)
	if b.pingInterval != defaultPingInterval {
		t.Fatalf("binance ping interval: want %v, got %v", defaultPingInterval, b.pingInterval)
	}
	h := NewHyperliquidStream("", time.Second, 0, testLogger(t)).(*HyperliquidStream)
	if h.pingInterval != defaultPingInterval {
		t.Fatalf("hyperliquid ping interval: want %v, got %v", defaultPingInterval, h.pingInterval)
	}
}

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"65000.5", 65000.5},
		{"0", 0},
		{"", 0},
		{"garbage", 0},
	}
	for _, tc := range cases {
		if got := parsePrice(tc.in); got != tc.want {
			t.Fatalf("parsePrice(%q): want %v, got %v", tc.in, tc.want, got)
		}
	}
}
