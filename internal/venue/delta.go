package venue

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"PortPulse/internal/domain/models"
	drepo "PortPulse/internal/domain/repository"
	xhttp "PortPulse/pkg/http"
	"PortPulse/pkg/logger"
)

const defaultDeltaBaseURL = "https://api.delta.exchange"

// Delta fetches margined positions from Delta Exchange.
type Delta struct {
	apiKey    string
	apiSecret string
	baseURL   string
	client    *xhttp.Client
	l         *logger.Logger
}

func NewDelta(apiKey, apiSecret, baseURL string, l *logger.Logger) drepo.VenueAdapter {
	if baseURL == "" {
		baseURL = defaultDeltaBaseURL
	}
	return &Delta{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   baseURL,
		client:    xhttp.NewClient(xhttp.WithTimeout(10 * time.Second)),
		l:         l.With("venue_delta"),
	}
}

func (d *Delta) Name() string { return "delta" }

type deltaPosition struct {
	ProductSymbol string  `json:"product_symbol"`
	Size          float64 `json:"size"` // signed contracts
	EntryPrice    string  `json:"entry_price"`
	MarkPrice     string  `json:"mark_price"`
	UnrealizedPnL string  `json:"unrealized_pnl"`
	Leverage      string  `json:"leverage"`
}

type deltaResponse struct {
	Success bool            `json:"success"`
	Result  []deltaPosition `json:"result"`
}

func (d *Delta) FetchPositions(ctx context.Context) ([]models.NormalizedPosition, error) {
	if d.apiKey == "" || d.apiSecret == "" {
		return nil, nil
	}

	const path = "/v2/positions/margined"
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	var resp deltaResponse
	err := d.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    d.baseURL + path,
		Headers: map[string]string{
			"api-key":   d.apiKey,
			"signature": d.sign("GET" + ts + path),
			"timestamp": ts,
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("delta positions: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("delta positions: request not successful")
	}

	out := make([]models.NormalizedPosition, 0, len(resp.Result))
	for _, p := range resp.Result {
		if p.Size == 0 {
			continue
		}

		// Delta reports no explicit side field; the sign of the size decides.
		side := models.SideLong
		if p.Size < 0 {
			side = models.SideShort
		}

		entry := f64(p.EntryPrice)
		mark := f64(p.MarkPrice)
		if mark == 0 {
			mark = entry
		}
		lev := f64(p.Leverage)
		if lev == 0 {
			lev = 1
		}

		out = append(out, models.NormalizedPosition{
			Venue:         d.Name(),
			Symbol:        p.ProductSymbol,
			Side:          side,
			Size:          abs(p.Size),
			EntryPrice:    entry,
			MarkPrice:     mark,
			UnrealizedPnL: f64(p.UnrealizedPnL),
			Leverage:      ptr(lev),
		})
	}

	d.l.Debug("fetched positions", logger.Int("count", len(out)))
	return out, nil
}

func (d *Delta) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(d.apiSecret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
