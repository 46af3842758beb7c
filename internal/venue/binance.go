package venue

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"PortPulse/internal/domain/models"
	drepo "PortPulse/internal/domain/repository"
	xhttp "PortPulse/pkg/http"
	"PortPulse/pkg/logger"
)

const defaultBinanceBaseURL = "https://fapi.binance.com"

// Binance fetches USDT-M futures positions via the signed positionRisk
// endpoint.
type Binance struct {
	apiKey    string
	apiSecret string
	baseURL   string
	client    *xhttp.Client
	l         *logger.Logger
}

func NewBinance(apiKey, apiSecret, baseURL string, l *logger.Logger) drepo.VenueAdapter {
	if baseURL == "" {
		baseURL = defaultBinanceBaseURL
	}
	return &Binance{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   baseURL,
		client:    xhttp.NewClient(xhttp.WithTimeout(10 * time.Second)),
		l:         l.With("venue_binance"),
	}
}

func (b *Binance) Name() string { return "binance" }

type binancePosition struct {
	Symbol           string `json:"symbol"`
	PositionAmt      string `json:"positionAmt"`
	EntryPrice       string `json:"entryPrice"`
	MarkPrice        string `json:"markPrice"`
	UnRealizedProfit string `json:"unRealizedProfit"`
	Leverage         string `json:"leverage"`
	PositionSide     string `json:"positionSide"` // BOTH, LONG, SHORT
}

// FetchPositions returns open futures positions. Missing credentials mean
// the venue is not configured: an empty result, deterministically.
func (b *Binance) FetchPositions(ctx context.Context) ([]models.NormalizedPosition, error) {
	if b.apiKey == "" || b.apiSecret == "" {
		return nil, nil
	}

	query := fmt.Sprintf("timestamp=%d", time.Now().UnixMilli())
	sig := b.sign(query)

	var raw []binancePosition
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     fmt.Sprintf("%s/fapi/v2/positionRisk?%s&signature=%s", b.baseURL, query, sig),
		Headers: map[string]string{"X-MBX-APIKEY": b.apiKey},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("binance positions: %w", err)
	}

	out := make([]models.NormalizedPosition, 0, len(raw))
	for _, p := range raw {
		amt := f64(p.PositionAmt)
		if amt == 0 {
			continue
		}

		// Hedge-mode positions carry an explicit side; one-way mode reports
		// BOTH and the sign of the amount decides.
		var side models.Side
		switch strings.ToUpper(p.PositionSide) {
		case "LONG":
			side = models.SideLong
		case "SHORT":
			side = models.SideShort
		default:
			if amt > 0 {
				side = models.SideLong
			} else {
				side = models.SideShort
			}
		}

		entry := f64(p.EntryPrice)
		mark := f64(p.MarkPrice)
		if mark == 0 {
			mark = entry
		}

		pos := models.NormalizedPosition{
			Venue:         b.Name(),
			Symbol:        p.Symbol,
			Side:          side,
			Size:          abs(amt),
			EntryPrice:    entry,
			MarkPrice:     mark,
			UnrealizedPnL: f64(p.UnRealizedProfit),
		}
		if lev := f64(p.Leverage); lev > 0 {
			pos.Leverage = ptr(lev)
		}
		out = append(out, pos)
	}

	b.l.Debug("fetched positions", logger.Int("count", len(out)))
	return out, nil
}

func (b *Binance) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(b.apiSecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
