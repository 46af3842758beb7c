package venue

import (
	"context"
	"fmt"
	"time"

	"PortPulse/internal/domain/models"
	drepo "PortPulse/internal/domain/repository"
	xhttp "PortPulse/pkg/http"
	"PortPulse/pkg/logger"
)

const defaultHyperliquidBaseURL = "https://api.hyperliquid.xyz"

// Hyperliquid fetches perp positions from the public info endpoint keyed by
// wallet address. The endpoint reports signed size and signed PnL but no mark
// price, so the mark is derived algebraically from entry and PnL.
type Hyperliquid struct {
	walletAddress string
	baseURL       string
	client        *xhttp.Client
	l             *logger.Logger
}

func NewHyperliquid(walletAddress, baseURL string, l *logger.Logger) drepo.VenueAdapter {
	if baseURL == "" {
		baseURL = defaultHyperliquidBaseURL
	}
	return &Hyperliquid{
		walletAddress: walletAddress,
		baseURL:       baseURL,
		client:        xhttp.NewClient(xhttp.WithTimeout(10 * time.Second)),
		l:             l.With("venue_hyperliquid"),
	}
}

func (h *Hyperliquid) Name() string { return "hyperliquid" }

type hlPosition struct {
	Coin          string `json:"coin"`
	Szi           string `json:"szi"` // signed size
	EntryPx       string `json:"entryPx"`
	UnrealizedPnl string `json:"unrealizedPnl"`
}

type hlAssetPosition struct {
	Position hlPosition `json:"position"`
}

type hlClearinghouseState struct {
	AssetPositions []hlAssetPosition `json:"assetPositions"`
}

func (h *Hyperliquid) FetchPositions(ctx context.Context) ([]models.NormalizedPosition, error) {
	if h.walletAddress == "" {
		return nil, nil
	}

	var state hlClearinghouseState
	err := h.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    h.baseURL + "/info",
		Body: map[string]string{
			"type": "clearinghouseState",
			"user": h.walletAddress,
		},
	}, &state)
	if err != nil {
		return nil, fmt.Errorf("hyperliquid positions: %w", err)
	}

	out := make([]models.NormalizedPosition, 0, len(state.AssetPositions))
	for _, ap := range state.AssetPositions {
		p := ap.Position
		szi := f64(p.Szi)
		if szi == 0 {
			continue
		}

		side := models.SideLong
		if szi < 0 {
			side = models.SideShort
		}
		size := abs(szi)
		entry := f64(p.EntryPx)
		upnl := f64(p.UnrealizedPnl)

		// No mark price on this endpoint; recover it from the PnL identity.
		// Zero-size positions were filtered above, so the division is safe.
		mark := entry
		if side == models.SideLong {
			mark = entry + upnl/size
		} else {
			mark = entry - upnl/size
		}

		out = append(out, models.NormalizedPosition{
			Venue:         h.Name(),
			Symbol:        p.Coin + "-USD",
			Side:          side,
			Size:          size,
			EntryPrice:    entry,
			MarkPrice:     mark,
			UnrealizedPnL: upnl,
			Leverage:      nil, // not reported per-position
		})
	}

	h.l.Debug("fetched positions", logger.Int("count", len(out)))
	return out, nil
}
