package venue

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"PortPulse/internal/domain/models"
	drepo "PortPulse/internal/domain/repository"
	xhttp "PortPulse/pkg/http"
	"PortPulse/pkg/logger"
)

const defaultOKXBaseURL = "https://www.okx.com"

// OKX fetches perpetual swap positions from the v5 account endpoint.
type OKX struct {
	apiKey     string
	apiSecret  string
	passphrase string
	baseURL    string
	client     *xhttp.Client
	l          *logger.Logger
}

func NewOKX(apiKey, apiSecret, passphrase, baseURL string, l *logger.Logger) drepo.VenueAdapter {
	if baseURL == "" {
		baseURL = defaultOKXBaseURL
	}
	return &OKX{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		passphrase: passphrase,
		baseURL:    baseURL,
		client:     xhttp.NewClient(xhttp.WithTimeout(10 * time.Second)),
		l:          l.With("venue_okx"),
	}
}

func (o *OKX) Name() string { return "okx" }

type okxPosition struct {
	InstID  string `json:"instId"`
	Pos     string `json:"pos"`     // signed contracts
	PosSide string `json:"posSide"` // long, short, or net
	AvgPx   string `json:"avgPx"`
	MarkPx  string `json:"markPx"`
	Upl     string `json:"upl"`
	Lever   string `json:"lever"`
}

type okxResponse struct {
	Code string        `json:"code"`
	Msg  string        `json:"msg"`
	Data []okxPosition `json:"data"`
}

func (o *OKX) FetchPositions(ctx context.Context) ([]models.NormalizedPosition, error) {
	if o.apiKey == "" || o.apiSecret == "" || o.passphrase == "" {
		return nil, nil
	}

	const path = "/api/v5/account/positions?instType=SWAP"
	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var resp okxResponse
	err := o.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    o.baseURL + path,
		Headers: map[string]string{
			"OK-ACCESS-KEY":        o.apiKey,
			"OK-ACCESS-SIGN":       o.sign(ts + "GET" + path),
			"OK-ACCESS-TIMESTAMP":  ts,
			"OK-ACCESS-PASSPHRASE": o.passphrase,
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("okx positions: %w", err)
	}
	if resp.Code != "0" {
		return nil, fmt.Errorf("okx positions: code=%s msg=%s", resp.Code, resp.Msg)
	}

	out := make([]models.NormalizedPosition, 0, len(resp.Data))
	for _, p := range resp.Data {
		size := f64(p.Pos)
		if size == 0 {
			continue
		}

		// OKX reports an explicit side in long/short mode; in net mode the
		// sign of the position decides.
		var side models.Side
		switch p.PosSide {
		case "long":
			side = models.SideLong
		case "short":
			side = models.SideShort
		default:
			if size > 0 {
				side = models.SideLong
			} else {
				side = models.SideShort
			}
		}

		entry := f64(p.AvgPx)
		mark := f64(p.MarkPx)
		if mark == 0 {
			mark = entry
		}
		lev := f64(p.Lever)
		if lev == 0 {
			lev = 1
		}

		out = append(out, models.NormalizedPosition{
			Venue:         o.Name(),
			Symbol:        p.InstID,
			Side:          side,
			Size:          abs(size),
			EntryPrice:    entry,
			MarkPrice:     mark,
			UnrealizedPnL: f64(p.Upl),
			Leverage:      ptr(lev),
		})
	}

	o.l.Debug("fetched positions", logger.Int("count", len(out)))
	return out, nil
}

func (o *OKX) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(o.apiSecret))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
