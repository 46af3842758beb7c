package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"PortPulse/internal/analytics"
	"PortPulse/internal/domain/models"
	drepo "PortPulse/internal/domain/repository"
	xhttp "PortPulse/pkg/http"
	"PortPulse/pkg/logger"
)

// PortfolioHandler serves the read API over persisted snapshots plus on-demand
// scenario simulation.
type PortfolioHandler struct {
	store    drepo.SnapshotStore
	ticks    drepo.TickStore
	exposure *analytics.ExposureEngine
	scenario *analytics.ScenarioEngine
	l        *logger.Logger
}

func NewPortfolioHandler(store drepo.SnapshotStore, ticks drepo.TickStore, scenario *analytics.ScenarioEngine, l *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		store:    store,
		ticks:    ticks,
		exposure: analytics.NewExposureEngine(),
		scenario: scenario,
		l:        l.With("api"),
	}
}

// RegisterRoutes registers API routes on the Echo instance.
func (h *PortfolioHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/portfolio/latest", h.latestPortfolio)
	g.GET("/portfolio/history", h.equityHistory)
	g.GET("/analytics/latest", h.latestAnalytics)
	g.GET("/ticks", h.queryTicks)
	g.POST("/scenario/simulate", h.simulateScenario)
	e.GET("/health", h.health)
}

type positionView struct {
	Venue         string   `json:"venue"`
	Symbol        string   `json:"symbol"`
	Side          string   `json:"side"`
	Size          float64  `json:"size"`
	EntryPrice    float64  `json:"entry_price"`
	MarkPrice     float64  `json:"mark_price"`
	UnrealizedPnL float64  `json:"unrealized_pnl"`
	Leverage      *float64 `json:"leverage,omitempty"`
}

type portfolioView struct {
	SnapshotID            uint                   `json:"snapshot_id"`
	Timestamp             time.Time              `json:"timestamp"`
	TotalEquityUSD        float64                `json:"total_equity_usd"`
	TotalMarginUsedUSD    float64                `json:"total_margin_used_usd"`
	TotalUnrealizedPnLUSD float64                `json:"total_unrealized_pnl_usd"`
	AssetBreakdown        map[string]float64     `json:"asset_breakdown"`
	Exposure              models.ExposureMetrics `json:"exposure"`
	Positions             []positionView         `json:"positions"`
}

func (h *PortfolioHandler) latestPortfolio(c echo.Context) error {
	snap, err := h.store.LatestSnapshot(c.Request().Context())
	if err != nil {
		h.l.Error("latest snapshot", logger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	if snap == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no snapshot available yet"))
	}

	view := portfolioView{
		SnapshotID:            snap.ID,
		Timestamp:             snap.Timestamp,
		TotalEquityUSD:        snap.TotalEquityUSD,
		TotalMarginUsedUSD:    snap.TotalMarginUsedUSD,
		TotalUnrealizedPnLUSD: snap.TotalUnrealizedPnLUSD,
		AssetBreakdown:        snap.AssetBreakdown,
		Exposure:              h.exposure.Compute(snap),
		Positions:             make([]positionView, 0, len(snap.Positions)),
	}
	for _, p := range snap.Positions {
		view.Positions = append(view.Positions, positionView{
			Venue:         p.Venue,
			Symbol:        p.Symbol,
			Side:          p.Side,
			Size:          p.Size,
			EntryPrice:    p.EntryPrice,
			MarkPrice:     p.MarkPrice,
			UnrealizedPnL: p.UnrealizedPnL,
			Leverage:      p.Leverage,
		})
	}

	return xhttp.SuccessResponse(c, view)
}

// equityHistory returns the most recent snapshot equity values in
// chronological order, for sparkline and drawdown style consumers.
func (h *PortfolioHandler) equityHistory(c echo.Context) error {
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 100)
	if limit <= 0 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("limit must be positive"))
	}

	equity, err := h.store.EquityHistory(c.Request().Context(), limit)
	if err != nil {
		h.l.Error("equity history", logger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}

	return xhttp.ListResponse(c, equity, int64(len(equity)))
}

type tickView struct {
	Venue     string    `json:"venue"`
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Last      float64   `json:"last"`
	Volume24h *float64  `json:"volume_24h,omitempty"`
}

// queryTicks returns stored ticks for a symbol over a time range. The range
// defaults to the trailing hour; from and to accept RFC3339 or unix seconds.
func (h *PortfolioHandler) queryTicks(c echo.Context) error {
	symbol := c.QueryParam("symbol")
	if symbol == "" {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("symbol is required"))
	}

	now := time.Now()
	from := xhttp.ParseTimeDefault(c.QueryParam("from"), now.Add(-time.Hour))
	to := xhttp.ParseTimeDefault(c.QueryParam("to"), now)
	if !to.After(from) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("to must be after from"))
	}

	rows, err := h.ticks.QueryRange(c.Request().Context(), analytics.NormalizeSymbol(symbol), from, to)
	if err != nil {
		h.l.Error("tick query", logger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}

	views := make([]tickView, 0, len(rows))
	for _, tk := range rows {
		views = append(views, tickView{
			Venue:     tk.Venue,
			Symbol:    tk.Symbol,
			Timestamp: tk.Timestamp,
			Bid:       tk.Bid,
			Ask:       tk.Ask,
			Last:      tk.Last,
			Volume24h: tk.Volume24h,
		})
	}

	return xhttp.ListResponse(c, views, int64(len(views)))
}

type analyticsView struct {
	SnapshotID           uint               `json:"snapshot_id"`
	GrossExposureUSD     float64            `json:"gross_exposure_usd"`
	NetExposureUSD       float64            `json:"net_exposure_usd"`
	ConcentrationHHI     float64            `json:"concentration_hhi"`
	RollingDrawdownPct   float64            `json:"rolling_drawdown_pct"`
	Var951DPct           float64            `json:"var_95_1d_pct"`
	AttributionBreakdown map[string]float64 `json:"attribution_breakdown,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
}

func (h *PortfolioHandler) latestAnalytics(c echo.Context) error {
	rec, err := h.store.LatestAnalytics(c.Request().Context())
	if err != nil {
		h.l.Error("latest analytics", logger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	if rec == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no analytics available yet"))
	}

	return xhttp.SuccessResponse(c, analyticsView{
		SnapshotID:           rec.SnapshotID,
		GrossExposureUSD:     rec.GrossExposureUSD,
		NetExposureUSD:       rec.NetExposureUSD,
		ConcentrationHHI:     rec.ConcentrationHHI,
		RollingDrawdownPct:   rec.RollingDrawdownPct,
		Var951DPct:           rec.Var951DPct,
		AttributionBreakdown: rec.AttributionBreakdown,
		CreatedAt:            rec.CreatedAt,
	})
}

type scenarioRequest struct {
	// Shocks maps an asset substring to a fractional price move, e.g.
	// {"BTC": -0.1} for a 10% drop on every BTC position.
	Shocks map[string]float64 `json:"shocks" validate:"required,min=1,dive,gte=-1,lte=10"`
}

func (h *PortfolioHandler) simulateScenario(c echo.Context) error {
	req := new(scenarioRequest)
	if errs := xhttp.ReadAndValidateRequest(c, req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}

	snap, err := h.store.LatestSnapshot(c.Request().Context())
	if err != nil {
		h.l.Error("latest snapshot", logger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	if snap == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no snapshot available yet"))
	}

	result := h.scenario.Simulate(snap, req.Shocks)
	return xhttp.SuccessResponse(c, result)
}

func (h *PortfolioHandler) health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}
