package models

import "time"

// MarketTick is one normalized quote from a venue stream. Ticks are
// append-only; ordering is by timestamp per (venue, symbol).
type MarketTick struct {
	Venue     string
	Symbol    string
	Timestamp time.Time
	Bid       float64
	Ask       float64
	Last      float64
	Volume24h *float64
}
