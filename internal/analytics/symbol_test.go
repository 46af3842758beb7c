package analytics

import "testing"

func TestNormalizeSymbol(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"BTC/USDT", "BTC"},
		{"BTCUSDT", "BTC"},
		{"BTC-USD", "BTC"},
		{"btcusdt", "BTC"},
		{"ETH-USD-PERP", "ETH"},
		{"SOL_USDC", "SOL"},
		// Contract-type suffixes cascade off so venue instrument ids match
		// the stored tick symbols.
		{"BTC-USD-SWAP", "BTC"},
		{"BTC-USDT-SWAP", "BTC"},
		{"SWAP", "SWAP"},
		{"USDT", "USDT"}, // never strip the whole symbol away
		{"BTC", "BTC"},
	}

	for _, c := range cases {
		if got := NormalizeSymbol(c.in); got != c.want {
			t.Fatalf("NormalizeSymbol(%q): want %q, got %q", c.in, c.want, got)
		}
	}
}
