package analytics

import "strings"

var quoteSuffixes = []string{"USDT", "USDC", "USD", "PERP", "SWAP"}

// NormalizeSymbol reduces a portfolio or tick symbol to its base asset so the
// two formats can be matched: separators are stripped and trailing quote
// currencies and contract-type suffixes removed, cascading until stable.
// "BTC/USDT", "BTCUSDT", "BTC-USD" and "BTC-USDT-SWAP" all become "BTC".
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(symbol)
	s = strings.NewReplacer("/", "", "-", "", "_", "").Replace(s)
	for changed := true; changed; {
		changed = false
		for _, q := range quoteSuffixes {
			if len(s) > len(q) && strings.HasSuffix(s, q) {
				s = strings.TrimSuffix(s, q)
				changed = true
			}
		}
	}
	return s
}
