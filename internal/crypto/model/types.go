package model

// RawPriceSnapshot is the decoded body of a simple/price response, keyed by asset id.
// Shape: {"bitcoin": {"usd": 65000.5, "usd_market_cap": 1.28e12, "usd_24h_vol": 3.1e10}}
// Numbers arrive as json.Number when decoded by the coingecko client.
type RawPriceSnapshot map[string]any

// PriceRecord is the normalized snapshot handed from the transformer to the loader.
type PriceRecord struct {
	AssetID      string  `json:"asset_id"`       // Configured asset id (e.g., "bitcoin")
	PriceUSD     float64 `json:"price_usd"`      // Spot price in the quote currency
	MarketCapUSD float64 `json:"market_cap_usd"` // Market capitalization in the quote currency
	Volume24hUSD float64 `json:"volume_24h_usd"` // Trailing 24h traded volume in the quote currency
}
