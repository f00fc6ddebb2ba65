package coingecko

const (
	// SimplePricePath is the endpoint returning price, market cap and 24h volume per asset.
	SimplePricePath = "/api/v3/simple/price"

	// DemoAPIKeyHeader and ProAPIKeyHeader carry the plan-specific API key.
	DemoAPIKeyHeader = "x-cg-demo-api-key"
	ProAPIKeyHeader  = "x-cg-pro-api-key"

	// DefaultRequestsPerMinute matches the public demo plan limit.
	DefaultRequestsPerMinute = 30
)
