package types

// StatusReport is the full engine view served to dashboards: the live
// allocation set, feature toggles, lifetime stats, the current market
// analysis, and the most recent price observation.
type StatusReport struct {
	Wallet       string           `json:"wallet"`
	Allocations  AllocationSet    `json:"allocations"`
	Features     FeatureToggleSet `json:"features"`
	Stats        CumulativeStats  `json:"stats"`
	Analysis     MarketAnalysis   `json:"analysis"`
	CurrentPrice float64          `json:"current_price"`
	PriceKnown   bool             `json:"price_known"`
}
