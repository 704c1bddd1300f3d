package config

import (
	"github.com/rs/zerolog/log"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// SettlementRPC is the JSON-RPC endpoint of the settlement network node.
	SettlementRPC string
	// TradeAPI is the trade-execution API that turns orders into signable payloads.
	TradeAPI string
	// ClaimAPI is the claim service endpoint for pending fee income.
	ClaimAPI string
	// PriceAggregatorAPI is the liquidity-weighted price aggregator.
	PriceAggregatorAPI string
	// SpotOracleAPI is the last-resort spot price oracle.
	SpotOracleAPI string
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var err error

	SettlementRPC, err = getEnv("SETTLEMENT_RPC")
	if err != nil {
		return err
	}

	TradeAPI, err = getEnv("TRADE_API")
	if err != nil {
		return err
	}

	ClaimAPI, err = getEnv("CLAIM_API")
	if err != nil {
		return err
	}

	PriceAggregatorAPI, err = getEnv("PRICE_AGGREGATOR_API")
	if err != nil {
		return err
	}

	SpotOracleAPI, err = getEnv("SPOT_ORACLE_API")
	if err != nil {
		return err
	}

	log.Debug().
		Str("SettlementRPC", SettlementRPC).
		Str("TradeAPI", TradeAPI).
		Str("ClaimAPI", ClaimAPI).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}
