package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// OperatingWallet is the public address of the wallet this engine manages.
	OperatingWallet string
	// CreatorWallet is the payout address for the creator revenue channel.
	CreatorWallet string
	// AssetMint is the mint address of the token the engine trades.
	AssetMint string
	// OperatorWallet is the address that receives the operator fee cut.
	OperatorWallet string

	// MinFeeBufferLamports is reserved from every claim to keep the wallet
	// able to pay transaction fees.
	MinFeeBufferLamports uint64
	// OperatorFeeBps is the operator's cut of each claim in basis points.
	OperatorFeeBps uint64

	// SlippageBps is the slippage tolerance passed to the trade API.
	SlippageBps uint64
	// PriorityFeeLamports is the priority fee attached to trade submissions.
	PriorityFeeLamports uint64
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	OperatingWallet, err = getEnv("FEEROUTER_WALLET")
	if err != nil {
		return err
	}

	CreatorWallet, err = getEnv("FEEROUTER_CREATOR_WALLET")
	if err != nil {
		return err
	}

	AssetMint, err = getEnv("FEEROUTER_ASSET_MINT")
	if err != nil {
		return err
	}

	OperatorWallet, err = getEnv("FEEROUTER_OPERATOR_WALLET")
	if err != nil {
		return err
	}

	MinFeeBufferLamports, err = getEnvAsUint64("FEEROUTER_MIN_FEE_BUFFER")
	if err != nil {
		return err
	}

	OperatorFeeBps, err = getEnvAsUint64("FEEROUTER_OPERATOR_FEE_BPS")
	if err != nil {
		return err
	}

	SlippageBps, err = getEnvAsUint64("FEEROUTER_SLIPPAGE_BPS")
	if err != nil {
		return err
	}

	PriorityFeeLamports, err = getEnvAsUint64("FEEROUTER_PRIORITY_FEE")
	if err != nil {
		return err
	}

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("OperatingWallet", OperatingWallet).
		Str("AssetMint", AssetMint).
		Uint64("MinFeeBufferLamports", MinFeeBufferLamports).
		Uint64("OperatorFeeBps", OperatorFeeBps).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsUint64 retrieves an environment variable as a uint64. Returns error if not set or invalid.
func getEnvAsUint64(key string) (uint64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}
