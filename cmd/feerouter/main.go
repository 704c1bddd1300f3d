package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/solflow/feerouter/internal/allocation"
	"github.com/solflow/feerouter/internal/analyzer"
	"github.com/solflow/feerouter/internal/config"
	"github.com/solflow/feerouter/internal/engine"
	"github.com/solflow/feerouter/internal/executor"
	"github.com/solflow/feerouter/internal/logger"
	"github.com/solflow/feerouter/internal/metrics"
	"github.com/solflow/feerouter/internal/pricefeed"
	"github.com/solflow/feerouter/internal/settlement"
	"github.com/solflow/feerouter/internal/state"
	"github.com/solflow/feerouter/internal/trade"
	"github.com/solflow/feerouter/internal/web"
)

const defaultCycleInterval = 5 * time.Minute

// main is the entry point for the fee-routing engine.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Fee router starting...")

	// --- 2. Persistence (optional: no DB_HOST means in-memory only) ---
	var store *state.Store
	if os.Getenv("DB_HOST") != "" {
		dbCfg := state.DBConfig{
			Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
			User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
			DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
		}
		var err error
		store, err = state.Open(dbCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer store.Close()
		if err := store.EnsureSchema(); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure database schema")
		}
	} else {
		log.Warn().Msg("DB_HOST not set, running without persistence")
	}

	// --- 3. Outbound clients ---
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.Logger = nil
	readClient := retryClient.StandardClient()

	settlementClient := settlement.NewRPCClient(config.SettlementRPC)
	poolClient := pricefeed.NewPoolClient(config.TradeAPI, config.AssetMint, readClient)

	tradeClient, err := trade.NewClient(trade.Config{
		Wallet:      config.OperatingWallet,
		AssetMint:   config.AssetMint,
		SlippageBps: config.SlippageBps,
		PriorityFee: config.PriorityFeeLamports,
		API:         trade.NewHTTPExecutionAPI(config.TradeAPI+"/trade", nil),
		Claims:      trade.NewHTTPClaimService(config.ClaimAPI, nil),
		Settlement:  settlementClient,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create trade client")
	}

	feed, err := pricefeed.NewFeed(nil,
		pricefeed.NewAggregatorSource(config.PriceAggregatorAPI, readClient),
		pricefeed.NewCurveSource(poolClient),
		pricefeed.NewOracleSource(config.SpotOracleAPI, readClient),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create price feed")
	}

	// --- 4. Engine assembly ---
	marketAnalyzer := analyzer.New()
	allocations := allocation.NewManager()
	engineMetrics := metrics.New()

	distributionExecutor, err := executor.New(executor.Config{
		Trader:         tradeClient,
		Pool:           poolClient,
		Allocations:    allocations,
		Market:         marketAnalyzer,
		CreatorWallet:  config.CreatorWallet,
		OperatorWallet: config.OperatorWallet,
		MinFeeBuffer:   config.MinFeeBufferLamports,
		OperatorFeeBps: config.OperatorFeeBps,
		Metrics:        engineMetrics,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create distribution executor")
	}

	engineCfg := engine.Config{
		Wallet:      config.OperatingWallet,
		Analyzer:    marketAnalyzer,
		Allocations: allocations,
		Executor:    distributionExecutor,
		Feed:        feed,
		Metrics:     engineMetrics,
	}
	if store != nil {
		engineCfg.Store = store
	}
	engineInstance, err := engine.New(engineCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine")
	}

	// --- 5. Web server ---
	webServer := web.NewServer(os.Getenv("WEB_PORT"), engineInstance, engineMetrics.Handler())
	go func() {
		if err := webServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Web server failed")
		}
	}()

	// --- 6. Main loop ---
	interval := defaultCycleInterval
	if raw := os.Getenv("CYCLE_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatal().Err(err).Str("value", raw).Msg("Invalid CYCLE_INTERVAL")
		}
		interval = parsed
	}

	log.Info().Str("interval", interval.String()).Msg("Starting fee-routing loop")
	engineInstance.RunLoop(context.Background(), interval)
}

func mustAtoi(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
