/*

This file contains the rate-limited, retrying trade client. All outbound
trade submissions for one engine instance flow through one Client, which
enforces the minimum spacing between submissions and the bounded retry
schedule.

*/

package trade

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/solflow/feerouter/internal/logger"
)

// minSubmitSpacing is the default minimum gap between successive trade
// submissions from one client instance.
const minSubmitSpacing = 2 * time.Second

// Config holds the dependencies for creating a new trade client.
type Config struct {
	Wallet      string
	AssetMint   string
	SlippageBps uint64
	PriorityFee uint64

	API        ExecutionAPI
	Claims     ClaimService
	Settlement Settlement

	// SubmitSpacing overrides the default submission spacing when positive.
	SubmitSpacing time.Duration
	// Policy overrides the default retry schedule when MaxAttempts > 0.
	Policy RetryPolicy
}

// Client submits trades, transfers, burns and claims for one wallet.
type Client struct {
	wallet      string
	mint        string
	slippageBps uint64
	priorityFee uint64

	api        ExecutionAPI
	claims     ClaimService
	settlement Settlement

	limiter *rate.Limiter
	policy  RetryPolicy
	logger  zerolog.Logger
}

// NewClient validates the configuration and creates a trade client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Wallet == "" {
		return nil, errors.New("wallet cannot be empty")
	}
	if cfg.AssetMint == "" {
		return nil, errors.New("asset mint cannot be empty")
	}
	if cfg.API == nil {
		return nil, errors.New("execution API cannot be nil")
	}
	if cfg.Settlement == nil {
		return nil, errors.New("settlement client cannot be nil")
	}

	spacing := cfg.SubmitSpacing
	if spacing <= 0 {
		spacing = minSubmitSpacing
	}
	policy := cfg.Policy
	if policy.MaxAttempts == 0 {
		policy = DefaultRetryPolicy()
	}

	return &Client{
		wallet:      cfg.Wallet,
		mint:        cfg.AssetMint,
		slippageBps: cfg.SlippageBps,
		priorityFee: cfg.PriorityFee,
		api:         cfg.API,
		claims:      cfg.Claims,
		settlement:  cfg.Settlement,
		limiter:     rate.NewLimiter(rate.Every(spacing), 1),
		policy:      policy,
		logger:      logger.GetForComponent("trade_client"),
	}, nil
}

// Buy spends lamports on the asset through the given pool ("auto" lets the
// API route). Returns the settlement signature.
func (c *Client) Buy(ctx context.Context, lamports uint64, pool string) (string, error) {
	return c.submit(ctx, Order{
		Wallet:       c.wallet,
		Action:       ActionBuy,
		AssetID:      c.mint,
		Amount:       lamports,
		Denomination: DenomLamports,
		SlippageBps:  c.slippageBps,
		PriorityFee:  c.priorityFee,
		Pool:         pool,
	})
}

// Sell disposes of tokenAmount of the asset through the given pool.
func (c *Client) Sell(ctx context.Context, tokenAmount uint64, pool string) (string, error) {
	return c.submit(ctx, Order{
		Wallet:       c.wallet,
		Action:       ActionSell,
		AssetID:      c.mint,
		Amount:       tokenAmount,
		Denomination: DenomToken,
		SlippageBps:  c.slippageBps,
		PriorityFee:  c.priorityFee,
		Pool:         pool,
	})
}

// Deposit pairs lamports with held tokens into the given open pool. The
// caller is responsible for holding the matching token side beforehand.
func (c *Client) Deposit(ctx context.Context, lamports uint64, pool string) (string, error) {
	return c.submit(ctx, Order{
		Wallet:       c.wallet,
		Action:       ActionDeposit,
		AssetID:      c.mint,
		Amount:       lamports,
		Denomination: DenomLamports,
		SlippageBps:  c.slippageBps,
		PriorityFee:  c.priorityFee,
		Pool:         pool,
	})
}

// submit enforces submission spacing, then runs the build/send/confirm
// sequence under the retry policy.
func (c *Client) submit(ctx context.Context, order Order) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	signature, err := Do(ctx, c.policy, func(ctx context.Context) (string, error) {
		payload, err := c.api.BuildTransaction(ctx, order)
		if err != nil {
			return "", err
		}
		sig, err := c.settlement.SendTransaction(ctx, payload)
		if err != nil {
			return "", err
		}
		if err := c.settlement.ConfirmTransaction(ctx, sig); err != nil {
			return "", err
		}
		return sig, nil
	})
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("action", order.Action).
			Uint64("amount", order.Amount).
			Msg("Trade submission failed")
		return "", err
	}

	c.logger.Info().
		Str("action", order.Action).
		Uint64("amount", order.Amount).
		Str("signature", signature).
		Msg("Trade submitted")
	return signature, nil
}

// Transfer moves lamports from the operating wallet to another address.
func (c *Client) Transfer(ctx context.Context, to string, lamports uint64) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return Do(ctx, c.policy, func(ctx context.Context) (string, error) {
		return c.settlement.Transfer(ctx, c.wallet, to, lamports)
	})
}

// Burn destroys tokenAmount of the held asset.
func (c *Client) Burn(ctx context.Context, tokenAmount uint64) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return Do(ctx, c.policy, func(ctx context.Context) (string, error) {
		return c.settlement.Burn(ctx, c.wallet, c.mint, tokenAmount)
	})
}

// Claim requests the wallet's pending fee income. Business rejections
// ("nothing to claim", duplicates) propagate unwrapped so callers can map
// them to a zero-effect soft success.
func (c *Client) Claim(ctx context.Context) (uint64, error) {
	if c.claims == nil {
		return 0, ErrNoClientConfigured
	}
	return Do(ctx, c.policy, func(ctx context.Context) (uint64, error) {
		return c.claims.Claim(ctx, c.wallet)
	})
}

// Balance reads the wallet's spendable lamport balance.
func (c *Client) Balance(ctx context.Context) (uint64, error) {
	return c.settlement.GetBalance(ctx, c.wallet)
}

// TokenBalance reads the wallet's balance of the managed asset.
func (c *Client) TokenBalance(ctx context.Context) (uint64, error) {
	return c.settlement.GetTokenBalance(ctx, c.wallet, c.mint)
}

// Wallet returns the operating wallet address.
func (c *Client) Wallet() string {
	return c.wallet
}
