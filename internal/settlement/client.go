// Package settlement implements the settlement-network client consumed by the
// trade layer. It speaks JSON-RPC over HTTP to the configured node. Reads go
// through a retrying transport; writes are submitted exactly once per call
// and left to the caller's retry policy.
package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/solflow/feerouter/internal/logger"
	"github.com/solflow/feerouter/internal/trade"
)

const (
	confirmAttempts = 10
	confirmInterval = 2 * time.Second
)

// RPCClient talks to one settlement node.
type RPCClient struct {
	endpoint    string
	readClient  *http.Client
	writeClient *http.Client
	logger      zerolog.Logger
	nextID      atomic.Uint64
}

// NewRPCClient creates a client for the given JSON-RPC endpoint.
func NewRPCClient(endpoint string) *RPCClient {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 3 * time.Second
	retryClient.Logger = nil

	return &RPCClient{
		endpoint:    endpoint,
		readClient:  retryClient.StandardClient(),
		writeClient: &http.Client{Timeout: 30 * time.Second},
		logger:      logger.GetForComponent("settlement_client"),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs one JSON-RPC invocation and decodes the result into out.
func (c *RPCClient) call(ctx context.Context, client *http.Client, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := client.Do(req)
	if err != nil {
		return trade.Transient(err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return trade.Transient(err)
	}
	if httpResp.StatusCode >= 500 {
		return trade.Transient(fmt.Errorf("%s returned %d", method, httpResp.StatusCode))
	}

	var resp rpcResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if resp.Error != nil {
		return trade.SettlementFailure(fmt.Errorf("%s rejected (%d): %s", method, resp.Error.Code, resp.Error.Message))
	}
	if out != nil {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}
	return nil
}

// GetBalance returns the wallet's spendable lamport balance.
func (c *RPCClient) GetBalance(ctx context.Context, wallet string) (uint64, error) {
	var result struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, c.readClient, "getBalance", []any{wallet}, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// GetTokenBalance returns the wallet's raw token balance for mint.
func (c *RPCClient) GetTokenBalance(ctx context.Context, wallet, mint string) (uint64, error) {
	var result struct {
		Value struct {
			Amount string `json:"amount"`
		} `json:"value"`
	}
	if err := c.call(ctx, c.readClient, "getTokenAccountBalance", []any{wallet, mint}, &result); err != nil {
		return 0, err
	}
	if result.Value.Amount == "" {
		return 0, nil
	}
	amount, err := strconv.ParseUint(result.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("node returned malformed token amount %q: %w", result.Value.Amount, err)
	}
	return amount, nil
}

// SendTransaction broadcasts a signable payload and returns its signature.
func (c *RPCClient) SendTransaction(ctx context.Context, payload []byte) (string, error) {
	var signature string
	if err := c.call(ctx, c.writeClient, "sendTransaction", []any{payload}, &signature); err != nil {
		return "", err
	}
	c.logger.Debug().Str("signature", signature).Msg("Transaction broadcast")
	return signature, nil
}

// ConfirmTransaction polls the signature status until the network reports it
// confirmed. An unconfirmed signature after the poll budget is a settlement
// failure.
func (c *RPCClient) ConfirmTransaction(ctx context.Context, signature string) error {
	_, confirmed, err := trade.PollUntil(ctx, confirmAttempts, confirmInterval,
		func(ctx context.Context) (struct{}, bool, error) {
			var result struct {
				Confirmed bool `json:"confirmed"`
			}
			if err := c.call(ctx, c.readClient, "confirmTransaction", []any{signature}, &result); err != nil {
				return struct{}{}, false, err
			}
			return struct{}{}, result.Confirmed, nil
		})
	if err != nil {
		return err
	}
	if !confirmed {
		return trade.SettlementFailure(fmt.Errorf("transaction %s not confirmed", signature))
	}
	return nil
}

// Burn destroys amount of mint held by wallet via the node's signer.
func (c *RPCClient) Burn(ctx context.Context, wallet, mint string, amount uint64) (string, error) {
	var signature string
	if err := c.call(ctx, c.writeClient, "burn", []any{wallet, mint, amount}, &signature); err != nil {
		return "", err
	}
	c.logger.Info().
		Str("mint", mint).
		Uint64("amount", amount).
		Str("signature", signature).
		Msg("Burn submitted")
	return signature, nil
}

// Transfer moves lamports between wallets via the node's signer.
func (c *RPCClient) Transfer(ctx context.Context, from, to string, lamports uint64) (string, error) {
	var signature string
	if err := c.call(ctx, c.writeClient, "sendTransfer", []any{from, to, lamports}, &signature); err != nil {
		return "", err
	}
	return signature, nil
}
