/*

This file contains the outbound API surfaces the trade client is built on:
the trade-execution API that turns orders into signable payloads, the claim
service for pending fee income, and the settlement operations consumed from
the settlement client. Failures are classified here so the retry executor
can stay generic.

*/

package trade

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Order actions accepted by the trade-execution API.
const (
	ActionBuy     = "buy"
	ActionSell    = "sell"
	ActionDeposit = "deposit"
)

// Denominations for the order amount.
const (
	DenomLamports = "sol"
	DenomToken    = "token"
)

// Order is one trade submission to the execution API.
type Order struct {
	Wallet       string `json:"wallet"`
	Action       string `json:"action"`
	AssetID      string `json:"assetId"`
	Amount       uint64 `json:"amount"`
	Denomination string `json:"denomination"`
	SlippageBps  uint64 `json:"slippage"`
	PriorityFee  uint64 `json:"priorityFee"`
	Pool         string `json:"pool"`
}

// ExecutionAPI turns an order into a signable transaction payload.
type ExecutionAPI interface {
	BuildTransaction(ctx context.Context, order Order) ([]byte, error)
}

// ClaimService claims pending fee income for a wallet. A claim with nothing
// pending or one already processed surfaces as a business rejection.
type ClaimService interface {
	Claim(ctx context.Context, wallet string) (uint64, error)
}

// Settlement is the slice of the settlement network the trade client needs.
// The concrete implementation lives in internal/settlement.
type Settlement interface {
	GetBalance(ctx context.Context, wallet string) (uint64, error)
	GetTokenBalance(ctx context.Context, wallet, mint string) (uint64, error)
	SendTransaction(ctx context.Context, payload []byte) (string, error)
	ConfirmTransaction(ctx context.Context, signature string) error
	Burn(ctx context.Context, wallet, mint string, amount uint64) (string, error)
	Transfer(ctx context.Context, from, to string, lamports uint64) (string, error)
}

// HTTPExecutionAPI posts orders to the configured trade endpoint.
type HTTPExecutionAPI struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPExecutionAPI returns an execution API bound to baseURL.
func NewHTTPExecutionAPI(baseURL string, httpClient *http.Client) *HTTPExecutionAPI {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPExecutionAPI{baseURL: baseURL, httpClient: httpClient}
}

type tradeResponse struct {
	Transaction string `json:"transaction"`
	Error       string `json:"error"`
}

// BuildTransaction submits the order and decodes the signable payload.
func (a *HTTPExecutionAPI) BuildTransaction(ctx context.Context, order Order) ([]byte, error) {
	var resp tradeResponse
	if err := postJSON(ctx, a.httpClient, a.baseURL, order, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, classifyRejection(resp.Error)
	}
	payload, err := base64.StdEncoding.DecodeString(resp.Transaction)
	if err != nil {
		return nil, fmt.Errorf("trade API returned malformed transaction payload: %w", err)
	}
	return payload, nil
}

// HTTPClaimService claims pending fees from the configured claim endpoint.
type HTTPClaimService struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClaimService returns a claim service bound to baseURL.
func NewHTTPClaimService(baseURL string, httpClient *http.Client) *HTTPClaimService {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClaimService{baseURL: baseURL, httpClient: httpClient}
}

type claimRequest struct {
	Wallet string `json:"wallet"`
}

type claimResponse struct {
	Claimed uint64 `json:"claimed"`
	Error   string `json:"error"`
}

// Claim requests the pending fee income for wallet.
func (s *HTTPClaimService) Claim(ctx context.Context, wallet string) (uint64, error) {
	var resp claimResponse
	if err := postJSON(ctx, s.httpClient, s.baseURL, claimRequest{Wallet: wallet}, &resp); err != nil {
		return 0, err
	}
	if resp.Error != "" {
		return 0, classifyRejection(resp.Error)
	}
	return resp.Claimed, nil
}

// postJSON posts the request body and decodes the response into out.
// Transport failures and upstream 5xx responses are marked transient;
// upstream 4xx bodies are classified as business rejections.
func postJSON(ctx context.Context, client *http.Client, url string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return Transient(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Transient(err)
	}

	switch {
	case resp.StatusCode >= 500:
		return Transient(fmt.Errorf("upstream returned %d: %s", resp.StatusCode, raw))
	case resp.StatusCode >= 400:
		return classifyRejection(string(raw))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
