package pricefeed

import (
	"context"
	"fmt"
	"net/http"

	"github.com/solflow/feerouter/internal/types"
)

// PoolClient reads the managed asset's pool phase and reserves from the
// trade API.
type PoolClient struct {
	baseURL    string
	mint       string
	httpClient *http.Client
}

// NewPoolClient returns a pool client for the given asset mint.
func NewPoolClient(baseURL, mint string, httpClient *http.Client) *PoolClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &PoolClient{baseURL: baseURL, mint: mint, httpClient: httpClient}
}

type poolResponse struct {
	Phase        string `json:"phase"`
	Address      string `json:"address"`
	BaseReserve  uint64 `json:"baseReserve"`
	TokenReserve uint64 `json:"tokenReserve"`
}

func (p *PoolClient) fetch(ctx context.Context) (poolResponse, error) {
	var resp poolResponse
	err := getJSON(ctx, p.httpClient, fmt.Sprintf("%s/pool/%s", p.baseURL, p.mint), &resp)
	return resp, err
}

// State fetches the pool phase for the asset. The snapshot is only carried
// for bonded pools.
func (p *PoolClient) State(ctx context.Context) (types.PoolState, error) {
	resp, err := p.fetch(ctx)
	if err != nil {
		return types.PoolState{}, err
	}
	if resp.Phase == "bonded" {
		return types.BondedState(types.PoolSnapshot{
			Address:      resp.Address,
			BaseReserve:  resp.BaseReserve,
			TokenReserve: resp.TokenReserve,
		}), nil
	}
	return types.PreBondState(), nil
}

// Reserves fetches the venue's reserve pair regardless of phase. Pre-bond
// markets expose their curve reserves through the same endpoint.
func (p *PoolClient) Reserves(ctx context.Context) (types.PoolSnapshot, error) {
	resp, err := p.fetch(ctx)
	if err != nil {
		return types.PoolSnapshot{}, err
	}
	return types.PoolSnapshot{
		Address:      resp.Address,
		BaseReserve:  resp.BaseReserve,
		TokenReserve: resp.TokenReserve,
	}, nil
}
