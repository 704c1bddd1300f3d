/*

This file contains the three price sources tried in order by the feed:
the liquidity-weighted aggregator, the venue reserve ratio, and the spot
oracle. Each source validates its answer before handing it back; a source
never returns NaN, Inf, or a non-positive price.

*/

package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"

	"github.com/solflow/feerouter/internal/types"
)

var (
	ErrInvalidPrice   = errors.New("invalid price received")
	ErrNoLiquidity    = errors.New("no liquidity reported by any venue")
	ErrEmptyReserves  = errors.New("venue reported empty reserves")
	ErrNoPriceSources = errors.New("no price source configured")
)

// Source produces one spot price for the managed asset.
type Source interface {
	Name() string
	Price(ctx context.Context) (float64, error)
}

// validatePrice rejects non-finite and non-positive prices.
func validatePrice(price float64, source string) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return fmt.Errorf("%w: %s returned non-finite price %f", ErrInvalidPrice, source, price)
	}
	if price <= 0 {
		return fmt.Errorf("%w: %s returned non-positive price %f", ErrInvalidPrice, source, price)
	}
	return nil
}

// AggregatorSource reads per-venue quotes from the price aggregator and
// returns the liquidity-weighted average.
type AggregatorSource struct {
	url        string
	httpClient *http.Client
}

// NewAggregatorSource returns an aggregator source for the given quote URL.
func NewAggregatorSource(url string, httpClient *http.Client) *AggregatorSource {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AggregatorSource{url: url, httpClient: httpClient}
}

func (s *AggregatorSource) Name() string { return "aggregator" }

type aggregatorResponse struct {
	Venues []struct {
		Price     float64 `json:"price"`
		Liquidity float64 `json:"liquidity"`
	} `json:"venues"`
}

// Price returns sum(price_i * liquidity_i) / sum(liquidity_i) over the
// venues the aggregator reports. Venues with invalid quotes are skipped.
func (s *AggregatorSource) Price(ctx context.Context) (float64, error) {
	var resp aggregatorResponse
	if err := getJSON(ctx, s.httpClient, s.url, &resp); err != nil {
		return 0, err
	}

	var weighted, totalLiquidity float64
	for _, venue := range resp.Venues {
		if validatePrice(venue.Price, s.Name()) != nil {
			continue
		}
		if math.IsNaN(venue.Liquidity) || math.IsInf(venue.Liquidity, 0) || venue.Liquidity <= 0 {
			continue
		}
		weighted += venue.Price * venue.Liquidity
		totalLiquidity += venue.Liquidity
	}
	if totalLiquidity <= 0 {
		return 0, ErrNoLiquidity
	}

	price := weighted / totalLiquidity
	if err := validatePrice(price, s.Name()); err != nil {
		return 0, err
	}
	return price, nil
}

// ReserveProvider supplies the venue's current reserve snapshot.
type ReserveProvider interface {
	Reserves(ctx context.Context) (types.PoolSnapshot, error)
}

// CurveSource derives the price from the venue's reserve ratio.
type CurveSource struct {
	reserves ReserveProvider
}

// NewCurveSource returns a curve source backed by the given provider.
func NewCurveSource(reserves ReserveProvider) *CurveSource {
	return &CurveSource{reserves: reserves}
}

func (s *CurveSource) Name() string { return "curve" }

// Price returns baseReserve / tokenReserve.
func (s *CurveSource) Price(ctx context.Context) (float64, error) {
	snap, err := s.reserves.Reserves(ctx)
	if err != nil {
		return 0, err
	}
	if snap.BaseReserve == 0 || snap.TokenReserve == 0 {
		return 0, ErrEmptyReserves
	}
	price := float64(snap.BaseReserve) / float64(snap.TokenReserve)
	if err := validatePrice(price, s.Name()); err != nil {
		return 0, err
	}
	return price, nil
}

// OracleSource reads a single spot price from the oracle endpoint.
type OracleSource struct {
	url        string
	httpClient *http.Client
}

// NewOracleSource returns an oracle source for the given quote URL.
func NewOracleSource(url string, httpClient *http.Client) *OracleSource {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OracleSource{url: url, httpClient: httpClient}
}

func (s *OracleSource) Name() string { return "oracle" }

type oracleResponse struct {
	Price float64 `json:"price"`
}

func (s *OracleSource) Price(ctx context.Context) (float64, error) {
	var resp oracleResponse
	if err := getJSON(ctx, s.httpClient, s.url, &resp); err != nil {
		return 0, err
	}
	if err := validatePrice(resp.Price, s.Name()); err != nil {
		return 0, err
	}
	return resp.Price, nil
}

// getJSON performs a GET and decodes the JSON body into out.
func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
