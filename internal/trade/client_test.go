package trade

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu     sync.Mutex
	orders []Order
	err    error
}

func (f *fakeAPI) BuildTransaction(ctx context.Context, order Order) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.orders = append(f.orders, order)
	return []byte("payload"), nil
}

type fakeSettlement struct {
	mu       sync.Mutex
	sends    int
	burns    []uint64
	sendErrs []error
}

func (f *fakeSettlement) GetBalance(ctx context.Context, wallet string) (uint64, error) {
	return 0, nil
}

func (f *fakeSettlement) GetTokenBalance(ctx context.Context, wallet, mint string) (uint64, error) {
	return 0, nil
}

func (f *fakeSettlement) SendTransaction(ctx context.Context, payload []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			return "", err
		}
	}
	f.sends++
	return "sig", nil
}

func (f *fakeSettlement) ConfirmTransaction(ctx context.Context, signature string) error {
	return nil
}

func (f *fakeSettlement) Burn(ctx context.Context, wallet, mint string, amount uint64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.burns = append(f.burns, amount)
	return "burnsig", nil
}

func (f *fakeSettlement) Transfer(ctx context.Context, from, to string, lamports uint64) (string, error) {
	return "transfersig", nil
}

func newTestClient(t *testing.T, api *fakeAPI, settlement *fakeSettlement) *Client {
	t.Helper()
	client, err := NewClient(Config{
		Wallet:        "operatingWallet",
		AssetMint:     "mintAddress",
		SlippageBps:   150,
		PriorityFee:   5000,
		API:           api,
		Settlement:    settlement,
		SubmitSpacing: time.Millisecond,
		Policy: RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			Retryable:   IsRetryable,
		},
	})
	require.NoError(t, err)
	return client
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{AssetMint: "m", API: &fakeAPI{}, Settlement: &fakeSettlement{}})
	assert.Error(t, err, "empty wallet must be rejected")

	_, err = NewClient(Config{Wallet: "w", AssetMint: "m", Settlement: &fakeSettlement{}})
	assert.Error(t, err, "nil API must be rejected")

	_, err = NewClient(Config{Wallet: "w", AssetMint: "m", API: &fakeAPI{}})
	assert.Error(t, err, "nil settlement must be rejected")
}

func TestBuyBuildsOrderAndSubmits(t *testing.T) {
	api := &fakeAPI{}
	settlement := &fakeSettlement{}
	client := newTestClient(t, api, settlement)

	sig, err := client.Buy(context.Background(), 1_000_000, "auto")
	require.NoError(t, err)
	assert.Equal(t, "sig", sig)

	require.Len(t, api.orders, 1)
	order := api.orders[0]
	assert.Equal(t, ActionBuy, order.Action)
	assert.Equal(t, "operatingWallet", order.Wallet)
	assert.Equal(t, "mintAddress", order.AssetID)
	assert.Equal(t, uint64(1_000_000), order.Amount)
	assert.Equal(t, DenomLamports, order.Denomination)
	assert.Equal(t, uint64(150), order.SlippageBps)
	assert.Equal(t, 1, settlement.sends)
}

func TestSellUsesTokenDenomination(t *testing.T) {
	api := &fakeAPI{}
	client := newTestClient(t, api, &fakeSettlement{})

	_, err := client.Sell(context.Background(), 5_000, "poolAddr")
	require.NoError(t, err)

	require.Len(t, api.orders, 1)
	assert.Equal(t, ActionSell, api.orders[0].Action)
	assert.Equal(t, DenomToken, api.orders[0].Denomination)
	assert.Equal(t, "poolAddr", api.orders[0].Pool)
}

func TestSubmitRetriesTransientSendFailures(t *testing.T) {
	api := &fakeAPI{}
	settlement := &fakeSettlement{
		sendErrs: []error{Transient(errors.New("blockhash expired")), nil},
	}
	client := newTestClient(t, api, settlement)

	sig, err := client.Buy(context.Background(), 100, "auto")
	require.NoError(t, err)
	assert.Equal(t, "sig", sig)
	assert.Equal(t, 1, settlement.sends)
	assert.Len(t, api.orders, 2, "the order is rebuilt on each attempt")
}

func TestSubmitPropagatesBusinessRejection(t *testing.T) {
	api := &fakeAPI{err: ErrAlreadyProcessed}
	client := newTestClient(t, api, &fakeSettlement{})

	_, err := client.Buy(context.Background(), 100, "auto")
	require.Error(t, err)
	assert.True(t, IsBusinessRejection(err))
}

func TestSubmitSpacingIsEnforced(t *testing.T) {
	api := &fakeAPI{}
	client := newTestClient(t, api, &fakeSettlement{})

	start := time.Now()
	_, err := client.Buy(context.Background(), 100, "auto")
	require.NoError(t, err)
	_, err = client.Buy(context.Background(), 100, "auto")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), time.Millisecond,
		"second submission must wait out the spacing")
}

func TestClaimWithoutServiceConfigured(t *testing.T) {
	client := newTestClient(t, &fakeAPI{}, &fakeSettlement{})

	_, err := client.Claim(context.Background())
	assert.ErrorIs(t, err, ErrNoClientConfigured)
}

func TestBurnDelegatesToSettlement(t *testing.T) {
	settlement := &fakeSettlement{}
	client := newTestClient(t, &fakeAPI{}, settlement)

	_, err := client.Burn(context.Background(), 777)
	require.NoError(t, err)
	assert.Equal(t, []uint64{777}, settlement.burns)
}
