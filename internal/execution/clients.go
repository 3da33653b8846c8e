package execution

import (
	"context"

	"github.com/kestrel-trading/xvenue-arb/pkg/types"
)

// SingleBookClient places orders on the sequence-gap venue's REST API
// and returns the venue's assigned order id on success.
type SingleBookClient interface {
	PlaceLimitFOK(ctx context.Context, ticker string, outcome types.Outcome, priceCents int64, count types.Size, clientOrderID string) (orderID string, err error)
	PlaceMarketSell(ctx context.Context, ticker string, outcome types.Outcome, count types.Size) (orderID string, err error)
}

// TwoBookClient places orders on the asset-id venue via a signed order
// payload.
type TwoBookClient interface {
	PlaceLimitFOK(ctx context.Context, tokenID string, side string, price types.Price, size types.Size) (orderID string, err error)
}

// DryRunSingleBookClient short-circuits every call to a synthetic
// "placed" result without dispatching. It returns no order id; the
// unwinder closes out on venue/outcome/size alone, so an absent id is
// fine.
type DryRunSingleBookClient struct{}

func (DryRunSingleBookClient) PlaceLimitFOK(ctx context.Context, ticker string, outcome types.Outcome, priceCents int64, count types.Size, clientOrderID string) (string, error) {
	return "", nil
}

func (DryRunSingleBookClient) PlaceMarketSell(ctx context.Context, ticker string, outcome types.Outcome, count types.Size) (string, error) {
	return "", nil
}

// DryRunTwoBookClient is the venue-B counterpart of DryRunSingleBookClient.
type DryRunTwoBookClient struct{}

func (DryRunTwoBookClient) PlaceLimitFOK(ctx context.Context, tokenID string, side string, price types.Price, size types.Size) (string, error) {
	return "dry-run", nil
}
