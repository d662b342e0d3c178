package strategy

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"futuresbot/src/gateway"
	"futuresbot/src/model"
)

// OrderGateway is implemented by *gateway.Gateway.
type OrderGateway interface {
	PlaceMarket(ctx context.Context, symbol, side string, qty decimal.Decimal, opts ...gateway.OrderOption) (*model.OrderResult, error)
	PlaceLimit(ctx context.Context, symbol, side string, qty, price decimal.Decimal, opts ...gateway.OrderOption) (*model.OrderResult, error)
	PlaceStopMarket(ctx context.Context, symbol, side string, qty, stopPrice decimal.Decimal, opts ...gateway.OrderOption) (*model.OrderResult, error)
	GetOrder(ctx context.Context, symbol string, handle model.OrderHandle) (*model.OrderResult, error)
	CancelOrder(ctx context.Context, symbol string, handle model.OrderHandle) (*model.OrderResult, error)
}

// newClientOrderID returns prefix + "-" + 32 hex chars. Prefixes are kept
// short so the id stays within the exchange's 36 character limit.
func newClientOrderID(prefix string) string {
	return prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// placedHandle falls back to the id we generated when the exchange response
// carries no identifiers.
func placedHandle(res *model.OrderResult, clientOrderID string) model.OrderHandle {
	h := res.Handle()
	if h.IsZero() {
		h.ClientOrderID = clientOrderID
	}
	return h
}
