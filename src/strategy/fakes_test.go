package strategy

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"

	"futuresbot/src/gateway"
	"futuresbot/src/model"
)

type placedOrder struct {
	req model.OrderRequest
}

type cancelCall struct {
	symbol string
	handle model.OrderHandle
	ctxErr error
}

// fakeGateway scripts order statuses per leg. Limit orders get id 1, stop
// orders id 2 and market orders 100, 101, ...
type fakeGateway struct {
	mu sync.Mutex

	placed  []placedOrder
	cancels []cancelCall
	polls   int

	marketErrAt int // 1-based; 0 never fails
	marketErr   error
	limitErr    error
	stopErr     error
	cancelErr   error

	// Consumed one entry per GetOrder; the last entry repeats.
	limitStatuses []model.OrderStatus
	stopStatuses  []model.OrderStatus
	limitPollErrs []error
	stopPollErrs  []error

	onPoll func(n int)
}

func request(symbol, side string, typ model.OrderType, qty decimal.Decimal, opts []gateway.OrderOption) model.OrderRequest {
	req := model.OrderRequest{Symbol: symbol, Side: model.Side(side), Type: typ, Quantity: qty}
	for _, opt := range opts {
		opt(&req)
	}
	req.Normalize()
	return req
}

func (f *fakeGateway) PlaceMarket(_ context.Context, symbol, side string, qty decimal.Decimal, opts ...gateway.OrderOption) (*model.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := f.countType(model.OrderTypeMarket) + 1
	if f.marketErrAt != 0 && n == f.marketErrAt {
		return nil, f.marketErr
	}
	req := request(symbol, side, model.OrderTypeMarket, qty, opts)
	f.placed = append(f.placed, placedOrder{req: req})
	return &model.OrderResult{
		OrderID:       int64(99 + n),
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Status:        model.OrderStatusFilled,
		Type:          model.OrderTypeMarket,
		Side:          req.Side,
		OrigQty:       qty,
		ExecutedQty:   qty,
	}, nil
}

func (f *fakeGateway) PlaceLimit(_ context.Context, symbol, side string, qty, price decimal.Decimal, opts ...gateway.OrderOption) (*model.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.limitErr != nil {
		return nil, f.limitErr
	}
	req := request(symbol, side, model.OrderTypeLimit, qty, opts)
	req.Price = price
	f.placed = append(f.placed, placedOrder{req: req})
	return &model.OrderResult{OrderID: 1, ClientOrderID: req.ClientOrderID, Symbol: req.Symbol, Status: model.OrderStatusNew, Type: model.OrderTypeLimit, Price: price}, nil
}

func (f *fakeGateway) PlaceStopMarket(_ context.Context, symbol, side string, qty, stopPrice decimal.Decimal, opts ...gateway.OrderOption) (*model.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopErr != nil {
		return nil, f.stopErr
	}
	req := request(symbol, side, model.OrderTypeStopMarket, qty, opts)
	req.StopPrice = stopPrice
	f.placed = append(f.placed, placedOrder{req: req})
	return &model.OrderResult{OrderID: 2, ClientOrderID: req.ClientOrderID, Symbol: req.Symbol, Status: model.OrderStatusNew, Type: model.OrderTypeStopMarket, StopPrice: stopPrice}, nil
}

func (f *fakeGateway) GetOrder(_ context.Context, symbol string, handle model.OrderHandle) (*model.OrderResult, error) {
	f.mu.Lock()
	f.polls++
	n := f.polls
	hook := f.onPoll

	var (
		status model.OrderStatus
		err    error
	)
	// Two polls per tick: limit first, then stop.
	tick := (n - 1) / 2
	if handle.OrderID == 1 {
		status, err = pick(f.limitStatuses, tick), pickErr(f.limitPollErrs, tick)
	} else {
		status, err = pick(f.stopStatuses, tick), pickErr(f.stopPollErrs, tick)
	}
	f.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if err != nil {
		return nil, err
	}
	return &model.OrderResult{OrderID: handle.OrderID, Symbol: symbol, Status: status}, nil
}

func (f *fakeGateway) CancelOrder(ctx context.Context, symbol string, handle model.OrderHandle) (*model.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cancels = append(f.cancels, cancelCall{symbol: symbol, handle: handle, ctxErr: ctx.Err()})
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return &model.OrderResult{OrderID: handle.OrderID, Symbol: symbol, Status: model.OrderStatusCanceled}, nil
}

func (f *fakeGateway) countType(t model.OrderType) int {
	n := 0
	for _, p := range f.placed {
		if p.req.Type == t {
			n++
		}
	}
	return n
}

func (f *fakeGateway) cancelledIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.cancels))
	for _, c := range f.cancels {
		ids = append(ids, c.handle.OrderID)
	}
	return ids
}

func pick(statuses []model.OrderStatus, i int) model.OrderStatus {
	if len(statuses) == 0 {
		return model.OrderStatusNew
	}
	if i >= len(statuses) {
		return statuses[len(statuses)-1]
	}
	return statuses[i]
}

func pickErr(errs []error, i int) error {
	if i < len(errs) {
		return errs[i]
	}
	return nil
}

// fakeClock advances only when sleep is called.
type fakeClock struct {
	mu     sync.Mutex
	t      time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
	return nil
}

func newTestLogger() (*logrus.Entry, *logrustest.Hook) {
	logger, hook := logrustest.NewNullLogger()
	return logrus.NewEntry(logger), hook
}
