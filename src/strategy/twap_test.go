package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futuresbot/src/connectors"
	"futuresbot/src/model"
)

func newTestTWAP(gw *fakeGateway) (*TWAPExecutor, *fakeClock) {
	log, _ := newTestLogger()
	e := NewTWAPExecutor(gw, log)
	clock := newFakeClock()
	e.sleep = clock.sleep
	return e, clock
}

func TestTWAPPlacesEqualSlices(t *testing.T) {
	gw := &fakeGateway{}
	e, clock := newTestTWAP(gw)

	results, err := e.Run(context.Background(), TWAPPlan{
		Symbol:        "btcusdt",
		Side:          "buy",
		TotalQuantity: decimal.NewFromInt(10),
		Slices:        5,
		Interval:      time.Minute,
	})
	require.NoError(t, err)
	require.Len(t, results, 5)
	require.Len(t, gw.placed, 5)

	ids := map[string]bool{}
	for _, p := range gw.placed {
		assert.Equal(t, model.OrderTypeMarket, p.req.Type)
		assert.Equal(t, "BTCUSDT", p.req.Symbol)
		assert.Equal(t, model.SideBuy, p.req.Side)
		assert.True(t, p.req.Quantity.Equal(decimal.NewFromInt(2)), "got %s", p.req.Quantity)
		assert.True(t, strings.HasPrefix(p.req.ClientOrderID, "tw-"))
		assert.LessOrEqual(t, len(p.req.ClientOrderID), 36)
		ids[p.req.ClientOrderID] = true
	}
	assert.Len(t, ids, 5, "client order ids must be unique")

	assert.Equal(t, []time.Duration{time.Minute, time.Minute, time.Minute, time.Minute}, clock.sleeps)
}

func TestTWAPSingleSliceNeverWaits(t *testing.T) {
	gw := &fakeGateway{}
	e, clock := newTestTWAP(gw)

	results, err := e.Run(context.Background(), TWAPPlan{
		Symbol: "ETHUSDT", Side: "SELL", TotalQuantity: decimal.RequireFromString("0.5"), Slices: 1, Interval: time.Hour,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, gw.placed[0].req.Quantity.Equal(decimal.RequireFromString("0.5")))
	assert.Empty(t, clock.sleeps)
}

func TestTWAPValidationMakesNoCalls(t *testing.T) {
	cases := []struct {
		name  string
		plan  TWAPPlan
		field string
	}{
		{name: "zero slices", plan: TWAPPlan{Symbol: "BTCUSDT", Side: "BUY", TotalQuantity: decimal.NewFromInt(1), Slices: 0}, field: "slices"},
		{name: "bad side", plan: TWAPPlan{Symbol: "BTCUSDT", Side: "HOLD", TotalQuantity: decimal.NewFromInt(1), Slices: 2}, field: "side"},
		{name: "zero quantity", plan: TWAPPlan{Symbol: "BTCUSDT", Side: "BUY", Slices: 2}, field: "quantity"},
		{name: "negative interval", plan: TWAPPlan{Symbol: "BTCUSDT", Side: "BUY", TotalQuantity: decimal.NewFromInt(1), Slices: 2, Interval: -time.Second}, field: "interval"},
		{name: "missing symbol", plan: TWAPPlan{Side: "BUY", TotalQuantity: decimal.NewFromInt(1), Slices: 2}, field: "symbol"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &fakeGateway{}
			e, _ := newTestTWAP(gw)

			results, err := e.Run(context.Background(), tc.plan)
			var ve *model.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tc.field, ve.Field)
			assert.Empty(t, results)
			assert.Empty(t, gw.placed)
		})
	}
}

func TestTWAPStopsOnFailureAndReturnsPartialResults(t *testing.T) {
	failure := &connectors.TransportError{Method: "POST", Path: connectors.OrderPath, StatusCode: 400, Code: -2019}
	gw := &fakeGateway{marketErrAt: 3, marketErr: failure}
	e, clock := newTestTWAP(gw)

	results, err := e.Run(context.Background(), TWAPPlan{
		Symbol: "BTCUSDT", Side: "BUY", TotalQuantity: decimal.NewFromInt(5), Slices: 5, Interval: time.Second,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slice 3/5")

	var te *connectors.TransportError
	require.True(t, errors.As(err, &te))

	require.Len(t, results, 2)
	assert.Equal(t, int64(100), results[0].OrderID)
	assert.Equal(t, int64(101), results[1].OrderID)
	assert.Len(t, clock.sleeps, 2)
}

func TestTWAPCancelledDuringWait(t *testing.T) {
	gw := &fakeGateway{}
	e, _ := newTestTWAP(gw)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	e.sleep = func(ctx context.Context, d time.Duration) error {
		calls++
		if calls == 2 {
			cancel()
			return ctx.Err()
		}
		return nil
	}

	results, err := e.Run(ctx, TWAPPlan{
		Symbol: "BTCUSDT", Side: "SELL", TotalQuantity: decimal.NewFromInt(4), Slices: 4, Interval: time.Second,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, results, 2)
	assert.Len(t, gw.placed, 2)
}

func TestTWAPCancelledBeforeStart(t *testing.T) {
	gw := &fakeGateway{}
	e, _ := newTestTWAP(gw)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := e.Run(ctx, TWAPPlan{
		Symbol: "BTCUSDT", Side: "SELL", TotalQuantity: decimal.NewFromInt(4), Slices: 4,
	})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, results)
	assert.Empty(t, gw.placed)
}

func TestTWAPPerSliceDecimalDivision(t *testing.T) {
	plan := TWAPPlan{TotalQuantity: decimal.RequireFromString("0.003"), Slices: 3}
	assert.Equal(t, "0.001", plan.PerSlice().String())
}

func TestTWAPReportJSON(t *testing.T) {
	empty, err := json.Marshal(NewTWAPReport(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"slices_executed":0,"last":null,"slices":[]}`, string(empty))

	report := NewTWAPReport([]model.OrderResult{{OrderID: 1}, {OrderID: 2}})
	assert.Equal(t, 2, report.SlicesExecuted)
	require.NotNil(t, report.Last)
	assert.Equal(t, int64(2), report.Last.OrderID)
}
