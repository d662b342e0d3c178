package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"futuresbot/src/connectors"
	"futuresbot/src/gateway"
	"futuresbot/src/model"
	"futuresbot/src/strategy"
)

// Options carries the global CLI flags. Zero values leave the environment
// configuration untouched.
type Options struct {
	APIKey     string
	APISecret  string
	BaseURL    string
	RecvWindow int64
	LogLevel   string

	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// Runner executes one CLI command and prints its result as JSON.
type Runner struct {
	gateway     *gateway.Gateway
	twap        *strategy.TWAPExecutor
	oco         *strategy.OCOExecutor
	strategyCfg strategy.Config
	out         io.Writer
	logger      *logrus.Entry
}

func New(client gateway.Signer, strategyCfg strategy.Config, out io.Writer, log *logrus.Entry) *Runner {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	gw := gateway.New(client, log)
	return &Runner{
		gateway:     gw,
		twap:        strategy.NewTWAPExecutor(gw, log),
		oco:         strategy.NewOCOExecutor(gw, strategyCfg, log),
		strategyCfg: strategyCfg,
		out:         out,
		logger:      log,
	}
}

// Bootstrap reads the environment, applies flag overrides, prompts for
// missing credentials and builds a Runner on a signed client.
func Bootstrap(o Options) (*Runner, error) {
	if o.In == nil {
		o.In = os.Stdin
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.ErrOut == nil {
		o.ErrOut = os.Stderr
	}

	cfg := GetConfig()
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	log := SetupLogger(cfg.LogLevel, o.ErrOut)

	clientCfg := connectors.GetConfig()
	if o.BaseURL != "" {
		clientCfg.BaseURL = o.BaseURL
	}
	if o.RecvWindow > 0 {
		clientCfg.RecvWindow = o.RecvWindow
	}
	if err := clientCfg.Validate(); err != nil {
		return nil, err
	}

	strategyCfg := strategy.GetConfig()
	if err := strategyCfg.Validate(); err != nil {
		return nil, err
	}

	creds := Credentials{APIKey: cfg.APIKey, APISecret: cfg.APISecret}
	if o.APIKey != "" {
		creds.APIKey = o.APIKey
	}
	if o.APISecret != "" {
		creds.APISecret = o.APISecret
	}
	prompter := &Prompter{In: o.In, Out: o.ErrOut}
	creds, err := prompter.Complete(creds)
	if err != nil {
		return nil, err
	}

	log.WithField("base_url", clientCfg.BaseURL).Debug("Client configured")
	client := connectors.NewClient(creds.APIKey, creds.APISecret, clientCfg, log)
	return New(client, strategyCfg, o.Out, log), nil
}

type OrderArgs struct {
	Symbol        string
	Side          string
	Quantity      string
	Price         string
	StopPrice     string
	TimeInForce   string
	ClientOrderID string
	ReduceOnly    bool
}

func (a OrderArgs) options() []gateway.OrderOption {
	opts := []gateway.OrderOption{gateway.WithReduceOnly(a.ReduceOnly)}
	if a.TimeInForce != "" {
		opts = append(opts, gateway.WithTimeInForce(model.TimeInForce(a.TimeInForce)))
	}
	if a.ClientOrderID != "" {
		opts = append(opts, gateway.WithClientOrderID(a.ClientOrderID))
	}
	return opts
}

func (r *Runner) Market(ctx context.Context, a OrderArgs) error {
	qty, err := parseDecimal("quantity", a.Quantity)
	if err != nil {
		return err
	}
	res, err := r.gateway.PlaceMarket(ctx, a.Symbol, a.Side, qty, a.options()...)
	if err != nil {
		return err
	}
	return r.print(res)
}

func (r *Runner) Limit(ctx context.Context, a OrderArgs) error {
	qty, err := parseDecimal("quantity", a.Quantity)
	if err != nil {
		return err
	}
	price, err := parseDecimal("price", a.Price)
	if err != nil {
		return err
	}
	res, err := r.gateway.PlaceLimit(ctx, a.Symbol, a.Side, qty, price, a.options()...)
	if err != nil {
		return err
	}
	return r.print(res)
}

func (r *Runner) Stop(ctx context.Context, a OrderArgs) error {
	qty, err := parseDecimal("quantity", a.Quantity)
	if err != nil {
		return err
	}
	stopPrice, err := parseDecimal("stopPrice", a.StopPrice)
	if err != nil {
		return err
	}
	res, err := r.gateway.PlaceStopMarket(ctx, a.Symbol, a.Side, qty, stopPrice, a.options()...)
	if err != nil {
		return err
	}
	return r.print(res)
}

type HandleArgs struct {
	Symbol        string
	OrderID       int64
	ClientOrderID string
}

func (a HandleArgs) handle() model.OrderHandle {
	return model.OrderHandle{OrderID: a.OrderID, ClientOrderID: a.ClientOrderID}
}

func (r *Runner) Status(ctx context.Context, a HandleArgs) error {
	res, err := r.gateway.GetOrder(ctx, a.Symbol, a.handle())
	if err != nil {
		return err
	}
	return r.print(res)
}

func (r *Runner) Cancel(ctx context.Context, a HandleArgs) error {
	res, err := r.gateway.CancelOrder(ctx, a.Symbol, a.handle())
	if err != nil {
		return err
	}
	return r.print(res)
}

// TWAPArgs leaves Slices and Interval nil to use the configured defaults.
type TWAPArgs struct {
	Symbol     string
	Side       string
	Quantity   string
	Slices     *int
	Interval   *time.Duration
	ReduceOnly bool
}

// TWAP prints the report even when the run stopped early, then returns the
// run error.
func (r *Runner) TWAP(ctx context.Context, a TWAPArgs) error {
	qty, err := parseDecimal("quantity", a.Quantity)
	if err != nil {
		return err
	}
	plan := strategy.TWAPPlan{
		Symbol:        a.Symbol,
		Side:          a.Side,
		TotalQuantity: qty,
		Slices:        r.strategyCfg.TWAPSlices,
		Interval:      r.strategyCfg.TWAPInterval,
		ReduceOnly:    a.ReduceOnly,
	}
	if a.Slices != nil {
		plan.Slices = *a.Slices
	}
	if a.Interval != nil {
		plan.Interval = *a.Interval
	}
	if err := plan.Validate(); err != nil {
		return err
	}

	results, runErr := r.twap.Run(ctx, plan)
	if err := r.print(strategy.NewTWAPReport(results)); err != nil {
		return err
	}
	return runErr
}

// OCOArgs leaves the durations nil to use the configured defaults.
type OCOArgs struct {
	Symbol       string
	Side         string
	Quantity     string
	TakeProfit   string
	StopLoss     string
	PollInterval *time.Duration
	Timeout      *time.Duration
	TimeInForce  string
	ReduceOnly   bool
}

// OCO prints the outcome. A timeout is reported as a warning and is not an
// error.
func (r *Runner) OCO(ctx context.Context, a OCOArgs) error {
	qty, err := parseDecimal("quantity", a.Quantity)
	if err != nil {
		return err
	}
	tp, err := parseDecimal("tp", a.TakeProfit)
	if err != nil {
		return err
	}
	sl, err := parseDecimal("sl", a.StopLoss)
	if err != nil {
		return err
	}

	params := strategy.OCOParams{
		Symbol:          a.Symbol,
		Side:            a.Side,
		Quantity:        qty,
		TakeProfitPrice: tp,
		StopLossPrice:   sl,
		PollInterval:    r.strategyCfg.OCOPollInterval,
		Timeout:         r.strategyCfg.OCOTimeout,
		TimeInForce:     model.TimeInForce(a.TimeInForce),
		ReduceOnly:      a.ReduceOnly,
	}
	if a.PollInterval != nil {
		params.PollInterval = *a.PollInterval
	}
	if a.Timeout != nil {
		params.Timeout = *a.Timeout
	}

	outcome, err := r.oco.Run(ctx, params)
	if err != nil {
		return err
	}
	if timeoutErr := outcome.Err(); timeoutErr != nil {
		r.logger.WithError(timeoutErr).Warn("OCO ended without a fill")
	}
	return r.print(outcome)
}

func (r *Runner) print(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = fmt.Fprintln(r.out, string(b))
	return err
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, &model.ValidationError{Field: field, Reason: "is required"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &model.ValidationError{Field: field, Reason: "must be a decimal number", Value: s}
	}
	return d, nil
}
