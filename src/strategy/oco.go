package strategy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"futuresbot/src/gateway"
	"futuresbot/src/model"
	"futuresbot/src/utils"
)

type Leg string

const (
	LegLimit Leg = "limit"
	LegStop  Leg = "stop"
)

type OCOStatus string

const (
	OCOResolved OCOStatus = "resolved"
	OCOTimedOut OCOStatus = "timeout"
)

// OCOParams describes a take-profit LIMIT leg and a stop-loss STOP_MARKET
// leg. Both legs use Side as given.
type OCOParams struct {
	Symbol          string
	Side            string
	Quantity        decimal.Decimal
	TakeProfitPrice decimal.Decimal
	StopLossPrice   decimal.Decimal
	PollInterval    time.Duration
	Timeout         time.Duration
	TimeInForce     model.TimeInForce
	ReduceOnly      bool
}

func (p OCOParams) Validate() error {
	if strings.TrimSpace(p.Symbol) == "" {
		return &model.ValidationError{Field: "symbol", Reason: "is required"}
	}
	if _, err := model.ParseSide(p.Side); err != nil {
		return err
	}
	if !p.Quantity.IsPositive() {
		return &model.ValidationError{Field: "quantity", Reason: "must be > 0", Value: p.Quantity.String()}
	}
	if !p.TakeProfitPrice.IsPositive() {
		return &model.ValidationError{Field: "tp", Reason: "must be > 0", Value: p.TakeProfitPrice.String()}
	}
	if !p.StopLossPrice.IsPositive() {
		return &model.ValidationError{Field: "sl", Reason: "must be > 0", Value: p.StopLossPrice.String()}
	}
	if p.PollInterval <= 0 {
		return &model.ValidationError{Field: "poll", Reason: "must be > 0", Value: p.PollInterval.String()}
	}
	if p.Timeout <= 0 {
		return &model.ValidationError{Field: "timeout", Reason: "must be > 0", Value: p.Timeout.String()}
	}
	return nil
}

// OCOOutcome marshals to {"status":"resolved","winner":...,"limit":...,"stop":...}
// or {"status":"timeout"}.
type OCOOutcome struct {
	Status OCOStatus          `json:"status"`
	Winner Leg                `json:"winner,omitempty"`
	Limit  *model.OrderResult `json:"limit,omitempty"`
	Stop   *model.OrderResult `json:"stop,omitempty"`

	symbol  string
	timeout time.Duration
}

// Err returns a *model.TimeoutError for a timed out session and nil otherwise.
func (o OCOOutcome) Err() error {
	if o.Status != OCOTimedOut {
		return nil
	}
	return &model.TimeoutError{Strategy: "oco", Symbol: o.symbol, After: o.timeout}
}

// ocoSession is owned by a single Run call.
type ocoSession struct {
	symbol  string
	timeout time.Duration
	started time.Time

	limit, stop             model.OrderHandle
	limitStatus, stopStatus model.OrderStatus
	limitLast, stopLast     *model.OrderResult
}

func (s *ocoSession) resolved(winner Leg) OCOOutcome {
	return OCOOutcome{
		Status:  OCOResolved,
		Winner:  winner,
		Limit:   s.limitLast,
		Stop:    s.stopLast,
		symbol:  s.symbol,
		timeout: s.timeout,
	}
}

func (s *ocoSession) timedOut() OCOOutcome {
	return OCOOutcome{Status: OCOTimedOut, symbol: s.symbol, timeout: s.timeout}
}

// OCOExecutor emulates one-cancels-the-other with two independent orders and
// polling. The exchange gives no atomicity: both legs can fill between polls.
type OCOExecutor struct {
	gateway            OrderGateway
	logger             *logrus.Entry
	now                func() time.Time
	sleep              func(context.Context, time.Duration) error
	resolveOnLimitFill bool
	cancelTimeout      time.Duration
}

func NewOCOExecutor(gw OrderGateway, cfg Config, log *logrus.Entry) *OCOExecutor {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.OCOCancelTimeout <= 0 {
		cfg.OCOCancelTimeout = DefaultConfig().OCOCancelTimeout
	}
	return &OCOExecutor{
		gateway:            gw,
		logger:             log.WithField("strategy", "oco"),
		now:                time.Now,
		sleep:              utils.SleepContext,
		resolveOnLimitFill: cfg.OCOResolveOnLimitFill,
		cancelTimeout:      cfg.OCOCancelTimeout,
	}
}

// Run places both legs and polls until one resolves or the timeout elapses.
// A timeout is an outcome, not an error. Cancelling ctx cancels both legs on
// a best-effort basis and returns the context error.
func (e *OCOExecutor) Run(ctx context.Context, p OCOParams) (OCOOutcome, error) {
	if err := p.Validate(); err != nil {
		return OCOOutcome{}, err
	}

	symbol := strings.ToUpper(strings.TrimSpace(p.Symbol))
	log := e.logger.WithFields(logrus.Fields{
		"symbol":   symbol,
		"side":     strings.ToUpper(p.Side),
		"quantity": p.Quantity.String(),
		"tp":       p.TakeProfitPrice.String(),
		"sl":       p.StopLossPrice.String(),
	})

	// PLACING_LEGS
	limitID := newClientOrderID("tp")
	limitOpts := []gateway.OrderOption{gateway.WithClientOrderID(limitID), gateway.WithReduceOnly(p.ReduceOnly)}
	if p.TimeInForce != "" {
		limitOpts = append(limitOpts, gateway.WithTimeInForce(p.TimeInForce))
	}
	limitRes, err := e.gateway.PlaceLimit(ctx, symbol, p.Side, p.Quantity, p.TakeProfitPrice, limitOpts...)
	if err != nil {
		log.WithError(err).Error("OCO take-profit leg failed, nothing to compensate")
		return OCOOutcome{}, fmt.Errorf("oco place limit leg: %w", err)
	}

	s := &ocoSession{
		symbol:      symbol,
		timeout:     p.Timeout,
		limit:       placedHandle(limitRes, limitID),
		limitStatus: limitRes.CurrentStatus(),
		limitLast:   limitRes,
	}

	stopID := newClientOrderID("sl")
	stopRes, err := e.gateway.PlaceStopMarket(ctx, symbol, p.Side, p.Quantity, p.StopLossPrice,
		gateway.WithClientOrderID(stopID), gateway.WithReduceOnly(p.ReduceOnly))
	if err != nil {
		log.WithError(err).Error("OCO stop-loss leg failed, cancelling take-profit leg")
		e.bestEffortCancel(ctx, symbol, LegLimit, s.limit)
		return OCOOutcome{}, fmt.Errorf("oco place stop leg: %w", err)
	}
	s.stop = placedHandle(stopRes, stopID)
	s.stopStatus = stopRes.CurrentStatus()
	s.stopLast = stopRes

	log = log.WithFields(logrus.Fields{
		"limit_order_id": s.limit.OrderID,
		"stop_order_id":  s.stop.OrderID,
	})
	log.Info("OCO legs placed, polling")

	// POLLING
	s.started = e.now()
	for {
		if err := ctx.Err(); err != nil {
			return e.abort(ctx, s, log, err)
		}

		if elapsed := e.now().Sub(s.started); elapsed > p.Timeout {
			log.WithField("elapsed", elapsed.String()).Warn("OCO timed out, cancelling both legs")
			e.cancelBoth(ctx, s)
			return s.timedOut(), nil
		}

		if outcome, done := e.tick(ctx, s, log); done {
			log.WithField("winner", outcome.Winner).Info("OCO resolved")
			return outcome, nil
		}

		if err := e.sleep(ctx, p.PollInterval); err != nil {
			return e.abort(ctx, s, log, err)
		}
	}
}

// tick polls both legs once and evaluates the session. A failed poll skips
// evaluation for this tick.
func (e *OCOExecutor) tick(ctx context.Context, s *ocoSession, log *logrus.Entry) (OCOOutcome, bool) {
	limitRes, limitErr := e.gateway.GetOrder(ctx, s.symbol, s.limit)
	stopRes, stopErr := e.gateway.GetOrder(ctx, s.symbol, s.stop)

	if limitErr != nil {
		s.limitStatus = model.OrderStatusUnknown
	} else {
		s.limitLast, s.limitStatus = limitRes, limitRes.CurrentStatus()
	}
	if stopErr != nil {
		s.stopStatus = model.OrderStatusUnknown
	} else {
		s.stopLast, s.stopStatus = stopRes, stopRes.CurrentStatus()
	}

	if err := multierr.Combine(limitErr, stopErr); err != nil {
		log.WithError(err).Warn("OCO poll failed, retrying next tick")
		return OCOOutcome{}, false
	}

	limitFilled := s.limitStatus == model.OrderStatusFilled
	stopFilled := s.stopStatus == model.OrderStatusFilled

	switch {
	case limitFilled && stopFilled:
		log.Warn("Both OCO legs filled")
		s.stopLast = e.cancelLoser(ctx, s.symbol, LegStop, s.stop, s.stopLast)
		return s.resolved(LegLimit), true
	case stopFilled:
		s.limitLast = e.cancelLoser(ctx, s.symbol, LegLimit, s.limit, s.limitLast)
		return s.resolved(LegStop), true
	case limitFilled && e.resolveOnLimitFill:
		s.stopLast = e.cancelLoser(ctx, s.symbol, LegStop, s.stop, s.stopLast)
		return s.resolved(LegLimit), true
	}

	log.WithFields(logrus.Fields{
		"limit_status": s.limitStatus,
		"stop_status":  s.stopStatus,
	}).Debug("OCO still open")
	return OCOOutcome{}, false
}

func (e *OCOExecutor) abort(ctx context.Context, s *ocoSession, log *logrus.Entry, cause error) (OCOOutcome, error) {
	log.WithError(cause).Warn("OCO canceled, cancelling both legs")
	e.cancelBoth(ctx, s)
	return OCOOutcome{}, fmt.Errorf("oco canceled: %w", cause)
}

func (e *OCOExecutor) cancelBoth(ctx context.Context, s *ocoSession) {
	e.bestEffortCancel(ctx, s.symbol, LegLimit, s.limit)
	e.bestEffortCancel(ctx, s.symbol, LegStop, s.stop)
}

// cancelLoser keeps last when the cancel fails.
func (e *OCOExecutor) cancelLoser(ctx context.Context, symbol string, leg Leg, h model.OrderHandle, last *model.OrderResult) *model.OrderResult {
	if res := e.bestEffortCancel(ctx, symbol, leg, h); res != nil {
		return res
	}
	return last
}

// bestEffortCancel never fails the session. It runs on a context detached
// from ctx so cleanup still happens after the caller gave up.
func (e *OCOExecutor) bestEffortCancel(ctx context.Context, symbol string, leg Leg, h model.OrderHandle) *model.OrderResult {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cancelTimeout)
	defer cancel()

	res, err := e.gateway.CancelOrder(cctx, symbol, h)
	if err != nil {
		failure := &model.CompensationFailure{Symbol: symbol, Leg: string(leg), Handle: h, Err: err}
		e.logger.WithError(failure).Error("Compensating cancel failed")
		return nil
	}
	return res
}
