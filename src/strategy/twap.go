package strategy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"futuresbot/src/gateway"
	"futuresbot/src/model"
	"futuresbot/src/utils"
)

type TWAPPlan struct {
	Symbol        string
	Side          string
	TotalQuantity decimal.Decimal
	Slices        int
	Interval      time.Duration
	ReduceOnly    bool
}

func (p TWAPPlan) Validate() error {
	if strings.TrimSpace(p.Symbol) == "" {
		return &model.ValidationError{Field: "symbol", Reason: "is required"}
	}
	if _, err := model.ParseSide(p.Side); err != nil {
		return err
	}
	if p.Slices < 1 {
		return &model.ValidationError{Field: "slices", Reason: "must be >= 1", Value: fmt.Sprint(p.Slices)}
	}
	if !p.TotalQuantity.IsPositive() {
		return &model.ValidationError{Field: "quantity", Reason: "must be > 0", Value: p.TotalQuantity.String()}
	}
	if p.Interval < 0 {
		return &model.ValidationError{Field: "interval", Reason: "must be >= 0", Value: p.Interval.String()}
	}
	return nil
}

// PerSlice is TotalQuantity / Slices. No rounding to the symbol's step size
// is applied.
func (p TWAPPlan) PerSlice() decimal.Decimal {
	return p.TotalQuantity.Div(decimal.NewFromInt(int64(p.Slices)))
}

// TWAPExecutor places a plan as equal market orders, one at a time.
type TWAPExecutor struct {
	gateway OrderGateway
	logger  *logrus.Entry
	sleep   func(context.Context, time.Duration) error
}

func NewTWAPExecutor(gw OrderGateway, log *logrus.Entry) *TWAPExecutor {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &TWAPExecutor{
		gateway: gw,
		logger:  log.WithField("strategy", "twap"),
		sleep:   utils.SleepContext,
	}
}

// Run executes the plan. It is not atomic: on failure or cancellation the
// slices placed so far are returned together with the error, and nothing is
// rolled back.
func (e *TWAPExecutor) Run(ctx context.Context, plan TWAPPlan) ([]model.OrderResult, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	perSlice := plan.PerSlice()
	log := e.logger.WithFields(logrus.Fields{
		"symbol":      strings.ToUpper(strings.TrimSpace(plan.Symbol)),
		"side":        strings.ToUpper(plan.Side),
		"slices":      plan.Slices,
		"per_slice":   perSlice.String(),
		"interval_ms": utils.Millis(plan.Interval),
	})
	log.Info("TWAP started")

	results := make([]model.OrderResult, 0, plan.Slices)
	for i := 0; i < plan.Slices; i++ {
		if err := ctx.Err(); err != nil {
			log.WithField("slices_executed", len(results)).Warn("TWAP canceled")
			return results, fmt.Errorf("twap canceled before slice %d/%d: %w", i+1, plan.Slices, err)
		}

		res, err := e.gateway.PlaceMarket(ctx, plan.Symbol, plan.Side, perSlice,
			gateway.WithClientOrderID(newClientOrderID("tw")),
			gateway.WithReduceOnly(plan.ReduceOnly),
		)
		if err != nil {
			log.WithError(err).WithField("slice", i+1).Error("TWAP slice failed")
			return results, fmt.Errorf("twap slice %d/%d: %w", i+1, plan.Slices, err)
		}
		results = append(results, *res)

		log.WithFields(logrus.Fields{
			"slice":   i + 1,
			"orderId": res.OrderID,
			"status":  res.Status,
		}).Info("TWAP slice placed")

		if i == plan.Slices-1 {
			break
		}
		if err := e.sleep(ctx, plan.Interval); err != nil {
			log.WithField("slices_executed", len(results)).Warn("TWAP canceled")
			return results, fmt.Errorf("twap canceled after slice %d/%d: %w", i+1, plan.Slices, err)
		}
	}

	log.Info("TWAP finished")
	return results, nil
}

// TWAPReport is the printable summary of a run, partial or complete.
type TWAPReport struct {
	SlicesExecuted int                 `json:"slices_executed"`
	Last           *model.OrderResult  `json:"last"`
	Slices         []model.OrderResult `json:"slices"`
}

func NewTWAPReport(results []model.OrderResult) TWAPReport {
	report := TWAPReport{SlicesExecuted: len(results), Slices: results}
	if report.Slices == nil {
		report.Slices = []model.OrderResult{}
	}
	if len(results) > 0 {
		last := results[len(results)-1]
		report.Last = &last
	}
	return report
}
