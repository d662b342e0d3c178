package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"futuresbot/cmd/runner"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "futuresbot"
	app.Usage = "Place and supervise Binance USDⓈ-M futures orders"
	app.Version = Version

	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "api-key", Usage: "API key (default: BINANCE_API_KEY, prompted when empty)"},
		cli.StringFlag{Name: "api-secret", Usage: "API secret (default: BINANCE_API_SECRET, prompted without echo when empty)"},
		cli.StringFlag{Name: "base-url", Usage: "REST base URL (default: BINANCE_FUTURES_BASE_URL or the testnet)"},
		cli.Int64Flag{Name: "recv-window", Usage: "recvWindow in milliseconds (default: BINANCE_RECV_WINDOW or 5000)"},
		cli.StringFlag{Name: "log-level", Usage: "log level (default: LOG_LEVEL or info)"},
	}

	app.Commands = []cli.Command{
		marketCMD,
		limitCMD,
		stopCMD,
		twapCMD,
		ocoCMD,
		statusCMD,
		cancelCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	symbolFlag     = cli.StringFlag{Name: "symbol", Usage: "contract symbol, e.g. BTCUSDT"}
	sideFlag       = cli.StringFlag{Name: "side", Usage: "BUY or SELL"}
	qtyFlag        = cli.StringFlag{Name: "qty", Usage: "order quantity"}
	reduceOnlyFlag = cli.BoolFlag{Name: "reduce-only", Usage: "only reduce an existing position"}
	tifFlag        = cli.StringFlag{Name: "tif", Usage: "time in force for limit orders: GTC, IOC, FOK or GTX"}
	clientIDFlag   = cli.StringFlag{Name: "client-order-id", Usage: "client order id"}
	orderIDFlag    = cli.Int64Flag{Name: "order-id", Usage: "exchange order id"}

	marketCMD = cli.Command{
		Name:        "market",
		Usage:       "place a market order",
		Action:      marketAction,
		Flags:       []cli.Flag{symbolFlag, sideFlag, qtyFlag, reduceOnlyFlag, clientIDFlag},
		Description: `Place a MARKET order and print the exchange response`,
	}
	limitCMD = cli.Command{
		Name:   "limit",
		Usage:  "place a limit order",
		Action: limitAction,
		Flags: []cli.Flag{symbolFlag, sideFlag, qtyFlag, reduceOnlyFlag, clientIDFlag, tifFlag,
			cli.StringFlag{Name: "price", Usage: "limit price"},
		},
		Description: `Place a LIMIT order (GTC unless --tif is given)`,
	}
	stopCMD = cli.Command{
		Name:   "stop",
		Usage:  "place a stop-market order",
		Action: stopAction,
		Flags: []cli.Flag{symbolFlag, sideFlag, qtyFlag, reduceOnlyFlag, clientIDFlag,
			cli.StringFlag{Name: "stop-price", Usage: "trigger price"},
		},
		Description: `Place a STOP_MARKET order`,
	}
	twapCMD = cli.Command{
		Name:   "twap",
		Usage:  "split a market order into equal slices over time",
		Action: twapAction,
		Flags: []cli.Flag{symbolFlag, sideFlag, qtyFlag, reduceOnlyFlag,
			cli.IntFlag{Name: "slices", Usage: "number of slices (default: TWAP_SLICES or 5)"},
			cli.DurationFlag{Name: "interval", Usage: "wait between slices (default: TWAP_INTERVAL or 60s)"},
		},
		Description: `Run a TWAP. Partial results are printed even when a slice fails`,
	}
	ocoCMD = cli.Command{
		Name:   "oco",
		Usage:  "take-profit limit plus stop-loss stop-market, first fill cancels the other",
		Action: ocoAction,
		Flags: []cli.Flag{symbolFlag, sideFlag, qtyFlag, reduceOnlyFlag, tifFlag,
			cli.StringFlag{Name: "tp", Usage: "take-profit limit price"},
			cli.StringFlag{Name: "sl", Usage: "stop-loss trigger price"},
			cli.DurationFlag{Name: "poll", Usage: "poll interval (default: OCO_POLL_INTERVAL or 2s)"},
			cli.DurationFlag{Name: "timeout", Usage: "session timeout (default: OCO_TIMEOUT or 300s)"},
		},
		Description: `Run an emulated OCO bracket until one leg fills or the timeout elapses`,
	}
	statusCMD = cli.Command{
		Name:        "status",
		Usage:       "query an order",
		Action:      statusAction,
		Flags:       []cli.Flag{symbolFlag, orderIDFlag, clientIDFlag},
		Description: `Query an order by --order-id or --client-order-id`,
	}
	cancelCMD = cli.Command{
		Name:        "cancel",
		Usage:       "cancel an order",
		Action:      cancelAction,
		Flags:       []cli.Flag{symbolFlag, orderIDFlag, clientIDFlag},
		Description: `Cancel an order by --order-id or --client-order-id`,
	}
)

// run bootstraps a Runner from the global flags and executes fn on a context
// cancelled by SIGINT or SIGTERM.
func run(c *cli.Context, cmd string, fn func(ctx context.Context, r *runner.Runner) error) error {
	r, err := runner.Bootstrap(runner.Options{
		APIKey:     c.GlobalString("api-key"),
		APISecret:  c.GlobalString("api-secret"),
		BaseURL:    c.GlobalString("base-url"),
		RecvWindow: c.GlobalInt64("recv-window"),
		LogLevel:   c.GlobalString("log-level"),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logrus.WithField("cmd", cmd).Debug("Starting command")
	if err := fn(ctx, r); err != nil {
		logrus.WithError(err).WithField("cmd", cmd).Error("Command failed")
		return err
	}
	return nil
}

func orderArgs(c *cli.Context) runner.OrderArgs {
	return runner.OrderArgs{
		Symbol:        c.String("symbol"),
		Side:          c.String("side"),
		Quantity:      c.String("qty"),
		Price:         c.String("price"),
		StopPrice:     c.String("stop-price"),
		TimeInForce:   c.String("tif"),
		ClientOrderID: c.String("client-order-id"),
		ReduceOnly:    c.Bool("reduce-only"),
	}
}

func handleArgs(c *cli.Context) runner.HandleArgs {
	return runner.HandleArgs{
		Symbol:        c.String("symbol"),
		OrderID:       c.Int64("order-id"),
		ClientOrderID: c.String("client-order-id"),
	}
}

func durationIfSet(c *cli.Context, name string) *time.Duration {
	if !c.IsSet(name) {
		return nil
	}
	d := c.Duration(name)
	return &d
}

func marketAction(c *cli.Context) error {
	return run(c, "market", func(ctx context.Context, r *runner.Runner) error {
		return r.Market(ctx, orderArgs(c))
	})
}

func limitAction(c *cli.Context) error {
	return run(c, "limit", func(ctx context.Context, r *runner.Runner) error {
		return r.Limit(ctx, orderArgs(c))
	})
}

func stopAction(c *cli.Context) error {
	return run(c, "stop", func(ctx context.Context, r *runner.Runner) error {
		return r.Stop(ctx, orderArgs(c))
	})
}

func twapAction(c *cli.Context) error {
	args := runner.TWAPArgs{
		Symbol:     c.String("symbol"),
		Side:       c.String("side"),
		Quantity:   c.String("qty"),
		Interval:   durationIfSet(c, "interval"),
		ReduceOnly: c.Bool("reduce-only"),
	}
	if c.IsSet("slices") {
		slices := c.Int("slices")
		args.Slices = &slices
	}
	return run(c, "twap", func(ctx context.Context, r *runner.Runner) error {
		return r.TWAP(ctx, args)
	})
}

func ocoAction(c *cli.Context) error {
	args := runner.OCOArgs{
		Symbol:       c.String("symbol"),
		Side:         c.String("side"),
		Quantity:     c.String("qty"),
		TakeProfit:   c.String("tp"),
		StopLoss:     c.String("sl"),
		PollInterval: durationIfSet(c, "poll"),
		Timeout:      durationIfSet(c, "timeout"),
		TimeInForce:  c.String("tif"),
		ReduceOnly:   c.Bool("reduce-only"),
	}
	return run(c, "oco", func(ctx context.Context, r *runner.Runner) error {
		return r.OCO(ctx, args)
	})
}

func statusAction(c *cli.Context) error {
	return run(c, "status", func(ctx context.Context, r *runner.Runner) error {
		return r.Status(ctx, handleArgs(c))
	})
}

func cancelAction(c *cli.Context) error {
	return run(c, "cancel", func(ctx context.Context, r *runner.Runner) error {
		return r.Cancel(ctx, handleArgs(c))
	})
}
