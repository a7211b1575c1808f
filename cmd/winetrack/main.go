// Command winetrack trains an ElasticNet model on the wine-quality dataset
// and records the run in the configured tracking store.
//
// Usage:
//
//	winetrack [alpha] [l1_ratio]
//
// Both hyperparameters default to 0.5. The tracking backend, dataset URL and
// experiment name come from winetrack.hcl and WINETRACK_* environment
// variables; see the config package.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/YuminosukeSato/winetrack/config"
	"github.com/YuminosukeSato/winetrack/experiment"
	"github.com/YuminosukeSato/winetrack/pkg/errors"
	"github.com/YuminosukeSato/winetrack/pkg/log"
)

const defaultHyperparam = 0.5

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "winetrack: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	alpha, l1Ratio, err := parseArgs(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log.SetupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := experiment.Run(ctx, cfg, alpha, l1Ratio)
	if err != nil {
		return err
	}

	fmt.Printf("Elasticnet model (alpha=%f, l1_ratio=%f):\n", result.Alpha, result.L1Ratio)
	fmt.Printf("  RMSE: %v\n", result.RMSE)
	fmt.Printf("  MAE: %v\n", result.MAE)
	fmt.Printf("  R2: %v\n", result.R2)
	return nil
}

// parseArgs reads up to two positional floats: alpha and l1_ratio.
func parseArgs(args []string) (alpha, l1Ratio float64, err error) {
	if len(args) > 2 {
		return 0, 0, errors.Newf("expected at most 2 arguments [alpha] [l1_ratio], got %d", len(args))
	}

	alpha, l1Ratio = defaultHyperparam, defaultHyperparam
	if len(args) >= 1 {
		alpha, err = strconv.ParseFloat(args[0], 64)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "invalid alpha %q", args[0])
		}
	}
	if len(args) == 2 {
		l1Ratio, err = strconv.ParseFloat(args[1], 64)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "invalid l1_ratio %q", args[1])
		}
	}
	return alpha, l1Ratio, nil
}
