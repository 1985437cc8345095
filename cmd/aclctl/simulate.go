package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/okian/aclguard/internal/simulator"
)

var errMismatch = errors.New("feedback did not match expectations")

var (
	urlFlag = &cli.StringFlag{
		Name:     "url",
		Usage:    "Server base url, e.g. ws://localhost:8080",
		Required: true,
	}
	sessionFlag = &cli.StringSliceFlag{
		Name:     "session",
		Usage:    "Session id to stream into, repeatable",
		Required: true,
	}
	samplesFlag = &cli.IntFlag{
		Name:  "samples",
		Usage: "Samples per session",
		Value: simulator.DefaultSamples,
	}
	concurrencyFlag = &cli.IntFlag{
		Name:  "concurrency",
		Usage: "Lanes open at once",
		Value: simulator.DefaultConcurrency,
	}
	intervalFlag = &cli.DurationFlag{
		Name:  "interval",
		Usage: "Spacing of sample timestamps",
		Value: simulator.DefaultInterval,
	}
	ratioFlag = &cli.FloatFlag{
		Name:  "high-risk-ratio",
		Usage: "Share of samples above a risk threshold",
		Value: simulator.DefaultHighRiskRatio,
	}
	seedFlag = &cli.IntFlag{
		Name:  "seed",
		Usage: "Generator seed (0 picks one per run)",
	}
	timeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "Per-reply read timeout",
		Value: simulator.DefaultTimeout,
	}

	simulateCmd = &cli.Command{
		Name:  "simulate",
		Usage: "Stream synthetic samples over websocket lanes and verify feedback",
		Flags: []cli.Flag{
			urlFlag, sessionFlag, samplesFlag, concurrencyFlag,
			intervalFlag, ratioFlag, seedFlag, timeoutFlag,
		},
		Action: cmdSimulate,
	}
)

func cmdSimulate(ctx context.Context, cmd *cli.Command) error {
	cfg := simulator.Config{
		BaseURL:       cmd.String(urlFlag.Name),
		Sessions:      cmd.StringSlice(sessionFlag.Name),
		Samples:       int(cmd.Int(samplesFlag.Name)),
		Concurrency:   int(cmd.Int(concurrencyFlag.Name)),
		Interval:      cmd.Duration(intervalFlag.Name),
		HighRiskRatio: cmd.Float(ratioFlag.Name),
		Seed:          uint64(cmd.Int(seedFlag.Name)),
		Timeout:       cmd.Duration(timeoutFlag.Name),
	}

	rep, err := simulator.Run(ctx, cfg)
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}
	rep.Duration = rep.Duration.Round(time.Millisecond)
	if err := printOutput(cmd.Root().Writer, cmd.String(formatFlag.Name), rep); err != nil {
		return err
	}
	if !rep.OK() {
		return errMismatch
	}
	return nil
}
