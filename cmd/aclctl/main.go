// Command aclctl runs the risk pipeline offline and drives synthetic load
// against a running server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/okian/aclguard/pkg/logger"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"

	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs to stderr",
	}

	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Output format [yaml, json]",
		Value: formatYAML,
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "aclctl: "+err.Error())
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "aclctl",
		Usage:   "ACL injury risk pipeline tools",
		Version: version,
		Writer:  out,
		Flags:   []cli.Flag{debugFlag, formatFlag},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level := "warn"
			if cmd.Bool(debugFlag.Name) {
				level = "debug"
			}
			if err := logger.Init(logger.WithLevel(level), logger.WithWriter(os.Stderr)); err != nil {
				return ctx, fmt.Errorf("init logger: %w", err)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			analyzeCmd,
			simulateCmd,
		},
	}
}

// printOutput writes v to w in the selected format.
func printOutput(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
	case formatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
	return nil
}
