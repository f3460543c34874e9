package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/driftworks/conduit/pkg/pipeline"
	"github.com/driftworks/conduit/pkg/pipeline/nodes"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)

	root := &cobra.Command{
		Use:   "conduit",
		Short: "Conduit — programmable data pipeline runner",
		Long: `Conduit executes node-graph data pipelines.

Each node in the graph is a typed processing unit (values, math, transform,
filter, aggregate, mock, …) with named input and output ports. Connections
carry values between ports; the engine runs nodes in dependency order.`,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return initLogger(logLevel, logFormat)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(runCmd())
	root.AddCommand(lintCmd())
	root.AddCommand(graphCmd())
	root.AddCommand(nodesCmd())
	return root
}

// ─── run ──────────────────────────────────────────────────────────────────────

func runCmd() *cobra.Command {
	var (
		workers  int
		defsPath string
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "run <pipeline.json|pipeline.dot>",
		Short: "Execute a pipeline and print the results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPipeline(args[0], defsPath)
			if err != nil {
				return err
			}

			opts := []pipeline.Option{pipeline.WithWorkers(workers)}
			if verbose {
				opts = append(opts, pipeline.WithObserver(printEvent))
			}
			eng, err := pipeline.NewEngine(p, opts...)
			if err != nil {
				return fmt.Errorf("build engine: %w", err)
			}

			ctx := signalContext(cmd.Context())
			report, err := eng.Execute(ctx)
			if err != nil {
				return fmt.Errorf("execute: %w", err)
			}

			fmt.Print(renderReport(p, report))
			if !report.Succeeded() {
				return fmt.Errorf("%d node(s) failed", report.Count(pipeline.StatusFailed))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 4, "number of concurrent node workers (1 = fully deterministic order)")
	cmd.Flags().StringVar(&defsPath, "defs", "", "path to custom node definitions JSON (optional)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print node events as they happen")
	return cmd
}

// ─── lint ─────────────────────────────────────────────────────────────────────

func lintCmd() *cobra.Command {
	var defsPath string

	cmd := &cobra.Command{
		Use:   "lint <pipeline.json|pipeline.dot>",
		Short: "Validate a pipeline file without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			p, err := loadPipeline(args[0], defsPath)
			if err != nil {
				return err
			}
			if lintErr := pipeline.ValidateErr(p); lintErr != nil {
				return lintErr
			}
			fmt.Printf("OK: pipeline %q is valid (%d nodes, %d connections)\n",
				p.Name, p.NodeCount(), len(p.Connections()))
			return nil
		},
	}

	cmd.Flags().StringVar(&defsPath, "defs", "", "path to custom node definitions JSON (optional)")
	return cmd
}

// ─── graph ────────────────────────────────────────────────────────────────────

func graphCmd() *cobra.Command {
	var (
		format   string
		defsPath string
	)

	cmd := &cobra.Command{
		Use:   "graph <pipeline.json|pipeline.dot>",
		Short: "Print a human-readable summary of a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			p, err := loadPipeline(args[0], defsPath)
			if err != nil {
				return err
			}
			switch strings.ToLower(format) {
			case "dot":
				fmt.Print(pipeline.ExportDOT(p))
			case "text", "":
				fmt.Print(renderText(p))
			default:
				return fmt.Errorf("unknown format %q: use text or dot", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text or dot")
	cmd.Flags().StringVar(&defsPath, "defs", "", "path to custom node definitions JSON (optional)")
	return cmd
}

// ─── nodes ────────────────────────────────────────────────────────────────────

func nodesCmd() *cobra.Command {
	var defsPath string

	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "List the registered node types",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			reg, err := buildRegistry(defsPath)
			if err != nil {
				return err
			}
			for _, tag := range reg.Types() {
				fmt.Println(tag)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&defsPath, "defs", "", "path to custom node definitions JSON (optional)")
	return cmd
}

// ─── helpers ─────────────────────────────────────────────────────────────────

// buildRegistry returns the built-in registry, extended with any custom
// definitions.
func buildRegistry(defsPath string) (*nodes.Registry, error) {
	reg := nodes.Default()
	if defsPath == "" {
		return reg, nil
	}
	defs, err := nodes.LoadDefinitions(defsPath)
	if err != nil {
		return nil, err
	}
	if err := nodes.RegisterDefinitions(reg, defs); err != nil {
		return nil, fmt.Errorf("register definitions: %w", err)
	}
	return reg, nil
}

// loadPipeline reads a pipeline file, dispatching on extension: .dot goes
// through the DOT importer, everything else is the JSON form.
func loadPipeline(path, defsPath string) (*pipeline.Pipeline, error) {
	reg, err := buildRegistry(defsPath)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".dot") {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read pipeline file: %w", err)
		}
		return pipeline.ImportDOT(string(src), reg)
	}
	return pipeline.LoadFile(path, reg)
}

func printEvent(ev pipeline.Event) {
	switch ev.Type {
	case pipeline.EventNodeStarted:
		fmt.Printf("  ▸ %s\n", ev.NodeID)
	case pipeline.EventNodeSucceeded:
		fmt.Printf("  ✓ %s\n", ev.NodeID)
	case pipeline.EventNodeFailed:
		fmt.Printf("  ✗ %s (%s)\n", ev.NodeID, ev.Reason)
	case pipeline.EventNodeSkipped:
		fmt.Printf("  - %s (%s)\n", ev.NodeID, ev.Reason)
	}
}

// initLogger configures the process-wide slog default.
func initLogger(level, format string) error {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			fmt.Fprintln(os.Stderr, "\n[conduit] interrupted — cancelling pipeline")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx
}
