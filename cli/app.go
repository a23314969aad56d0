// Package cli contains the ctrl command line application.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	goutils "go.viam.com/utils"

	"github.com/silver2row/ctrl/block"
	"github.com/silver2row/ctrl/config"
	"github.com/silver2row/ctrl/container"
	"github.com/silver2row/ctrl/logging"
	"github.com/silver2row/ctrl/registry"
	"github.com/silver2row/ctrl/scheduler"
)

const (
	// Flags.
	flagDebug     = "debug"
	flagLogFile   = "log-file"
	flagSection   = "section"
	flagDuration  = "duration"
	flagPrintLogs = "print-logs"
	flagInfo      = "info"
	flagWatch     = "watch"
)

// NewApp returns the ctrl application. Output goes to out. When logger is nil, or a log file
// is requested, one is created from the flags.
func NewApp(out io.Writer, logger logging.Logger) *cli.App {
	var logFile io.Closer
	return &cli.App{
		Name:   "ctrl",
		Usage:  "build and run block diagram control loops",
		Writer: out,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to `FILE`, rotated by size",
			},
		},
		Before: func(c *cli.Context) error {
			level := zapcore.InfoLevel
			if c.Bool(flagDebug) {
				level = zapcore.DebugLevel
			}
			switch {
			case c.String(flagLogFile) != "":
				logger, logFile = logging.NewFileLogger("ctrl", c.String(flagLogFile), level)
			case logger == nil && c.Bool(flagDebug):
				logger = logging.NewDebugLogger("ctrl")
			case logger == nil:
				logger = logging.NewLogger("ctrl")
			case c.Bool(flagDebug):
				logger.SetLevel(level)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if logFile == nil {
				return nil
			}
			return logFile.Close()
		},
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "check that a diagram config builds",
				ArgsUsage: "<config>",
				Action: func(c *cli.Context) error {
					return validateAction(c, logger)
				},
			},
			{
				Name:      "info",
				Usage:     "print the signals and blocks of a diagram",
				ArgsUsage: "<config>",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  flagSection,
						Usage: fmt.Sprintf("sections to print, any of %v or all", container.InfoSections),
					},
				},
				Action: func(c *cli.Context) error {
					return infoAction(c, logger)
				},
			},
			{
				Name:      "blocks",
				Usage:     "list the block types a diagram can use, or print the attribute schema of one",
				ArgsUsage: "[type]",
				Action:    blocksAction,
			},
			{
				Name:      "run",
				Usage:     "run a diagram until it stops itself, the duration elapses or it is interrupted",
				ArgsUsage: "<config>",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  flagDuration,
						Usage: "stop after this long, 0 runs until stopped",
					},
					&cli.BoolFlag{
						Name:  flagPrintLogs,
						Usage: "print the contents of every logger sink when done",
					},
					&cli.BoolFlag{
						Name:  flagInfo,
						Usage: "print the diagram when done",
					},
					&cli.BoolFlag{
						Name:  flagWatch,
						Usage: "rebuild and restart the diagram whenever the config file changes",
					},
				},
				Action: func(c *cli.Context) error {
					return runAction(c, logger)
				},
			},
		},
	}
}

func blocksAction(c *cli.Context) error {
	if c.NArg() == 0 {
		t := table.NewWriter()
		t.AppendHeader(table.Row{"Type", "Kinds"})
		for _, typeName := range registry.RegisteredBlocks() {
			kinds := registry.BlockLookup(typeName).Kinds
			names := "any"
			if len(kinds) > 0 {
				names = strings.Join(lo.Map(kinds, func(k block.Kind, _ int) string { return string(k) }), ", ")
			}
			t.AppendRow(table.Row{typeName, names})
		}
		fmt.Fprintln(c.App.Writer, t.Render())
		return nil
	}

	typeName := c.Args().First()
	registration := registry.BlockLookup(typeName)
	if registration == nil {
		return errors.Errorf("unknown block type %q", typeName)
	}
	if registration.AttributeSchema == nil {
		return errors.Errorf("block type %q has no attribute schema", typeName)
	}
	raw, err := json.MarshalIndent(registration.AttributeSchema, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(raw))
	return nil
}

func configPath(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", errors.Errorf("%s needs exactly one config file", c.Command.Name)
	}
	return c.Args().First(), nil
}

func build(c *cli.Context, logger logging.Logger) (*config.Config, *container.Container, error) {
	path, err := configPath(c)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Read(c.Context, path, logger)
	if err != nil {
		return nil, nil, err
	}
	ctr, err := config.Build(c.Context, cfg, registry.Dependencies{}, logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, ctr, nil
}

func validateAction(c *cli.Context, logger logging.Logger) error {
	cfg, ctr, err := build(c, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s is valid: %d signals, %d sources, %d filters, %d timers, %d sinks\n",
		cfg.ConfigFilePath,
		len(ctr.ListSignals()),
		len(ctr.ListSources()),
		len(ctr.ListFilters()),
		len(ctr.ListTimers()),
		len(ctr.ListSinks()),
	)
	return ctr.Close(c.Context)
}

func infoAction(c *cli.Context, logger logging.Logger) (err error) {
	_, ctr, err := build(c, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, ctr.Close(context.Background()))
	}()
	info, err := ctr.Info(c.StringSlice(flagSection)...)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, info)
	return nil
}

func runAction(c *cli.Context, logger logging.Logger) (err error) {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := c.Duration(flagDuration); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	path, err := configPath(c)
	if err != nil {
		return err
	}
	cfg, err := config.Read(ctx, path, logger)
	if err != nil {
		return err
	}

	var updates <-chan *config.Config
	if c.Bool(flagWatch) {
		watcher, watchErr := config.NewWatcher(ctx, path, logger)
		if watchErr != nil {
			return watchErr
		}
		defer func() {
			err = multierr.Combine(err, watcher.Close())
		}()
		updates = watcher.Config()
	}

	for {
		next, err := runDiagram(ctx, c, cfg, updates, logger)
		if err != nil || next == nil {
			return err
		}
		logger.Infow("restarting with new config", "path", path)
		cfg = next
	}
}

// runDiagram builds cfg and runs it until the loop exits or a new config arrives on updates,
// which it returns.
func runDiagram(
	ctx context.Context,
	c *cli.Context,
	cfg *config.Config,
	updates <-chan *config.Config,
	logger logging.Logger,
) (next *config.Config, err error) {
	ctr, err := config.Build(ctx, cfg, registry.Dependencies{}, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, ctr.Close(context.Background()))
	}()

	loop, err := scheduler.NewLoop(ctr, cfg.LoopPeriod(), logger)
	if err != nil {
		return nil, err
	}
	if err := loop.Start(ctx); err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	goutils.PanicCapturingGo(func() {
		done <- loop.Wait()
	})

	var loopErr error
	select {
	case loopErr = <-done:
	case next = <-updates:
	}
	if err := loop.Stop(context.Background()); err != nil {
		return nil, multierr.Combine(loopErr, err)
	}
	if next != nil {
		loopErr = <-done
	}
	fmt.Fprintf(c.App.Writer, "ran %d cycles\n", loop.Cycles())

	if c.Bool(flagInfo) {
		if err := loop.Do(func(ctr *container.Container) error {
			info, err := ctr.Info()
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, info)
			return nil
		}); err != nil {
			return nil, multierr.Combine(loopErr, err)
		}
	}
	if c.Bool(flagPrintLogs) {
		if err := loop.Do(func(ctr *container.Container) error {
			return printLogs(c.App.Writer, ctr)
		}); err != nil {
			return nil, multierr.Combine(loopErr, err)
		}
	}
	return next, loopErr
}

// printLogs renders the rows held by every logger sink. Columns are named after the sink's
// inputs when there is one column per input.
func printLogs(out io.Writer, ctr *container.Container) error {
	for _, label := range ctr.ListSinks() {
		b, err := ctr.Block(block.KindSink, label)
		if err != nil {
			return err
		}
		lg, ok := block.Unwrap(b).(*block.Logger)
		if !ok {
			continue
		}
		inputs, _, err := ctr.Ports(block.KindSink, label)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetTitle(label)
		log := lg.Log()
		if log == nil {
			fmt.Fprintln(out, t.Render())
			continue
		}
		rows, cols := log.Dims()
		header := table.Row{"#"}
		for j := 0; j < cols; j++ {
			if len(inputs) == cols {
				header = append(header, inputs[j])
			} else {
				header = append(header, fmt.Sprintf("col%d", j))
			}
		}
		t.AppendHeader(header)
		for i := 0; i < rows; i++ {
			row := table.Row{i + 1}
			for _, v := range log.RawRowView(i) {
				row = append(row, fmt.Sprintf("%.4f", v))
			}
			t.AppendRow(row)
		}
		fmt.Fprintln(out, t.Render())
	}
	return nil
}
