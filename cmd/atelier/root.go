package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"Atelier/internal/config"
	"Atelier/internal/engine"
	"Atelier/internal/logger"
	"Atelier/internal/tracing"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	out     io.Writer
	v       *viper.Viper
	cfgFile string
	cfg     config.Config

	engine *engine.Engine
	traces *tracing.Provider
}

// newRootCmd builds the command tree writing results to out.
func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out, v: viper.New()}

	root := &cobra.Command{
		Use:           "atelier",
		Short:         "Collectible registry and royalty marketplace",
		Long:          `atelier applies one ledger operation per invocation against a local store and prints the result as JSON.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "",
		"config file (default: ./atelier.yaml, then ~/.config/atelier/config.yaml)")
	root.PersistentFlags().String("data-dir", "", "ledger data directory")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	_ = a.v.BindPFlag("data_dir", root.PersistentFlags().Lookup("data-dir"))
	_ = a.v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(
		a.mintCmd(),
		a.mintedCmd(),
		a.itemCmd(),
		a.countCmd(),
		a.ownedCmd(),
		a.listCmd(),
		a.delistCmd(),
		a.buyCmd(),
		a.listingCmd(),
		a.listingsCmd(),
		a.creditsCmd(),
		a.eventsCmd(),
		a.digestCmd(),
		a.infoCmd(),
		a.initCmd(),
	)

	return root
}

// open loads configuration and opens the engine. Subcommands call it from
// PreRunE so --help never touches the store.
func (a *app) open(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger.Init(level)

	a.traces, err = tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing:\n%w", err)
	}

	a.engine, err = engine.Open(cfg.DataDir, engine.Options{
		Name:   cfg.Collection.Name,
		Symbol: cfg.Collection.Symbol,
		Tracer: a.traces.Tracer(),
	})
	if err != nil {
		_ = a.traces.Shutdown(context.Background())
		a.traces = nil
		return err
	}

	logger.Info("ledger opened",
		"data", cfg.DataDir,
		"command", cmd.Name(),
		"tracing", a.traces.Enabled(),
	)

	return nil
}

// close releases the engine and flushes spans. A failed span flush is only
// logged: the operation itself has already been committed.
func (a *app) close(_ *cobra.Command, _ []string) error {
	var err error

	if a.engine != nil {
		err = a.engine.Close()
		a.engine = nil
	}

	if a.traces != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if serr := a.traces.Shutdown(ctx); serr != nil {
			logger.Warn("flush spans failed", "error", serr)
		}
		a.traces = nil
	}

	return err
}

// command wires the open/close lifecycle around run.
func (a *app) command(c *cobra.Command, run func(cmd *cobra.Command, args []string) error) *cobra.Command {
	c.PreRunE = a.open
	c.RunE = func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if cerr := a.close(cmd, args); cerr != nil && err == nil {
				err = cerr
			}
		}()

		return run(cmd, args)
	}

	return c
}
