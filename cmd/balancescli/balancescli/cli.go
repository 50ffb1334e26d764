// Package balancescli wires the block source, the scanner and one of the scan strategies
// (balances, unspentcsvdump, simplestats) into a command-line tool.
//
// Usage:
//
//	balancescli [--bitcoin-dir DIR] [--network NET] [--start H] [--end H] <command> <dump-folder>
//
// A run whose snapshot could not be published terminates the process through logger.Fatalf.
package balancescli

import (
	"context"
	"net/http"
	_ "net/http/pprof" // nolint:gosec
	"os"
	"os/signal"
	"syscall"

	"github.com/bsv-blockchain/utxobalances/errors"
	"github.com/bsv-blockchain/utxobalances/services/balances"
	"github.com/bsv-blockchain/utxobalances/services/scanner"
	"github.com/bsv-blockchain/utxobalances/services/simplestats"
	"github.com/bsv-blockchain/utxobalances/services/unspentdump"
	"github.com/bsv-blockchain/utxobalances/settings"
	"github.com/bsv-blockchain/utxobalances/stores/blockfile"
	"github.com/bsv-blockchain/utxobalances/ulogger"
	"github.com/felixge/fgprof"
	"github.com/ordishs/gocore"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

const progname = "balancescli"

// callbackFactory builds the scan strategy for a subcommand.
type callbackFactory func(logger ulogger.Logger, tSettings *settings.Settings, folder string) (scanner.Callback, error)

// sourceFactory opens the block source. Tests replace it with an in-memory chain.
type sourceFactory func(logger ulogger.Logger, tSettings *settings.Settings) (scanner.BlockSource, error)

var commands = []struct {
	name    string
	usage   string
	factory callbackFactory
}{
	{
		name:  balances.Name,
		usage: "write address balances and the lost value audit trail",
		factory: func(logger ulogger.Logger, tSettings *settings.Settings, folder string) (scanner.Callback, error) {
			return balances.New(logger, tSettings, folder)
		},
	},
	{
		name:  unspentdump.Name,
		usage: "write every unspent output as csv",
		factory: func(logger ulogger.Logger, tSettings *settings.Settings, folder string) (scanner.Callback, error) {
			return unspentdump.New(logger, tSettings, folder)
		},
	},
	{
		name:  simplestats.Name,
		usage: "write chain statistics as json",
		factory: func(logger ulogger.Logger, _ *settings.Settings, folder string) (scanner.Callback, error) {
			return simplestats.New(logger, folder), nil
		},
	},
}

func openBlockSource(logger ulogger.Logger, tSettings *settings.Settings) (scanner.BlockSource, error) {
	return blockfile.NewSource(logger, tSettings)
}

// Start runs the command line and exits the process with status 1 on failure.
func Start(args []string, version, commit string) {
	gocore.SetInfo(progname, version, commit)

	app := NewApp(version, openBlockSource)

	if err := app.Run(args); err != nil {
		ulogger.New(progname).Errorf("%v", err)
		os.Exit(1)
	}
}

// NewApp builds the cli application. Global flags override the matching settings.
func NewApp(version string, openSource sourceFactory) *cli.App {
	app := &cli.App{
		Name:    progname,
		Usage:   "scan a bitcoind block directory and write utxo snapshots",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "bitcoin-dir",
				Usage: "bitcoind data directory containing blocks/ and blocks/index/",
			},
			&cli.StringFlag{
				Name:  "network",
				Usage: "mainnet, testnet, regtest or stn",
			},
			&cli.Uint64Flag{
				Name:  "start",
				Usage: "first height to process",
			},
			&cli.Uint64Flag{
				Name:  "end",
				Usage: "last height to process, 0 for the best height",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "DEBUG, INFO, WARN or ERROR",
			},
		},
	}

	for _, c := range commands {
		factory := c.factory

		app.Commands = append(app.Commands, &cli.Command{
			Name:      c.name,
			Usage:     c.usage,
			ArgsUsage: "<dump-folder>",
			Action: func(cCtx *cli.Context) error {
				return run(cCtx, openSource, factory)
			},
		})
	}

	return app
}

func run(cCtx *cli.Context, openSource sourceFactory, factory callbackFactory) error {
	if cCtx.NArg() != 1 {
		return errors.NewInvalidArgumentError("usage: %s %s <dump-folder>", progname, cCtx.Command.Name)
	}

	folder := cCtx.Args().First()

	tSettings := settings.NewSettings()

	if err := applyFlags(cCtx, tSettings); err != nil {
		return err
	}

	logger := ulogger.InitLogger(progname, tSettings)

	startProfiler(logger, tSettings)

	ctx, stop := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := openSource(logger, tSettings)
	if err != nil {
		return err
	}

	defer func() {
		if err := source.Close(); err != nil {
			logger.Warnf("[%s] failed to close block source: %v", progname, err)
		}
	}()

	cb, err := factory(logger, tSettings, folder)
	if err != nil {
		return err
	}

	logger.Infof("[%s] running %s into %s on %s", progname, cb.Name(), folder, tSettings.ChainCfgParams.Name)

	return execute(ctx, logger, scanner.New(logger, tSettings, source), cb, cCtx.Uint64("start"), cCtx.Uint64("end"))
}

func execute(ctx context.Context, logger ulogger.Logger, s *scanner.Scanner, cb scanner.Callback, start, end uint64) error {
	err := s.Run(ctx, cb, start, end)
	if err == nil {
		return nil
	}

	if errors.Is(err, errors.ErrFatal) {
		logger.Fatalf("[%s] %v", cb.Name(), err)
	}

	return err
}

// applyFlags copies explicitly set global flags over the loaded settings.
func applyFlags(cCtx *cli.Context, tSettings *settings.Settings) error {
	if cCtx.IsSet("network") {
		if err := tSettings.SetNetwork(cCtx.String("network")); err != nil {
			return errors.NewConfigurationError("unknown network %q", cCtx.String("network"), err)
		}
	}

	if cCtx.IsSet("bitcoin-dir") {
		tSettings.Blocks.BitcoinDir = cCtx.String("bitcoin-dir")
	}

	if cCtx.IsSet("log-level") {
		tSettings.LogLevel = cCtx.String("log-level")
	}

	return nil
}

func startProfiler(logger ulogger.Logger, tSettings *settings.Settings) {
	profilerAddr := tSettings.ProfilerAddr
	if profilerAddr == "" {
		return
	}

	logger.Infof("Profiler available at http://%s/debug/pprof", profilerAddr)

	gocore.RegisterStatsHandlers()

	http.DefaultServeMux.Handle("/debug/fgprof", fgprof.Handler())
	logger.Infof("FGProf available at http://%s/debug/fgprof", profilerAddr)

	if tSettings.PrometheusEndpoint != "" {
		http.Handle(tSettings.PrometheusEndpoint, promhttp.Handler())
		logger.Infof("Prometheus metrics available at http://%s%s", profilerAddr, tSettings.PrometheusEndpoint)
	}

	go func() {
		// nolint:gosec
		logger.Errorf("%v", http.ListenAndServe(profilerAddr, nil))
	}()
}
