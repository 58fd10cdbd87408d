package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rxtech-lab/argo-autotrade/internal/advisory"
	"github.com/rxtech-lab/argo-autotrade/internal/api"
	"github.com/rxtech-lab/argo-autotrade/internal/config"
	"github.com/rxtech-lab/argo-autotrade/internal/logger"
	"github.com/rxtech-lab/argo-autotrade/internal/trader"
	"github.com/rxtech-lab/argo-autotrade/internal/trading/venue"
	"github.com/rxtech-lab/argo-autotrade/internal/version"
	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// session is everything a command needs once the config is loaded.
type session struct {
	config   config.Config
	logger   *logger.Logger
	registry *prometheus.Registry
	trader   *trader.Trader
}

func (s *session) close() {
	if err := s.trader.Close(); err != nil {
		s.logger.Warn("Failed to close trader", zap.Error(err))
	}

	_ = s.logger.Sync()
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "autotrader",
		Usage:   "Execute advisory trade plans and guard take-profit levels",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file",
				Sources: cli.EnvVars("AUTOTRADE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override log.level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the advisory cadence loop, the take-profit watcher and the ops API",
				Action: runAction,
			},
			{
				Name:   "watch",
				Usage:  "Run only the take-profit watcher and the ops API",
				Action: watchAction,
			},
			{
				Name:  "execute",
				Usage: "Execute a saved advisory response once",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "plan",
						Aliases:  []string{"p"},
						Usage:    "Path to the advisory response (JSON, optionally fenced)",
						Required: true,
					},
				},
				Action: executeAction,
			},
			{
				Name:   "positions",
				Usage:  "List this system's positions and pending orders with their rationale",
				Action: positionsAction,
			},
			{
				Name:  "annotation",
				Usage: "Read or replace the stored rationale of a ticket",
				Commands: []*cli.Command{
					{
						Name:      "get",
						ArgsUsage: "<ticket>",
						Action:    annotationGetAction,
					},
					{
						Name:      "put",
						ArgsUsage: "<ticket> <text>",
						Action:    annotationPutAction,
					},
				},
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the advisory response",
				Action: schemaAction,
			},
			{
				Name:   "venues",
				Usage:  "List the supported venue providers",
				Action: venuesAction,
			},
		},
	}
}

func openSession(ctx context.Context, cmd *cli.Command) (*session, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if level := cmd.String("log-level"); level != "" {
		cfg.Log.Level = level
	}

	log, err := logger.NewLoggerWithLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	registry := prometheus.NewRegistry()

	t, err := trader.Build(ctx, cfg, registry, log)
	if err != nil {
		return nil, err
	}

	return &session{config: cfg, logger: log, registry: registry, trader: t}, nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	return serve(ctx, cmd, true)
}

func watchAction(ctx context.Context, cmd *cli.Command) error {
	return serve(ctx, cmd, false)
}

// serve runs until SIGINT or SIGTERM.
func serve(ctx context.Context, cmd *cli.Command, cadence bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if cadence && s.config.Advisory.Model == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "advisory.model is required for run; use watch to monitor only")
	}

	if err := s.trader.Watcher().Start(ctx); err != nil {
		return err
	}

	server := api.NewServer(ctx, s.trader, s.registry, s.logger)
	if s.config.Server.Addr != "" {
		if err := server.Start(s.config.Server.Addr); err != nil {
			return err
		}

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := server.Stop(shutdownCtx); err != nil {
				s.logger.Warn("Failed to stop ops API", zap.Error(err))
			}
		}()
	}

	if !cadence {
		<-ctx.Done()

		return nil
	}

	return s.trader.RunCadence(ctx, trader.FilePromptSource{
		Dir:           s.config.Advisory.PromptDir,
		IncludeSchema: true,
	})
}

func executeAction(ctx context.Context, cmd *cli.Command) error {
	data, err := os.ReadFile(cmd.String("plan"))
	if err != nil {
		return fmt.Errorf("failed to read plan: %w", err)
	}

	resp, err := advisory.Parse(string(data))
	if err != nil {
		return err
	}

	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	report, reportErr := s.trader.ExecutePlan(ctx, resp)

	if err := writeYAML(cmd, report); err != nil {
		return err
	}

	return reportErr
}

func positionsAction(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	positions, err := s.trader.Positions(ctx)
	if err != nil {
		return err
	}

	orders, err := s.trader.PendingOrders(ctx)
	if err != nil {
		return err
	}

	return writeYAML(cmd, map[string]any{
		"positions":      positions,
		"pending_orders": orders,
	})
}

func annotationGetAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return errors.New(errors.ErrCodeMissingParameter, "usage: annotation get <ticket>")
	}

	ticket, err := parseTicket(cmd.Args().Get(0))
	if err != nil {
		return err
	}

	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	record, err := s.trader.Store().Record(ctx, ticket)
	if err != nil {
		return err
	}

	if record.IsNone() {
		return errors.Newf(errors.ErrCodeDataNotFound, "no annotation for ticket %d", ticket)
	}

	return writeYAML(cmd, record.Unwrap())
}

func annotationPutAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return errors.New(errors.ErrCodeMissingParameter, "usage: annotation put <ticket> <text>")
	}

	ticket, err := parseTicket(cmd.Args().Get(0))
	if err != nil {
		return err
	}

	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	return s.trader.Store().Put(ctx, ticket, cmd.Args().Get(1))
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	schema, err := advisory.ResponseSchema()
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.Root().Writer, schema)

	return err
}

func venuesAction(_ context.Context, cmd *cli.Command) error {
	infos := make([]venue.ProviderInfo, 0)

	for _, name := range venue.SupportedProviders() {
		info, err := venue.GetProviderInfo(name)
		if err != nil {
			return err
		}

		infos = append(infos, info)
	}

	return writeYAML(cmd, infos)
}

func parseTicket(raw string) (uint64, error) {
	ticket, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || ticket == 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "invalid ticket %q", raw)
	}

	return ticket, nil
}

func writeYAML(cmd *cli.Command, value any) error {
	encoder := yaml.NewEncoder(cmd.Root().Writer)
	encoder.SetIndent(2)

	if err := encoder.Encode(value); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	return encoder.Close()
}
