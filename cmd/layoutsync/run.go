package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"pkt.systems/layoutsync/core"
	"pkt.systems/layoutsync/httpapi"
	"pkt.systems/layoutsync/internal/appconfig"
	"pkt.systems/layoutsync/internal/eventbus"
	"pkt.systems/pslog"
)

func newRunCmd() *cobra.Command {
	var cfgPath string
	var addr string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the layout sync agent and local API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}

			var logWriter io.Writer = os.Stderr
			if cfg.Logging.File != "" {
				logWriter = io.MultiWriter(os.Stderr, &lumberjack.Logger{
					Filename:   cfg.Logging.File,
					MaxSize:    cfg.Logging.MaxSizeMB,
					MaxBackups: cfg.Logging.MaxBackups,
					MaxAge:     cfg.Logging.MaxAgeDays,
					Compress:   cfg.Logging.Compress,
				})
			}
			logger := pslog.LoggerFromEnv(
				pslog.WithEnvWriter(logWriter),
				pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
			)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx = pslog.ContextWithLogger(ctx, logger)

			client, err := newStoreClient(cfg, logger)
			if err != nil {
				return err
			}
			cache, err := newSnapshotCache(cfg.Cache, logger)
			if err != nil {
				return err
			}
			bus := eventbus.New(logger)

			engine, err := core.NewEngine(cfg.EngineConfig(), core.EngineDeps{
				Store:  client,
				Cache:  cache,
				Sink:   bus,
				Logger: logger,
			})
			if err != nil {
				return err
			}
			if err := engine.Load(ctx); err != nil {
				return err
			}
			if err := engine.Start(); err != nil {
				return err
			}
			defer engine.Stop()

			server := httpapi.NewServer(httpapi.Config{
				Addr:     cfg.HTTP.Addr,
				BasePath: cfg.HTTP.BasePath,
			}, engine, bus)

			logger.Info("layoutsync listening", "addr", cfg.HTTP.Addr, "device", cfg.Sync.DeviceType)
			return httpapi.ListenAndServe(ctx, cfg.HTTP.Addr, server.Handler())
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&addr, "addr", "", "override local API listen address")
	return cmd
}
