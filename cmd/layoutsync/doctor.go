package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/layoutsync/internal/appconfig"
	"pkt.systems/layoutsync/schema"
	"pkt.systems/pslog"
)

func newDoctorCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run layoutsync diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())

			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			configPath := cfgPath
			if strings.TrimSpace(configPath) == "" {
				path, err := appconfig.DefaultConfigPath()
				if err != nil {
					return err
				}
				configPath = path
			}
			logger.Info("doctor start", "config", configPath)

			engineCfg, err := schema.NormalizeEngineConfig(cfg.EngineConfig())
			if err != nil {
				return err
			}
			logger.Info("doctor config ok", "device", engineCfg.DeviceType, "fallbacks", len(engineCfg.FallbackOrder))

			if _, err := tokenProvider(cfg.Auth)(cmd.Context()); err != nil {
				logger.Warn("doctor token unavailable", "err", err)
			} else {
				logger.Info("doctor token ok")
			}

			cache, err := newSnapshotCache(cfg.Cache, logger)
			if err != nil {
				return err
			}
			logger.Info("doctor cache ok", "dir", cfg.Cache.Dir, "entries", len(cache.Entries()))

			client, err := newStoreClient(cfg, logger)
			if err != nil {
				return err
			}
			doc, err := client.Get(cmd.Context(), engineCfg.DeviceType)
			switch {
			case err == nil:
				logger.Info("doctor remote ok", "tabs", len(doc.Tabs), "updated_at", doc.UpdatedAt)
			case errors.Is(err, schema.ErrNotFound):
				logger.Info("doctor remote ok", "document", "missing")
			default:
				logger.Warn("doctor remote unreachable", "err", err)
			}

			logger.Info("doctor done")
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}
