package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/layoutsync/internal/appconfig"
	"pkt.systems/pslog"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the local snapshot cache",
	}
	cmd.AddCommand(newCacheResetCmd())
	cmd.AddCommand(newCacheListCmd())
	return cmd
}

func newCacheResetCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Evict all cached layout snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			cache, err := newSnapshotCache(cfg.Cache, logger)
			if err != nil {
				return err
			}
			if err := cache.Reset(); err != nil {
				return err
			}
			logger.Info("cache reset", "dir", cfg.Cache.Dir)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}

func newCacheListCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached device types",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			cache, err := newSnapshotCache(cfg.Cache, logger)
			if err != nil {
				return err
			}
			entries := cache.Entries()
			if len(entries) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "cache is empty")
				return err
			}
			for _, entry := range entries {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), entry); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}
