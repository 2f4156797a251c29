package main

import (
	"errors"

	"github.com/spf13/cobra"

	"pkt.systems/layoutsync/internal/appconfig"
	"pkt.systems/layoutsync/schema"
	"pkt.systems/pslog"
)

func newCopyToCmd() *cobra.Command {
	var cfgPath string
	var target string
	var devices []string
	var all bool
	cmd := &cobra.Command{
		Use:   "copy-to",
		Short: "Copy the stored layout to another user",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			if target == "" {
				return errors.New("--to is required")
			}
			if !all && len(devices) == 0 {
				return errors.New("--device or --all is required")
			}
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			client, err := newStoreClient(cfg, logger)
			if err != nil {
				return err
			}

			deviceTypes := make([]schema.DeviceType, 0, len(devices))
			for _, dt := range devices {
				normalized, err := schema.NormalizeDeviceType(dt)
				if err != nil {
					return err
				}
				deviceTypes = append(deviceTypes, normalized)
			}
			req := schema.CopyRequest{
				TargetEmail: target,
				DeviceTypes: deviceTypes,
				All:         all,
			}
			if err := client.CopyTo(cmd.Context(), req, nil); err != nil {
				return err
			}
			logger.Info("layout copied", "target", target, "all", all, "devices", len(deviceTypes))
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&target, "to", "", "target user email")
	cmd.Flags().StringSliceVar(&devices, "device", nil, "device type to copy (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "copy every device type")
	return cmd
}
