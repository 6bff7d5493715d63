package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/petems/wavescope/internal/audio"
)

func newDevicesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List capture devices and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			host, err := openHost(cfg, zerolog.Nop())
			if err != nil {
				return err
			}
			defer host.Close()

			devices, err := audio.NewCatalog(host).ListCaptureDevices()
			if err != nil {
				return err
			}
			return printDevices(cmd, devices)
		},
	}
}

func printDevices(cmd *cobra.Command, devices []audio.Device) error {
	if len(devices) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No capture devices found")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCHANNELS\tRATE\tDEFAULT")
	for _, d := range devices {
		def := ""
		if d.Default {
			def = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.0f\t%s\n", d.ID, d.Name, d.MaxInputChannels, d.DefaultSampleRate, def)
	}
	return w.Flush()
}
