package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/thereceipt/escpos-driver/internal/config"
	"github.com/thereceipt/escpos-driver/internal/printer"
	"github.com/thereceipt/escpos-driver/internal/registry"
	"github.com/thereceipt/escpos-driver/internal/status"
)

func newDevicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Manage the supported printer list",
	}
	cmd.AddCommand(newDevicesListCmd(), newDevicesAddCmd(), newDevicesScanCmd())
	return cmd
}

func openRegistry() *registry.Registry {
	return registry.New(config.ResolveRegistryPath(appCfg.RegistryPath), status.NewTracker())
}

func newDevicesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List supported printers and mark the plugged in ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices := openRegistry()
			locator := printer.NewLocator(devices, printer.USBBus{}, printer.USBOpener{}, status.NewTracker())

			connected := make(map[string]bool)
			found, err := locator.ConnectedDevices()
			if err != nil {
				fmt.Fprintf(os.Stderr, "usb scan failed: %v\n", err)
			}
			for _, d := range found {
				connected[d.Identity()] = true
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPLUGGED")
			for _, d := range devices.List() {
				plugged := ""
				if connected[d.Identity()] {
					plugged = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", d.Identity(), d.Name, plugged)
			}
			return w.Flush()
		},
	}
}

func newDevicesAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <identification>",
		Short: "Add a printer from an lsusb line, e.g. \"ID 04b8:0202 Epson TM-T88\"",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			line := strings.Join(args, " ")
			device, err := openRegistry().Register(line)
			switch {
			case errors.Is(err, registry.ErrNoIdentification):
				return errors.Errorf("no vendor:product id in %q", line)
			case err != nil:
				return errors.Wrap(err, "save device list")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "added %s %s\n", device.Identity(), device.Name)
			return nil
		},
	}
}

func newDevicesScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Print the USB printers attached to this machine, ready for devices add",
		RunE: func(cmd *cobra.Command, args []string) error {
			attached, err := printer.USBBus{}.Scan()
			if err != nil {
				return err
			}
			if len(attached) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no USB printers found")
				return nil
			}
			for _, a := range attached {
				fmt.Fprintln(cmd.OutOrStdout(), a.Identification())
			}
			return nil
		},
	}
}
