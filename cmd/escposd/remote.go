package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/thereceipt/escpos-driver/internal/api"
	"github.com/thereceipt/escpos-driver/internal/tui"
)

const requestTimeout = 10 * time.Second

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the status of a running driver",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			client := api.NewClient(rootServerURL)
			report, err := client.Status(ctx)
			if err != nil {
				return err
			}
			devices, err := client.Devices(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, tui.RenderStatus(report))
			fmt.Fprintln(out, tui.RenderDevices(devices.Connected))
			return nil
		},
	}
}

func newWatchCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the status of a running driver",
		RunE: func(cmd *cobra.Command, args []string) error {
			model := tui.NewWatch(api.NewClient(rootServerURL), interval)
			_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "poll interval")
	return cmd
}

func newPrintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "print <file-or-url>",
		Short: "Print a receipt (.json) or a markup document through a running driver",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := loadInput(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			client := api.NewClient(rootServerURL)
			if in.receipt != nil {
				err = client.PrintReceipt(ctx, in.receipt)
			} else {
				err = client.PrintXMLReceipt(ctx, in.document)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "queued")
			return nil
		},
	}
}

func newCashboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cashbox",
		Short: "Open the cash drawer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			return api.NewClient(rootServerURL).OpenCashbox(ctx)
		},
	}
}

func newTicketCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ticket",
		Short: "Print the diagnostic status ticket",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			return api.NewClient(rootServerURL).PrintStatus(ctx)
		},
	}
}
