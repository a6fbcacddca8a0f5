package main

import (
	"fmt"
	"strconv"

	appnumbering "github.com/jonathanEDR/facturadorfront-sub001/internal/application/numbering"
	"github.com/spf13/cobra"
)

func newNumberingCmds(c *cli) []*cobra.Command {
	registry := func() *appnumbering.Registry {
		return appnumbering.NewRegistry(c.client, c.log)
	}

	series := &cobra.Command{
		Use:   "series",
		Short: "List the series codes known to the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()
			r := registry()
			list := r.ListSeries(ctx)
			if state := r.Snapshot(); state.Error != "" {
				return fmt.Errorf("list series: %s", state.Error)
			}
			return printJSON(cmd, list)
		},
	}

	counters := &cobra.Command{
		Use:   "counters",
		Short: "List the counters of the company",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()
			list, err := registry().ListCounters(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, list)
		},
	}

	var inactive bool
	configure := &cobra.Command{
		Use:   "configure SERIE NUMERO_INICIAL",
		Short: "Create or update the counter of a series",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			initial, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid initial number %q", args[1])
			}
			ctx, cancel := c.context(cmd)
			defer cancel()
			counter, err := registry().Configure(ctx, args[0], initial, !inactive)
			if err != nil {
				return err
			}
			return printJSON(cmd, counter)
		},
	}
	configure.Flags().BoolVar(&inactive, "inactive", false, "Create the counter disabled")

	next := &cobra.Command{
		Use:   "next SERIE",
		Short: "Preview the next number of a series without consuming it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()
			n, err := registry().NextNumber(ctx, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), n.Formatted())
			return err
		},
	}

	reset := &cobra.Command{
		Use:   "reset SERIE NUEVO_NUMERO",
		Short: "Move the counter of a series to a new number",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid number %q", args[1])
			}
			ctx, cancel := c.context(cmd)
			defer cancel()
			counter, err := registry().Reset(ctx, args[0], number)
			if err != nil {
				return err
			}
			return printJSON(cmd, counter)
		},
	}

	setActive := func(use, short string, active bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " SERIE",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := c.context(cmd)
				defer cancel()
				counter, err := registry().SetActive(ctx, args[0], active)
				if err != nil {
					return err
				}
				return printJSON(cmd, counter)
			},
		}
	}

	return []*cobra.Command{
		series,
		counters,
		configure,
		next,
		reset,
		setActive("activate", "Enable the counter of a series", true),
		setActive("deactivate", "Disable the counter of a series", false),
	}
}
