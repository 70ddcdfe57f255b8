package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fentz26/rtcheck/internal/analyzers"
	"github.com/fentz26/rtcheck/internal/logger"
	"github.com/fentz26/rtcheck/internal/tui"
)

func newTUICmd(o *options) *cobra.Command {
	var (
		algorithm  string
		processors int64
	)

	cmd := &cobra.Command{
		Use:   "tui <taskset>",
		Short: "Browse every analyzer result of a family interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := o.cfg
			if cmd.Flags().Changed("algorithm") {
				cfg.Analysis.Algorithm = algorithm
			}
			if cmd.Flags().Changed("processors") {
				cfg.Analysis.Processors = processors
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ts, opts, err := o.loadTaskSet(args[0])
			if err != nil {
				return err
			}
			p, err := cfg.Platform()
			if err != nil {
				return err
			}
			family, err := analyzers.ParseFamily(cfg.Analysis.Algorithm)
			if err != nil {
				return err
			}

			// Log lines would tear the alternate screen.
			session := tui.NewSession(ts, family, p, logger.Discard())
			app := tui.New(session, opts.Unit)
			if err := app.Run(); err != nil {
				return fmt.Errorf("TUI error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", "", "Algorithm family to browse")
	cmd.Flags().Int64VarP(&processors, "processors", "m", 1, "Number of identical processors")
	return cmd
}
