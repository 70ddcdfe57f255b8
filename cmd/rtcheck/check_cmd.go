package main

import (
	"github.com/spf13/cobra"

	"github.com/fentz26/rtcheck/internal/analyzers"
	"github.com/fentz26/rtcheck/internal/audit"
	"github.com/fentz26/rtcheck/internal/models"
	"github.com/fentz26/rtcheck/internal/report"
	"github.com/fentz26/rtcheck/internal/sched"
)

// auditInputs is what a decision record hashes.
type auditInputs struct {
	Tasks    models.TaskSet `json:"tasks"`
	Platform string         `json:"platform"`
}

func newCheckCmd(o *options) *cobra.Command {
	var (
		algorithm   string
		processors  int64
		tests       []string
		budget      string
		period      string
		concurrency int64
	)

	cmd := &cobra.Command{
		Use:   "check <taskset>",
		Short: "Run the battery of a scheduling algorithm on a task set",
		Long: `Run every enabled analyzer of an algorithm family, most precise last, until one
accepts the task set. Use "-" to read the task set from standard input.`,
		Example: `  rtcheck check -a global-edf -m 2 tasks.txt
  rtcheck check -a hier-edf --resource 146 --period 50 --concurrency 3 tasks.yaml
  rtcheck check --test rta-jp86 tasks.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := o.cfg
			flags := cmd.Flags()
			if flags.Changed("algorithm") {
				cfg.Analysis.Algorithm = algorithm
			}
			if flags.Changed("processors") {
				cfg.Analysis.Processors = processors
			}
			if flags.Changed("test") {
				cfg.Analysis.Tests = tests
			}
			if flags.Changed("resource") {
				cfg.Model.Resource = budget
			}
			if flags.Changed("period") {
				cfg.Model.Period = period
			}
			if flags.Changed("concurrency") {
				cfg.Model.Concurrency = concurrency
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ts, _, err := o.loadTaskSet(args[0])
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

			runner := analyzers.NewRunner(nil, o.logger)
			if len(cfg.Analysis.Tests) > 0 {
				runner = runner.Override(cfg.Analysis.Tests...)
			}
			rep, err := runner.Run(cmd.Context(), family, ts, p)
			if rep != nil {
				inputs := auditInputs{Tasks: ts, Platform: p.String()}
				for _, res := range rep.Results {
					o.audit.RecordOutcome(audit.ActionAnalyze, res.Analyzer, inputs, res.Err)
				}
			}
			if ferr := o.flushAudit(); ferr != nil && err == nil {
				err = ferr
			}
			if err != nil {
				return err
			}

			o.exitCode = sched.ExitCode(rep.Err())

			if o.output == outputJSON {
				return report.JSON(o.out(), report.NewBatteryJSON(rep, p))
			}
			return report.Battery(o.out(), rep, ts, p)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&algorithm, "algorithm", "a", "", "Algorithm family (up-edf, up-fp, global-edf, global-fp, hier-edf, hier-fp)")
	flags.Int64VarP(&processors, "processors", "m", 1, "Number of identical processors")
	flags.StringArrayVar(&tests, "test", nil, "Run this analyzer instead of the battery (repeatable)")
	flags.StringVar(&budget, "resource", "", "Budget of the resource interface (hierarchical families)")
	flags.StringVar(&period, "period", "", "Period of the resource interface")
	flags.Int64Var(&concurrency, "concurrency", 0, "Concurrency of the interface; 0 selects the periodic resource model")
	return cmd
}
