package main

import (
	"github.com/spf13/cobra"

	"github.com/fentz26/rtcheck/internal/analyzers"
	"github.com/fentz26/rtcheck/internal/audit"
	"github.com/fentz26/rtcheck/internal/design"
	"github.com/fentz26/rtcheck/internal/models"
	"github.com/fentz26/rtcheck/internal/report"
	"github.com/fentz26/rtcheck/internal/sched"
)

// designInputs is what a design record hashes.
type designInputs struct {
	Tasks    models.TaskSet `json:"tasks"`
	Bounds   design.Bounds  `json:"bounds"`
	Strategy string         `json:"strategy"`
	Step     models.Time    `json:"step"`
}

func newDesignCmd(o *options) *cobra.Command {
	var (
		designer       string
		strategy       string
		periodMin      string
		periodMax      string
		periodStep     string
		step           string
		concurrencyMin int64
		concurrencyMax int64
		workers        int
	)

	cmd := &cobra.Command{
		Use:   "design <taskset>",
		Short: "Synthesize the cheapest resource interface for a task set",
		Long: `Search periods and concurrency levels for the interface with the smallest budget
under which the designer's test accepts the task set.`,
		Example: `  rtcheck design --designer mpr-edf-sel09 --period-min 50 tasks.txt
  rtcheck design --designer pr-edf-sl03 --period-min 2 --period-max 10 tasks.yaml
  rtcheck design --strategy binary --step 1 --concurrency-min 2 tasks.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := o.cfg
			flags := cmd.Flags()
			for name, apply := range map[string]func(){
				"designer":        func() { cfg.Design.Designer = designer },
				"strategy":        func() { cfg.Design.Strategy = strategy },
				"period-min":      func() { cfg.Design.PeriodMin = periodMin },
				"period-max":      func() { cfg.Design.PeriodMax = periodMax },
				"period-step":     func() { cfg.Design.PeriodStep = periodStep },
				"step":            func() { cfg.Design.ResourceStep = step },
				"concurrency-min": func() { cfg.Design.ConcurrencyMin = concurrencyMin },
				"concurrency-max": func() { cfg.Design.ConcurrencyMax = concurrencyMax },
				"workers":         func() { cfg.Design.Workers = workers },
			} {
				if flags.Changed(name) {
					apply()
				}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			d, err := analyzers.DefaultRegistry().Designer(cfg.Design.Designer)
			if err != nil {
				return err
			}
			req, err := cfg.DesignRequest()
			if err != nil {
				return err
			}
			req.Config.Logger = o.logger

			ts, _, err := o.loadTaskSet(args[0])
			if err != nil {
				return err
			}

			o.logger.Info("designing interface", "designer", d.Name, "strategy", req.Strategy.String(),
				"period_min", int64(req.Bounds.Periods.Min), "period_max", int64(req.Bounds.Periods.Max))
			res := d.Synthesize(cmd.Context(), ts, req)
			o.audit.RecordOutcome(audit.ActionDesign, d.Name, designInputs{
				Tasks:    ts,
				Bounds:   req.Bounds,
				Strategy: req.Strategy.String(),
				Step:     req.Step,
			}, res.Err)
			if err := o.flushAudit(); err != nil {
				return err
			}
			o.exitCode = sched.ExitCode(res.Err)

			if o.output == outputJSON {
				return report.JSON(o.out(), report.NewDesignJSON(res))
			}
			return report.Design(o.out(), report.DesignOutcome{Result: res, Periodic: d.Periodic}, ts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&designer, "designer", "d", "", "Designer (mpr-edf-sel09, mpr-edf-bcl09, mpr-fp-bcl09, pr-edf-sl03)")
	flags.StringVar(&strategy, "strategy", "", "Search strategy (naive, linear, binary)")
	flags.StringVar(&periodMin, "period-min", "", "Smallest interface period")
	flags.StringVar(&periodMax, "period-max", "", "Largest interface period (default period-min)")
	flags.StringVar(&periodStep, "period-step", "", "Distance between explored periods (default one nanosecond)")
	flags.StringVar(&step, "step", "", "Budget step of the exact search below the linear budget; unset keeps the linear budget")
	flags.Int64Var(&concurrencyMin, "concurrency-min", 0, "Smallest concurrency (default derived from utilization)")
	flags.Int64Var(&concurrencyMax, "concurrency-max", 0, "Largest concurrency (default number of tasks)")
	flags.IntVar(&workers, "workers", 0, "Periods explored in parallel (default GOMAXPROCS)")
	return cmd
}
