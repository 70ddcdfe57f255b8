package main

import (
	"github.com/spf13/cobra"

	"github.com/fentz26/rtcheck/internal/analyzers"
	"github.com/fentz26/rtcheck/internal/report"
)

func newListCmd(o *options) *cobra.Command {
	var family string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List analyzers and designers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := analyzers.DefaultRegistry()
			list := reg.List()
			designers := reg.Designers()
			if family != "" {
				f, err := analyzers.ParseFamily(family)
				if err != nil {
					return err
				}
				list = reg.Battery(f)
				var kept []analyzers.Designer
				for _, d := range designers {
					if d.Family == f {
						kept = append(kept, d)
					}
				}
				designers = kept
			}

			if o.output == outputJSON {
				return report.JSON(o.out(), struct {
					Analyzers []analyzers.Analyzer `json:"analyzers"`
					Designers []analyzers.Designer `json:"designers"`
				}{list, designers})
			}
			return report.Catalog(o.out(), list, designers)
		},
	}

	cmd.Flags().StringVarP(&family, "family", "f", "", "Only list this algorithm family")
	return cmd
}
