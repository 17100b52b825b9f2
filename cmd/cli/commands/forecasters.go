package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/inferloop/tsforecast/internal/forecasters"
	"github.com/inferloop/tsforecast/pkg/models"
)

// NewForecastersCmd lists the forecasters available for comparison
func NewForecastersCmd(app *App) *cobra.Command {
	var (
		all    bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "forecasters",
		Short: "List forecasters that accept a univariate series without exogenous input",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.build(false)
			if err != nil {
				return err
			}

			list := c.adapter.List()
			if all {
				list = c.adapter.All()
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			return writeForecasters(cmd, list)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include forecasters that cannot take part in a univariate comparison")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	return cmd
}

func writeForecasters(cmd *cobra.Command, list []models.ForecasterDescriptor) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tTARGET\tHORIZON AT FIT\tMIN TRAIN\tELIGIBLE\tDESCRIPTION")
	for _, d := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			d.Name,
			d.Capabilities.Target,
			yesNo(d.Capabilities.RequiresHorizonAtFit),
			d.Capabilities.MinTrainLength,
			yesNo(forecasters.Eligible(d)),
			d.Description,
		)
	}
	return w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
