package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/inferloop/tsforecast/internal/generators"
	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

// GenerateOptions are the flags of the generate command
type GenerateOptions struct {
	OutputFile string
	Format     string
	Seed       uint64
	Length     int
	Level      float64
	Scale      float64
	Start      string
}

// NewGenerateCmd writes the synthetic weekly series so it can be inspected or
// fed back through compare
func NewGenerateCmd(app *App) *cobra.Command {
	opts := &GenerateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write the synthetic weekly random walk as CSV or JSON",
		Example: `  # The demo series used by compare --synthetic
  tsforecast-cli generate -o synthetic.csv

  # A longer, noisier walk
  tsforecast-cli generate --seed 7 --length 520 --scale 2.5 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, app, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputFile, "output", "o", "-", "output file (- for stdout)")
	cmd.Flags().StringVar(&opts.Format, "format", constants.FormatCSV, "output format (csv, json)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed (default from config)")
	cmd.Flags().IntVar(&opts.Length, "length", 0, "number of weekly points (default from config)")
	cmd.Flags().Float64Var(&opts.Level, "level", 0, "starting level (default from config)")
	cmd.Flags().Float64Var(&opts.Scale, "scale", 0, "standard deviation of one weekly step (default from config)")
	cmd.Flags().StringVar(&opts.Start, "start", "", "first week ending, a Sunday as YYYY-MM-DD (default from config)")

	return cmd
}

func runGenerate(cmd *cobra.Command, app *App, opts *GenerateOptions) error {
	walk := app.Config.Synthetic
	flags := cmd.Flags()
	if flags.Changed("seed") {
		walk.Seed = opts.Seed
	}
	if flags.Changed("length") {
		walk.Length = opts.Length
	}
	if flags.Changed("level") {
		walk.Level = opts.Level
	}
	if flags.Changed("scale") {
		walk.Scale = opts.Scale
	}
	if opts.Start != "" {
		walk.Start = opts.Start
	}

	if opts.Format != constants.FormatCSV && opts.Format != constants.FormatJSON {
		return errors.NewInputError(errors.CodeInvalidRequest, fmt.Sprintf("unsupported format %q, use csv or json", opts.Format))
	}

	generator, err := generators.NewRandomWalkGenerator(&walk, app.Logger)
	if err != nil {
		return err
	}

	s, err := generator.Generate(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.OutputFile != "-" {
		f, err := os.Create(opts.OutputFile)
		if err != nil {
			return errors.NewSinkError(constants.SchemeFile, opts.OutputFile, "create", err)
		}
		defer f.Close()
		out = f
	}

	if opts.Format == constants.FormatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(s.Points())
	} else {
		err = writeSeriesCSV(out, s)
	}
	if err != nil {
		return fmt.Errorf("failed to write series: %w", err)
	}

	if opts.OutputFile != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Generated %d weekly points (seed %d) to %s\n", s.Len(), walk.Seed, opts.OutputFile)
	}
	return nil
}

func writeSeriesCSV(w io.Writer, s *models.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "value"}); err != nil {
		return err
	}
	for i, ts := range s.Timestamps {
		row := []string{ts.Format(constants.DateLayout), strconv.FormatFloat(s.Values[i], 'f', -1, 64)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
