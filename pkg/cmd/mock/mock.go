package mock

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/schaatslog/pkg/canonical"
	"github.com/mpapenbr/schaatslog/pkg/cmd/cmdutil"
	"github.com/mpapenbr/schaatslog/pkg/model"
)

func NewMockCmd() *cobra.Command {
	var (
		numLaps     int
		seed        uint64
		transponder string
		format      string
	)
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "prints generated sample laps",
		RunE: func(cmd *cobra.Command, args []string) error {
			laps := canonical.GenerateMock(transponder, numLaps, canonical.NewRand(seed))
			return cmdutil.WriteLaps(os.Stdout, laps, format)
		},
	}
	cmd.Flags().IntVar(&numLaps, "laps", 100, "number of laps (at most 200)")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "seed for the generator")
	cmd.Flags().StringVar(&transponder, "transponder", model.DefaultTransponder,
		"transponder of the generated laps")
	cmd.Flags().StringVarP(&format, "output", "o", "csv", "output format (json, csv)")
	return cmd
}
