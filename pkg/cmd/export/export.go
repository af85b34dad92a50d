package export

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/schaatslog/log"
	"github.com/mpapenbr/schaatslog/pkg/archive"
	"github.com/mpapenbr/schaatslog/pkg/canonical"
	"github.com/mpapenbr/schaatslog/pkg/cmd/cmdutil"
	"github.com/mpapenbr/schaatslog/pkg/model"
)

func NewExportCmd() *cobra.Command {
	var (
		transponder string
		output      string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "exports archived laps as csv",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdutil.SetupLogger()
			pool := cmdutil.ConnectDB(false)
			defer pool.Close()
			return runExport(cmd.Context(), archive.New(pool), transponder, output)
		},
	}
	cmd.Flags().StringVar(&transponder, "transponder", model.DefaultTransponder,
		"transponder to export")
	cmd.Flags().StringVarP(&output, "file", "f", "", "write to file instead of stdout")
	return cmd
}

//nolint:whitespace // can't make both editor and linter happy
func runExport(
	ctx context.Context, a archive.Archive, transponder, output string,
) error {
	if ctx == nil {
		ctx = context.Background()
	}
	laps, err := a.Load(ctx, transponder)
	if err != nil {
		return err
	}
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	log.Info("exporting laps", log.String("transponder", transponder), log.Int("laps", len(laps)))
	return canonical.WriteCSV(w, laps)
}
