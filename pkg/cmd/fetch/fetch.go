package fetch

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/schaatslog/log"
	"github.com/mpapenbr/schaatslog/pkg/cmd/cmdutil"
	"github.com/mpapenbr/schaatslog/pkg/config"
	"github.com/mpapenbr/schaatslog/pkg/endpoints/api"
	"github.com/mpapenbr/schaatslog/pkg/fetch"
	"github.com/mpapenbr/schaatslog/pkg/filter"
	"github.com/mpapenbr/schaatslog/pkg/model"
)

type options struct {
	filter    string
	date      string
	minLap    int
	maxLap    int
	format    string
	withStats bool
	season    string
	timeout   time.Duration
}

func NewFetchCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "fetch [transponder]",
		Short: "retrieves the laps of a transponder from the timing service",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transponder := model.DefaultTransponder
			if len(args) > 0 {
				transponder = args[0]
			}
			return runFetch(cmd.Context(), transponder, opts)
		},
	}
	cmdutil.AddFetchFlags(cmd)
	cmd.Flags().StringVar(&opts.filter, "filter", string(model.FilterAll),
		"lap selection (ALLEMAAL, BESTE, SLECHTSTE)")
	cmd.Flags().StringVar(&opts.date, "date", "", "only laps of this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&opts.minLap, "min-lap", filter.UnboundedMin, "lowest lap number")
	cmd.Flags().IntVar(&opts.maxLap, "max-lap", filter.UnboundedMax, "highest lap number")
	cmd.Flags().StringVarP(&opts.format, "output", "o", "json", "output format (json, csv)")
	cmd.Flags().BoolVar(&opts.withStats, "stats", false, "print statistics instead of laps")
	cmd.Flags().StringVar(&opts.season, "season", "",
		"season of the heatmap in --stats, e.g. 2024-2025 (default: current)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")
	cmd.Flags().BoolVar(&config.Archive, "archive", false, "store the laps in the database")
	return cmd
}

func runFetch(ctx context.Context, transponder string, opts *options) error {
	cmdutil.SetupLogger()
	mode, err := model.ParseFilterMode(opts.filter)
	if err != nil {
		return err
	}
	if opts.season != "" && !filter.ValidSeason(opts.season) {
		return fmt.Errorf("invalid season %q", opts.season)
	}
	client, err := cmdutil.NewClient()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	laps, err := fetch.NewSource(client, fetch.WithCacheTTL(0)).
		Fetch(ctx, transponder, mode, true)
	if err != nil {
		return err
	}
	log.Debug("fetched laps", log.String("transponder", transponder), log.Int("laps", len(laps)))

	arch, closeArchive := cmdutil.ArchiveIfEnabled(false)
	defer closeArchive()
	if arch != nil {
		if _, err := arch.Store(ctx, transponder, "fetch", laps); err != nil {
			return err
		}
	}

	laps = filter.Apply(laps, filter.Criteria{
		Date:   opts.date,
		MinLap: opts.minLap,
		MaxLap: opts.maxLap,
		Mode:   mode,
	})
	if opts.withStats {
		return cmdutil.WriteJSON(os.Stdout, api.BuildStats(laps, time.Now(), opts.season))
	}
	return cmdutil.WriteLaps(os.Stdout, laps, opts.format)
}
