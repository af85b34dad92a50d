package importcsv

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/schaatslog/log"
	"github.com/mpapenbr/schaatslog/pkg/archive"
	"github.com/mpapenbr/schaatslog/pkg/cmd/cmdutil"
	"github.com/mpapenbr/schaatslog/pkg/config"
	"github.com/mpapenbr/schaatslog/pkg/importer"
	"github.com/mpapenbr/schaatslog/pkg/laptime"
	"github.com/mpapenbr/schaatslog/pkg/model"
	"github.com/mpapenbr/schaatslog/pkg/stats"
)

func NewImportCmd() *cobra.Command {
	var (
		watchDir    string
		transponder string
	)
	cmd := &cobra.Command{
		Use:   "import [file.csv...]",
		Short: "imports laps from csv files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdutil.SetupLogger()
			if len(args) == 0 && watchDir == "" {
				return fmt.Errorf("no files given and no --watch directory")
			}
			arch, closeArchive := cmdutil.ArchiveIfEnabled(false)
			defer closeArchive()
			h := &handler{out: os.Stdout, archive: arch, transponder: transponder}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			for _, f := range args {
				laps, err := importer.ImportFile(f, time.Now())
				if err != nil {
					return err
				}
				h.handle(ctx, f, laps)
			}
			if watchDir == "" {
				return nil
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return importer.NewDropDir(watchDir, h.handle,
				importer.WithExisting(len(args) == 0)).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&watchDir, "watch", "",
		"watch this directory and import csv files dropped into it")
	cmd.Flags().StringVar(&transponder, "transponder", "",
		"transponder for all imported laps (default: from file)")
	cmd.Flags().BoolVar(&config.Archive, "archive", false, "store the laps in the database")
	return cmd
}

type handler struct {
	out         io.Writer
	archive     archive.Archive
	transponder string
}

func (h *handler) handle(ctx context.Context, path string, laps []model.Lap) {
	if h.transponder != "" {
		for i := range laps {
			laps[i].Transponder = h.transponder
		}
	}
	s := stats.Summarize(laps)
	best := "-"
	if s.BestLap != nil {
		best = laptime.Format(s.BestLap.LapTimeSeconds)
	}
	fmt.Fprintf(h.out, "%s: %d laps, best %s, avg %.2fs, %.1f km\n",
		filepath.Base(path), s.TotalLaps, best, s.AvgLapTime, s.TotalDistanceKm)
	if h.archive == nil || len(laps) == 0 {
		return
	}
	fallback := h.transponder
	if fallback == "" {
		fallback = model.DefaultTransponder
	}
	if _, err := h.archive.Store(ctx, fallback, filepath.Base(path), laps); err != nil {
		log.Error("could not archive laps", log.String("file", path), log.ErrorField(err))
	}
}
