package watch

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/schaatslog/log"
	"github.com/mpapenbr/schaatslog/pkg/archive"
	"github.com/mpapenbr/schaatslog/pkg/cmd/cmdutil"
	"github.com/mpapenbr/schaatslog/pkg/config"
	"github.com/mpapenbr/schaatslog/pkg/fetch"
	"github.com/mpapenbr/schaatslog/pkg/filter"
	"github.com/mpapenbr/schaatslog/pkg/model"
	"github.com/mpapenbr/schaatslog/pkg/publish"
	"github.com/mpapenbr/schaatslog/pkg/utils"
	"github.com/mpapenbr/schaatslog/pkg/utils/broadcast"
)

type options struct {
	interval       time.Duration
	filter         string
	subjectPrefix  string
	snapshotBucket string
}

func NewWatchCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "watch [transponder]",
		Short: "polls the timing service and publishes new laps",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transponder := model.DefaultTransponder
			if len(args) > 0 {
				transponder = args[0]
			}
			return runWatch(transponder, opts)
		},
	}
	cmdutil.AddFetchFlags(cmd)
	cmd.Flags().DurationVar(&opts.interval, "interval", publish.DefaultInterval,
		"poll interval")
	cmd.Flags().StringVar(&opts.filter, "filter", string(model.FilterAll),
		"lap selection (ALLEMAAL, BESTE, SLECHTSTE)")
	cmd.Flags().StringVar(&config.NatsURL, "nats-url", "",
		"publish new laps to this NATS server (empty: log only)")
	cmd.Flags().StringVar(&opts.subjectPrefix, "subject-prefix",
		publish.DefaultSubjectPrefix, "NATS subject prefix")
	cmd.Flags().StringVar(&opts.snapshotBucket, "snapshot-bucket", "",
		"JetStream key value bucket for the latest batch per transponder")
	cmd.Flags().BoolVar(&config.Archive, "archive", false, "store new laps in the database")
	cmd.Flags().BoolVar(&config.EnableTelemetry, "enable-telemetry", false,
		"enables telemetry")
	return cmd
}

//nolint:funlen // setup
func runWatch(transponder string, opts *options) error {
	logger := cmdutil.SetupLogger()
	telemetry := cmdutil.SetupTelemetry()
	if telemetry != nil {
		defer telemetry.Shutdown()
	}
	mode, err := model.ParseFilterMode(opts.filter)
	if err != nil {
		return err
	}
	client, err := cmdutil.NewClient()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := fetch.NewSource(client, fetch.WithCacheTTL(0))
	poller := publish.NewPoller(transponder,
		func(ctx context.Context, t string) ([]model.Lap, error) {
			laps, err := source.Fetch(ctx, t, mode, true)
			if err != nil {
				return nil, err
			}
			return filter.ByQuartile(laps, mode), nil
		},
		publish.WithInterval(opts.interval))

	batches := make(chan publish.Batch)
	bs := broadcast.NewBroadcastServer(publish.Subject(opts.subjectPrefix, transponder),
		"watch", batches, broadcast.WithSendTimeout[publish.Batch](5*time.Second))

	var wg sync.WaitGroup
	consume := func(fn func(<-chan publish.Batch)) {
		ch := bs.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ch)
		}()
	}

	consume(func(ch <-chan publish.Batch) {
		for b := range ch {
			for i := range b.Laps {
				logger.Info("lap",
					log.Int("lap", b.Laps[i].LapNumber),
					log.Float64("time", b.Laps[i].LapTimeSeconds),
					log.String("date", b.Laps[i].Date))
			}
		}
	})

	if config.NatsURL != "" {
		cmdutil.WaitForServices(utils.ExtractFromNatsURL(config.NatsURL))
		nc, err := nats.Connect(config.NatsURL, nats.Name("schaatslog-watch"))
		if err != nil {
			return err
		}
		defer nc.Drain() //nolint:errcheck // shutdown
		pub, err := publish.NewNatsPublisher(ctx,
			publish.WithConn(nc),
			publish.WithSubjectPrefix(opts.subjectPrefix),
			publish.WithSnapshotBucket(opts.snapshotBucket))
		if err != nil {
			return err
		}
		consume(func(ch <-chan publish.Batch) {
			publish.Relay(ctx, ch, pub, logger.Named("publish"))
		})
	}

	arch, closeArchive := cmdutil.ArchiveIfEnabled(telemetry != nil)
	defer closeArchive()
	if arch != nil {
		consume(func(ch <-chan publish.Batch) {
			storeBatches(ctx, ch, arch)
		})
	}

	log.Info("watching transponder",
		log.String("transponder", transponder), log.Duration("interval", opts.interval))
	// Run closes batches which in turn closes all subscriptions
	poller.Run(ctx, batches)
	wg.Wait()
	bs.Close()
	log.Info("watch terminated")
	return nil
}

func storeBatches(ctx context.Context, ch <-chan publish.Batch, a archive.Archive) {
	for b := range ch {
		if _, err := a.Store(ctx, b.Transponder, "watch", b.Laps); err != nil {
			log.Warn("could not archive batch", log.ErrorField(err))
		}
	}
}
