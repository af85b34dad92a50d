package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // profiling port is opt-in
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mpapenbr/schaatslog/log"
	"github.com/mpapenbr/schaatslog/pkg/cmd/cmdutil"
	"github.com/mpapenbr/schaatslog/pkg/config"
	"github.com/mpapenbr/schaatslog/pkg/endpoints/api"
	"github.com/mpapenbr/schaatslog/pkg/fetch"
)

var profilingPort int

func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "starts the JSON API for the dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer()
		},
	}
	cmdutil.AddFetchFlags(cmd)
	cmd.Flags().StringVarP(&config.ServerAddr,
		"addr",
		"a",
		"localhost:8080",
		"API server listen address")
	cmd.Flags().StringVar(&config.CacheTTL,
		"cache-ttl",
		"5m",
		"duration a fetched lap list is served from cache (0 disables)")
	cmd.Flags().BoolVar(&config.Archive,
		"archive",
		false,
		"enables the archive endpoints (requires --db)")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data (empty: stdout)")
	cmd.Flags().StringVar(&config.TLSCertFile,
		"tls-cert",
		"",
		"certificate file for TLS (reloaded on change)")
	cmd.Flags().StringVar(&config.TLSKeyFile,
		"tls-key",
		"",
		"key file for TLS")
	cmd.Flags().IntVar(&profilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	return cmd
}

//nolint:funlen // setup
func startServer() error {
	logger := cmdutil.SetupLogger()
	telemetry := cmdutil.SetupTelemetry()
	if telemetry != nil {
		defer telemetry.Shutdown()
	}

	if profilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", profilingPort))
		go func() {
			//nolint:gosec // local profiling endpoint
			err := http.ListenAndServe(fmt.Sprintf("localhost:%d", profilingPort), nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	client, err := cmdutil.NewClient()
	if err != nil {
		return err
	}
	source := fetch.NewSource(client,
		fetch.WithCacheTTL(cmdutil.CacheTTL()),
		fetch.WithSourceLogger(logger.Named("fetch")))

	apiOpts := []api.Option{api.WithLogger(logger.Named("api"))}
	arch, closeArchive := cmdutil.ArchiveIfEnabled(telemetry != nil)
	defer closeArchive()
	if arch != nil {
		apiOpts = append(apiOpts, api.WithArchive(arch))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.AddToContext(ctx, logger)
	go evictLoop(ctx, source)
	setupGoRoutinesDump()

	server := &http.Server{
		Addr:              config.ServerAddr,
		Handler:           h2c.NewHandler(api.NewServer(source, apiOpts...).Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	useTLS := config.TLSCertFile != "" && config.TLSKeyFile != ""
	if useTLS {
		server.TLSConfig = NewTLSConfigProvider(ctx, config.TLSCertFile, config.TLSKeyFile)
		if server.TLSConfig == nil {
			return errors.New("could not load TLS key pair")
		}
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting API server",
			log.String("addr", config.ServerAddr), log.Bool("tls", useTLS))
		if useTLS {
			errCh <- server.ListenAndServeTLS("", "")
		} else {
			errCh <- server.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server could not be started", log.ErrorField(err))
			return err
		}
	case <-ctx.Done():
		log.Debug("Got signal")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("server shutdown", log.ErrorField(err))
		}
	}
	log.Info("Server terminated")
	return nil
}

// evictLoop drops stale cache entries so unused transponders do not pile up.
func evictLoop(ctx context.Context, source *fetch.Source) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := source.EvictExpired(ctx); n > 0 {
				log.Debug("evicted cache entries", log.Int("count", n))
			}
		}
	}
}

func setupGoRoutinesDump() {
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGQUIT)
		buf := make([]byte, 1<<20)
		for {
			<-sigs
			stacklen := runtime.Stack(buf, true)
			fmt.Printf("=== received SIGQUIT ===\n*** goroutine dump...\n%s\n*** end\n",
				buf[:stacklen])
		}
	}()
}
