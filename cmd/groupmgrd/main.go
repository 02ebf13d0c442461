package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chainfleet/groupmgr/pkg/config"
	"github.com/chainfleet/groupmgr/pkg/events"
	"github.com/chainfleet/groupmgr/pkg/fleet"
	"github.com/chainfleet/groupmgr/pkg/health"
	"github.com/chainfleet/groupmgr/pkg/infostore"
	"github.com/chainfleet/groupmgr/pkg/log"
	"github.com/chainfleet/groupmgr/pkg/manager"
	"github.com/chainfleet/groupmgr/pkg/metrics"
	"github.com/chainfleet/groupmgr/pkg/notify"
	"github.com/chainfleet/groupmgr/pkg/reconciler"
	"github.com/chainfleet/groupmgr/pkg/storage"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "groupmgrd",
	Short:   "groupmgrd manages the lifecycle of blockchain node groups across chains",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"groupmgrd version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	serveCmd.Flags().String("config", "groupmgr.yaml", "path to configuration file")
	serveCmd.Flags().Duration("reconcile-interval", 30*time.Second, "interval between reconciliation passes")
	serveCmd.Flags().String("listen", ":9090", "address for the metrics and readiness HTTP server")

	rootCmd.AddCommand(serveCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the group manager control-plane process",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	reconcileInterval, _ := cmd.Flags().GetDuration("reconcile-interval")
	listen, _ := cmd.Flags().GetString("listen")

	opts, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := storage.NewBoltTabularStore(opts.StoragePath())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	groupStorage := storage.NewGroupStorage(db)
	cache := infostore.New()
	if err := cache.Init(groupStorage); err != nil {
		return fmt.Errorf("init cache from storage: %w", err)
	}
	registerConfiguredServices(cache, opts)

	fleetClient := fleet.NewHTTPClient(opts.Fleet.Endpoint)
	fleetCtl := fleet.NewController(fleetClient, opts.UserName())

	mgr := manager.New(cache, groupStorage, fleetCtl)

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	mgr.SetEventBroker(broker)

	fanout := notify.NewFanout(cache, notify.NewStaticResolver(staticEndpoints(opts)), notify.LoggingNotifyClient{})
	cache.SetNotifier(fanout)

	recon := reconciler.New(mgr, reconcileInterval)
	recon.Start()
	defer recon.Stop()

	registry := health.NewRegistry()
	registry.Register("storage", storageChecker{store: db})
	if opts.Fleet.Endpoint != "" {
		registry.Register("fleet", health.NewHTTPChecker(opts.Fleet.Endpoint))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/readyz", registry.Handler(5*time.Second))

	srv := &http.Server{Addr: listen, Handler: mux}
	go func() {
		log.Info("groupmgrd listening on " + listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("http server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
