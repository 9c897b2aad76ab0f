package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/blocksim/app/services/node/handlers"
	"github.com/ardanlabs/blocksim/business/sys/metrics"
	"github.com/ardanlabs/blocksim/foundation/blockchain/event"
	"github.com/ardanlabs/blocksim/foundation/blockchain/genesis"
	"github.com/ardanlabs/blocksim/foundation/blockchain/state"
	"github.com/ardanlabs/blocksim/foundation/blockchain/worker"
	"github.com/ardanlabs/blocksim/foundation/events"
	"github.com/ardanlabs/blocksim/foundation/logger"
	"github.com/ardanlabs/conf/v3"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
		}
		Chain struct {
			Difficulty uint   `conf:"default:2"`
			MinerName  string `conf:"default:miner1"`
			ExportPath string `conf:"default:blockchain_data.json"`
		}
		Miner struct {
			Rounds      int           `conf:"default:9"`
			Interval    time.Duration `conf:"default:2s"`
			BatchSize   int           `conf:"default:3"`
			SubmitQueue int           `conf:"default:100"`
		}
		Events struct {
			QueueDepth int `conf:"default:100"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "single node blockchain simulator",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "BLOCKSIM"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Blockchain Support

	// The blockchain packages accept a function of this signature to allow the
	// application to log.
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
	}

	// The events value fans the domain events out to every websocket client
	// that is connected into the system.
	evts := events.New[event.Event](cfg.Events.QueueDepth, ev)

	gen, err := genesis.New(cfg.Chain.Difficulty)
	if err != nil {
		return fmt.Errorf("genesis: %w", err)
	}

	// The state value represents the blockchain node and manages the blockchain
	// database and provides an API for application support.
	state, err := state.New(state.Config{
		Genesis:   gen,
		EvHandler: ev,
	})
	if err != nil {
		return err
	}
	defer state.Shutdown()

	// The worker package implements the mining workflow. The worker will
	// register itself with the state.
	wrk, err := worker.Run(worker.Config{
		State:       state,
		Publisher:   publisher{evts},
		Miner:       cfg.Chain.MinerName,
		Rounds:      cfg.Miner.Rounds,
		Interval:    cfg.Miner.Interval,
		BatchSize:   cfg.Miner.BatchSize,
		SubmitQueue: cfg.Miner.SubmitQueue,
		EvHandler:   ev,
	})
	if err != nil {
		return fmt.Errorf("starting worker: %w", err)
	}

	// Save the chain once the configured rounds are mined.
	go func() {
		<-wrk.Done()
		if cfg.Chain.ExportPath == "" || state.IsShutdown() {
			return
		}

		if err := export(state, cfg.Chain.ExportPath); err != nil {
			log.Errorw("export", "path", cfg.Chain.ExportPath, "ERROR", err)
			return
		}
		log.Infow("export", "status", "chain saved", "path", cfg.Chain.ExportPath)
	}()

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, state)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    state,
		Evts:     evts,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case err := <-wrk.Fatal():
		log.Errorw("shutdown", "status", "chain integrity broken", "ERROR", err)
		shutdownNode(log, state, evts, &public, cfg.Web.ShutdownTimeout)
		return fmt.Errorf("mining: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		if err := shutdownNode(log, state, evts, &public, cfg.Web.ShutdownTimeout); err != nil {
			return err
		}
	}

	return nil
}

// shutdownNode stops mining, releases the websocket clients and sheds the
// remaining api load, in that order.
func shutdownNode(log *zap.SugaredLogger, st *state.State, evts *events.Events[event.Event], public *http.Server, timeout time.Duration) error {

	// Stop the miner, cancelling any seal in progress. Reads fail from here.
	log.Infow("shutdown", "status", "shutdown mining")
	st.Shutdown()

	// Release any web sockets that are currently active.
	log.Infow("shutdown", "status", "shutdown web socket channels")
	evts.Shutdown()

	// Give outstanding requests a deadline for completion.
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Asking listener to shut down and shed load.
	log.Infow("shutdown", "status", "shutdown public API started")
	if err := public.Shutdown(ctx); err != nil {
		public.Close()
		return fmt.Errorf("could not stop public service gracefully: %w", err)
	}

	return nil
}

// export writes the chain to the specified file as JSON.
func export(st *state.State, path string) error {
	blocks, err := st.QueryBlocks()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(blocks, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// =============================================================================

// publisher counts the mined blocks on the way to the subscribers.
type publisher struct {
	evts *events.Events[event.Event]
}

// Publish implements the worker.Publisher interface.
func (p publisher) Publish(e event.Event) int {
	if _, ok := e.(event.BlockMined); ok {
		metrics.AddBlocks()
	}
	return p.evts.Publish(e)
}
