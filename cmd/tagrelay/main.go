package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/stlalpha/tagrelay/internal/broker"
	"github.com/stlalpha/tagrelay/internal/chat"
	"github.com/stlalpha/tagrelay/internal/config"
	"github.com/stlalpha/tagrelay/internal/console"
	"github.com/stlalpha/tagrelay/internal/logging"
	"github.com/stlalpha/tagrelay/internal/scheduler"
	"github.com/stlalpha/tagrelay/internal/wsgateway"
)

var (
	configDirFlag = flag.String("config", "configs", "Directory containing config.json")
	hostFlag      = flag.String("host", "", "Override the listen host")
	portFlag      = flag.Int("port", 0, "Override the listen port")
	framingFlag   = flag.String("framing", "", "Override framing: line or chunk")
	headlessFlag  = flag.Bool("headless", false, "Run without the operator console")
	debugFlag     = flag.Bool("debug", false, "Enable debug logging")
	logFlag       = flag.String("log", filepath.Join("data", "logs", "tagrelay.log"), "Log file path")
)

func main() {
	flag.Parse()

	logging.DebugEnabled = *debugFlag || os.Getenv("DEBUG") == "1"

	headless := *headlessFlag || !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd()))

	// Startup errors go to stderr too; the console takes the terminal over
	// later.
	logFile, err := logging.Setup(*logFlag, true)
	if err != nil {
		log.SetOutput(os.Stderr)
		log.Printf("WARN: %v. Logging to stderr only.", err)
	} else {
		defer logFile.Close()
	}
	log.Printf("INFO: Starting tagrelay (headless: %v)", headless)

	cfg, err := config.LoadServerConfig(*configDirFlag)
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	applyFlags(&cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("FATAL: Invalid configuration: %v", err)
	}

	bcfg, err := brokerConfig(cfg)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	transcript := chat.NewTranscript(cfg.TranscriptSize)
	var sink broker.Sink = broker.LogSink{}
	var consoleSink *console.Sink
	if !headless {
		consoleSink = console.NewSink(transcript)
		sink = broker.MultiSink{consoleSink, broker.LogSink{}}
	}

	relay := broker.New(bcfg, sink)
	if err := relay.Listen(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.NewScheduler(scheduler.HousekeepingJobs(relay, cfg.StatsInterval()))
	go func() {
		if err := sched.Start(ctx); err != nil {
			log.Printf("ERROR: Scheduler: %v", err)
		}
	}()

	var gateway *wsgateway.Gateway
	if cfg.WebSocketEnabled {
		gateway = wsgateway.New(gatewayConfig(cfg), relay)
		if err := gateway.Listen(); err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		go func() {
			if err := gateway.Serve(); err != nil {
				log.Printf("ERROR: %v", err)
			}
		}()
	}

	if watcher, err := NewConfigWatcher(*configDirFlag, relay, cfg); err != nil {
		log.Printf("WARN: Config hot reload disabled: %v", err)
	} else {
		defer watcher.Stop()
	}

	served := make(chan error, 1)
	go func() { served <- relay.Serve() }()

	if headless {
		select {
		case <-ctx.Done():
			log.Printf("INFO: Signal received, shutting down")
		case <-relay.Done():
		case err := <-served:
			if err != nil {
				log.Printf("ERROR: %v", err)
			}
		}
	} else {
		go func() {
			<-ctx.Done()
			relay.Shutdown()
		}()
		if w, ok := logFile.(io.Writer); ok {
			log.SetOutput(w)
		} else {
			log.SetOutput(io.Discard)
		}
		if err := console.Run(relay, transcript, sched, consoleSink, relay.Done()); err != nil {
			log.Printf("ERROR: %v", err)
		}
	}

	stop()
	if gateway != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := gateway.Shutdown(shutdownCtx); err != nil {
			log.Printf("WARN: WebSocket gateway shutdown: %v", err)
		}
		cancel()
	}
	relay.Shutdown()
	relay.Wait()
	sched.Stop()
	log.Println("INFO: tagrelay shut down.")
}

// applyFlags lets command-line overrides win over config.json.
func applyFlags(cfg *config.ServerConfig) {
	if *hostFlag != "" {
		cfg.Host = *hostFlag
	}
	if *portFlag != 0 {
		cfg.Port = *portFlag
	}
	if *framingFlag != "" {
		cfg.Framing = strings.ToLower(*framingFlag)
	}
}
