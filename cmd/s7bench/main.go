// S7bench - S7 PLC read benchmark
//
// Connects to a controller with each configured driver variant, performs
// timed read cycles over a tag scenario, verifies every value read and
// reports connect, disconnect and average read times.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"s7bench/api"
	"s7bench/bench"
	"s7bench/config"
	"s7bench/driver"
	"s7bench/logging"
	"s7bench/s7"
)

// Version is set at build time via -ldflags
var Version = "dev"

// preprocessLogDebugFlag handles --log-debug without a value by injecting "all" as the default.
func preprocessLogDebugFlag() {
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--log-debug" || arg == "-log-debug" {
			if i+1 >= len(args) || (len(args[i+1]) > 0 && args[i+1][0] == '-') {
				os.Args = append(os.Args[:i+2], append([]string{"all"}, os.Args[i+2:]...)...)
			}
			return
		}
		if strings.HasPrefix(arg, "--log-debug=") || strings.HasPrefix(arg, "-log-debug=") {
			return
		}
	}
}

// Command line flags
var (
	configPath  = flag.String("config", config.DefaultPath(), "Path to configuration file")
	showVersion = flag.Bool("version", false, "Show version and exit")
	host        = flag.String("host", "", "PLC host (overrides config and environment)")
	rack        = flag.Int("rack", 0, "PLC rack")
	slot        = flag.Int("slot", 0, "PLC slot")
	numCycles   = flag.Int("cycles", 0, "Number of read cycles")
	cycleTime   = flag.Int("cycle-time", 0, "Pause between read cycles in milliseconds")
	drivers     = flag.String("driver", "", "Comma-separated driver variants (simple, batched)")
	bus         = flag.String("bus", "", "Field bus flavour (native, gos7, sim)")
	tagsFile    = flag.String("tags-file", "", "Path to tag list file")
	logLevel    = flag.String("log-level", "", "Console log level (trace, debug, info, warn, error)")
	logFile     = flag.String("log", "", "Path to log file (optional)")
	logDebug    = flag.String("log-debug", "", "Enable protocol debug logging to debug.log, optionally filtered (e.g. s7,bench)")
	serve       = flag.Bool("serve", false, "Keep the status API running after the benchmark")
	httpPort    = flag.Int("p", 0, "Status API listen port (enables the API)")
	namespace   = flag.String("namespace", "", "Namespace for sink topics and keys")
	probeOnly   = flag.Bool("probe", false, "Check which rack/slot answers at the host and exit")
)

func init() {
	// Aliases matching the environment variable names.
	flag.IntVar(rack, "remoteRack", 0, "Alias for -rack")
	flag.IntVar(slot, "remoteSlot", 0, "Alias for -slot")
	flag.IntVar(numCycles, "numCycles", 0, "Alias for -cycles")
	flag.IntVar(cycleTime, "cycleTime", 0, "Alias for -cycle-time")
}

func main() {
	preprocessLogDebugFlag()
	flag.Parse()

	if *showVersion {
		fmt.Printf("s7bench %s\n", Version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		fmt.Fprintf(os.Stderr, "Error in environment: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if *probeOnly {
		os.Exit(runProbe(cfg))
	}
	os.Exit(run(cfg))
}

// runProbe handshakes with the configured station and the usual CPU
// positions and prints which answered.
func runProbe(cfg *config.Config) int {
	stations := probeStations(s7.Station{Rack: cfg.Rack, Slot: cfg.Slot})
	fmt.Printf("Probing %s\n", cfg.Host)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results := s7.Probe(ctx, cfg.Host, stations, cfg.Timeout, 2)
	for _, r := range results {
		if r.OK() {
			fmt.Printf("  %s: ok, PDU %d bytes, %d ms\n", r.Station, r.PDUSize, r.Took.Milliseconds())
		} else {
			fmt.Printf("  %s: %v\n", r.Station, r.Err)
		}
	}
	if _, ok := s7.FirstReachable(results); !ok {
		return 1
	}
	return 0
}

// probeStations puts the configured station first, followed by the
// defaults not already listed.
func probeStations(configured s7.Station) []s7.Station {
	stations := []s7.Station{configured}
	for _, st := range s7.DefaultStations {
		if st != configured {
			stations = append(stations, st)
		}
	}
	return stations
}

// applyFlags copies explicitly set flags over the configuration.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = *host
		case "rack", "remoteRack":
			cfg.Rack = *rack
		case "slot", "remoteSlot":
			cfg.Slot = *slot
		case "cycles", "numCycles":
			cfg.NumCycles = *numCycles
		case "cycle-time", "cycleTime":
			cfg.CycleTime = time.Duration(*cycleTime) * time.Millisecond
		case "driver":
			cfg.Drivers = splitList(*drivers)
		case "bus":
			cfg.Bus = *bus
		case "tags-file":
			cfg.TagsFile = *tagsFile
			cfg.Tags = ""
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log":
			cfg.Log.File = *logFile
		case "log-debug":
			if cfg.Log.DebugFile == "" {
				cfg.Log.DebugFile = "debug.log"
			}
			cfg.Log.DebugFilter = *logDebug
		case "p":
			cfg.Web.Port = *httpPort
			cfg.Web.Enabled = true
		case "serve":
			cfg.Web.Serve = *serve
			if *serve {
				cfg.Web.Enabled = true
			}
		case "namespace":
			cfg.Namespace = *namespace
		}
	})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}

// run executes the benchmark and returns the process exit code.
func run(cfg *config.Config) int {
	var fileLogger *logging.FileLogger
	if cfg.Log.File != "" {
		var err error
		fileLogger, err = logging.NewFileLogger(cfg.Log.File)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to open log file: %v\n", err)
		} else {
			defer fileLogger.Close()
		}
	}

	var fileOut io.Writer
	if fileLogger != nil {
		fileOut = fileLogger
	}
	log, err := logging.NewConsole(os.Stderr, cfg.Log.Level, fileOut)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return 1
	}

	if cfg.Log.DebugFile != "" {
		debugLogger, err := logging.NewDebugLogger(cfg.Log.DebugFile)
		if err != nil {
			log.Warn().Err(err).Msg("failed to open debug log")
		} else {
			filter := cfg.Log.DebugFilter
			if filter == "all" || filter == "true" || filter == "1" {
				filter = ""
			}
			debugLogger.SetFilter(filter)
			logging.SetGlobalDebugLogger(debugLogger)
			defer func() {
				logging.SetGlobalDebugLogger(nil)
				debugLogger.Close()
			}()
			log.Info().Str("file", cfg.Log.DebugFile).Str("filter", filter).Msg("debug logging enabled")
		}
	}

	specs, source, err := loadScenario(cfg)
	if err != nil {
		log.Error().Err(err).Msg("invalid tag list")
		return 1
	}
	log.Debug().Str("source", string(source)).Int("tags", len(specs)).Msg("tag list loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sinks := newSinks(cfg, log)
	sinks.start(ctx)
	defer sinks.stop()

	var server *api.Server
	if cfg.Web.Enabled {
		server = api.NewServer(&cfg.Web, sinks)
		if err := server.Start(); err != nil {
			log.Warn().Err(err).Msg("continuing without status API")
			server = nil
		} else {
			log.Info().Str("url", server.Address()+"/api/").Msg("status API")
			defer server.Stop()
		}
	}

	opts := driver.Options{
		Address:          cfg.Host,
		Rack:             cfg.Rack,
		Slot:             cfg.Slot,
		Timeout:          cfg.Timeout,
		Bus:              cfg.Bus,
		MaxItemsPerBatch: cfg.MaxItemsPerBatch,
	}
	if strings.EqualFold(cfg.Bus, driver.BusSim) {
		sim := s7.NewSimulator(0)
		if err := bench.SeedSimulator(sim, specs); err != nil {
			log.Error().Err(err).Msg("seed simulator")
			return 1
		}
		opts.Simulator = sim
	}

	scenario := bench.Scenario{
		Host:      cfg.Host,
		Rack:      cfg.Rack,
		Slot:      cfg.Slot,
		Bus:       cfg.Bus,
		Cycles:    cfg.NumCycles,
		CycleTime: cfg.CycleTime,
	}

	fmt.Printf("%s\n\n", bench.ScenarioLine(len(specs), cfg.NumCycles, cfg.CycleTime))

	failed := 0
	for _, name := range cfg.Drivers {
		if ctx.Err() != nil {
			break
		}
		if err := runDriver(ctx, log, name, opts, scenario, specs, sinks.publishers()); err != nil {
			failed++
		}
	}

	if server != nil && cfg.Web.Serve && ctx.Err() == nil {
		log.Info().Msg("benchmark finished, status API still running. Press Ctrl+C to stop")
		<-ctx.Done()
	}

	if ctx.Err() != nil {
		log.Warn().Msg("interrupted")
		return 130
	}
	if failed > 0 {
		return 1
	}
	return 0
}

// loadScenario resolves the tag source and parses it.
func loadScenario(cfg *config.Config) ([]bench.TagSpec, config.TagSource, error) {
	text, source, err := cfg.TagList()
	if err != nil {
		return nil, source, err
	}
	if source == config.TagSourceDefault {
		text = bench.DefaultTags
	}
	specs, err := bench.ParseTagList(text)
	if err != nil {
		return nil, source, fmt.Errorf("%s tags: %w", source, err)
	}
	if len(specs) == 0 {
		return nil, source, fmt.Errorf("%s tags: no tags", source)
	}
	return specs, source, nil
}

// runDriver benchmarks one driver variant, prints its result line and
// publishes the report.
func runDriver(ctx context.Context, log zerolog.Logger, name string, opts driver.Options,
	sc bench.Scenario, specs []bench.TagSpec, pubs []bench.Publisher) error {

	fmt.Printf("Running: '%s'\n", name)

	d, err := driver.Create(name, opts)
	if err != nil {
		log.Error().Err(err).Str("driver", name).Msg("create driver")
		return err
	}

	started := time.Now()
	res, runErr := bench.Run(ctx, d, bench.Options{
		Cycles:    sc.Cycles,
		CycleTime: sc.CycleTime,
		Logger:    log,
	}, specs)

	if runErr == nil {
		fmt.Println(res.Line())
	} else {
		fmt.Printf("  --> failed after %d of %d cycles: %v\n", res.CycleCount, sc.Cycles, runErr)
	}

	rep := bench.NewReport(sc, specs, res, started, runErr)
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	bench.PublishAll(pubCtx, log, rep, pubs...)

	return runErr
}
