package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/clipfeed/newsbrief/pkg/chat"
	"github.com/clipfeed/newsbrief/pkg/config"
	"github.com/clipfeed/newsbrief/pkg/content"
	"github.com/clipfeed/newsbrief/pkg/digest"
	"github.com/clipfeed/newsbrief/pkg/feed"
	"github.com/clipfeed/newsbrief/pkg/llm"
	"github.com/clipfeed/newsbrief/pkg/notion"
	"github.com/clipfeed/newsbrief/pkg/scheduler"
	"github.com/clipfeed/newsbrief/pkg/store"
	"github.com/clipfeed/newsbrief/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"c" long:"config" env:"CONFIG" default:"newsbrief.yml" description:"config file path"`
	Listen string `short:"l" long:"listen" env:"LISTEN" description:"listen address, overrides config"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		log.Printf("[ERROR] can't load config: %v", err)
		os.Exit(1)
	}
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}

	secrets := []string{}
	for _, s := range []string{cfg.LLM.APIKey, cfg.Notion.APIKey} {
		if s != "" {
			secrets = append(secrets, s)
		}
	}
	setupLog(opts.Debug, secrets...)

	log.Printf("[INFO] starting newsbrief version %s", revision)
	if !cfg.Notion.Enabled() {
		log.Printf("[WARN] notion api key or database id is not configured, digests will not be published")
	}

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	err = run(ctx, cfg, opts.Debug)
	cancel()

	if err != nil {
		log.Printf("[ERROR] newsbrief failed: %v", err)
		os.Exit(1)
	}

	log.Print("[INFO] shutdown complete")
}

// run wires all components and starts the scheduler and HTTP server
func run(ctx context.Context, cfg *config.Config, debug bool) error {
	searcher := feed.NewClient(cfg.Feed.BaseURL, cfg.Feed.Language, cfg.Feed.Country, cfg.Fetch.Timeout)
	fetcher := content.NewFetcher(cfg.Fetch.Timeout, cfg.Fetch.UserAgent)
	summarizer := llm.NewSummarizer(cfg.LLM)
	publisher := notion.NewPublisher(cfg.Notion, cfg.Server.Timeout)
	pipeline := digest.NewPipeline(searcher, fetcher, summarizer, publisher)

	jobStore := store.NewJobStore(cfg.Storage.SchedulesFile)
	execLog := store.NewExecLog(cfg.Storage.ExecLogFile)

	sched, err := scheduler.New(jobStore, pipeline, execLog, cfg.Scheduler.Timezone)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	if err := sched.Restore(); err != nil {
		return fmt.Errorf("restore schedules: %w", err)
	}

	history, err := chat.LoadHistory(cfg.Storage.HistoryFile)
	if err != nil {
		return fmt.Errorf("load chat history: %w", err)
	}
	assistant := chat.NewAssistant(pipeline, summarizer, history)

	srv := server.New(cfg, assistant, sched, execLog, publisher, revision, debug)
	return srv.Run(ctx)
}

func setupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Out(io.Discard), lgr.Err(io.Discard)}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
