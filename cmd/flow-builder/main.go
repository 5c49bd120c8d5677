package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/ritzau/flow-builder/pkg/config"
	"github.com/ritzau/flow-builder/pkg/flow"
	"github.com/ritzau/flow-builder/pkg/flowfile"
	"github.com/ritzau/flow-builder/pkg/logging"
	"github.com/ritzau/flow-builder/pkg/metrics"
	"github.com/ritzau/flow-builder/pkg/output"
	"github.com/ritzau/flow-builder/pkg/pubsub"
	"github.com/ritzau/flow-builder/pkg/session"
	"github.com/ritzau/flow-builder/pkg/validation"
	"github.com/ritzau/flow-builder/pkg/watcher"
	"github.com/ritzau/flow-builder/pkg/web"
)

func main() {
	// Parse command-line flags
	flags := config.Flags("flow-builder")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		logging.Fatal("failed to load config", "error", err)
	}

	level, err := logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt)
	if err != nil {
		logging.Fatal("invalid log level", "error", err)
	}
	logging.Configure(logging.Options{Level: level, JSON: cfg.JSONLogs})

	if cfg.Check != "" {
		os.Exit(runCheck(cfg.Check))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg); err != nil {
		logging.Fatal("server failed", "error", err)
	}
}

// runCheck validates a flow file and prints a report. It returns the process exit code:
// 0 when the flow could be saved, 1 when it could not and 2 when the file is unusable.
func runCheck(path string) int {
	snapshot, err := flowfile.Load(path)
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	// Loading through a graph rejects duplicate node ids and fanned-out source handles
	g := flow.NewGraph()
	if err := g.Load(snapshot); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
		return 2
	}
	snapshot = g.Snapshot()

	result := validation.ValidateSnapshot(snapshot)
	output.PrintFlowReport(os.Stdout, path, snapshot, result, validation.Stats(snapshot.Nodes, snapshot.Edges))

	if !result.Valid {
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg *config.Config) error {
	publisher := pubsub.NewTopicPublisher(pubsub.EditorTopics())
	registry := metrics.NewRegistry()

	sess := session.New(session.Options{
		ConnectBannerTTL: cfg.Banner.Connect,
		SaveBannerTTL:    cfg.Banner.Save,
		Sink:             session.MultiSink{session.LogSink{}, web.PublishSaves(publisher)},
		Recorder:         registry,
	})

	server, err := web.NewServer(web.Options{
		Session:     sess,
		Publisher:   publisher,
		Metrics:     registry.Handler(),
		AssetsDir:   cfg.Assets,
		CORSOrigins: cfg.CORS.Origins,
	})
	if err != nil {
		return err
	}

	if cfg.Assets != "" {
		err := watcher.Watch(ctx, cfg.Assets, cfg.Watch.Quiet, cfg.Watch.MaxWait, func(r watcher.Reload) {
			server.PublishAssetsChanged(r.Paths, r.StylesOnly)
		})
		if err != nil {
			// The editor still works without live reload
			logging.Warn("failed to watch assets", "path", cfg.Assets, "error", err)
		}
	}

	if cfg.OpenBrowser {
		url := fmt.Sprintf("http://localhost:%d", cfg.Port)
		go func() {
			// Give the listener a moment before the browser connects
			time.Sleep(300 * time.Millisecond)
			openBrowser(url)
		}()
	}

	return server.Start(ctx, cfg.Port)
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		logging.Warn("cannot open browser on this platform", "os", runtime.GOOS)
		return
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		logging.Warn("failed to open browser", "error", err)
	}
}
