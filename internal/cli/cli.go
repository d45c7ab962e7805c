// Package cli implements the fluxora terminal client.
package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/aryanguptajsm/fluxora/internal/config"
	"github.com/aryanguptajsm/fluxora/internal/infra"
	"github.com/aryanguptajsm/fluxora/internal/orchestrator"
	"github.com/aryanguptajsm/fluxora/internal/storage"
)

type Error struct {
	Code    int
	Message string
}

// Run executes the command line and reports a failure as an exit code.
func Run(ctx context.Context, argv []string) *Error {
	cfg, err := config.Load()
	if err != nil {
		return &Error{Code: 2, Message: err.Error()}
	}

	st := &settings{Config: cfg}
	cmd := &cli.Command{
		Name:  "fluxora",
		Usage: "Text-to-image generation from the terminal",
		Flags: globalFlags(st),
		Commands: []*cli.Command{
			generateCommand(st),
			studioCommand(st),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{Code: 1, Message: err.Error()}
	}
	return nil
}

// settings is the loaded configuration plus flags that only exist on the
// command line.
type settings struct {
	config.Config
	Verbose bool
}

func globalFlags(cfg *settings) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "proxy-url",
			Usage:       "Generation proxy endpoint",
			Value:       cfg.ProxyURL,
			Destination: &cfg.ProxyURL,
		},
		&cli.StringFlag{
			Name:        "token",
			Usage:       "Access token sent as a bearer credential",
			Value:       cfg.AccessToken,
			Destination: &cfg.AccessToken,
		},
		&cli.StringFlag{
			Name:        "apikey",
			Usage:       "Gateway api key sent with every request",
			Value:       cfg.APIKey,
			Destination: &cfg.APIKey,
		},
		&cli.StringFlag{
			Name:        "download-dir",
			Aliases:     []string{"o"},
			Usage:       "Directory for downloaded images",
			Value:       cfg.DownloadDir,
			Destination: &cfg.DownloadDir,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Usage:       "Maximum wait for one generation",
			Value:       cfg.Timeout,
			Destination: &cfg.Timeout,
		},
		&cli.BoolFlag{
			Name:        "verbose",
			Aliases:     []string{"v"},
			Usage:       "Log client activity to stderr",
			Sources:     cli.EnvVars("FLUXORA_VERBOSE"),
			Destination: &cfg.Verbose,
		},
	}
}

// client bundles everything one command needs.
type client struct {
	orch       *orchestrator.Orchestrator
	sessions   *orchestrator.MemorySessions
	downloader *orchestrator.Downloader
	out        io.Writer
	now        func() time.Time
}

func newClient(cfg *settings, out io.Writer, transport orchestrator.Transport) (*client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid configuration")
	}

	logger := infra.NewLoggerTo(os.Stderr, cfg.Env)
	if !cfg.Verbose {
		logger = logger.Level(zerolog.WarnLevel)
	}

	sessions := orchestrator.NewMemorySessions()
	if cfg.AccessToken != "" {
		sessions.SignIn(orchestrator.Session{Email: cfg.UserEmail, AccessToken: cfg.AccessToken})
	}

	if transport == nil {
		proxy := orchestrator.NewProxyClient(cfg.ProxyURL, sessions, cfg.Timeout)
		proxy.APIKey = cfg.APIKey
		proxy.Logger = &logger
		transport = proxy
	}

	store, err := storage.NewFileStore(cfg.DownloadDir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare download directory", goerr.V("dir", cfg.DownloadDir))
	}

	c := &client{
		sessions:   sessions,
		downloader: orchestrator.NewDownloader(store),
		out:        out,
		now:        time.Now,
	}
	c.orch = orchestrator.New(orchestrator.Options{
		Transport: transport,
		Notifier:  printNotifier(out),
		Logger:    &logger,
	})
	return c, nil
}
