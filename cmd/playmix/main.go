package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/playmix/playmix/pkg/cache"
	"github.com/playmix/playmix/pkg/player"
	"github.com/playmix/playmix/pkg/playlist"
	"github.com/playmix/playmix/pkg/provider"
	"github.com/playmix/playmix/pkg/queue"
	"github.com/playmix/playmix/pkg/store"
)

type Opts struct {
	ConfigPath string `long:"config" short:"c" default:"config.toml" env:"PLAYMIX_CONFIG_PATH"`
	Debug      bool   `long:"debug"`
	NoBanner   bool   `long:"no-banner"`
}

const banner = `
        _                       _
  _ __ | | __ _ _   _ _ __ ___ (_)_  __
 | '_ \| |/ _` + "`" + ` | | | | '_ ` + "`" + ` _ \| \ \/ /
 | |_) | | (_| | |_| | | | | | | |>  <
 | .__/|_|\__,_|\__, |_| |_| |_|_/_/\_\
 |_|            |___/
`

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	group, ctx := errgroup.WithContext(ctx)

	// Parse args
	opts := Opts{}
	_, err := flags.Parse(&opts)
	if err != nil {
		log.WithError(err).Fatal("failed to parse command line arguments")
	}

	if opts.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if !opts.NoBanner {
		log.Info(banner)
	}

	log.WithFields(log.Fields{
		"version": version,
		"commit":  commit,
		"date":    date,
	}).Info("running playmix")

	log.Debugf("loading configuration %q", opts.ConfigPath)
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration file")
	}

	if cfg.Log.Filename != "" {
		file, err := os.OpenFile(cfg.Log.Filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			log.WithError(err).Fatal("failed to open log file")
		}
		defer file.Close()
		log.SetOutput(file)
	}

	storage, err := store.NewBadger(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer storage.Close()

	keys, err := provider.NewKeyProvider(cfg.Tokens)
	if err != nil {
		log.WithError(err).Fatal("failed to load API tokens")
	}

	youtube, err := provider.NewYouTube(keys)
	if err != nil {
		log.WithError(err).Fatal("failed to create provider client")
	}

	var (
		coordinator = cache.NewCoordinator(
			cache.NewStore(storage),
			cache.NewFetcher(youtube, queue.NewSerializer()),
		)
		session = playlist.NewSession(coordinator)
		library = playlist.NewLibrary(storage, coordinator)
	)

	// No same-page capability exists on a headless host, so navigation
	// lands on the full watch page in the default browser.
	ctrl := player.Select(ctx, player.NewPageController(player.OpenURL))

	// Periodically touch every collection's caches so stale sub-lists
	// refresh long before anyone navigates.
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(nil)))
	if _, err := c.AddFunc(cfg.Refresh.Schedule, func() {
		collections, err := library.List(ctx)
		if err != nil {
			log.WithError(err).Error("failed to list collections for refresh")
			return
		}

		for _, collection := range collections {
			log.Debugf("checking caches of collection %q", collection.ID)
			session.MaybeRefresh(ctx, collection, 0)
		}
	}); err != nil {
		log.WithError(err).Fatalf("invalid refresh schedule %q", cfg.Refresh.Schedule)
	}

	c.Start()

	bindAddress := cfg.Server.BindAddress
	if bindAddress == "*" {
		bindAddress = ""
	}

	srv := http.Server{
		Addr:    fmt.Sprintf("%s:%d", bindAddress, cfg.Server.Port),
		Handler: MakeHandlers(library, session, youtube, ctrl),
	}

	group.Go(func() error {
		log.Infof("running listener at %s", srv.Addr)
		return srv.ListenAndServe()
	})

	group.Go(func() error {
		defer func() {
			log.Info("shutting down cron")
			c.Stop()

			log.Info("shutting down web server")
			if err := srv.Shutdown(ctx); err != nil {
				log.WithError(err).Error("server shutdown failed")
			}

			log.Info("waiting for background refreshes")
			coordinator.Wait()
		}()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			cancel()
			return nil
		}
	})

	if err := group.Wait(); err != nil && (err != context.Canceled && err != http.ErrServerClosed) {
		log.WithError(err).Error("wait error")
	}

	log.Info("gracefully stopped")
}
