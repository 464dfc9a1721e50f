package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bastiangx/heatserve/internal/cli"
	"github.com/bastiangx/heatserve/pkg/config"
	"github.com/bastiangx/heatserve/pkg/dictionary"
	"github.com/bastiangx/heatserve/pkg/httpapi"
	"github.com/bastiangx/heatserve/pkg/server"
	"github.com/charmbracelet/log"
	ucli "github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func serveCommand(c *ucli.Context) error {
	rt, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	limits := rt.cfg.Server
	if addr := c.String("addr"); addr != "" {
		limits.Addr = addr
	}
	srv := httpapi.NewServer(rt.svc, limits, httpapi.WithSimilarity(rt.similarOptions()))
	srv.Metrics().RegisterStats("store", rt.batcher.Stats)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(ctx) })
	g.Go(func() error {
		return rt.watchConfig(ctx, func(sc config.ServerConfig) {
			// the listen address cannot change without a restart
			sc.Addr = limits.Addr
			srv.SetLimits(sc)
		})
	})

	showStartupInfo(rt, limits.Addr)
	return g.Wait()
}

func ipcCommand(c *ucli.Context) error {
	rt, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv := server.NewServer(rt.svc, rt.cfg.Server)

	sigCtx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rt.watchConfig(gctx, srv.SetLimits) })

	// Start blocks on stdin and cannot be interrupted, so a signal returns
	// without it and the deferred Close still flushes pending heats. A request
	// still in flight after that writes through, or is logged once the store
	// is closed too.
	served := make(chan error, 1)
	go func() { served <- srv.Start() }()

	select {
	case err = <-served:
	case <-sigCtx.Done():
		log.Debug("Signal received, exiting IPC")
	}
	cancel()
	return errors.Join(err, g.Wait())
}

func cliCommand(c *ucli.Context) error {
	rt, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	limit := c.Int("limit")
	if limit < 1 {
		limit = rt.cfg.CLI.DefaultLimit
	}
	log.SetReportTimestamp(false)
	log.Debug("Input info:",
		"minPrefix", rt.cfg.Server.MinPrefix,
		"maxPrefix", rt.cfg.Server.MaxPrefix,
		"limit", limit)

	h := cli.NewInputHandler(rt.svc, rt.cfg.Server.MinPrefix, rt.cfg.Server.MaxPrefix, limit)
	return h.Start()
}

func seedCommand(c *ucli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := loadSeed(c.Context, c.String("file"))
	if err != nil {
		return err
	}

	var n int
	if c.Bool("force") {
		n, err = dictionary.Seed(c.Context, st, entries)
	} else {
		n, err = dictionary.SeedIfEmpty(c.Context, st, entries)
	}
	if err != nil {
		return err
	}
	if n == 0 && c.Bool("force") {
		log.Info("Store already holds every seed term at equal or higher heat")
		return nil
	}
	if n == 0 {
		log.Warn("Store already has terms, nothing seeded (use --force to merge)")
		return nil
	}
	log.Infof("Seeded %d terms", n)
	return nil
}

func configCommand(c *ucli.Context) error {
	if c.Bool("rebuild") {
		path, err := config.RebuildConfigFile(c.String("config"))
		if err != nil {
			return fmt.Errorf("rebuild config: %w", err)
		}
		log.Info("Rewrote config with defaults", "path", config.GetActiveConfigPath(path))
		return nil
	}

	cfg, path, err := loadConfig(c)
	if err != nil {
		return err
	}
	log.Info("Active config", "path", config.GetActiveConfigPath(path))
	log.Info("Server", "addr", cfg.Server.Addr, "default_limit", cfg.Server.DefaultLimit, "max_limit", cfg.Server.MaxLimit)
	log.Info("Store", "kind", cfg.Store.Kind, "path", cfg.Store.Path)
	return nil
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(rt *runtime, addr string) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("===========")
	println(" HeatServe ")
	println("===========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("terms: %d", rt.svc.Len())
	log.Infof("store: %s", rt.cfg.Store.Kind)
	log.Infof("listening: ( %s )", addr)
	println("===========")
	println("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
