package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/bastiangx/heatserve/internal/logger"
	"github.com/bastiangx/heatserve/pkg/config"
	"github.com/bastiangx/heatserve/pkg/dictionary"
	"github.com/bastiangx/heatserve/pkg/similar"
	"github.com/bastiangx/heatserve/pkg/store"
	"github.com/bastiangx/heatserve/pkg/suggest"
	"github.com/bastiangx/heatserve/pkg/trie"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v2"
)

// runtime is everything a serving command needs, built from config.
type runtime struct {
	cfg        *config.Config
	configPath string
	store      store.Store
	batcher    *store.Batcher
	svc        *suggest.Service
}

// loadConfig resolves the config file and sets up logging from it.
func loadConfig(c *cli.Context) (*config.Config, string, error) {
	cfg, path, err := config.LoadConfigWithPriority(c.String("config"))
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config %s: %w", config.GetActiveConfigPath(path), err)
	}

	logger.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Log.Timestamp)
	if c.Bool("debug") {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(path))
	return cfg, path, nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	path := ""
	if store.Kind(cfg.Store.Kind) == store.KindFile {
		p, err := cfg.StorePath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	st, err := store.Open(cfg.Store.Kind, path)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Kind, err)
	}
	log.Debugf("Opened %s store at ( %s )", cfg.Store.Kind, path)
	return st, nil
}

// loadSeed reads path by its format, or returns the sample terms when path is empty.
func loadSeed(ctx context.Context, path string) ([]trie.Entry, error) {
	if path == "" {
		return dictionary.DefaultSeedTerms(), nil
	}
	format, err := dictionary.DetectFileFormat(path)
	if err != nil {
		return nil, err
	}
	if format == dictionary.FormatText {
		return dictionary.LoadTextFile(path)
	}

	src, err := store.OpenFileStore(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	records, err := src.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]trie.Entry, len(records))
	for i, r := range records {
		entries[i] = trie.Entry{Term: r.Term, Heat: r.Heat}
	}
	return entries, nil
}

// bootstrap opens the store, seeds it when empty, and loads the index.
func bootstrap(c *cli.Context) (*runtime, error) {
	cfg, path, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	alphabet, err := cfg.Alphabet()
	if err != nil {
		return nil, err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	interval, err := cfg.FlushInterval()
	if err != nil {
		return nil, err
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	ctx := c.Context
	if cfg.Seed.Enabled {
		entries, err := loadSeed(ctx, cfg.Seed.Path)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("load seed: %w", err)
		}
		n, err := dictionary.SeedIfEmpty(ctx, st, entries)
		if err != nil {
			st.Close()
			return nil, err
		}
		if n > 0 {
			log.Infof("Seeded empty store with %d terms", n)
		}
	}

	batcher := store.NewBatcher(st,
		store.WithFlushInterval(interval),
		store.WithFlushRate(cfg.Store.FlushPerSecond, 1),
	)
	svc := suggest.New(
		suggest.WithAlphabet(alphabet),
		suggest.WithPolicy(policy),
		suggest.WithSink(batcher),
	)
	stats, err := svc.LoadFrom(ctx, st)
	if err != nil {
		batcher.Close()
		st.Close()
		return nil, err
	}
	log.Debug("Index loaded",
		"terms", stats.Loaded,
		"skipped", stats.Skipped,
		"duplicates", stats.Duplicates,
		"alphabet", alphabet,
		"policy", policy)

	return &runtime{cfg: cfg, configPath: path, store: st, batcher: batcher, svc: svc}, nil
}

func (rt *runtime) similarOptions() similar.Options {
	return similar.Options{
		Algorithm: rt.cfg.Similar.Algorithm,
		Threshold: rt.cfg.Similar.Threshold,
		Limit:     rt.cfg.Similar.Limit,
	}
}

// watchConfig applies reloaded [server] limits until ctx is done.
// Without a config file it just waits.
func (rt *runtime) watchConfig(ctx context.Context, apply func(config.ServerConfig)) error {
	if rt.configPath == "" {
		<-ctx.Done()
		return nil
	}
	return config.Watch(ctx, rt.configPath, func(cfg *config.Config) {
		apply(cfg.Server)
	})
}

// Close drains pending heats into the store, then closes it.
func (rt *runtime) Close() error {
	berr := rt.batcher.Close()
	if berr != nil {
		log.Errorf("Final flush failed: %v", berr)
	}
	stats := rt.batcher.Stats()
	log.Debug("Store closed", "flushed", stats["flushedHeats"], "failures", stats["flushFailures"])
	return errors.Join(berr, rt.store.Close())
}
