package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/vocdoni/votegraph/acceptance"
	"github.com/vocdoni/votegraph/address"
	"github.com/vocdoni/votegraph/config"
	"github.com/vocdoni/votegraph/db/metadb"
	"github.com/vocdoni/votegraph/electionconfig"
	"github.com/vocdoni/votegraph/log"
	"github.com/vocdoni/votegraph/merge"
	"github.com/vocdoni/votegraph/service"
	"github.com/vocdoni/votegraph/store/memstore"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log.Level, cfg.Log.Output, nil)
	log.Infow("starting votegraph-mock-election", "version", Version)

	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ec, err := electionconfig.Load(os.DirFS(cfg.ElectionDir))
	if err != nil {
		log.Fatalf("failed to load election configuration: %v", err)
	}

	addrFile, err := os.Open(filepath.Clean(cfg.AddressFile))
	if err != nil {
		log.Fatalf("failed to open address file: %v", err)
	}
	addresses, err := address.ParseAddressCSVFile(addrFile)
	_ = addrFile.Close()
	if err != nil {
		log.Fatalf("failed to parse address file: %v", err)
	}
	log.Infow("loaded address book", "addresses", len(addresses))

	database, err := metadb.New(cfg.DbType, cfg.Datadir)
	if err != nil {
		log.Fatalf("failed to initialize object store backend: %v", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Warnw("failed to close database", "err", err.Error())
		}
	}()

	s := memstore.New(database)
	electionCfg := config.Default()
	pipeline := acceptance.New(s, electionCfg)

	mock := service.NewMockElection(pipeline, ec, electionCfg, addresses)
	mock.Interval = cfg.Interval
	mock.JanitorEvery = cfg.JanitorEvery

	mergeCtrl := merge.New(s, electionCfg, electionCfg.RootElectionDataSubdir)
	mergeMonitor := service.NewMergeMonitor(mergeCtrl, merge.DefaultParams(electionCfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := mock.Start(ctx); err != nil {
		log.Fatalf("failed to start mock election: %v", err)
	}
	defer mock.Stop()

	if err := mergeMonitor.Start(ctx, cfg.MergeInterval); err != nil {
		log.Fatalf("failed to start merge monitor: %v", err)
	}
	defer mergeMonitor.Stop()

	log.Info("votegraph-mock-election is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Infow("received signal, shutting down", "signal", sig.String())
}
