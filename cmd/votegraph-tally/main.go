package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vocdoni/votegraph/config"
	"github.com/vocdoni/votegraph/db/metadb"
	"github.com/vocdoni/votegraph/electionconfig"
	"github.com/vocdoni/votegraph/log"
	"github.com/vocdoni/votegraph/store/memstore"
	"github.com/vocdoni/votegraph/tally"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log.Level, cfg.Log.Output, nil)
	log.Infow("starting votegraph-tally", "version", Version)

	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ec, err := electionconfig.Load(os.DirFS(cfg.ElectionDir))
	if err != nil {
		log.Fatalf("failed to load election configuration: %v", err)
	}

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
	ctx := context.Background()

	ref, err := tally.ReferenceFromConfig(ec, cfg.ContestUid)
	if err != nil {
		log.Fatalf("failed to resolve contest: %v", err)
	}

	head, err := s.Head(ctx, electionCfg.RootElectionDataSubdir)
	if err != nil {
		log.Fatalf("failed to read mainline head: %v", err)
	}

	batch, err := tally.BuildBatch(ctx, s, head, electionCfg.ContestFileSubdir, cfg.ContestUid)
	if err != nil {
		log.Fatalf("failed to build cvr batch: %v", err)
	}

	result, err := tally.Tallyho(ref, batch, nil, nil)
	if err != nil {
		log.Fatalf("tally failed: %v", err)
	}

	fmt.Print(result.Render())
}
