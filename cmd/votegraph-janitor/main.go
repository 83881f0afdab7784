package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vocdoni/votegraph/acceptance"
	"github.com/vocdoni/votegraph/config"
	"github.com/vocdoni/votegraph/db/metadb"
	"github.com/vocdoni/votegraph/log"
	"github.com/vocdoni/votegraph/merge"
	"github.com/vocdoni/votegraph/store/memstore"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log.Level, cfg.Log.Output, nil)
	log.Infow("starting votegraph-janitor", "version", Version)

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

	pipeline := acceptance.New(s, electionCfg)
	swept, err := pipeline.Janitor(ctx)
	if err != nil {
		log.Fatalf("acceptance janitor failed: %v", err)
	}
	log.Infow("acceptance janitor swept orphaned branches", "count", swept)

	mergeCtrl := merge.New(s, electionCfg, electionCfg.RootElectionDataSubdir)
	params := merge.DefaultParams(electionCfg)
	params.Flush = cfg.Flush
	results, err := mergeCtrl.Sweep(ctx, params)
	if err != nil {
		log.Fatalf("merge sweep failed: %v", err)
	}

	merged, skipped := 0, 0
	for _, r := range results {
		if r.Skipped {
			skipped++
			continue
		}
		merged += len(r.Merged)
	}
	log.Infow("merge sweep complete", "contests", len(results), "branchesMerged", merged, "contestsSkipped", skipped)
}
